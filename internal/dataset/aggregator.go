package dataset

import (
	"context"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"

	"golang.org/x/time/rate"
)

// DefaultPaceDelay 相邻请求之间的固定间隔，用于规避交易所的粗粒度限流。
const DefaultPaceDelay = 100 * time.Millisecond

const defaultTargetCount = 10

// Aggregator 驱动序列获取：滚动窗口模式和多日模式，严格串行执行，
// 同一时刻只有一个未完成的网络请求。
type Aggregator struct {
	archive Backend
	live    Backend
	limiter *rate.Limiter
	clock   func() time.Time
}

type AggregatorOption func(*Aggregator)

// WithPaceDelay 调整请求间隔；delay<=0 表示不限速（测试用）。
func WithPaceDelay(delay time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if delay <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
}

func WithClock(clock func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAggregator 组装聚合器。live 可为 nil（纯归档部署）。
func NewAggregator(archive, live Backend, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		archive: archive,
		live:    live,
		limiter: rate.NewLimiter(rate.Every(DefaultPaceDelay), 1),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// wait 在两次请求之间插入固定间隔。上下文取消原样上抛。
func (a *Aggregator) wait(ctx context.Context) error {
	if a.limiter == nil {
		return ctx.Err()
	}
	return a.limiter.Wait(ctx)
}

// chainFor 按模式装配后端链：auto = 归档→实时，单一模式只装一个。
func (a *Aggregator) chainFor(mode Mode) *Fetcher {
	switch mode {
	case ModeArchive:
		return NewFetcher(a.archive)
	case ModeLive:
		return NewFetcher(a.live)
	default:
		return NewFetcher(a.archive, a.live)
	}
}

// RollingOptions 滚动窗口模式参数。
type RollingOptions struct {
	Mode      Mode
	Timeframe string
	DaysBack  int
	// Day 归档取数的锚定日期；零值取昨天（UTC）。
	Day time.Time
}

// Result 聚合产物：对齐后的数据集与报告。
type Result struct {
	Dataset market.Dataset
	Report  Report
}

// FetchRolling 逐交易对取最近一段收盘价，按模式做归档→实时降级，
// 再外对齐合并。全部失败返回 NoDataError。
func (a *Aggregator) FetchRolling(ctx context.Context, symbols []string, opts RollingOptions) (Result, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return Result{}, err
	}
	tf, err := market.ParseTimeframe(orDefault(opts.Timeframe, "1h"))
	if err != nil {
		return Result{}, err
	}
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}

	logger.Infof("开始获取数据: %v", symbol.Bases(symbols))
	logger.Infof("来源: %s, 周期: %s", mode, tf.Key)

	fetcher := a.chainFor(mode)
	var (
		collected []market.Series
		successes []string
		failures  []string
	)
	for i, sym := range symbols {
		logger.Infof("[%d/%d] 获取 %s...", i+1, len(symbols), symbol.BaseOf(sym))
		if err := a.wait(ctx); err != nil {
			return Result{}, err
		}
		series, ok := fetcher.Fetch(ctx, Request{
			Symbol:    sym,
			Timeframe: tf,
			Day:       opts.Day,
			DaysBack:  daysBack,
		})
		if ok {
			collected = append(collected, series)
			successes = append(successes, sym)
			logger.Infof("成功: %s - %d 条数据", sym, series.Len())
			continue
		}
		failures = append(failures, sym)
		logger.Infof("失败: %s", sym)
	}

	return a.assemble(mode, tf.Key, collected, successes, failures)
}

// MultiDayOptions 多日模式参数。
type MultiDayOptions struct {
	Timeframe string
	// Start/End 为含端点的自然日范围；零值取 7 天前 ~ 昨天。
	Start time.Time
	End   time.Time
	// TargetCount 个交易对成功后不再开启新的交易对。
	TargetCount int
}

// FetchMultiDay 对每个交易对在日期范围内逐日取归档并按日期顺序拼接。
// 至少取到一天即算该交易对成功；凑满 TargetCount 个成功交易对后，
// 在交易对之间显式提前退出（进行中的日循环会走完）。
func (a *Aggregator) FetchMultiDay(ctx context.Context, symbols []string, opts MultiDayOptions) (Result, error) {
	tf, err := market.ParseTimeframe(orDefault(opts.Timeframe, "1h"))
	if err != nil {
		return Result{}, err
	}
	target := opts.TargetCount
	if target <= 0 {
		target = defaultTargetCount
	}
	now := a.clock().UTC()
	start := opts.Start
	if start.IsZero() {
		start = now.AddDate(0, 0, -7)
	}
	end := opts.End
	if end.IsZero() {
		end = now.AddDate(0, 0, -1)
	}
	days := daysBetween(start, end)

	logger.Infof("获取 %s ~ %s 的数据", start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"))
	logger.Infof("交易对: %v", symbol.Bases(symbols))

	fetcher := NewFetcher(a.archive)
	var (
		collected []market.Series
		successes []string
		failures  []string
	)
	for _, sym := range symbols {
		if len(successes) >= target {
			logger.Infof("已凑满 %d 个交易对，停止开启新的交易对", target)
			break
		}

		combined := market.Series{Symbol: sym}
		okDays := 0
		for _, day := range days {
			if err := a.wait(ctx); err != nil {
				return Result{}, err
			}
			series, ok := fetcher.Fetch(ctx, Request{Symbol: sym, Timeframe: tf, Day: day})
			if !ok {
				continue
			}
			combined.Extend(series)
			okDays++
		}

		if combined.Empty() {
			failures = append(failures, sym)
			logger.Infof("失败: %s - 没有取到任何数据", sym)
			continue
		}
		combined = combined.Normalize()
		collected = append(collected, combined)
		successes = append(successes, sym)
		logger.Infof("成功: %s - %d 条数据，来自 %d 天", sym, combined.Len(), okDays)
	}

	return a.assemble(ModeArchive, tf.Key, collected, successes, failures)
}

// assemble 外对齐合并并产出报告；零成功交易对时报 NoDataError。
func (a *Aggregator) assemble(mode Mode, timeframe string, collected []market.Series, successes, failures []string) (Result, error) {
	if len(collected) == 0 {
		return Result{}, &NoDataError{Mode: mode, Attempts: len(successes) + len(failures)}
	}
	ds := market.Align(collected)
	report := Report{
		Mode:      mode,
		Timeframe: timeframe,
		Successes: successes,
		Failures:  failures,
		Rows:      ds.Rows(),
		Columns:   ds.Cols(),
	}
	if start, end, ok := ds.Span(); ok {
		report.Start = start
		report.End = end
	}
	logger.InfoBlock(report.Summary())
	return Result{Dataset: ds, Report: report}, nil
}

// daysBetween 列出含端点的自然日序列（UTC 零点）。end 在 start 之前时为空。
func daysBetween(start, end time.Time) []time.Time {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
