package dataset

import (
	"context"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
)

// DefaultDaysBack 滚动窗口模式默认回看天数。
const DefaultDaysBack = 7

// Request 描述一次单交易对的序列请求。
// 归档后端按 Day 取一个自然日；实时后端按 DaysBack 推算窗口长度。
type Request struct {
	Symbol    string
	Timeframe market.Timeframe
	Day       time.Time
	DaysBack  int
}

// Backend 统一各数据后端的拉取契约：成功返回序列，失败返回错误，
// 由调用方吸收并尝试下一后端。新增后端只需实现本接口并加入链条。
type Backend interface {
	Name() string
	Fetch(ctx context.Context, req Request) (market.Series, error)
}

// DaySource 按自然日拉取 K 线（归档实现）。
type DaySource interface {
	Name() string
	FetchDay(ctx context.Context, symbol string, tf market.Timeframe, day time.Time) ([]market.Candle, error)
}

// WindowSource 按窗口长度拉取最近 K 线（实时实现）。
type WindowSource interface {
	Name() string
	FetchWindow(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

// DayCache 已发布归档日的本地缓存。
type DayCache interface {
	LoadDay(ctx context.Context, symbol string, tf market.Timeframe, day time.Time) ([]market.Candle, bool)
	SaveDay(ctx context.Context, symbol string, tf market.Timeframe, day time.Time, candles []market.Candle) error
}

// ArchiveBackend 把按日归档源适配成统一后端，并在命中时走本地缓存。
type ArchiveBackend struct {
	source DaySource
	cache  DayCache
	clock  func() time.Time
}

type ArchiveBackendOption func(*ArchiveBackend)

func WithDayCache(cache DayCache) ArchiveBackendOption {
	return func(b *ArchiveBackend) { b.cache = cache }
}

func WithArchiveClock(clock func() time.Time) ArchiveBackendOption {
	return func(b *ArchiveBackend) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func NewArchiveBackend(source DaySource, opts ...ArchiveBackendOption) *ArchiveBackend {
	b := &ArchiveBackend{source: source, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *ArchiveBackend) Name() string {
	if b.source != nil {
		return b.source.Name()
	}
	return "archive"
}

// Fetch 取一个自然日的收盘价序列。Day 为零值时取昨天（UTC）。
func (b *ArchiveBackend) Fetch(ctx context.Context, req Request) (market.Series, error) {
	day := req.Day
	if day.IsZero() {
		day = b.clock().UTC().AddDate(0, 0, -1)
	}
	day = day.UTC().Truncate(24 * time.Hour)

	if b.cache != nil {
		if candles, ok := b.cache.LoadDay(ctx, req.Symbol, req.Timeframe, day); ok {
			logger.Debugf("%s %s %s 命中本地缓存", req.Symbol, req.Timeframe.Key, day.Format("2006-01-02"))
			return market.ClosesOf(req.Symbol, candles), nil
		}
	}

	candles, err := b.source.FetchDay(ctx, req.Symbol, req.Timeframe, day)
	if err != nil {
		return market.Series{}, err
	}
	if b.cache != nil && len(candles) > 0 && dayElapsed(day, b.clock) {
		if err := b.cache.SaveDay(ctx, req.Symbol, req.Timeframe, day, candles); err != nil {
			logger.Warnf("写入缓存失败 %s %s: %v", req.Symbol, day.Format("2006-01-02"), err)
		}
	}
	return market.ClosesOf(req.Symbol, candles), nil
}

// dayElapsed 只有完整走完的自然日才允许入缓存。
func dayElapsed(day time.Time, clock func() time.Time) bool {
	return !clock().UTC().Before(day.Add(24 * time.Hour))
}

// LiveBackend 把实时窗口源适配成统一后端。
type LiveBackend struct {
	source WindowSource
}

func NewLiveBackend(source WindowSource) *LiveBackend {
	return &LiveBackend{source: source}
}

func (b *LiveBackend) Name() string {
	if b.source != nil {
		return b.source.Name()
	}
	return "live"
}

func (b *LiveBackend) Fetch(ctx context.Context, req Request) (market.Series, error) {
	limit := windowLimit(req.Timeframe, req.DaysBack)
	candles, err := b.source.FetchWindow(ctx, req.Symbol, req.Timeframe.SourceInterval, limit)
	if err != nil {
		return market.Series{}, err
	}
	return market.ClosesOf(req.Symbol, candles), nil
}

// windowLimit 推算实时查询的条数：1h 周期按小时数封顶 1000，其余按天数。
func windowLimit(tf market.Timeframe, daysBack int) int {
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}
	if tf.Key == "1h" {
		limit := daysBack * 24
		if limit > 1000 {
			limit = 1000
		}
		return limit
	}
	return daysBack
}
