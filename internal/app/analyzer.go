package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/analysis/correlation"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/coins"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/dataset"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/report"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/runstore"
)

// RunParams 一次分析运行的参数。零值字段取配置默认值。
type RunParams struct {
	RunID       string
	TargetCount int
	MaxFetch    int
	Timeframe   string
	Mode        string
	DaysBack    int
	MultiDay    bool
	// Start/End 为含端点的自然日范围，仅多日模式使用
	Start time.Time
	End   time.Time
}

// Analyzer 串起一次完整的分析：选取交易对 → 取数对齐 → 相关矩阵 →
// 渲染报告 → 记录历史。
type Analyzer struct {
	selector   *coins.Selector
	aggregator *dataset.Aggregator
	runs       *runstore.Store

	targetCount   int
	maxFetch      int
	timeframe     string
	mode          string
	daysBack      int
	rollingWindow int
	reportDir     string
	renderPNG     bool
}

// Run 执行一次运行并返回落库后的记录。零交易对取到数据是唯一的
// 致命错误；其余失败都只进成功/失败名单。
func (a *Analyzer) Run(ctx context.Context, params RunParams) (runstore.Record, error) {
	params = a.withDefaults(params)
	started := time.Now()

	rec := runstore.Record{
		ID:          params.RunID,
		Mode:        params.Mode,
		Timeframe:   params.Timeframe,
		MultiDay:    params.MultiDay,
		TargetCount: params.TargetCount,
	}

	symbols := a.selector.SelectTop(ctx, params.TargetCount, params.MaxFetch)
	rec.Symbols = symbols
	if a.runs != nil {
		if err := a.runs.Create(ctx, rec); err != nil {
			return runstore.Record{}, fmt.Errorf("记录运行失败: %w", err)
		}
	}

	result, err := a.acquire(ctx, symbols, params)
	if err != nil {
		rec.Status = runstore.RunStatusFailed
		rec.Error = err.Error()
		rec.Duration = time.Since(started)
		a.finish(ctx, rec)
		return runstore.Record{}, err
	}

	rec.Successes = result.Report.Successes
	rec.Failures = result.Report.Failures
	rec.Rows = result.Dataset.Rows()
	rec.Cols = result.Dataset.Cols()
	rec.SpanStart = result.Report.Start
	rec.SpanEnd = result.Report.End

	matrix, err := correlation.Compute(result.Dataset)
	if err != nil {
		rec.Status = runstore.RunStatusFailed
		rec.Error = err.Error()
		rec.Duration = time.Since(started)
		a.finish(ctx, rec)
		return runstore.Record{}, err
	}
	rec.Matrix = matrix

	if path, err := a.render(ctx, params, result, matrix); err != nil {
		// 报告失败不推翻已经算好的结果
		logger.Warnf("渲染报告失败: %v", err)
	} else {
		rec.ReportPath = path
	}

	rec.Status = runstore.RunStatusSucceeded
	rec.Duration = time.Since(started)
	a.finish(ctx, rec)
	return rec, nil
}

func (a *Analyzer) withDefaults(params RunParams) RunParams {
	if params.RunID == "" {
		params.RunID = uuid.NewString()
	}
	if params.TargetCount <= 0 {
		params.TargetCount = a.targetCount
	}
	if params.MaxFetch <= 0 {
		params.MaxFetch = a.maxFetch
	}
	if params.MaxFetch < params.TargetCount {
		params.MaxFetch = params.TargetCount + 10
	}
	if params.Timeframe == "" {
		params.Timeframe = a.timeframe
	}
	if params.Mode == "" {
		params.Mode = a.mode
	}
	if params.DaysBack <= 0 {
		params.DaysBack = a.daysBack
	}
	return params
}

func (a *Analyzer) acquire(ctx context.Context, symbols []string, params RunParams) (dataset.Result, error) {
	if params.MultiDay {
		return a.aggregator.FetchMultiDay(ctx, symbols, dataset.MultiDayOptions{
			Timeframe:   params.Timeframe,
			Start:       params.Start,
			End:         params.End,
			TargetCount: params.TargetCount,
		})
	}
	return a.aggregator.FetchRolling(ctx, symbols, dataset.RollingOptions{
		Mode:      dataset.Mode(params.Mode),
		Timeframe: params.Timeframe,
		DaysBack:  params.DaysBack,
	})
}

func (a *Analyzer) render(ctx context.Context, params RunParams, result dataset.Result, matrix correlation.Matrix) (string, error) {
	input := report.Input{
		Title:   fmt.Sprintf("相关性分析 %s", shortID(params.RunID)),
		Dataset: result.Dataset,
		Matrix:  matrix,
		Report:  result.Report,
	}
	// 相关性最强的一对再画一条滚动相关曲线
	if pairs := matrix.Pairs(); len(pairs) > 0 && result.Dataset.Rows() >= a.rollingWindow {
		rolling, err := correlation.Rolling(result.Dataset, pairs[0].A, pairs[0].B, a.rollingWindow)
		if err == nil {
			input.RollingPair = rolling
		}
	}

	html, err := report.BuildHTML(input)
	if err != nil {
		return "", err
	}
	path, err := report.WriteHTML(a.reportDir, params.RunID, html)
	if err != nil {
		return "", err
	}
	logger.Infof("报告已生成: %s", path)

	if a.renderPNG {
		if pngPath, err := report.Snapshot(ctx, a.reportDir, params.RunID, html, snapshotHeight(input)); err != nil {
			logger.Warnf("PNG 快照失败（HTML 报告不受影响）: %v", err)
		} else {
			logger.Infof("快照已生成: %s", pngPath)
		}
	}
	return path, nil
}

func (a *Analyzer) finish(ctx context.Context, rec runstore.Record) {
	if a.runs == nil {
		return
	}
	if err := a.runs.Finish(ctx, rec); err != nil {
		logger.Warnf("更新运行记录失败 %s: %v", rec.ID, err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func snapshotHeight(input report.Input) int {
	height := 640 + 480
	if !input.RollingPair.Empty() {
		height += 360
	}
	return height + 120
}
