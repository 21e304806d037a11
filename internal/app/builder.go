package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/coins"
	brcfg "github.com/Arc-Celt/crypto-correlation-analyzer/internal/config"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/dataset"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/gateway/binance"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/gateway/coinmarketcap"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/candlecache"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/runstore"
	httpapi "github.com/Arc-Celt/crypto-correlation-analyzer/internal/transport/http"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/universe"
)

// AppBuilder 按配置组装应用，各构建步骤可注入替身（测试用）。
type AppBuilder struct {
	cfg *brcfg.Config

	universeFn func(string) (*universe.Registry, error)
	registryFn func(binance.Config) (coins.RegistryProvider, error)
	rankedFn   func(brcfg.RankingConfig) coins.RankedProvider
	archiveFn  func(binance.Config) (dataset.DaySource, error)
	liveFn     func(binance.Config) (dataset.WindowSource, error)
	cacheFn    func(string) (dataset.DayCache, func() error, error)
	runsFn     func(string) (*runstore.Store, error)
	httpFn     func(httpapi.ServerConfig) (*httpapi.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		universeFn: universe.NewRegistry,
		registryFn: buildRegistryService,
		rankedFn:   buildRankedProvider,
		archiveFn:  buildArchiveSource,
		liveFn:     buildLiveSource,
		cacheFn:    buildCandleCache,
		runsFn:     runstore.NewStore,
		httpFn:     httpapi.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildRegistryService(cfg binance.Config) (coins.RegistryProvider, error) {
	return binance.NewRegistryService(cfg)
}

func buildRankedProvider(cfg brcfg.RankingConfig) coins.RankedProvider {
	if cfg.APIKey == "" {
		return nil
	}
	return coinmarketcap.NewClient(coinmarketcap.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}

func buildArchiveSource(cfg binance.Config) (dataset.DaySource, error) {
	return binance.NewArchiveSource(cfg)
}

func buildLiveSource(cfg binance.Config) (dataset.WindowSource, error) {
	return binance.NewLiveSource(cfg)
}

func buildCandleCache(dir string) (dataset.DayCache, func() error, error) {
	if dir == "" {
		return nil, nil, nil
	}
	store, err := candlecache.NewStore(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	rules, err := b.universeFn(cfg.Universe.Path)
	if err != nil {
		return nil, fmt.Errorf("加载 universe 规则失败: %w", err)
	}

	bnc := binance.Config{
		RESTBaseURL:     cfg.Binance.RESTBaseURL,
		VisionBaseURL:   cfg.Binance.VisionBaseURL,
		QuoteAsset:      cfg.Binance.QuoteAsset,
		RegistryTimeout: time.Duration(cfg.Binance.RegistryTimeoutSeconds) * time.Second,
		DataTimeout:     time.Duration(cfg.Binance.DataTimeoutSeconds) * time.Second,
		ProxyEnabled:    cfg.Binance.ProxyEnabled,
		RESTProxyURL:    cfg.Binance.RESTProxyURL,
	}
	registry, err := b.registryFn(bnc)
	if err != nil {
		return nil, fmt.Errorf("初始化交易所注册表失败: %w", err)
	}
	ranked := b.rankedFn(cfg.Ranking)
	if ranked == nil {
		logger.Infof("未配置榜单 api_key，选取器只走兜底列表")
	}
	selector := coins.NewSelector(registry, ranked, rules, cfg.Binance.QuoteAsset)

	archiveSrc, err := b.archiveFn(bnc)
	if err != nil {
		return nil, fmt.Errorf("初始化归档数据源失败: %w", err)
	}
	liveSrc, err := b.liveFn(bnc)
	if err != nil {
		return nil, fmt.Errorf("初始化实时数据源失败: %w", err)
	}

	var closers []func() error
	cache, closeCache, err := b.cacheFn(cfg.Store.CandleCacheDir)
	if err != nil {
		return nil, fmt.Errorf("初始化 K 线缓存失败: %w", err)
	}
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	var archiveOpts []dataset.ArchiveBackendOption
	if cache != nil {
		archiveOpts = append(archiveOpts, dataset.WithDayCache(cache))
	}
	aggregator := dataset.NewAggregator(
		dataset.NewArchiveBackend(archiveSrc, archiveOpts...),
		dataset.NewLiveBackend(liveSrc),
		dataset.WithPaceDelay(time.Duration(cfg.Analysis.PaceDelayMS)*time.Millisecond),
	)

	runs, err := b.runsFn(cfg.Store.RunsDBPath)
	if err != nil {
		return nil, fmt.Errorf("初始化运行历史库失败: %w", err)
	}
	closers = append(closers, runs.Close)

	analyzer := &Analyzer{
		selector:      selector,
		aggregator:    aggregator,
		runs:          runs,
		targetCount:   cfg.Analysis.TargetCount,
		maxFetch:      cfg.Analysis.MaxFetch,
		timeframe:     cfg.Analysis.Timeframe,
		mode:          cfg.Analysis.SourceMode,
		daysBack:      cfg.Analysis.DaysBack,
		rollingWindow: cfg.Analysis.RollingWindow,
		reportDir:     cfg.Report.OutputDir,
		renderPNG:     cfg.Report.RenderPNG,
	}

	server, err := b.httpFn(httpapi.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Runs:    runs,
		Execute: executeFunc(analyzer),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{
		cfg:      cfg,
		analyzer: analyzer,
		server:   server,
		closers:  closers,
	}, nil
}

// executeFunc 把 HTTP 任务请求翻译成一次分析运行。
func executeFunc(analyzer *Analyzer) httpapi.ExecuteFunc {
	return func(ctx context.Context, req httpapi.RunRequest) (runstore.Record, error) {
		params := RunParams{
			RunID:       req.ID,
			TargetCount: req.TargetCount,
			Timeframe:   req.Timeframe,
			Mode:        req.Mode,
			DaysBack:    req.DaysBack,
			MultiDay:    req.MultiDay,
		}
		if req.Start != "" {
			if t, err := time.Parse("2006-01-02", req.Start); err == nil {
				params.Start = t
			}
		}
		if req.End != "" {
			if t, err := time.Parse("2006-01-02", req.End); err == nil {
				params.End = t
			}
		}
		return analyzer.Run(ctx, params)
	}
}
