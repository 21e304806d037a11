package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	brcfg "github.com/Arc-Celt/crypto-correlation-analyzer/internal/config"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/runstore"
	httpapi "github.com/Arc-Celt/crypto-correlation-analyzer/internal/transport/http"
)

// App 负责应用级编排：加载配置 → 初始化依赖 → 单次运行或常驻服务。
type App struct {
	cfg      *brcfg.Config
	analyzer *Analyzer
	server   *httpapi.Server
	closers  []func() error
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// RunOnce 执行一次分析运行并返回记录。
func (a *App) RunOnce(ctx context.Context, params RunParams) (runstore.Record, error) {
	if a == nil || a.analyzer == nil {
		return runstore.Record{}, fmt.Errorf("app not initialized")
	}
	return a.analyzer.Run(ctx, params)
}

// Serve 启动 HTTP 服务并阻塞到 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close 释放持有的存储连接。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	for _, fn := range a.closers {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Analyzer 暴露底层分析器实例（测试用）。
func (a *App) Analyzer() *Analyzer {
	if a == nil {
		return nil
	}
	return a.analyzer
}
