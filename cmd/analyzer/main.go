package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/app"
	brcfg "github.com/Arc-Celt/crypto-correlation-analyzer/internal/config"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "配置文件路径（默认 $ANALYZER_CONFIG 或 configs/config.yaml）")
		serve     = flag.Bool("serve", false, "以 HTTP 服务方式常驻运行")
		multiDay  = flag.Bool("multiday", false, "多日模式：按日期范围逐日取归档")
		target    = flag.Int("target", 0, "目标交易对数量（默认取配置）")
		timeframe = flag.String("timeframe", "", "K 线周期，如 1h（默认取配置）")
		mode      = flag.String("mode", "", "数据来源 auto/archive/live（默认取配置）")
		days      = flag.Int("days", 0, "滚动窗口回看天数（默认取配置）")
		start     = flag.String("start", "", "多日模式起始日期 YYYY-MM-DD")
		end       = flag.String("end", "", "多日模式结束日期 YYYY-MM-DD")
	)
	flag.Parse()

	path := strings.TrimSpace(*cfgPath)
	if path == "" {
		path = os.Getenv("ANALYZER_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := brcfg.Load(path)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s）", cfg.App.Env)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := application.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("运行失败: %v", err)
		}
		return
	}

	params := app.RunParams{
		TargetCount: *target,
		Timeframe:   *timeframe,
		Mode:        *mode,
		DaysBack:    *days,
		MultiDay:    *multiDay,
	}
	if *start != "" {
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			log.Fatalf("start 格式错误（需要 YYYY-MM-DD）: %v", err)
		}
		params.Start = t
	}
	if *end != "" {
		t, err := time.Parse("2006-01-02", *end)
		if err != nil {
			log.Fatalf("end 格式错误（需要 YYYY-MM-DD）: %v", err)
		}
		params.End = t
	}

	if _, err := application.RunOnce(ctx, params); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
