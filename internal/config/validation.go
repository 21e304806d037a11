package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Binance.validate(); err != nil {
		return err
	}
	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if err := c.Report.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BinanceConfig) validate() error {
	if strings.TrimSpace(b.RESTBaseURL) == "" {
		return fmt.Errorf("binance.rest_base_url cannot be empty")
	}
	if strings.TrimSpace(b.VisionBaseURL) == "" {
		return fmt.Errorf("binance.vision_base_url cannot be empty")
	}
	if strings.TrimSpace(b.QuoteAsset) == "" {
		return fmt.Errorf("binance.quote_asset cannot be empty")
	}
	if b.ProxyEnabled && strings.TrimSpace(b.RESTProxyURL) == "" {
		return fmt.Errorf("binance.rest_proxy_url required when proxy_enabled")
	}
	return nil
}

func (a *AnalysisConfig) validate() error {
	if a.TargetCount <= 0 {
		return fmt.Errorf("analysis.target_count must be > 0")
	}
	if a.MaxFetch < a.TargetCount {
		return fmt.Errorf("analysis.max_fetch must be >= target_count")
	}
	if a.DaysBack <= 0 {
		return fmt.Errorf("analysis.days_back must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(a.SourceMode)) {
	case "", "auto", "archive", "live", "vision", "api":
	default:
		return fmt.Errorf("analysis.source_mode must be auto/archive/live, got %q", a.SourceMode)
	}
	if a.RollingWindow < 2 {
		return fmt.Errorf("analysis.rolling_window must be >= 2")
	}
	return nil
}

func (r *ReportConfig) validate() error {
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("report.output_dir cannot be empty")
	}
	return nil
}
