package config

import "strings"

// 默认值常量
const (
	defaultAppEnv              = "dev"
	defaultAppLogLevel         = "info"
	defaultAppHTTPAddr         = ":9992"
	defaultAppLogPath          = ""
	defaultBinanceREST         = "https://api.binance.com"
	defaultBinanceVision       = "https://data.binance.vision"
	defaultBinanceQuote        = "USDT"
	defaultRegistryTimeout     = 10
	defaultDataTimeout         = 30
	defaultRankingBase         = "https://pro-api.coinmarketcap.com"
	defaultRankingTimeout      = 15
	defaultAnalysisTarget      = 10
	defaultAnalysisTimeframe   = "1h"
	defaultAnalysisMode        = "auto"
	defaultAnalysisDaysBack    = 7
	defaultAnalysisPaceDelayMS = 100
	defaultAnalysisRollingWin  = 24
	defaultCandleCacheDir      = "data/candles"
	defaultRunsDBPath          = "data/runs.db"
	defaultReportDir           = "data/reports"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Binance.applyDefaults(keys)
	c.Ranking.applyDefaults(keys)
	c.Analysis.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Report.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		stringFieldDefault("binance.vision_base_url", &b.VisionBaseURL, defaultBinanceVision),
		stringFieldDefault("binance.quote_asset", &b.QuoteAsset, defaultBinanceQuote),
		intFieldDefault("binance.registry_timeout_seconds", &b.RegistryTimeoutSeconds, defaultRegistryTimeout),
		intFieldDefault("binance.data_timeout_seconds", &b.DataTimeoutSeconds, defaultDataTimeout),
	)
}

func (r *RankingConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ranking.base_url", &r.BaseURL, defaultRankingBase),
		intFieldDefault("ranking.timeout_seconds", &r.TimeoutSeconds, defaultRankingTimeout),
	)
}

func (a *AnalysisConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("analysis.target_count", &a.TargetCount, defaultAnalysisTarget),
		stringFieldDefault("analysis.timeframe", &a.Timeframe, defaultAnalysisTimeframe),
		stringFieldDefault("analysis.source_mode", &a.SourceMode, defaultAnalysisMode),
		intFieldDefault("analysis.days_back", &a.DaysBack, defaultAnalysisDaysBack),
		intFieldDefault("analysis.pace_delay_ms", &a.PaceDelayMS, defaultAnalysisPaceDelayMS),
		intFieldDefault("analysis.rolling_window", &a.RollingWindow, defaultAnalysisRollingWin),
	)
	// max_fetch 跟随 target_count，显式设置的值优先
	if a.MaxFetch <= 0 {
		a.MaxFetch = a.TargetCount + 10
	}
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.candle_cache_dir", &s.CandleCacheDir, defaultCandleCacheDir),
		stringFieldDefault("store.runs_db_path", &s.RunsDBPath, defaultRunsDBPath),
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("report.output_dir", &r.OutputDir, defaultReportDir),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
