package config

import "strings"

// Config 是分析器的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Binance  BinanceConfig  `toml:"binance"`
	Ranking  RankingConfig  `toml:"ranking"`
	Analysis AnalysisConfig `toml:"analysis"`
	Universe UniverseConfig `toml:"universe"`
	Store    StoreConfig    `toml:"store"`
	Report   ReportConfig   `toml:"report"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// BinanceConfig 描述交易所元数据与行情数据的访问方式。
type BinanceConfig struct {
	RESTBaseURL            string `toml:"rest_base_url"`
	VisionBaseURL          string `toml:"vision_base_url"`
	QuoteAsset             string `toml:"quote_asset"`
	RegistryTimeoutSeconds int    `toml:"registry_timeout_seconds"`
	DataTimeoutSeconds     int    `toml:"data_timeout_seconds"`
	ProxyEnabled           bool   `toml:"proxy_enabled"`
	RESTProxyURL           string `toml:"rest_proxy_url"`
}

// RankingConfig 描述外部市值榜单来源。api_key 只在这里出现，
// 由组装层显式传给选取器，深层代码不读环境变量。
type RankingConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AnalysisConfig 控制一次分析运行的默认参数。
type AnalysisConfig struct {
	TargetCount   int    `toml:"target_count"`
	MaxFetch      int    `toml:"max_fetch"`
	Timeframe     string `toml:"timeframe"`
	SourceMode    string `toml:"source_mode"`
	DaysBack      int    `toml:"days_back"`
	PaceDelayMS   int    `toml:"pace_delay_ms"`
	RollingWindow int    `toml:"rolling_window"`
}

// UniverseConfig 指向可选的资产分类规则文件；为空用内置规则。
type UniverseConfig struct {
	Path string `toml:"path"`
}

type StoreConfig struct {
	CandleCacheDir string `toml:"candle_cache_dir"`
	RunsDBPath     string `toml:"runs_db_path"`
}

type ReportConfig struct {
	OutputDir string `toml:"output_dir"`
	RenderPNG bool   `toml:"render_png"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
