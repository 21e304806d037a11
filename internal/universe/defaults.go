package universe

// 内置资产分类规则。外部 YAML 文件可整组覆盖，缺省时使用这里的值。

var defaultAliases = map[string]string{
	// 个别资产在交易所以不同的基础代码上市
	"HYPE": "HYPER",
}

var defaultStablecoins = []string{
	"USDT", "USDC", "BUSD", "TUSD", "DAI", "FDUSD", "USDE",
}

var defaultExcluded = []string{
	"WETH", "WBTC", "STETH",
}

var defaultFallbackBases = []string{
	"BTC", "ETH", "BNB", "XRP", "SOL", "ADA", "DOGE", "AVAX",
	"DOT", "LINK", "MATIC", "LTC", "UNI", "ATOM", "XLM",
	"FIL", "ETC", "AAVE", "ALGO", "VET", "TRX", "SUI",
}
