package coinmarketcap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/coins"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL  = "https://pro-api.coinmarketcap.com"
	listingsPath    = "/v1/cryptocurrency/listings/latest"
	apiKeyHeader    = "X-CMC_PRO_API_KEY"
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 100
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client 按市值排序拉取 CoinMarketCap 榜单。返回内容视作不可信输入：
// 任何非 200 或解析失败都以错误上抛，由选取器降级处理。
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "coinmarketcap" }

// TopAssets 拉取市值前 limit 的资产记录。
func (c *Client) TopAssets(ctx context.Context, limit int) ([]coins.RankedAsset, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("coinmarketcap api key 未配置")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	u.Path = listingsPath
	q := u.Query()
	q.Set("start", "1")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("convert", "USD")
	q.Set("sort", "market_cap")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching listings: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(body, "status.error_message"); msg.Exists() && msg.String() != "" {
			return nil, fmt.Errorf("HTTP status %d: %s", resp.StatusCode, msg.String())
		}
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return parseListings(body)
}

func parseListings(body []byte) ([]coins.RankedAsset, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("响应不是合法 JSON")
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || !data.IsArray() {
		return nil, fmt.Errorf("响应缺少 data 数组")
	}

	var out []coins.RankedAsset
	data.ForEach(func(_, item gjson.Result) bool {
		code := strings.TrimSpace(item.Get("symbol").String())
		if code == "" {
			return true
		}
		out = append(out, coins.RankedAsset{
			Symbol:    code,
			Name:      item.Get("name").String(),
			Rank:      int(item.Get("cmc_rank").Int()),
			Price:     decimalOf(item.Get("quote.USD.price")),
			MarketCap: decimalOf(item.Get("quote.USD.market_cap")),
		})
		return true
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("榜单为空")
	}
	return out, nil
}

// decimalOf 优先按原始字面量精确解析，失败退回浮点。
func decimalOf(res gjson.Result) decimal.Decimal {
	if !res.Exists() {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(res.Raw)); err == nil {
		return d
	}
	return decimal.NewFromFloat(res.Float())
}
