package binance

import (
	"context"
	"fmt"
	"strings"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/convert"

	"github.com/adshao/go-binance/v2"
)

// 现货 REST 单次最多返回 1000 根。
const maxKlineLimit = 1000

// LiveSource 基于 go-binance SDK 的现货 K 线实时查询。
type LiveSource struct {
	cfg    Config
	client *binance.Client
}

func NewLiveSource(cfg Config) (*LiveSource, error) {
	final := cfg.withDefaults()
	httpClient, err := final.newHTTPClient(final.DataTimeout)
	if err != nil {
		return nil, err
	}
	client := binance.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = httpClient
	return &LiveSource{cfg: final, client: client}, nil
}

func (s *LiveSource) Name() string { return "live" }

// FetchWindow 拉取最近 limit 根 K 线。单次请求，失败不重试。
func (s *LiveSource) FetchWindow(ctx context.Context, symbolName, interval string, limit int) ([]market.Candle, error) {
	symbolName = strings.ToUpper(strings.TrimSpace(symbolName))
	if symbolName == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval 不能为空")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	kls, err := s.client.NewKlinesService().
		Symbol(symbolName).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:    kl.OpenTime,
			CloseTime:   kl.CloseTime,
			Open:        convert.ToFloat64(kl.Open),
			High:        convert.ToFloat64(kl.High),
			Low:         convert.ToFloat64(kl.Low),
			Close:       convert.ToFloat64(kl.Close),
			Volume:      convert.ToFloat64(kl.Volume),
			QuoteVolume: convert.ToFloat64(kl.QuoteAssetVolume),
			Trades:      kl.TradeNum,
		})
	}
	return out, nil
}
