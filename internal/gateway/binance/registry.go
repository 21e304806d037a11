package binance

import (
	"context"
	"strings"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"

	"github.com/adshao/go-binance/v2"
)

// RegistryService 拉取交易所当前可交易的报价币种交易对集合。
// 任何错误都降级为空集合：调用方把空集合视作"注册表不可用"。
type RegistryService struct {
	cfg    Config
	client *binance.Client
}

func NewRegistryService(cfg Config) (*RegistryService, error) {
	final := cfg.withDefaults()
	httpClient, err := final.newHTTPClient(final.RegistryTimeout)
	if err != nil {
		return nil, err
	}
	client := binance.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = httpClient
	return &RegistryService{cfg: final, client: client}, nil
}

// Discover 单次尽力而为：成功返回 TRADING 状态的报价币种交易对集合，
// 失败只告警并返回空集合，不重试、不报错。
func (r *RegistryService) Discover(ctx context.Context) map[string]struct{} {
	info, err := r.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		logger.Warnf("无法获取 Binance 交易对列表: %v", err)
		return map[string]struct{}{}
	}
	symbols := make(map[string]struct{})
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		if !strings.HasSuffix(s.Symbol, r.cfg.QuoteAsset) {
			continue
		}
		symbols[s.Symbol] = struct{}{}
	}
	logger.Infof("已加载 %d 个活跃 %s 交易对", len(symbols), r.cfg.QuoteAsset)
	return symbols
}

// QuoteAsset 返回注册表约束的报价币种。
func (r *RegistryService) QuoteAsset() string {
	return r.cfg.QuoteAsset
}
