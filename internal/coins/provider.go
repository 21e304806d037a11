package coins

import (
	"context"

	"github.com/shopspring/decimal"
)

// RankedAsset 外部榜单里的一条资产记录（按市值排名）。只读输入。
type RankedAsset struct {
	Symbol    string
	Name      string
	Rank      int
	Price     decimal.Decimal
	MarketCap decimal.Decimal
}

// RankedProvider 资产榜单来源。limit 为期望返回的最大条数。
// 返回错误表示榜单不可用，调用方降级到兜底列表，不终止流程。
type RankedProvider interface {
	TopAssets(ctx context.Context, limit int) ([]RankedAsset, error)
	Name() string
}

// RegistryProvider 交易所可交易对集合来源。失败以空集合表达。
type RegistryProvider interface {
	Discover(ctx context.Context) map[string]struct{}
}

// StaticRankedProvider 静态榜单，按给定顺序视作排名。
type StaticRankedProvider struct {
	symbols []string
}

func NewStaticRankedProvider(symbols []string) *StaticRankedProvider {
	return &StaticRankedProvider{symbols: symbols}
}

func (p *StaticRankedProvider) Name() string { return "static" }

func (p *StaticRankedProvider) TopAssets(_ context.Context, limit int) ([]RankedAsset, error) {
	out := make([]RankedAsset, 0, len(p.symbols))
	for i, s := range p.symbols {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, RankedAsset{Symbol: s, Rank: i + 1})
	}
	return out, nil
}
