package coins

import (
	"context"
	"strings"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/universe"
)

// DefaultTargetCount 默认选取的交易对数量。
const DefaultTargetCount = 10

// Selector 把外部榜单筛选、核对成可交易对列表。
// 榜单不可用或凑不够时降级到兜底列表；注册表也拿不到时直接拼接出
// 未经核对的交易对。输出长度不超过 targetCount，顺序保持排名序，无重复。
type Selector struct {
	registry RegistryProvider
	ranked   RankedProvider
	rules    *universe.Registry
	quote    string
}

// NewSelector 组装选取器。ranked 可为 nil（未配置榜单来源）。
func NewSelector(registry RegistryProvider, ranked RankedProvider, rules *universe.Registry, quote string) *Selector {
	quote = symbol.NormalizeCode(quote)
	if quote == "" {
		quote = "USDT"
	}
	return &Selector{registry: registry, ranked: ranked, rules: rules, quote: quote}
}

// pickList 选取结果，去重并限制在 target 个以内。
type pickList struct {
	target int
	seen   map[string]struct{}
	items  []string
}

func newPickList(target int) *pickList {
	return &pickList{target: target, seen: make(map[string]struct{}, target)}
}

func (p *pickList) full() bool { return len(p.items) >= p.target }

func (p *pickList) add(pair string) bool {
	if pair == "" || p.full() {
		return false
	}
	if _, dup := p.seen[pair]; dup {
		return false
	}
	p.seen[pair] = struct{}{}
	p.items = append(p.items, pair)
	return true
}

// SelectTop 执行一轮完整的选取。targetCount<=0 时用默认值；
// maxFetch<=0 时取 targetCount+10。凑不满 targetCount 不算错误。
func (s *Selector) SelectTop(ctx context.Context, targetCount, maxFetch int) []string {
	if targetCount <= 0 {
		targetCount = DefaultTargetCount
	}
	if maxFetch <= 0 {
		maxFetch = targetCount + 10
	}
	rules := s.rules.Snapshot()
	resolver := NewResolver(s.quote, rules)

	registry := map[string]struct{}{}
	if s.registry != nil {
		registry = s.registry.Discover(ctx)
	}

	picks := newPickList(targetCount)

	if s.ranked != nil && len(registry) > 0 {
		if s.fillFromRanked(ctx, picks, resolver, rules, registry, maxFetch) {
			return picks.items
		}
	}

	logger.Infof("使用兜底列表核对交易对...")
	for _, base := range rules.FallbackBases {
		if picks.full() {
			break
		}
		if len(registry) > 0 {
			if pair, ok := resolver.Resolve(base, registry); ok {
				picks.add(pair)
			}
			continue
		}
		// 注册表不可用：直接拼接，未经核对
		picks.add(symbol.Join(base, s.quote))
	}

	logger.Infof("最终交易对列表: %v", symbol.Bases(picks.items))
	return picks.items
}

// fillFromRanked 走榜单主路径。返回 true 表示已凑满 targetCount。
func (s *Selector) fillFromRanked(ctx context.Context, picks *pickList, resolver *Resolver,
	rules universe.Snapshot, registry map[string]struct{}, maxFetch int) bool {

	assets, err := s.ranked.TopAssets(ctx, maxFetch+15)
	if err != nil {
		logger.Warnf("%s 榜单请求失败: %v", s.ranked.Name(), err)
		return false
	}

	logger.Infof("开始将榜单资产与交易所核对...")
	for _, asset := range assets {
		if picks.full() {
			break
		}
		code := strings.TrimSpace(asset.Symbol)
		if code == "" {
			continue
		}
		if rules.IsStablecoin(code) || rules.IsExcluded(code) {
			continue
		}
		pair, ok := resolver.Resolve(code, registry)
		if !ok {
			logger.Infof("未找到 %s 的 %s 交易对", code, s.quote)
			continue
		}
		if picks.add(pair) {
			logger.Infof("%2d. %s -> %s", len(picks.items), code, pair)
		}
	}

	if picks.full() {
		logger.Infof("榜单核对完成，共 %d 个交易对", len(picks.items))
		return true
	}
	logger.Infof("榜单只核对出 %d 个有效交易对", len(picks.items))
	return false
}
