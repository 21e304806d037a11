package coins

import (
	"sort"
	"strings"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/universe"
)

// Resolver 把抽象资产代码映射为交易所可交易对。
// 匹配顺序严格固定，命中即返回：
//  1. 直接拼接 base+quote；
//  2. 大写规范化后的拼接；
//  3. 别名表（个别资产在交易所以其他基础代码上市）；
//  4. 按字典序扫描注册表，取前缀等于 base、后缀等于 quote 的第一个：
//     多个候选时字典序保证结果确定。
//
// 注册表为空时一律视为未命中。
type Resolver struct {
	quote string
	rules universe.Snapshot
}

func NewResolver(quote string, rules universe.Snapshot) *Resolver {
	quote = symbol.NormalizeCode(quote)
	if quote == "" {
		quote = "USDT"
	}
	return &Resolver{quote: quote, rules: rules}
}

func (r *Resolver) Quote() string { return r.quote }

// Resolve 返回匹配到的交易对；未命中返回 ("", false)。
// 命中结果与直接拼接不同时记录一条提示，暴露代码漂移。
func (r *Resolver) Resolve(base string, registry map[string]struct{}) (string, bool) {
	base = strings.TrimSpace(base)
	if base == "" || len(registry) == 0 {
		return "", false
	}

	exact := base + r.quote
	if _, ok := registry[exact]; ok {
		return exact, true
	}

	variants := make([]string, 0, 4)
	variants = append(variants, symbol.Join(base, r.quote))
	if alias, ok := r.rules.AliasFor(base); ok {
		variants = append(variants, symbol.Join(alias, r.quote))
	}
	variants = append(variants, r.prefixMatches(base, registry)...)

	for _, v := range variants {
		if v == "" {
			continue
		}
		if _, ok := registry[v]; !ok {
			continue
		}
		if v != exact {
			logger.Infof("找到替代交易对: %s -> %s", base, symbol.BaseOf(v))
		}
		return v, true
	}
	return "", false
}

// prefixMatches 按字典序收集 base 前缀匹配的注册表条目。
func (r *Resolver) prefixMatches(base string, registry map[string]struct{}) []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, base) && strings.HasSuffix(k, r.quote) {
			out = append(out, k)
		}
	}
	return out
}
