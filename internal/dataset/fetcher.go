package dataset

import (
	"context"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"
)

// Fetcher 按顺序尝试一组后端，第一个给出非空序列的胜出。
// 每个后端只试一次；全部失败返回 ok=false，由聚合层记账。
type Fetcher struct {
	backends []Backend
}

func NewFetcher(backends ...Backend) *Fetcher {
	chain := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			chain = append(chain, b)
		}
	}
	return &Fetcher{backends: chain}
}

// Fetch 逐后端尝试。空序列与错误同样视作该后端未命中。
func (f *Fetcher) Fetch(ctx context.Context, req Request) (market.Series, bool) {
	for i, b := range f.backends {
		series, err := b.Fetch(ctx, req)
		if err == nil && !series.Empty() {
			return series, true
		}
		if err != nil && i < len(f.backends)-1 {
			logger.Infof("%s 数据源 %s 失败，尝试下一来源: %v", symbol.BaseOf(req.Symbol), b.Name(), err)
			continue
		}
		if err != nil {
			logger.Debugf("%s 数据源 %s 失败: %v", symbol.BaseOf(req.Symbol), b.Name(), err)
		}
	}
	return market.Series{}, false
}
