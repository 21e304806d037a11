package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"
)

// Report 一次聚合的可观测结果：成功/失败名单、表形状与时间跨度。
type Report struct {
	Mode      Mode
	Timeframe string
	Successes []string
	Failures  []string
	Rows      int
	Columns   int
	Start     time.Time
	End       time.Time
}

// Summary 渲染多行汇总块，供日志逐行输出。
func (r Report) Summary() string {
	var b strings.Builder
	b.WriteString("最终结果:\n")
	fmt.Fprintf(&b, "成功: %d 个交易对\n", len(r.Successes))
	fmt.Fprintf(&b, "失败: %d 个交易对\n", len(r.Failures))
	fmt.Fprintf(&b, "数据集形状: %d 行 × %d 列\n", r.Rows, r.Columns)
	if !r.Start.IsZero() && !r.End.IsZero() {
		fmt.Fprintf(&b, "时间范围: %s ~ %s\n",
			r.Start.Format("2006-01-02 15:04"), r.End.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "交易对: %v", symbol.Bases(r.Successes))
	return b.String()
}
