package correlation

import (
	"fmt"
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
)

// Matrix 列两两之间的皮尔逊相关系数，对角线恒为 1。
// Symbols 的顺序与 Values 的行列顺序一致。
type Matrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

func (m Matrix) Size() int { return len(m.Symbols) }

// At 返回第 i 行第 j 列的系数；越界返回 NaN。
func (m Matrix) At(i, j int) float64 {
	if i < 0 || j < 0 || i >= len(m.Values) || j >= len(m.Values[i]) {
		return math.NaN()
	}
	return m.Values[i][j]
}

// PairCoef 一对交易对的相关系数。
type PairCoef struct {
	A    string  `json:"a"`
	B    string  `json:"b"`
	Coef float64 `json:"coef"`
}

// Pairs 返回上三角的全部组合，按系数绝对值降序。
func (m Matrix) Pairs() []PairCoef {
	var out []PairCoef
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.Size(); j++ {
			out = append(out, PairCoef{A: m.Symbols[i], B: m.Symbols[j], Coef: m.At(i, j)})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Coef) > math.Abs(out[b].Coef)
	})
	return out
}

// Compute 对数据集的全部列计算整窗皮尔逊相关矩阵。
// 至少需要两行数据；列数不足两列时返回只有对角线的退化矩阵。
func Compute(ds market.Dataset) (Matrix, error) {
	if ds.Rows() < 2 {
		return Matrix{}, fmt.Errorf("计算相关性至少需要 2 行数据，当前 %d 行", ds.Rows())
	}
	n := ds.Cols()
	cols := make([][]float64, n)
	for i, sym := range ds.Symbols {
		cols[i] = ds.Column(sym)
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			coef := fullWindowCorrel(cols[i], cols[j])
			values[i][j] = coef
			values[j][i] = coef
		}
	}
	return Matrix{Symbols: append([]string(nil), ds.Symbols...), Values: values}, nil
}

// fullWindowCorrel 取整个窗口作为周期，talib 输出的最后一个值即全窗系数。
func fullWindowCorrel(a, b []float64) float64 {
	out := talib.Correl(a, b, len(a))
	if len(out) == 0 {
		return 0
	}
	return sanitize(clamp(out[len(out)-1]))
}

// Rolling 计算两列之间的滚动相关序列，窗口为 window 行。
// 返回序列的时间戳取每个窗口的末端；数据不足一个窗口时返回错误。
func Rolling(ds market.Dataset, symbolA, symbolB string, window int) (market.Series, error) {
	if window < 2 {
		return market.Series{}, fmt.Errorf("滚动窗口必须 >= 2，当前 %d", window)
	}
	a := ds.Column(symbolA)
	b := ds.Column(symbolB)
	if a == nil || b == nil {
		return market.Series{}, fmt.Errorf("数据集中缺少列: %s / %s", symbolA, symbolB)
	}
	if len(a) < window {
		return market.Series{}, fmt.Errorf("数据不足一个窗口: %d 行 < %d", len(a), window)
	}

	out := talib.Correl(a, b, window)
	pts := make([]market.Point, 0, len(out)-window+1)
	for i := window - 1; i < len(out); i++ {
		pts = append(pts, market.Point{
			Time:  ds.Times[i],
			Close: sanitize(clamp(out[i])),
		})
	}
	name := symbolA + "~" + symbolB
	return market.Series{Symbol: name, Points: pts}, nil
}

// sanitize 把零方差列产生的 NaN/Inf 归零。
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
