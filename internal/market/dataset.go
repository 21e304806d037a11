package market

import (
	"math"
	"sort"
	"time"
)

// Dataset 按时间戳对齐的多列收盘价表：行 = 时间戳，列 = 交易对。
// 经 Align 构造后不含缺失值。
type Dataset struct {
	Times   []time.Time
	Symbols []string
	Values  [][]float64
}

func (d Dataset) Rows() int { return len(d.Times) }

func (d Dataset) Cols() int { return len(d.Symbols) }

func (d Dataset) Empty() bool { return len(d.Times) == 0 || len(d.Symbols) == 0 }

// Span 返回数据集覆盖的时间范围；空集返回 ok=false。
func (d Dataset) Span() (start, end time.Time, ok bool) {
	if len(d.Times) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return d.Times[0], d.Times[len(d.Times)-1], true
}

// Column 返回某一列的全部取值；未知列返回 nil。
func (d Dataset) Column(symbol string) []float64 {
	col := -1
	for i, s := range d.Symbols {
		if s == symbol {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}
	out := make([]float64, 0, len(d.Values))
	for _, row := range d.Values {
		out = append(out, row[col])
	}
	return out
}

// Align 先按时间戳做外对齐（并集索引，缺失处为 NaN），再丢弃含缺失值的行。
// 最终行索引等于各序列时间戳集合的交集。空输入返回空 Dataset。
func Align(series []Series) Dataset {
	cols := make([]Series, 0, len(series))
	for _, s := range series {
		if !s.Empty() {
			cols = append(cols, s.Normalize())
		}
	}
	if len(cols) == 0 {
		return Dataset{}
	}

	union := make(map[int64]struct{})
	lookups := make([]map[int64]float64, len(cols))
	for i, s := range cols {
		lookup := make(map[int64]float64, s.Len())
		for _, p := range s.Points {
			ts := p.Time.UnixMilli()
			lookup[ts] = p.Close
			union[ts] = struct{}{}
		}
		lookups[i] = lookup
	}

	index := make([]int64, 0, len(union))
	for ts := range union {
		index = append(index, ts)
	}
	sort.Slice(index, func(i, j int) bool { return index[i] < index[j] })

	symbols := make([]string, len(cols))
	for i, s := range cols {
		symbols[i] = s.Symbol
	}

	times := make([]time.Time, 0, len(index))
	values := make([][]float64, 0, len(index))
	for _, ts := range index {
		row := make([]float64, len(cols))
		missing := false
		for i, lookup := range lookups {
			v, ok := lookup[ts]
			if !ok {
				row[i] = math.NaN()
				missing = true
				continue
			}
			row[i] = v
		}
		if missing {
			continue
		}
		times = append(times, time.UnixMilli(ts).UTC())
		values = append(values, row)
	}
	return Dataset{Times: times, Symbols: symbols, Values: values}
}
