package market

import (
	"sort"
	"time"
)

// Point 单个收盘价样本。
type Point struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// Series 一个交易对的收盘价序列。经 Normalize 后时间严格递增、无重复。
type Series struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

func (s Series) Len() int { return len(s.Points) }

func (s Series) Empty() bool { return len(s.Points) == 0 }

// Span 返回首尾时间；空序列返回 ok=false。
func (s Series) Span() (start, end time.Time, ok bool) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Points[0].Time, s.Points[len(s.Points)-1].Time, true
}

// Extend 追加另一段序列（多日模式按日期顺序拼接时使用）。
func (s *Series) Extend(other Series) {
	if other.Empty() {
		return
	}
	s.Points = append(s.Points, other.Points...)
}

// Normalize 按时间排序并去掉重复时间戳（保留先出现的样本）。
func (s Series) Normalize() Series {
	if len(s.Points) <= 1 {
		return s
	}
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
	out := pts[:1]
	for _, p := range pts[1:] {
		if p.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, p)
	}
	return Series{Symbol: s.Symbol, Points: out}
}

// ClosesOf 从 K 线序列提取收盘价序列，时间取开盘时间。
func ClosesOf(symbol string, candles []Candle) Series {
	if len(candles) == 0 {
		return Series{Symbol: symbol}
	}
	pts := make([]Point, 0, len(candles))
	for _, c := range candles {
		pts = append(pts, Point{Time: c.Time(), Close: c.Close})
	}
	return Series{Symbol: symbol, Points: pts}.Normalize()
}
