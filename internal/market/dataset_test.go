package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(h int) time.Time {
	return time.Date(2025, 3, 1, h, 0, 0, 0, time.UTC)
}

func seriesOf(symbol string, hours []int, base float64) Series {
	pts := make([]Point, 0, len(hours))
	for i, h := range hours {
		pts = append(pts, Point{Time: ts(h), Close: base + float64(i)})
	}
	return Series{Symbol: symbol, Points: pts}
}

func TestAlignKeepsOnlyCommonTimestamps(t *testing.T) {
	a := seriesOf("BTCUSDT", []int{0, 1, 2, 3}, 100)
	b := seriesOf("ETHUSDT", []int{1, 2, 3, 4}, 10)
	c := seriesOf("SOLUSDT", []int{0, 1, 3, 5}, 1)

	ds := Align([]Series{a, b, c})

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, ds.Symbols)
	assert.Equal(t, []time.Time{ts(1), ts(3)}, ds.Times)
	assert.Equal(t, 2, ds.Rows())
	for _, row := range ds.Values {
		assert.Len(t, row, 3)
	}
	assert.Equal(t, []float64{101, 103}, ds.Column("BTCUSDT"))
	assert.Equal(t, []float64{10, 12}, ds.Column("ETHUSDT"))
}

func TestAlignSingleSeriesKeepsEverything(t *testing.T) {
	a := seriesOf("BTCUSDT", []int{2, 0, 1}, 100)

	ds := Align([]Series{a})

	assert.Equal(t, []time.Time{ts(0), ts(1), ts(2)}, ds.Times)
	assert.Equal(t, 3, ds.Rows())
}

func TestAlignIgnoresEmptySeries(t *testing.T) {
	a := seriesOf("BTCUSDT", []int{0, 1}, 100)

	ds := Align([]Series{a, {Symbol: "ETHUSDT"}})

	assert.Equal(t, []string{"BTCUSDT"}, ds.Symbols)
	assert.Equal(t, 2, ds.Rows())
}

func TestAlignNoInput(t *testing.T) {
	ds := Align(nil)
	assert.True(t, ds.Empty())
	_, _, ok := ds.Span()
	assert.False(t, ok)
}

func TestSeriesNormalize(t *testing.T) {
	s := Series{Symbol: "BTCUSDT", Points: []Point{
		{Time: ts(2), Close: 3},
		{Time: ts(0), Close: 1},
		{Time: ts(2), Close: 99},
		{Time: ts(1), Close: 2},
	}}

	got := s.Normalize()

	assert.Equal(t, []Point{
		{Time: ts(0), Close: 1},
		{Time: ts(1), Close: 2},
		{Time: ts(2), Close: 3},
	}, got.Points)
}

func TestClosesOf(t *testing.T) {
	candles := []Candle{
		{OpenTime: ts(1).UnixMilli(), Close: 2},
		{OpenTime: ts(0).UnixMilli(), Close: 1},
	}

	s := ClosesOf("BTCUSDT", candles)

	assert.Equal(t, "BTCUSDT", s.Symbol)
	assert.Equal(t, []Point{
		{Time: ts(0), Close: 1},
		{Time: ts(1), Close: 2},
	}, s.Points)

	assert.True(t, ClosesOf("BTCUSDT", nil).Empty())
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe(" 1H ")
	assert.NoError(t, err)
	assert.Equal(t, "1h", tf.Key)
	assert.Equal(t, time.Hour, tf.Duration)
	assert.EqualValues(t, 24, tf.ExpectedPerDay())

	_, err = ParseTimeframe("9h")
	assert.Error(t, err)
}
