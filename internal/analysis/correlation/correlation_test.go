package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
)

func datasetOf(t *testing.T, cols map[string][]float64) market.Dataset {
	t.Helper()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var series []market.Series
	for sym, vals := range cols {
		pts := make([]market.Point, 0, len(vals))
		for i, v := range vals {
			pts = append(pts, market.Point{Time: base.Add(time.Duration(i) * time.Hour), Close: v})
		}
		series = append(series, market.Series{Symbol: sym, Points: pts})
	}
	ds := market.Align(series)
	require.Equal(t, len(cols), ds.Cols())
	return ds
}

func TestComputeSelfAndInverse(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	down := []float64{8, 7, 6, 5, 4, 3, 2, 1}
	ds := datasetOf(t, map[string][]float64{
		"AUSDT": up,
		"BUSDT": append([]float64(nil), up...),
		"CUSDT": down,
	})

	m, err := Compute(ds)
	require.NoError(t, err)
	require.Equal(t, 3, m.Size())

	idx := make(map[string]int)
	for i, s := range m.Symbols {
		idx[s] = i
	}
	for i := 0; i < m.Size(); i++ {
		assert.Equal(t, 1.0, m.At(i, i))
	}
	assert.InDelta(t, 1.0, m.At(idx["AUSDT"], idx["BUSDT"]), 1e-9)
	assert.InDelta(t, -1.0, m.At(idx["AUSDT"], idx["CUSDT"]), 1e-9)
	// 矩阵对称
	assert.Equal(t, m.At(idx["AUSDT"], idx["CUSDT"]), m.At(idx["CUSDT"], idx["AUSDT"]))
}

func TestComputeRejectsTinyDataset(t *testing.T) {
	ds := datasetOf(t, map[string][]float64{"AUSDT": {1}, "BUSDT": {2}})
	_, err := Compute(ds)
	assert.Error(t, err)
}

func TestRollingWindowAlignment(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	down := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	ds := datasetOf(t, map[string][]float64{"AUSDT": up, "BUSDT": down})

	series, err := Rolling(ds, "AUSDT", "BUSDT", 4)
	require.NoError(t, err)
	// 每个完整窗口产出一个点，时间戳取窗口末端
	assert.Equal(t, len(up)-4+1, series.Len())
	assert.Equal(t, ds.Times[3], series.Points[0].Time)
	assert.Equal(t, ds.Times[len(up)-1], series.Points[series.Len()-1].Time)
	for _, p := range series.Points {
		assert.InDelta(t, -1.0, p.Close, 1e-9)
	}
}

func TestRollingMissingColumn(t *testing.T) {
	ds := datasetOf(t, map[string][]float64{"AUSDT": {1, 2, 3}, "BUSDT": {3, 2, 1}})
	_, err := Rolling(ds, "AUSDT", "XUSDT", 2)
	assert.Error(t, err)
}

func TestPairsSortedByStrength(t *testing.T) {
	ds := datasetOf(t, map[string][]float64{
		"AUSDT": {1, 2, 3, 4, 5, 6},
		"BUSDT": {6, 5, 4, 3, 2, 1},
		"CUSDT": {2, 1, 4, 3, 6, 5},
	})
	m, err := Compute(ds)
	require.NoError(t, err)

	pairs := m.Pairs()
	require.Len(t, pairs, 3)
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t,
			absOf(pairs[i-1].Coef), absOf(pairs[i].Coef))
	}
}

func absOf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
