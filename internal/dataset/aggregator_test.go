package dataset

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name  string
	fn    func(req Request) (market.Series, error)
	calls []Request
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Fetch(_ context.Context, req Request) (market.Series, error) {
	f.calls = append(f.calls, req)
	return f.fn(req)
}

func hourlySeries(symbol string, day time.Time, hours int) market.Series {
	pts := make([]market.Point, 0, hours)
	for h := 0; h < hours; h++ {
		pts = append(pts, market.Point{Time: day.Add(time.Duration(h) * time.Hour), Close: 100 + float64(h)})
	}
	return market.Series{Symbol: symbol, Points: pts}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func TestFetchRollingFailoverToLive(t *testing.T) {
	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		return market.Series{}, errors.New("归档返回状态码 404")
	}}
	live := &fakeBackend{name: "live", fn: func(req Request) (market.Series, error) {
		if req.Symbol == "BTCUSDT" {
			return hourlySeries("BTCUSDT", testNow.Truncate(24*time.Hour), 24), nil
		}
		return market.Series{}, errors.New("binance down")
	}}

	agg := NewAggregator(archive, live, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	res, err := agg.FetchRolling(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, RollingOptions{Mode: ModeAuto})

	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, res.Report.Successes)
	assert.Equal(t, []string{"ETHUSDT"}, res.Report.Failures)
	assert.Equal(t, []string{"BTCUSDT"}, res.Dataset.Symbols)
	assert.Equal(t, 24, res.Dataset.Rows())
	// 每个交易对归档和实时各试一次
	assert.Len(t, archive.calls, 2)
	assert.Len(t, live.calls, 2)
}

func TestFetchRollingArchiveModeNeverTouchesLive(t *testing.T) {
	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		return market.Series{}, errors.New("404")
	}}
	live := &fakeBackend{name: "live", fn: func(req Request) (market.Series, error) {
		return hourlySeries(req.Symbol, testNow.Truncate(24*time.Hour), 4), nil
	}}

	agg := NewAggregator(archive, live, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	_, err := agg.FetchRolling(context.Background(), []string{"BTCUSDT"}, RollingOptions{Mode: ModeArchive})

	require.Error(t, err)
	assert.True(t, IsNoData(err))
	assert.Empty(t, live.calls)
}

func TestFetchRollingKeepsSymbolOrder(t *testing.T) {
	day := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		return hourlySeries(req.Symbol, day, 24), nil
	}}

	symbols := []string{"SOLUSDT", "BTCUSDT", "ETHUSDT"}
	agg := NewAggregator(archive, nil, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	res, err := agg.FetchRolling(context.Background(), symbols, RollingOptions{})

	require.NoError(t, err)
	assert.Equal(t, symbols, res.Report.Successes)
	assert.Equal(t, symbols, res.Dataset.Symbols)
	var called []string
	for _, c := range archive.calls {
		called = append(called, c.Symbol)
	}
	assert.Equal(t, symbols, called)
}

func TestFetchRollingDefaultsAnchorToYesterday(t *testing.T) {
	var gotDay time.Time
	source := &fakeDaySource{fn: func(sym string, day time.Time) ([]market.Candle, error) {
		gotDay = day
		return []market.Candle{{OpenTime: day.UnixMilli(), Close: 1}}, nil
	}}
	backend := NewArchiveBackend(source, WithArchiveClock(fixedClock(testNow)))

	agg := NewAggregator(backend, nil, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	_, err := agg.FetchRolling(context.Background(), []string{"BTCUSDT"}, RollingOptions{Mode: ModeArchive})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), gotDay)
}

func TestFetchMultiDaySkipsMissingDaysAndConcatenatesInOrder(t *testing.T) {
	day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		if req.Day.Equal(day2) {
			return market.Series{}, errors.New("404")
		}
		return market.Series{Symbol: req.Symbol, Points: []market.Point{
			{Time: req.Day, Close: float64(req.Day.Day())},
		}}, nil
	}}

	agg := NewAggregator(archive, nil, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	res, err := agg.FetchMultiDay(context.Background(), []string{"XUSDT"},
		MultiDayOptions{Start: day1, End: day3, TargetCount: 1})

	require.NoError(t, err)
	assert.Equal(t, []string{"XUSDT"}, res.Report.Successes)
	require.Equal(t, 2, res.Dataset.Rows())
	assert.Equal(t, []time.Time{day1, day3}, res.Dataset.Times)
	assert.Equal(t, []float64{1, 3}, res.Dataset.Column("XUSDT"))
}

func TestFetchMultiDayEarlyExitBetweenSymbols(t *testing.T) {
	day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		if req.Day.Equal(day1) {
			return market.Series{Symbol: req.Symbol, Points: []market.Point{{Time: req.Day, Close: 1}}}, nil
		}
		return market.Series{}, errors.New("404")
	}}

	agg := NewAggregator(archive, nil, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	res, err := agg.FetchMultiDay(context.Background(), []string{"AUSDT", "BUSDT"},
		MultiDayOptions{Start: day1, End: day2, TargetCount: 1})

	require.NoError(t, err)
	assert.Equal(t, []string{"AUSDT"}, res.Report.Successes)
	// 进行中的交易对要把日循环走完，但不再开启新的交易对
	require.Len(t, archive.calls, 2)
	for _, c := range archive.calls {
		assert.Equal(t, "AUSDT", c.Symbol)
	}
}

func TestFetchMultiDayEmptyRange(t *testing.T) {
	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		t.Fatal("不应发起任何请求")
		return market.Series{}, nil
	}}

	agg := NewAggregator(archive, nil, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	_, err := agg.FetchMultiDay(context.Background(), []string{"BTCUSDT"}, MultiDayOptions{
		Start: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Error(t, err)
	assert.True(t, IsNoData(err))
}

func TestFetchRollingAllFail(t *testing.T) {
	archive := &fakeBackend{name: "vision", fn: func(req Request) (market.Series, error) {
		return market.Series{}, errors.New("404")
	}}
	live := &fakeBackend{name: "live", fn: func(req Request) (market.Series, error) {
		return market.Series{}, errors.New("503")
	}}

	agg := NewAggregator(archive, live, WithPaceDelay(0), WithClock(fixedClock(testNow)))
	_, err := agg.FetchRolling(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, RollingOptions{})

	require.Error(t, err)
	assert.True(t, IsNoData(err))
	var nd *NoDataError
	require.ErrorAs(t, err, &nd)
	assert.Equal(t, 2, nd.Attempts)
}

type fakeDaySource struct {
	fn func(symbol string, day time.Time) ([]market.Candle, error)
}

func (f *fakeDaySource) Name() string { return "vision" }

func (f *fakeDaySource) FetchDay(_ context.Context, symbol string, _ market.Timeframe, day time.Time) ([]market.Candle, error) {
	return f.fn(symbol, day)
}

type fakeWindowSource struct {
	gotInterval string
	gotLimit    int
}

func (f *fakeWindowSource) Name() string { return "live" }

func (f *fakeWindowSource) FetchWindow(_ context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.gotInterval = interval
	f.gotLimit = limit
	return []market.Candle{{OpenTime: testNow.UnixMilli(), Close: 42}}, nil
}

func TestLiveBackendWindowLimit(t *testing.T) {
	cases := []struct {
		timeframe string
		daysBack  int
		want      int
	}{
		{"1h", 7, 168},
		{"1h", 60, 1000},
		{"1d", 7, 7},
		{"4h", 0, 7},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%dd", tc.timeframe, tc.daysBack), func(t *testing.T) {
			src := &fakeWindowSource{}
			backend := NewLiveBackend(src)
			tf, err := market.ParseTimeframe(tc.timeframe)
			require.NoError(t, err)

			_, err = backend.Fetch(context.Background(), Request{Symbol: "BTCUSDT", Timeframe: tf, DaysBack: tc.daysBack})
			require.NoError(t, err)
			assert.Equal(t, tc.want, src.gotLimit)
			assert.Equal(t, tf.SourceInterval, src.gotInterval)
		})
	}
}

type fakeDayCache struct {
	stored map[string][]market.Candle
	hits   map[string][]market.Candle
	saves  []string
}

func cacheKey(symbol string, day time.Time) string {
	return symbol + "@" + day.Format("2006-01-02")
}

func (f *fakeDayCache) LoadDay(_ context.Context, symbol string, _ market.Timeframe, day time.Time) ([]market.Candle, bool) {
	c, ok := f.hits[cacheKey(symbol, day)]
	return c, ok
}

func (f *fakeDayCache) SaveDay(_ context.Context, symbol string, _ market.Timeframe, day time.Time, candles []market.Candle) error {
	if f.stored == nil {
		f.stored = map[string][]market.Candle{}
	}
	key := cacheKey(symbol, day)
	f.stored[key] = candles
	f.saves = append(f.saves, key)
	return nil
}

func TestArchiveBackendUsesCache(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tf, _ := market.ParseTimeframe("1h")

	t.Run("hit skips source", func(t *testing.T) {
		source := &fakeDaySource{fn: func(string, time.Time) ([]market.Candle, error) {
			t.Fatal("缓存命中时不应请求归档")
			return nil, nil
		}}
		cache := &fakeDayCache{hits: map[string][]market.Candle{
			cacheKey("BTCUSDT", day): {{OpenTime: day.UnixMilli(), Close: 7}},
		}}
		backend := NewArchiveBackend(source, WithDayCache(cache), WithArchiveClock(fixedClock(testNow)))

		series, err := backend.Fetch(context.Background(), Request{Symbol: "BTCUSDT", Timeframe: tf, Day: day})
		require.NoError(t, err)
		require.Equal(t, 1, series.Len())
		assert.Equal(t, 7.0, series.Points[0].Close)
	})

	t.Run("miss fetches and saves elapsed day", func(t *testing.T) {
		source := &fakeDaySource{fn: func(_ string, d time.Time) ([]market.Candle, error) {
			return []market.Candle{{OpenTime: d.UnixMilli(), Close: 9}}, nil
		}}
		cache := &fakeDayCache{}
		backend := NewArchiveBackend(source, WithDayCache(cache), WithArchiveClock(fixedClock(testNow)))

		_, err := backend.Fetch(context.Background(), Request{Symbol: "ETHUSDT", Timeframe: tf, Day: day})
		require.NoError(t, err)
		assert.Equal(t, []string{cacheKey("ETHUSDT", day)}, cache.saves)
	})

	t.Run("today is never cached", func(t *testing.T) {
		today := testNow.Truncate(24 * time.Hour)
		source := &fakeDaySource{fn: func(_ string, d time.Time) ([]market.Candle, error) {
			return []market.Candle{{OpenTime: d.UnixMilli(), Close: 9}}, nil
		}}
		cache := &fakeDayCache{}
		backend := NewArchiveBackend(source, WithDayCache(cache), WithArchiveClock(fixedClock(testNow)))

		_, err := backend.Fetch(context.Background(), Request{Symbol: "ETHUSDT", Timeframe: tf, Day: today})
		require.NoError(t, err)
		assert.Empty(t, cache.saves)
	})
}
