package binance

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, rows string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("BTCUSDT-1h-2025-03-01.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte(rows))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestArchiveFetchDay(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := "1740787200000,50000.1,50100,49900,50050.5,12.5,1740790799999,625631.2,354,6.1,305512.8,0\n" +
		"1740790800000,50050.5,50200,50000,50150.0,10.2,1740794399999,511530.0,301,5.0,250765.0,0\n"
	payload := buildArchive(t, rows)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(payload)
	}))
	defer srv.Close()

	src, err := NewArchiveSource(Config{VisionBaseURL: srv.URL})
	require.NoError(t, err)
	tf, err := market.ParseTimeframe("1h")
	require.NoError(t, err)

	candles, err := src.FetchDay(context.Background(), "btcusdt", tf, day)
	require.NoError(t, err)
	assert.Equal(t, "/data/spot/daily/klines/BTCUSDT/1h/BTCUSDT-1h-2025-03-01.zip", gotPath)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1740787200000), candles[0].OpenTime)
	assert.Equal(t, 50050.5, candles[0].Close)
	assert.Equal(t, int64(354), candles[0].Trades)
	assert.Equal(t, 50150.0, candles[1].Close)
}

func TestArchiveFetchDaySkipsHeaderRow(t *testing.T) {
	rows := "open_time,open,high,low,close,volume,close_time,quote_volume,count,taker_base,taker_quote,ignore\n" +
		"1740787200000,1,2,0.5,1.5,10,1740790799999,15,3,1,1.5,0\n"
	payload := buildArchive(t, rows)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	src, err := NewArchiveSource(Config{VisionBaseURL: srv.URL})
	require.NoError(t, err)
	tf, _ := market.ParseTimeframe("1h")

	candles, err := src.FetchDay(context.Background(), "BTCUSDT", tf, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 1.5, candles[0].Close)
}

func TestArchiveFetchDayMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src, err := NewArchiveSource(Config{VisionBaseURL: srv.URL})
	require.NoError(t, err)
	tf, _ := market.ParseTimeframe("1h")

	candles, err := src.FetchDay(context.Background(), "BTCUSDT", tf, time.Now().UTC())
	assert.Error(t, err)
	assert.Nil(t, candles)
}

func TestArchiveFetchDayRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a zip"))
	}))
	defer srv.Close()

	src, err := NewArchiveSource(Config{VisionBaseURL: srv.URL})
	require.NoError(t, err)
	tf, _ := market.ParseTimeframe("1h")

	_, err = src.FetchDay(context.Background(), "BTCUSDT", tf, time.Now().UTC())
	assert.Error(t, err)
}
