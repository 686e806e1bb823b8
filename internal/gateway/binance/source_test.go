package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/market"
)

type failureCounter struct{ kinds []string }

func (f *failureCounter) FetchFailed(kind string) { f.kinds = append(f.kinds, kind) }

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func kline(open time.Time, o, h, l, c string) string {
	close := open.Add(time.Minute).UnixMilli() - 1
	return fmt.Sprintf(`[%d,"%s","%s","%s","%s","10.5",%d,"1000",42,"5","500","0"]`, open.UnixMilli(), o, h, l, c, close)
}

func newTestSource(t *testing.T, h http.HandlerFunc, rec FailureRecorder) *Source {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s := New(Config{RESTBaseURL: srv.URL, RequestsPerSecond: 1000, Burst: 100}, rec)
	s.nowFn = func() time.Time { return t0.Add(2*time.Minute + 30*time.Second) }
	return s
}

func TestFetchCandlesDropsUnclosed(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		body := "[" + strings.Join([]string{
			kline(t0, "100", "101", "99", "100.5"),
			kline(t0.Add(time.Minute), "100.5", "102", "100", "101.5"),
			kline(t0.Add(2*time.Minute), "101.5", "103", "101", "102"),
		}, ",") + "]"
		_, _ = w.Write([]byte(body))
	}, nil)

	candles, err := s.FetchCandles(context.Background(), "BTC/USDT", "1m", 3)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 101.5, candles[1].Close)
	assert.Equal(t, 102.0, candles[1].High)
	assert.Equal(t, t0.Add(time.Minute).UnixMilli(), candles[1].OpenTime)
}

func TestFetchCandlesExchangeError(t *testing.T) {
	rec := &failureCounter{}
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}, rec)

	_, err := s.FetchCandles(context.Background(), "NOPE/USDT", "1m", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrExchange)
	assert.Equal(t, []string{"exchange"}, rec.kinds)
}

func TestFetchCandlesNetworkErrorTripsBreaker(t *testing.T) {
	rec := &failureCounter{}
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	url := srv.URL
	srv.Close()

	s := New(Config{RESTBaseURL: url, RequestsPerSecond: 1000, Burst: 100, HTTPTimeout: time.Second}, rec)
	for i := 0; i < 6; i++ {
		_, err := s.FetchCandles(context.Background(), "BTC/USDT", "1m", 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, market.ErrNetwork)
	}
	assert.Equal(t, "breaker_open", rec.kinds[len(rec.kinds)-1])
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFetchCandlesEmpty(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, nil)
	_, err := s.FetchCandles(context.Background(), "BTC/USDT", "1m", 2)
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestRankedSymbols(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"symbol":"ETHUSDT","quoteVolume":"5000"},
			{"symbol":"BTCUSDT","quoteVolume":"9000"},
			{"symbol":"ETHBTC","quoteVolume":"99999"},
			{"symbol":"DEADUSDT","quoteVolume":"0"},
			{"symbol":"SOLUSDT","quoteVolume":"7000.5"}
		]`))
	}, nil)

	got, err := s.RankedSymbols(context.Background(), "usdt")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT", "SOL/USDT", "ETH/USDT"}, got)
}
