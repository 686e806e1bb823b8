package livehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/agent"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/metrics"
	"spotanalitics/internal/pkg/passlock"
	"spotanalitics/internal/store/evallog"
	"spotanalitics/internal/strategy"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeService struct {
	open    []forecast.Forecast
	history []forecast.Forecast
	passErr error
	limit   int
}

func (f *fakeService) RunPass(context.Context) (agent.PassReport, error) {
	if f.passErr != nil {
		return agent.PassReport{}, f.passErr
	}
	return agent.PassReport{ID: "pass-1", Scanned: 3}, nil
}

func (f *fakeService) OpenForecasts(context.Context) ([]forecast.Forecast, error) { return f.open, nil }

func (f *fakeService) RecentHistory(_ context.Context, limit int) ([]forecast.Forecast, error) {
	f.limit = limit
	return f.history, nil
}

func (f *fakeService) Stats(context.Context) (forecast.Summary, []forecast.Forecast, error) {
	return forecast.Summarize(f.history), f.history, nil
}

type fakeEvals struct{ q evallog.Query }

func (f *fakeEvals) List(_ context.Context, q evallog.Query) ([]evallog.Record, error) {
	f.q = q
	return []evallog.Record{{ID: 1, Evaluation: strategy.Evaluation{Symbol: q.Symbol, Reason: strategy.ReasonSignal}}}, nil
}

func closed(symbol string, outcome forecast.Outcome, price float64, hours int) forecast.Forecast {
	f := forecast.Forecast{
		ID: "11111111-2222-3333-4444-555555555555", Symbol: symbol, Timeframe: "1m",
		Direction: forecast.DirectionLong, Entry: 100, StopLoss: 98, TakeProfit1: 103, TakeProfit2: 106,
		Method: forecast.MethodPercentage, Status: forecast.StatusOpen, CreatedAt: t0,
	}
	out, _ := f.Close(forecast.Hit{Outcome: outcome, Price: price, At: t0.Add(time.Duration(hours) * time.Hour)})
	return out
}

func newTestServer(t *testing.T, svc *fakeService, evals EvaluationQuery) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Service: svc, Evaluations: evals, Registry: metrics.NewRecorder().Registry()})
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &fakeService{}, nil)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz").Code)
	w := do(h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestForecastRoutes(t *testing.T) {
	svc := &fakeService{history: []forecast.Forecast{
		closed("BTC/USDT", forecast.OutcomeTakeProfit2, 106, 4),
		closed("ETH/USDT", forecast.OutcomeStopLoss, 98, 2),
	}}
	h := newTestServer(t, svc, nil)

	w := do(h, http.MethodGet, "/api/forecasts/open")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"forecasts":[]}`, w.Body.String())

	w = do(h, http.MethodGet, "/api/forecasts/history?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.limit)
	var hist struct {
		Forecasts []forecast.Forecast `json:"forecasts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Len(t, hist.Forecasts, 2)

	do(h, http.MethodGet, "/api/forecasts/history?limit=abc")
	assert.Equal(t, defaultListLimit, svc.limit)
	do(h, http.MethodGet, "/api/forecasts/history?limit=100000")
	assert.Equal(t, maxListLimit, svc.limit)

	w = do(h, http.MethodGet, "/api/forecasts/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var sum forecast.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 0.5, sum.WinRate)
}

func TestEvaluationsRoute(t *testing.T) {
	h := newTestServer(t, &fakeService{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/evaluations").Code)

	evals := &fakeEvals{}
	h = newTestServer(t, &fakeService{}, evals)
	w := do(h, http.MethodGet, "/api/evaluations?symbol=BTC/USDT&limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, evallog.Query{Symbol: "BTC/USDT", Limit: 10}, evals.q)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRunPassRoute(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(t, svc, nil)
	w := do(h, http.MethodPost, "/api/passes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"pass-1"`)

	svc.passErr = passlock.ErrBusy
	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/api/passes").Code)

	svc.passErr = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(h, http.MethodPost, "/api/passes").Code)
}

func TestReportPage(t *testing.T) {
	svc := &fakeService{history: []forecast.Forecast{
		closed("BTC/USDT", forecast.OutcomeTakeProfit1, 103, 1),
		closed("ETH/USDT", forecast.OutcomeStopLoss, 98, 2),
	}}
	h := newTestServer(t, svc, nil)
	w := do(h, http.MethodGet, "/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	body := w.Body.String()
	assert.Contains(t, body, "Forecast outcomes")
	assert.Contains(t, body, "Cumulative R")
}

func TestCumulativeR(t *testing.T) {
	xs, ys := cumulativeR([]forecast.Forecast{
		closed("BTC/USDT", forecast.OutcomeTakeProfit1, 103, 1),
		closed("ETH/USDT", forecast.OutcomeStopLoss, 98, 2),
		closed("SOL/USDT", forecast.OutcomeTakeProfit2, 106, 3),
	})
	assert.Equal(t, []string{"03-01 01:00", "03-01 02:00", "03-01 03:00"}, xs)
	assert.Equal(t, []float64{1.5, 0.5, 3.5}, ys)
}
