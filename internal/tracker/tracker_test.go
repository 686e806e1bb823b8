package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/market"
	"spotanalitics/internal/store/memory"
	"spotanalitics/internal/store/storetest"
)

type mockSource struct{ mock.Mock }

func (m *mockSource) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	args := m.Called(ctx, symbol, timeframe, limit)
	candles, _ := args.Get(0).([]market.Candle)
	return candles, args.Error(1)
}

var created = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func openForecast() forecast.Forecast {
	return forecast.Forecast{
		ID: "f-1", Symbol: "BTC/USDT", Timeframe: "1m", Direction: forecast.DirectionLong,
		Entry: 100, StopLoss: 97, TakeProfit1: 104.5, TakeProfit2: 109,
		Method: forecast.MethodATR, Status: forecast.StatusOpen, CreatedAt: created,
	}
}

func TestDecidePriority(t *testing.T) {
	f := openForecast()
	cases := []struct {
		name    string
		high    float64
		low     float64
		outcome forecast.Outcome
		price   float64
		hit     bool
	}{
		{"quiet candle", 104, 98, "", 0, false},
		{"tp1 touched", 105, 98, forecast.OutcomeTakeProfit1, 104.5, true},
		{"tp1 exact", 104.5, 98, forecast.OutcomeTakeProfit1, 104.5, true},
		{"tp2 beats tp1", 110, 98, forecast.OutcomeTakeProfit2, 109, true},
		{"sl exact", 101, 97, forecast.OutcomeStopLoss, 97, true},
		{"sl beats tp2 in same candle", 120, 90, forecast.OutcomeStopLoss, 97, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, p, hit := Decide(f, market.Candle{High: tc.high, Low: tc.low})
			assert.Equal(t, tc.hit, hit)
			assert.Equal(t, tc.outcome, o)
			assert.Equal(t, tc.price, p)
		})
	}
}

func TestResolveClosesTP1(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.PutOpen(ctx, openForecast()))

	src := &mockSource{}
	src.On("FetchCandles", mock.Anything, "BTC/USDT", "1m", 2).
		Return([]market.Candle{{High: 101, Low: 99}, {High: 105, Low: 98}}, nil).Once()

	now := created.Add(2 * time.Hour)
	tr := New(st, src, WithClock(func() time.Time { return now }))
	closed, err := tr.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	c := closed[0].Closure
	assert.Equal(t, forecast.OutcomeTakeProfit1, c.Outcome)
	assert.Equal(t, 104.5, c.HitPrice)
	assert.True(t, c.Success)
	assert.Equal(t, int64(7200), c.DurationSeconds)
	src.AssertExpectations(t)

	history, err := st.AllHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestResolveIsIdempotentWithoutMovement(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.PutOpen(ctx, openForecast()))

	src := &mockSource{}
	src.On("FetchCandles", mock.Anything, "BTC/USDT", "1m", 2).
		Return([]market.Candle{{High: 101, Low: 99}}, nil).Twice()

	tr := New(st, src)
	for i := 0; i < 2; i++ {
		closed, err := tr.Resolve(ctx)
		require.NoError(t, err)
		assert.Empty(t, closed)
	}
	open, err := st.AllOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
	src.AssertExpectations(t)
}

func TestResolveAfterCloseIsNoop(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.PutOpen(ctx, openForecast()))

	src := &mockSource{}
	src.On("FetchCandles", mock.Anything, "BTC/USDT", "1m", 2).
		Return([]market.Candle{{High: 110, Low: 99}}, nil).Once()

	tr := New(st, src)
	closed, err := tr.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, forecast.OutcomeTakeProfit2, closed[0].Closure.Outcome)

	closed, err = tr.Resolve(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
	src.AssertNumberOfCalls(t, "FetchCandles", 1)

	again, err := st.CloseForecast(ctx, "BTC/USDT", forecast.Hit{Outcome: forecast.OutcomeStopLoss, Price: 97, At: created})
	require.NoError(t, err)
	assert.Nil(t, again)

	history, err := st.AllHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, forecast.OutcomeTakeProfit2, history[0].Closure.Outcome)
}

func TestResolveSkipsSymbolsWithoutData(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	btc := storetest.NewForecast(t, "BTC/USDT", created)
	eth := storetest.NewForecast(t, "ETH/USDT", created.Add(time.Minute))
	require.NoError(t, st.PutOpen(ctx, btc))
	require.NoError(t, st.PutOpen(ctx, eth))

	src := &mockSource{}
	src.On("FetchCandles", mock.Anything, "BTC/USDT", "1m", 2).Return(nil, market.ErrNetwork)
	src.On("FetchCandles", mock.Anything, "ETH/USDT", "1m", 2).
		Return([]market.Candle{{High: 100, Low: 96}}, nil)

	closed, err := New(st, src).Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "ETH/USDT", closed[0].Symbol)
	assert.Equal(t, forecast.OutcomeStopLoss, closed[0].Closure.Outcome)
	assert.False(t, closed[0].Closure.Success)

	still, err := st.GetOpen(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestResolveEmptyCandleList(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.PutOpen(ctx, openForecast()))
	src := &mockSource{}
	src.On("FetchCandles", mock.Anything, "BTC/USDT", "1m", 2).Return([]market.Candle{}, nil)

	closed, err := New(st, src).Resolve(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

type failingStore struct{}

func (failingStore) AllOpen(context.Context) ([]forecast.Forecast, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) CloseForecast(context.Context, string, forecast.Hit) (*forecast.Forecast, error) {
	return nil, nil
}

func TestResolveStoreError(t *testing.T) {
	_, err := New(failingStore{}, &mockSource{}).Resolve(context.Background())
	assert.Error(t, err)
}
