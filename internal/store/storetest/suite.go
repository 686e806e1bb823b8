// Package storetest 为 store.Store 的各个实现提供共用的行为测试。
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/store"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// NewForecast 构造一个合法的 open 预测。
func NewForecast(t *testing.T, symbol string, createdAt time.Time) forecast.Forecast {
	t.Helper()
	f := forecast.NewFactory(forecast.WithClock(func() time.Time { return createdAt }))
	fc, err := f.New(forecast.Draft{
		Symbol:      symbol,
		Timeframe:   "1m",
		Entry:       100,
		StopLoss:    97,
		TakeProfit1: 104.5,
		TakeProfit2: 109,
		Method:      forecast.MethodATR,
		Params:      forecast.StopLossParams{ATR: 2, Multiplier: 1.5},
		Signal:      forecast.RawSignal{EMAFast: 99.5, EMASlow: 96, RSI: 55, ATR: 2, Close: 100, CandleTime: createdAt},
	})
	require.NoError(t, err)
	return fc
}

// Run 执行全部用例，newStore 每次返回一个空的 store。
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("PutGetOpen", func(t *testing.T) { testPutGetOpen(t, newStore(t)) })
	t.Run("OneOpenPerSymbol", func(t *testing.T) { testOneOpenPerSymbol(t, newStore(t)) })
	t.Run("CloseMovesToHistory", func(t *testing.T) { testCloseMovesToHistory(t, newStore(t)) })
	t.Run("CloseMissing", func(t *testing.T) { testCloseMissing(t, newStore(t)) })
	t.Run("ConcurrentPutOpen", func(t *testing.T) { testConcurrentPutOpen(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func testPutGetOpen(t *testing.T, s store.Store) {
	ctx := context.Background()
	got, err := s.GetOpen(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.Nil(t, got)

	fc := NewForecast(t, "BTC/USDT", baseTime)
	require.NoError(t, s.PutOpen(ctx, fc))

	got, err = s.GetOpen(ctx, "BTC/USDT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fc.ID, got.ID)
	assert.Equal(t, fc.Params, got.Params)
	assert.Equal(t, fc.Signal.RSI, got.Signal.RSI)
	assert.True(t, fc.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, forecast.StatusOpen, got.Status)

	all, err := s.AllOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testOneOpenPerSymbol(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutOpen(ctx, NewForecast(t, "ETH/USDT", baseTime)))
	err := s.PutOpen(ctx, NewForecast(t, "ETH/USDT", baseTime.Add(time.Minute)))
	assert.ErrorIs(t, err, store.ErrOpenForecastExists)
	require.NoError(t, s.PutOpen(ctx, NewForecast(t, "SOL/USDT", baseTime)))

	all, err := s.AllOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testCloseMovesToHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	fc := NewForecast(t, "BTC/USDT", baseTime)
	require.NoError(t, s.PutOpen(ctx, fc))

	hit := forecast.Hit{Outcome: forecast.OutcomeTakeProfit1, Price: 104.5, At: baseTime.Add(90 * time.Minute)}
	closed, err := s.CloseForecast(ctx, "BTC/USDT", hit)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, forecast.StatusClosed, closed.Status)
	assert.Equal(t, int64(5400), closed.Closure.DurationSeconds)
	assert.True(t, closed.Closure.Success)

	open, err := s.GetOpen(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.Nil(t, open)

	history, err := s.AllHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, fc.ID, history[0].ID)
	assert.Equal(t, forecast.OutcomeTakeProfit1, history[0].Closure.Outcome)
	assert.Equal(t, 104.5, history[0].Closure.HitPrice)

	require.NoError(t, s.PutOpen(ctx, NewForecast(t, "BTC/USDT", baseTime.Add(2*time.Hour))), "symbol is free again")
	_, err = s.CloseForecast(ctx, "BTC/USDT", forecast.Hit{Outcome: forecast.OutcomeStopLoss, Price: 97, At: baseTime.Add(3 * time.Hour)})
	require.NoError(t, err)

	recent, err := s.RecentHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, forecast.OutcomeStopLoss, recent[0].Closure.Outcome)
}

func testCloseMissing(t *testing.T, s store.Store) {
	closed, err := s.CloseForecast(context.Background(), "XRP/USDT", forecast.Hit{Outcome: forecast.OutcomeStopLoss, Price: 1, At: baseTime})
	require.NoError(t, err)
	assert.Nil(t, closed)
}

func testConcurrentPutOpen(t *testing.T, s store.Store) {
	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	candidates := make([]forecast.Forecast, 8)
	for i := range candidates {
		candidates[i] = NewForecast(t, "ADA/USDT", baseTime.Add(time.Duration(i)*time.Second))
	}
	for _, fc := range candidates {
		wg.Add(1)
		go func(fc forecast.Forecast) {
			defer wg.Done()
			if err := s.PutOpen(ctx, fc); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(fc)
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.GetUser(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpsertUser(ctx, store.User{ChatID: 42, Username: "alice"}))
	require.NoError(t, s.UpsertUser(ctx, store.User{ChatID: 42, Username: "alice2", RiskProfile: "tight"}))
	require.NoError(t, s.UpsertUser(ctx, store.User{ChatID: 7, Username: "bob"}))

	u, err := s.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.Equal(t, "tight", u.RiskProfile)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(7), users[0].ChatID)
}
