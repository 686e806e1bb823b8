package evallog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/strategy"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)

	s.AfterEvaluate(ctx, strategy.Evaluation{
		PassID: "p1", Symbol: "BTC/USDT", Timeframe: "1m", At: base, Candles: 200,
		Reason: strategy.ReasonConditionFailed,
		Conditions: []strategy.Condition{
			{Name: strategy.CondTrend, Passed: false, Values: map[string]float64{"ema_fast": 10, "ema_slow": 12}},
		},
	})
	s.AfterEvaluate(ctx, strategy.Evaluation{
		PassID: "p1", Symbol: "ETH/USDT", Timeframe: "1m", At: base.Add(time.Second), Candles: 200,
		Reason: strategy.ReasonSignal, ForecastID: "abc",
	})
	s.AfterEvaluate(ctx, strategy.Evaluation{
		PassID: "p2", Symbol: "BTC/USDT", Timeframe: "1m", At: base.Add(time.Hour), Candles: 12,
		Reason: strategy.ReasonMissingIndicator,
	})

	all, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, strategy.ReasonMissingIndicator, all[0].Reason)

	btc, err := s.List(ctx, Query{Symbol: "btc/usdt", Limit: 10})
	require.NoError(t, err)
	require.Len(t, btc, 2)
	last := btc[1]
	assert.Equal(t, "p1", last.PassID)
	assert.True(t, base.Equal(last.At))
	require.Len(t, last.Conditions, 1)
	assert.Equal(t, 12.0, last.Conditions[0].Values["ema_slow"])
	assert.Equal(t, []string{strategy.CondTrend}, last.Failed())

	signals, err := s.List(ctx, Query{Reason: strategy.ReasonSignal})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "abc", signals[0].ForecastID)
}
