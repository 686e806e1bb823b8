package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/market"
)

type recorder struct{ evs []Evaluation }

func (r *recorder) AfterEvaluate(_ context.Context, ev Evaluation) { r.evs = append(r.evs, ev) }

type bar struct {
	close, fast, slow, rsi, atr float64
}

func series(prev, last bar) []market.Candle {
	out := make([]market.Candle, 0, MinCandles)
	for i := 0; i < MinCandles-2; i++ {
		out = append(out, market.Candle{OpenTime: int64(i) * 60_000, Close: 90, High: 91, Low: 89})
	}
	for i, b := range []bar{prev, last} {
		c := market.Candle{
			OpenTime:  int64(MinCandles-2+i) * 60_000,
			CloseTime: int64(MinCandles-1+i)*60_000 - 1,
			Close:     b.close, High: b.close + 1, Low: b.close - 1,
		}
		c = c.WithIndicator(market.IndicatorEMAFast, b.fast)
		c = c.WithIndicator(market.IndicatorEMASlow, b.slow)
		c = c.WithIndicator(market.IndicatorRSI, b.rsi)
		c = c.WithIndicator(market.IndicatorATR, b.atr)
		out = append(out, c)
	}
	return out
}

func newTestEvaluator(rec *recorder) *Evaluator {
	return NewEvaluator(StaticParams(DefaultRiskParams()), forecast.NewFactory(), rec)
}

var (
	goodPrev = bar{close: 98, fast: 99, slow: 95, rsi: 50, atr: 2}
	goodLast = bar{close: 100, fast: 99.5, slow: 96, rsi: 55, atr: 2}
)

func TestEvaluateEmitsForecast(t *testing.T) {
	rec := &recorder{}
	ctx := WithPassID(context.Background(), "pass-1")
	fc, err := newTestEvaluator(rec).Evaluate(ctx, series(goodPrev, goodLast), "BTC/USDT", "1m")
	require.NoError(t, err)
	require.NotNil(t, fc)

	assert.Equal(t, 100.0, fc.Entry)
	assert.Equal(t, 97.0, fc.StopLoss)
	assert.Equal(t, 104.5, fc.TakeProfit1)
	assert.Equal(t, 109.0, fc.TakeProfit2)
	assert.Equal(t, forecast.MethodATR, fc.Method)
	assert.Equal(t, 55.0, fc.Signal.RSI)
	assert.Equal(t, 99.5, fc.Signal.EMAFast)

	require.Len(t, rec.evs, 1)
	assert.Equal(t, ReasonSignal, rec.evs[0].Reason)
	assert.Equal(t, fc.ID, rec.evs[0].ForecastID)
	assert.Equal(t, "pass-1", rec.evs[0].PassID)
}

func TestEvaluateRejectsDowntrend(t *testing.T) {
	rec := &recorder{}
	last := goodLast
	last.fast, last.slow = 10, 12
	fc, err := newTestEvaluator(rec).Evaluate(context.Background(), series(goodPrev, last), "BTC/USDT", "1m")
	require.NoError(t, err)
	assert.Nil(t, fc)
	require.Len(t, rec.evs, 1)
	assert.Equal(t, ReasonConditionFailed, rec.evs[0].Reason)
	assert.Contains(t, rec.evs[0].Failed(), CondTrend)
}

func TestEvaluateConditionBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(prev, last *bar)
		ok     bool
	}{
		{"rsi at lower bound", func(_, l *bar) { l.rsi = 40 }, true},
		{"rsi at upper bound", func(_, l *bar) { l.rsi = 70 }, true},
		{"rsi below range", func(_, l *bar) { l.rsi = 39.99 }, false},
		{"rsi above range", func(_, l *bar) { l.rsi = 70.01 }, false},
		{"no prior close below ema", func(p, _ *bar) { p.close = 99 }, false},
		{"close not above ema", func(_, l *bar) { l.close = 99.5 }, false},
		{"zero atr", func(_, l *bar) { l.atr = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prev, last := goodPrev, goodLast
			tc.mutate(&prev, &last)
			fc, err := newTestEvaluator(&recorder{}).Evaluate(context.Background(), series(prev, last), "ETH/USDT", "1m")
			require.NoError(t, err)
			assert.Equal(t, tc.ok, fc != nil)
		})
	}
}

func TestEvaluateInsufficientCandles(t *testing.T) {
	rec := &recorder{}
	candles := series(goodPrev, goodLast)[1:]
	fc, err := newTestEvaluator(rec).Evaluate(context.Background(), candles, "BTC/USDT", "1m")
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Empty(t, rec.evs)
}

func TestEvaluateMissingIndicator(t *testing.T) {
	rec := &recorder{}
	candles := series(goodPrev, goodLast)
	delete(candles[len(candles)-1].Indicators, market.IndicatorRSI)
	fc, err := newTestEvaluator(rec).Evaluate(context.Background(), candles, "BTC/USDT", "1m")
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Equal(t, ReasonMissingIndicator, rec.evs[0].Reason)
}

func TestEvaluateInvalidRiskIsRejected(t *testing.T) {
	rec := &recorder{}
	p := DefaultRiskParams()
	p.Method = forecast.MethodSwingLow
	p.SwingLowPeriod = 1
	ev := NewEvaluator(StaticParams(p), forecast.NewFactory(), rec)

	candles := series(goodPrev, goodLast)
	candles[len(candles)-1].Low = 100
	fc, err := ev.Evaluate(context.Background(), candles, "BTC/USDT", "1m")
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Equal(t, ReasonInvalidRisk, rec.evs[0].Reason)
}

func TestEvaluateUnknownMethodIsAnError(t *testing.T) {
	p := DefaultRiskParams()
	p.Method = "magic"
	rec := &recorder{}
	ev := NewEvaluator(StaticParams(p), forecast.NewFactory(), rec)
	_, err := ev.Evaluate(context.Background(), series(goodPrev, goodLast), "BTC/USDT", "1m")
	assert.ErrorIs(t, err, ErrUnknownStopLossMethod)
	require.Len(t, rec.evs, 1)
	assert.Equal(t, ReasonConfigError, rec.evs[0].Reason)
	assert.Len(t, rec.evs[0].Conditions, 4)
}

func TestEvaluateRejectsNegativeStop(t *testing.T) {
	rec := &recorder{}
	prev := bar{close: 0.98, fast: 0.99, slow: 0.95, rsi: 50, atr: 1}
	last := bar{close: 1, fast: 0.995, slow: 0.96, rsi: 55, atr: 1}
	fc, err := newTestEvaluator(rec).Evaluate(context.Background(), series(prev, last), "PEPE/USDT", "1m")
	require.NoError(t, err)
	assert.Nil(t, fc)
	require.Len(t, rec.evs, 1)
	assert.Equal(t, ReasonInvalidRisk, rec.evs[0].Reason)
}

func TestEvaluateRecordsCandleTime(t *testing.T) {
	fc, err := newTestEvaluator(&recorder{}).Evaluate(context.Background(), series(goodPrev, goodLast), "BTC/USDT", "1m")
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.Equal(t, time.UnixMilli(int64(MinCandles)*60_000-1).UTC(), fc.Signal.CandleTime)
}
