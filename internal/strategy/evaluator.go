package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/market"
)

const (
	// MinCandles 少于该数量直接放弃评估。
	MinCandles = 50
	RSIMin     = 40.0
	RSIMax     = 70.0
)

// 条件名。
const (
	CondTrend      = "trend"
	CondCrossover  = "crossover"
	CondMomentum   = "momentum"
	CondVolatility = "volatility"
)

// ParamsProvider 返回当前生效的风险参数，实现方可以热更新。
type ParamsProvider interface {
	RiskParams() RiskParams
}

// StaticParams 固定参数。
type StaticParams RiskParams

func (p StaticParams) RiskParams() RiskParams { return RiskParams(p) }

// Evaluator 在最近两根 K 线上判断 LONG 入场条件。不读写存储。
type Evaluator struct {
	params   ParamsProvider
	calc     RiskCalculator
	factory  *forecast.Factory
	observer EvaluationObserver
	now      func() time.Time
}

func NewEvaluator(params ParamsProvider, factory *forecast.Factory, observer EvaluationObserver) *Evaluator {
	if params == nil {
		params = StaticParams(DefaultRiskParams())
	}
	if factory == nil {
		factory = forecast.NewFactory()
	}
	if observer == nil {
		observer = LogObserver{}
	}
	return &Evaluator{params: params, factory: factory, observer: observer, now: time.Now}
}

type passIDKey struct{}

// WithPassID 把本轮 pass 的 ID 放进 ctx，诊断记录会带上它。
func WithPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, passIDKey{}, id)
}

func PassIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(passIDKey{}).(string)
	return id
}

// Evaluate 条件不满足时返回 (nil, nil)；只有配置错误会返回 error。
// K 线不足 MinCandles 时直接返回，不产生诊断记录。
func (e *Evaluator) Evaluate(ctx context.Context, candles []market.Candle, symbol, timeframe string) (*forecast.Forecast, error) {
	if len(candles) < MinCandles {
		return nil, nil
	}
	ev := Evaluation{
		PassID:    PassIDFrom(ctx),
		Symbol:    symbol,
		Timeframe: timeframe,
		At:        e.now().UTC(),
		Candles:   len(candles),
	}
	fc, err := e.evaluate(candles, &ev)
	if err != nil {
		ev.Reason = ReasonConfigError
		e.observer.AfterEvaluate(ctx, ev)
		return nil, err
	}
	e.observer.AfterEvaluate(ctx, ev)
	return fc, nil
}

func (e *Evaluator) evaluate(candles []market.Candle, ev *Evaluation) (*forecast.Forecast, error) {
	prev, last := candles[len(candles)-2], candles[len(candles)-1]
	snap, ok := snapshot(prev, last)
	if !ok {
		ev.Reason = ReasonMissingIndicator
		return nil, nil
	}

	ev.Conditions = []Condition{
		{
			Name:   CondTrend,
			Passed: snap.lastFast > snap.lastSlow,
			Values: map[string]float64{"ema_fast": snap.lastFast, "ema_slow": snap.lastSlow},
		},
		{
			Name:   CondCrossover,
			Passed: prev.Close < snap.prevFast && last.Close > snap.lastFast,
			Values: map[string]float64{
				"prev_close": prev.Close, "prev_ema_fast": snap.prevFast,
				"close": last.Close, "ema_fast": snap.lastFast,
			},
		},
		{
			Name:   CondMomentum,
			Passed: snap.rsi >= RSIMin && snap.rsi <= RSIMax,
			Values: map[string]float64{"rsi": snap.rsi},
		},
		{
			Name:   CondVolatility,
			Passed: snap.atr > 0,
			Values: map[string]float64{"atr": snap.atr},
		},
	}
	if len(ev.Failed()) > 0 {
		ev.Reason = ReasonConditionFailed
		return nil, nil
	}

	params := e.params.RiskParams()
	entry := last.Close
	levels, err := e.calc.Levels(params, entry, market.Candles(candles))
	if err != nil {
		if errors.Is(err, ErrInvalidRisk) {
			ev.Reason = ReasonInvalidRisk
			return nil, nil
		}
		return nil, fmt.Errorf("evaluate %s: %w", ev.Symbol, err)
	}

	fc, err := e.factory.New(forecast.Draft{
		Symbol:      ev.Symbol,
		Timeframe:   ev.Timeframe,
		Entry:       entry,
		StopLoss:    levels.StopLoss,
		TakeProfit1: levels.TakeProfit1,
		TakeProfit2: levels.TakeProfit2,
		Method:      params.Method,
		Params:      levels.Params,
		Signal: forecast.RawSignal{
			EMAFast:    snap.lastFast,
			EMASlow:    snap.lastSlow,
			RSI:        snap.rsi,
			ATR:        snap.atr,
			Close:      last.Close,
			CandleTime: last.Time(),
		},
	})
	if err != nil {
		return nil, err
	}
	ev.Reason = ReasonSignal
	ev.ForecastID = fc.ID
	return &fc, nil
}

type indicatorSnapshot struct {
	prevFast, lastFast, lastSlow, rsi, atr float64
}

func snapshot(prev, last market.Candle) (indicatorSnapshot, bool) {
	var s indicatorSnapshot
	var ok [5]bool
	s.prevFast, ok[0] = prev.Indicator(market.IndicatorEMAFast)
	s.lastFast, ok[1] = last.Indicator(market.IndicatorEMAFast)
	s.lastSlow, ok[2] = last.Indicator(market.IndicatorEMASlow)
	s.rsi, ok[3] = last.Indicator(market.IndicatorRSI)
	s.atr, ok[4] = last.Indicator(market.IndicatorATR)
	for _, v := range ok {
		if !v {
			return s, false
		}
	}
	return s, true
}
