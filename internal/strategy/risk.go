package strategy

import (
	"errors"
	"fmt"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/market"
	"spotanalitics/internal/pkg/decmath"
)

var (
	// ErrUnknownStopLossMethod 配置了未知的止损方式，属于配置错误。
	ErrUnknownStopLossMethod = errors.New("unknown stop-loss method")
	// ErrInvalidRisk 止损价不低于入场价，预测被拒绝。
	ErrInvalidRisk = errors.New("non-positive risk distance")
)

// RiskParams 止损与止盈参数。
type RiskParams struct {
	Method         forecast.StopLossMethod `json:"method" yaml:"method" mapstructure:"method"`
	ATRMultiplier  float64                 `json:"atr_multiplier" yaml:"atr_multiplier" mapstructure:"atr_multiplier"`
	Percentage     float64                 `json:"percentage" yaml:"percentage" mapstructure:"percentage"`
	SwingLowPeriod int                     `json:"swing_low_period" yaml:"swing_low_period" mapstructure:"swing_low_period"`
	RRTakeProfit1  float64                 `json:"rr_tp1" yaml:"rr_tp1" mapstructure:"rr_tp1"`
	RRTakeProfit2  float64                 `json:"rr_tp2" yaml:"rr_tp2" mapstructure:"rr_tp2"`
}

// DefaultRiskParams atr x1.5，RR 1.5 / 3.0。
func DefaultRiskParams() RiskParams {
	return RiskParams{
		Method:         forecast.MethodATR,
		ATRMultiplier:  1.5,
		Percentage:     0.03,
		SwingLowPeriod: 14,
		RRTakeProfit1:  1.5,
		RRTakeProfit2:  3.0,
	}
}

func (p RiskParams) Validate() error {
	if !p.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStopLossMethod, p.Method)
	}
	switch p.Method {
	case forecast.MethodATR:
		if p.ATRMultiplier <= 0 {
			return fmt.Errorf("atr_multiplier must be > 0, got %v", p.ATRMultiplier)
		}
	case forecast.MethodPercentage:
		if p.Percentage <= 0 || p.Percentage >= 1 {
			return fmt.Errorf("percentage must be in (0,1), got %v", p.Percentage)
		}
	case forecast.MethodSwingLow:
		if p.SwingLowPeriod <= 0 {
			return fmt.Errorf("swing_low_period must be > 0, got %d", p.SwingLowPeriod)
		}
	}
	if p.RRTakeProfit1 <= 0 || p.RRTakeProfit2 <= p.RRTakeProfit1 {
		return fmt.Errorf("risk/reward must satisfy 0 < rr_tp1 < rr_tp2, got %v / %v", p.RRTakeProfit1, p.RRTakeProfit2)
	}
	return nil
}

// Levels 止损与两个止盈价。
type Levels struct {
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	Params      forecast.StopLossParams
}

// RiskCalculator 根据入场价与 K 线计算价位，本身无状态。
type RiskCalculator struct{}

// StopLoss 按方法计算止损价。atr 方法使用最后一根 K 线的 ATR。
func (RiskCalculator) StopLoss(p RiskParams, entry float64, candles market.Candles) (float64, forecast.StopLossParams, error) {
	base := decmath.FromFloat(entry)
	switch p.Method {
	case forecast.MethodATR:
		last, ok := candles.Last()
		if !ok {
			return 0, forecast.StopLossParams{}, fmt.Errorf("atr stop needs candles: %w", market.ErrNoData)
		}
		atr, ok := last.Indicator(market.IndicatorATR)
		if !ok {
			return 0, forecast.StopLossParams{}, fmt.Errorf("atr stop needs an atr value: %w", market.ErrNoData)
		}
		dist := decmath.FromFloat(atr).Mul(decmath.FromFloat(p.ATRMultiplier))
		return decmath.ToFloat(base.Sub(dist)), forecast.StopLossParams{ATR: atr, Multiplier: p.ATRMultiplier}, nil
	case forecast.MethodPercentage:
		factor := decmath.One.Sub(decmath.FromFloat(p.Percentage))
		return decmath.ToFloat(base.Mul(factor)), forecast.StopLossParams{Percentage: p.Percentage}, nil
	case forecast.MethodSwingLow:
		low, ok := candles.LowestLow(p.SwingLowPeriod)
		if !ok {
			return 0, forecast.StopLossParams{}, fmt.Errorf("swing_low stop needs candles: %w", market.ErrNoData)
		}
		return low, forecast.StopLossParams{Period: p.SwingLowPeriod, LowestLow: low}, nil
	default:
		return 0, forecast.StopLossParams{}, fmt.Errorf("%w: %q", ErrUnknownStopLossMethod, p.Method)
	}
}

// TakeProfit entry + (entry-stop) * rr。
func (RiskCalculator) TakeProfit(entry, stop, rr float64) float64 {
	e := decmath.FromFloat(entry)
	risk := e.Sub(decmath.FromFloat(stop))
	return decmath.ToFloat(e.Add(risk.Mul(decmath.FromFloat(rr))))
}

// Levels 计算全部价位；risk<=0 或止损价不为正时返回 ErrInvalidRisk。
func (c RiskCalculator) Levels(p RiskParams, entry float64, candles market.Candles) (Levels, error) {
	stop, params, err := c.StopLoss(p, entry, candles)
	if err != nil {
		return Levels{}, err
	}
	if !decmath.LT(stop, entry) || !decmath.GT(stop, 0) {
		return Levels{}, fmt.Errorf("%w: entry=%v stop=%v", ErrInvalidRisk, entry, stop)
	}
	return Levels{
		StopLoss:    stop,
		TakeProfit1: c.TakeProfit(entry, stop, p.RRTakeProfit1),
		TakeProfit2: c.TakeProfit(entry, stop, p.RRTakeProfit2),
		Params:      params,
	}, nil
}
