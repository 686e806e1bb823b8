package strategy

import (
	"context"
	"time"

	"spotanalitics/internal/logger"
)

// Condition 单个入场条件的判定结果与相关数值。
type Condition struct {
	Name   string             `json:"name"`
	Passed bool               `json:"passed"`
	Values map[string]float64 `json:"values,omitempty"`
}

// 诊断原因。
const (
	ReasonMissingIndicator = "missing_indicator"
	ReasonConditionFailed  = "condition_failed"
	ReasonInvalidRisk      = "invalid_risk"
	ReasonSignal           = "signal"
	ReasonConfigError      = "config_error"
)

// Evaluation 一次评估的诊断记录。
type Evaluation struct {
	PassID     string      `json:"pass_id,omitempty"`
	Symbol     string      `json:"symbol"`
	Timeframe  string      `json:"timeframe"`
	At         time.Time   `json:"at"`
	Candles    int         `json:"candles"`
	Reason     string      `json:"reason"`
	Conditions []Condition `json:"conditions,omitempty"`
	ForecastID string      `json:"forecast_id,omitempty"`
}

// Failed 返回未通过的条件名。
func (e Evaluation) Failed() []string {
	var out []string
	for _, c := range e.Conditions {
		if !c.Passed {
			out = append(out, c.Name)
		}
	}
	return out
}

// EvaluationObserver 在每次评估结束后回调。
type EvaluationObserver interface {
	AfterEvaluate(ctx context.Context, ev Evaluation)
}

// ObserverFunc 函数适配器。
type ObserverFunc func(ctx context.Context, ev Evaluation)

func (f ObserverFunc) AfterEvaluate(ctx context.Context, ev Evaluation) { f(ctx, ev) }

// MultiObserver 依次通知多个 observer，nil 项被跳过。
type MultiObserver []EvaluationObserver

func (m MultiObserver) AfterEvaluate(ctx context.Context, ev Evaluation) {
	for _, o := range m {
		if o != nil {
			o.AfterEvaluate(ctx, ev)
		}
	}
}

// LogObserver 把诊断写入结构化日志。
type LogObserver struct{}

func (LogObserver) AfterEvaluate(_ context.Context, ev Evaluation) {
	l := logger.With("symbol", ev.Symbol, "timeframe", ev.Timeframe, "reason", ev.Reason)
	switch ev.Reason {
	case ReasonSignal:
		l.Info("signal detected", "forecast_id", ev.ForecastID)
	case ReasonConfigError:
		l.Error("evaluation failed: invalid risk configuration")
	case ReasonInvalidRisk:
		l.Warn("forecast rejected: risk distance is not positive")
	case ReasonConditionFailed:
		args := []any{"failed", ev.Failed()}
		for _, c := range ev.Conditions {
			for k, v := range c.Values {
				args = append(args, c.Name+"."+k, v)
			}
		}
		l.Debug("no signal", args...)
	default:
		l.Debug("no signal", "candles", ev.Candles)
	}
}
