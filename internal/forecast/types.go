package forecast

import (
	"errors"
	"fmt"
	"time"
)

type Direction string

const DirectionLong Direction = "LONG"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Outcome 平仓结果。
type Outcome string

const (
	OutcomeStopLoss    Outcome = "HIT_SL"
	OutcomeTakeProfit1 Outcome = "HIT_TP1"
	OutcomeTakeProfit2 Outcome = "HIT_TP2"
)

// Success 止盈算成功，止损算失败。
func (o Outcome) Success() bool {
	return o == OutcomeTakeProfit1 || o == OutcomeTakeProfit2
}

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeStopLoss, OutcomeTakeProfit1, OutcomeTakeProfit2:
		return true
	}
	return false
}

// StopLossMethod 止损计算方式。
type StopLossMethod string

const (
	MethodATR        StopLossMethod = "atr"
	MethodPercentage StopLossMethod = "percentage"
	MethodSwingLow   StopLossMethod = "swing_low"
)

func (m StopLossMethod) Valid() bool {
	switch m {
	case MethodATR, MethodPercentage, MethodSwingLow:
		return true
	}
	return false
}

// StopLossParams 记录止损计算时使用的参数，按方法只填充相关字段。
type StopLossParams struct {
	ATR        float64 `json:"atr,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	Period     int     `json:"period,omitempty"`
	LowestLow  float64 `json:"lowest_low,omitempty"`
}

// RawSignal 触发信号时最后一根 K 线的指标快照。
type RawSignal struct {
	EMAFast    float64   `json:"ema_fast"`
	EMASlow    float64   `json:"ema_slow"`
	RSI        float64   `json:"rsi"`
	ATR        float64   `json:"atr"`
	Close      float64   `json:"close"`
	CandleTime time.Time `json:"candle_time"`
}

// Hit 触发平仓的价位与时间。
type Hit struct {
	Outcome Outcome
	Price   float64
	At      time.Time
}

// Closure 平仓信息，仅在 Status=closed 时存在。
type Closure struct {
	Outcome         Outcome   `json:"outcome"`
	HitPrice        float64   `json:"hit_price"`
	HitAt           time.Time `json:"hit_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	Success         bool      `json:"is_success"`
}

// Forecast 一个 LONG 仓位预测。只能通过 Factory 创建，价格满足 SL < Entry < TP1 < TP2。
type Forecast struct {
	ID          string         `json:"id" validate:"required,uuid"`
	Symbol      string         `json:"symbol" validate:"required"`
	Timeframe   string         `json:"timeframe" validate:"required"`
	Direction   Direction      `json:"direction" validate:"oneof=LONG"`
	Entry       float64        `json:"entry" validate:"gt=0"`
	StopLoss    float64        `json:"stop_loss" validate:"gt=0,ltfield=Entry"`
	TakeProfit1 float64        `json:"take_profit_1" validate:"gtfield=Entry"`
	TakeProfit2 float64        `json:"take_profit_2" validate:"gtfield=TakeProfit1"`
	Method      StopLossMethod `json:"stop_loss_method" validate:"oneof=atr percentage swing_low"`
	Params      StopLossParams `json:"stop_loss_params"`
	Signal      RawSignal      `json:"raw_signal"`
	Status      Status         `json:"status" validate:"oneof=open closed"`
	CreatedAt   time.Time      `json:"created_at" validate:"required"`
	Closure     *Closure       `json:"closure,omitempty"`
}

// ErrAlreadyClosed 对已平仓的预测再次平仓。
var ErrAlreadyClosed = errors.New("forecast already closed")

// Risk 入场价到止损价的距离。
func (f Forecast) Risk() float64 {
	return f.Entry - f.StopLoss
}

// RiskPercent 风险占入场价的百分比。
func (f Forecast) RiskPercent() float64 {
	if f.Entry == 0 {
		return 0
	}
	return f.Risk() / f.Entry * 100
}

// RealizedR 以风险为单位的实际盈亏，未平仓时为 0。
func (f Forecast) RealizedR() float64 {
	if f.Closure == nil || f.Risk() <= 0 {
		return 0
	}
	return (f.Closure.HitPrice - f.Entry) / f.Risk()
}

func (f Forecast) IsOpen() bool {
	return f.Status == StatusOpen
}

// Close 返回平仓后的副本，持续时间按 hitAt-CreatedAt 计算并截断到不小于 0。
func (f Forecast) Close(hit Hit) (Forecast, error) {
	if !f.IsOpen() {
		return f, ErrAlreadyClosed
	}
	if !hit.Outcome.Valid() {
		return f, fmt.Errorf("invalid outcome %q", hit.Outcome)
	}
	hitAt := hit.At.UTC()
	dur := int64(hitAt.Sub(f.CreatedAt) / time.Second)
	if dur < 0 {
		dur = 0
	}
	out := f
	out.Status = StatusClosed
	out.Closure = &Closure{
		Outcome:         hit.Outcome,
		HitPrice:        hit.Price,
		HitAt:           hitAt,
		DurationSeconds: dur,
		Success:         hit.Outcome.Success(),
	}
	return out, nil
}

// ShortID 前 4 位，用于通知文本。
func (f Forecast) ShortID() string {
	if len(f.ID) <= 4 {
		return f.ID
	}
	return f.ID[:4]
}
