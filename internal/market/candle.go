package market

import (
	"math"
	"time"
)

// 指标名称，由 indicator 包写入 Candle.Indicators。
const (
	IndicatorEMAFast = "ema_fast"
	IndicatorEMASlow = "ema_slow"
	IndicatorRSI     = "rsi"
	IndicatorATR     = "atr"
)

// Candle 一根已收盘的 K 线，时间为毫秒时间戳。
type Candle struct {
	OpenTime   int64              `json:"open_time"`
	CloseTime  int64              `json:"close_time"`
	Open       float64            `json:"open"`
	High       float64            `json:"high"`
	Low        float64            `json:"low"`
	Close      float64            `json:"close"`
	Volume     float64            `json:"volume"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

type Candles []Candle

// Indicator 返回指标值；缺失（例如预热期内）时 ok=false。
func (c Candle) Indicator(name string) (float64, bool) {
	if c.Indicators == nil {
		return 0, false
	}
	v, ok := c.Indicators[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// WithIndicator 返回设置了指标的副本，不修改原 Candle 的 map。
func (c Candle) WithIndicator(name string, value float64) Candle {
	out := c
	out.Indicators = make(map[string]float64, len(c.Indicators)+1)
	for k, v := range c.Indicators {
		out.Indicators[k] = v
	}
	out.Indicators[name] = value
	return out
}

// Time 收盘时间（UTC），没有收盘时间时使用开盘时间。
func (c Candle) Time() time.Time {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	if ts <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ts).UTC()
}

// LowestLow 最近 n 根的最低价，n 超过长度时取全部。
func (cs Candles) LowestLow(n int) (float64, bool) {
	if len(cs) == 0 || n <= 0 {
		return 0, false
	}
	if n > len(cs) {
		n = len(cs)
	}
	low := math.MaxFloat64
	for _, c := range cs[len(cs)-n:] {
		if c.Low < low {
			low = c.Low
		}
	}
	return low, true
}

func (cs Candles) Last() (Candle, bool) {
	if len(cs) == 0 {
		return Candle{}, false
	}
	return cs[len(cs)-1], true
}

func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

func (cs Candles) Highs() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.High
	}
	return out
}

func (cs Candles) Lows() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Low
	}
	return out
}
