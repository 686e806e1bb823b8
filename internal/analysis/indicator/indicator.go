package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"spotanalitics/internal/market"
)

// Settings 指标周期。
type Settings struct {
	EMAFast   int `json:"ema_fast"`
	EMASlow   int `json:"ema_slow"`
	RSIPeriod int `json:"rsi_period"`
	ATRPeriod int `json:"atr_period"`
}

// DefaultSettings EMA12/EMA50/RSI14/ATR14。
func DefaultSettings() Settings {
	return Settings{EMAFast: 12, EMASlow: 50, RSIPeriod: 14, ATRPeriod: 14}
}

func (s Settings) Validate() error {
	if s.EMAFast <= 0 || s.EMASlow <= 0 || s.RSIPeriod <= 0 || s.ATRPeriod <= 0 {
		return fmt.Errorf("indicator periods must be positive: %+v", s)
	}
	if s.EMAFast >= s.EMASlow {
		return fmt.Errorf("ema_fast(%d) must be shorter than ema_slow(%d)", s.EMAFast, s.EMASlow)
	}
	return nil
}

// Warmup 全部指标都有值所需的最少 K 线数量。
func (s Settings) Warmup() int {
	n := s.EMASlow
	if s.RSIPeriod+1 > n {
		n = s.RSIPeriod + 1
	}
	if s.ATRPeriod+1 > n {
		n = s.ATRPeriod + 1
	}
	return n
}

// Annotate 计算 EMA/RSI/ATR 并写入每根 K 线的 Indicators。
// talib 在预热期内输出 0，这些位置不写入，调用方通过 Candle.Indicator 的 ok 判断缺失。
func Annotate(candles []market.Candle, cfg Settings) []market.Candle {
	out := make([]market.Candle, len(candles))
	copy(out, candles)
	if len(out) == 0 {
		return out
	}
	cs := market.Candles(out)
	closes := cs.Closes()
	highs := cs.Highs()
	lows := cs.Lows()

	apply := func(name string, series []float64, lookback int) {
		for i := lookback; i < len(series) && i < len(out); i++ {
			out[i] = out[i].WithIndicator(name, series[i])
		}
	}
	if len(closes) >= cfg.EMAFast {
		apply(market.IndicatorEMAFast, talib.Ema(closes, cfg.EMAFast), cfg.EMAFast-1)
	}
	if len(closes) >= cfg.EMASlow {
		apply(market.IndicatorEMASlow, talib.Ema(closes, cfg.EMASlow), cfg.EMASlow-1)
	}
	if len(closes) > cfg.RSIPeriod {
		apply(market.IndicatorRSI, talib.Rsi(closes, cfg.RSIPeriod), cfg.RSIPeriod)
	}
	if len(closes) > cfg.ATRPeriod {
		apply(market.IndicatorATR, talib.Atr(highs, lows, closes, cfg.ATRPeriod), cfg.ATRPeriod)
	}
	return out
}
