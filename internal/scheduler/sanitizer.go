package scheduler

import (
	"time"

	"spotanalitics/internal/market"
)

const DefaultBinanceKlineGrace = 2 * time.Second

// DropUnclosedAt drops the last element if it is still in-progress at now.
// Binance style: the last kline may be the current, not-yet-closed candle.
//
// Candle times are expected to be in milliseconds since epoch.
func DropUnclosedAt(klines []market.Candle, interval time.Duration, now time.Time, grace time.Duration) []market.Candle {
	if len(klines) == 0 {
		return klines
	}
	if grace < 0 {
		grace = 0
	}
	last := klines[len(klines)-1]
	closeMs := last.CloseTime
	if closeMs <= 0 {
		if last.OpenTime <= 0 || interval <= 0 {
			return klines
		}
		closeMs = last.OpenTime + interval.Milliseconds() - 1
	}
	if now.UnixMilli() < closeMs+grace.Milliseconds() {
		return klines[:len(klines)-1]
	}
	return klines
}
