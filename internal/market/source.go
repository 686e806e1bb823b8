package market

import (
	"context"
	"errors"
)

var (
	// ErrNetwork covers timeouts, dropped connections and an open breaker.
	ErrNetwork = errors.New("market: network error")
	// ErrExchange means the exchange rejected the request or sent unusable data.
	ErrExchange = errors.New("market: exchange error")
	// ErrNoData means the call succeeded but returned no closed candles.
	ErrNoData = errors.New("market: no closed candles")
)

// Source 行情来源。返回的 K 线按时间升序，且全部已收盘。
type Source interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// Ranker 提供按成交额排序的交易对列表（内部格式 BASE/QUOTE）。
type Ranker interface {
	RankedSymbols(ctx context.Context, quote string) ([]string, error)
}
