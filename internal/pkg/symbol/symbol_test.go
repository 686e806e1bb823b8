package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT":      "BTC/USDT",
		"btcusdt":       "BTC/USDT",
		"ETH/USDT:USDT": "ETH/USDT",
		"SOLFDUSD":      "SOL/FDUSD",
		"USDT":          "",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestNormalizeListDropsUnknownAndDuplicates(t *testing.T) {
	got := NormalizeList([]string{"BTCUSDT", "btc/usdt", "??", "ETHUSDT"})
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, got)
}

func TestBinanceConverter(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Binance.ToExchange("btc/usdt"))
	assert.Equal(t, "BTC/USDT", Binance.FromExchange("BTCUSDT"))
	assert.True(t, HasQuote("ETHUSDT", "usdt"))
	assert.False(t, HasQuote("ETHBTC", "USDT"))
}
