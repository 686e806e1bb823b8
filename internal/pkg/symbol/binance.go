package symbol

import "strings"

type BinanceConverter struct{}

// ToExchange BTC/USDT -> BTCUSDT
func (BinanceConverter) ToExchange(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	return strings.ReplaceAll(s, "/", "")
}

// FromExchange BTCUSDT -> BTC/USDT，无法识别时原样返回大写形式。
func (BinanceConverter) FromExchange(raw string) string {
	if norm := Parse(raw).Internal(); norm != "" {
		return norm
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

var Binance = BinanceConverter{}
