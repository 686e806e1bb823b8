package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultAppHTTPAddr    = ":9991"
	defaultMarketREST     = "https://api.binance.com"
	defaultMarketTimeout  = 10
	defaultMarketRPS      = 8
	defaultMarketBurst    = 4
	defaultQuoteAsset     = "USDT"
	defaultTopN           = 20
	defaultScanTimeframe  = "1m"
	defaultScanLimit      = 200
	defaultScanInterval   = "1h"
	defaultScanOffset     = 60
	defaultScanParallel   = 4
	defaultEMAFast        = 12
	defaultEMASlow        = 50
	defaultRSIPeriod      = 14
	defaultATRPeriod      = 14
	defaultRiskMethod     = "atr"
	defaultATRMultiplier  = 1.5
	defaultRiskPercentage = 0.03
	defaultSwingLowPeriod = 14
	defaultRRTP1          = 1.5
	defaultRRTP2          = 3.0
	defaultRiskProfile    = "default"
	defaultStoreDriver    = "sqlite"
	defaultStorePath      = "data/forecasts.db"
	defaultEvalLogPath    = "data/evaluations.db"
	defaultLockDriver     = "local"
	defaultLockKey        = "spotanalitics:pass"
	defaultLockTTL        = 900
	defaultTelegramAPI    = "https://api.telegram.org"
)

// applyDefaults 只填充配置文件中没有显式出现的键。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Scan.applyDefaults(keys)
	c.Indicators.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Lock.applyDefaults(keys)
	c.Notify.Telegram.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		stringFieldDefault("market.quote_asset", &m.QuoteAsset, defaultQuoteAsset),
		intFieldDefault("market.http_timeout_seconds", &m.HTTPTimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.burst", &m.Burst, defaultMarketBurst),
		fieldDefault{
			key:   "market.requests_per_second",
			need:  func() bool { return m.RequestsPerSecond <= 0 },
			apply: func() { m.RequestsPerSecond = defaultMarketRPS },
		},
		fieldDefault{
			key:   "market.top_n",
			need:  func() bool { return m.TopN == 0 },
			apply: func() { m.TopN = defaultTopN },
		},
	)
	m.QuoteAsset = strings.ToUpper(strings.TrimSpace(m.QuoteAsset))
}

func (s *ScanConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("scan.timeframe", &s.Timeframe, defaultScanTimeframe),
		stringFieldDefault("scan.interval", &s.Interval, defaultScanInterval),
		intFieldDefault("scan.candle_limit", &s.CandleLimit, defaultScanLimit),
		intFieldDefault("scan.concurrency", &s.Concurrency, defaultScanParallel),
		intFieldDefault("scan.offset_seconds", &s.OffsetSeconds, defaultScanOffset),
		boolFieldDefault("scan.run_immediately", &s.RunImmediately, true),
	)
}

func (i *IndicatorConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("indicators.ema_fast", &i.EMAFast, defaultEMAFast),
		intFieldDefault("indicators.ema_slow", &i.EMASlow, defaultEMASlow),
		intFieldDefault("indicators.rsi_period", &i.RSIPeriod, defaultRSIPeriod),
		intFieldDefault("indicators.atr_period", &i.ATRPeriod, defaultATRPeriod),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("risk.method", &r.Method, defaultRiskMethod),
		stringFieldDefault("risk.profile", &r.Profile, defaultRiskProfile),
		floatFieldDefault("risk.atr_multiplier", &r.ATRMultiplier, defaultATRMultiplier),
		floatFieldDefault("risk.percentage", &r.Percentage, defaultRiskPercentage),
		intFieldDefault("risk.swing_low_period", &r.SwingLowPeriod, defaultSwingLowPeriod),
		floatFieldDefault("risk.rr_tp1", &r.RRTakeProfit1, defaultRRTP1),
		floatFieldDefault("risk.rr_tp2", &r.RRTakeProfit2, defaultRRTP2),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.driver", &s.Driver, defaultStoreDriver),
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		stringFieldDefault("store.eval_log_path", &s.EvalLogPath, defaultEvalLogPath),
	)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
}

func (l *LockConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("lock.driver", &l.Driver, defaultLockDriver),
		stringFieldDefault("lock.key", &l.Key, defaultLockKey),
		intFieldDefault("lock.ttl_seconds", &l.TTLSeconds, defaultLockTTL),
	)
	l.Driver = strings.ToLower(strings.TrimSpace(l.Driver))
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("notify.telegram.api_base", &t.APIBase, defaultTelegramAPI),
	)
}

// Helper functions

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault 布尔值无法区分零值，仅在键缺失时生效。
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}
