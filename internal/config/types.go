package config

import (
	"strings"
	"time"

	"spotanalitics/internal/analysis/indicator"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/strategy"
)

// Config 顶层配置。
type Config struct {
	App        AppConfig       `toml:"app"`
	Market     MarketConfig    `toml:"market"`
	Scan       ScanConfig      `toml:"scan"`
	Indicators IndicatorConfig `toml:"indicators"`
	Risk       RiskConfig      `toml:"risk"`
	Store      StoreConfig     `toml:"store"`
	Lock       LockConfig      `toml:"lock"`
	Notify     NotifyConfig    `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// MarketConfig 行情来源。Symbols 非空时覆盖按成交额排名的列表。
type MarketConfig struct {
	RESTBaseURL        string   `toml:"rest_base_url"`
	HTTPTimeoutSeconds int      `toml:"http_timeout_seconds"`
	RequestsPerSecond  float64  `toml:"requests_per_second"`
	Burst              int      `toml:"burst"`
	QuoteAsset         string   `toml:"quote_asset"`
	TopN               int      `toml:"top_n"`
	Symbols            []string `toml:"symbols"`
}

func (m MarketConfig) HTTPTimeout() time.Duration {
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

// ScanConfig 扫描周期与并发。
type ScanConfig struct {
	Timeframe      string `toml:"timeframe"`
	CandleLimit    int    `toml:"candle_limit"`
	Interval       string `toml:"interval"`
	OffsetSeconds  int    `toml:"offset_seconds"`
	RunImmediately bool   `toml:"run_immediately"`
	Concurrency    int    `toml:"concurrency"`
}

func (s ScanConfig) Offset() time.Duration {
	return time.Duration(s.OffsetSeconds) * time.Second
}

type IndicatorConfig struct {
	EMAFast   int `toml:"ema_fast"`
	EMASlow   int `toml:"ema_slow"`
	RSIPeriod int `toml:"rsi_period"`
	ATRPeriod int `toml:"atr_period"`
}

func (i IndicatorConfig) Settings() indicator.Settings {
	return indicator.Settings{EMAFast: i.EMAFast, EMASlow: i.EMASlow, RSIPeriod: i.RSIPeriod, ATRPeriod: i.ATRPeriod}
}

// RiskConfig 内联风险参数；ProfilesPath 非空时由 profile 文件提供并热更新。
type RiskConfig struct {
	Method         string  `toml:"method"`
	ATRMultiplier  float64 `toml:"atr_multiplier"`
	Percentage     float64 `toml:"percentage"`
	SwingLowPeriod int     `toml:"swing_low_period"`
	RRTakeProfit1  float64 `toml:"rr_tp1"`
	RRTakeProfit2  float64 `toml:"rr_tp2"`
	ProfilesPath   string  `toml:"profiles_path"`
	Profile        string  `toml:"profile"`
}

func (r RiskConfig) Params() strategy.RiskParams {
	return strategy.RiskParams{
		Method:         forecast.StopLossMethod(strings.ToLower(strings.TrimSpace(r.Method))),
		ATRMultiplier:  r.ATRMultiplier,
		Percentage:     r.Percentage,
		SwingLowPeriod: r.SwingLowPeriod,
		RRTakeProfit1:  r.RRTakeProfit1,
		RRTakeProfit2:  r.RRTakeProfit2,
	}
}

type StoreConfig struct {
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	EvalLogPath string `toml:"eval_log_path"`
}

// LockConfig 保证同一时刻只有一个 pass；redis 用于多实例部署。
type LockConfig struct {
	Driver     string `toml:"driver"`
	RedisAddr  string `toml:"redis_addr"`
	Key        string `toml:"key"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

func (l LockConfig) TTL() time.Duration {
	return time.Duration(l.TTLSeconds) * time.Second
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	APIBase  string `toml:"api_base"`
	Commands bool   `toml:"commands"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
