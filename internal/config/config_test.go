package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/forecast"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "1m", cfg.Scan.Timeframe)
	assert.Equal(t, 200, cfg.Scan.CandleLimit)
	assert.True(t, cfg.Scan.RunImmediately)
	assert.Equal(t, 20, cfg.Market.TopN)
	assert.Equal(t, "USDT", cfg.Market.QuoteAsset)
	assert.Equal(t, forecast.MethodATR, cfg.Risk.Params().Method)
	assert.Equal(t, 1.5, cfg.Risk.ATRMultiplier)
	assert.Equal(t, 3.0, cfg.Risk.RRTakeProfit2)
	assert.Equal(t, 50, cfg.Indicators.EMASlow)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "local", cfg.Lock.Driver)
}

func TestLoadKeepsExplicitZeroAndFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
market:
  top_n: 0
scan:
  run_immediately: false
  offset_seconds: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Market.TopN)
	assert.False(t, cfg.Scan.RunImmediately)
	assert.Equal(t, 0, cfg.Scan.OffsetSeconds)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "risk.yaml", "risk:\n  method: percentage\n  percentage: 0.05\n")
	path := writeFile(t, dir, "config.yaml", "include:\n  - risk.yaml\nrisk:\n  rr_tp1: 2\n  rr_tp2: 4\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	p := cfg.Risk.Params()
	assert.Equal(t, forecast.MethodPercentage, p.Method)
	assert.Equal(t, 0.05, p.Percentage)
	assert.Equal(t, 2.0, p.RRTakeProfit1)
	assert.Equal(t, 4.0, p.RRTakeProfit2)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownStopLossMethod(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "risk:\n  method: fibonacci\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stop-loss method")
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad timeframe":      "scan:\n  timeframe: soon\n",
		"bad store driver":   "store:\n  driver: postgres\n",
		"redis without addr": "lock:\n  driver: redis\n",
		"telegram no token":  "notify:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n",
		"ema order":          "indicators:\n  ema_fast: 60\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("TELEGRAM_BOT_TOKEN", "")
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsEnvBindings(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=from-env\nTELEGRAM_CHAT_ID=12345\n")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Unsetenv("TELEGRAM_CHAT_ID")
	require.NoError(t, LoadEnvFile(envPath))

	path := writeFile(t, dir, "config.yaml", "notify:\n  telegram:\n    enabled: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "12345", cfg.Notify.Telegram.ChatID)
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "1h", cfg.Scan.Interval)
	assert.NoError(t, validate(cfg))
}
