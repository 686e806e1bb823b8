package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetLevel("info")

	With("symbol", "BTC/USDT").Info("condition failed", "condition", "trend")
	Debugf("hidden %d", 1)

	out := buf.String()
	assert.Contains(t, out, "symbol=BTC/USDT")
	assert.Contains(t, out, "condition=trend")
	assert.NotContains(t, out, "hidden")
}
