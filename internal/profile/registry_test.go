package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotanalitics/internal/forecast"
)

const validProfiles = `
profiles:
  default:
    method: atr
    atr_multiplier: 2
  tight:
    method: percentage
    percentage: 0.01
    rr_tp1: 1
    rr_tp2: 2
`

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "risk_profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistryLoadsActiveProfile(t *testing.T) {
	path := writeFile(t, t.TempDir(), validProfiles)
	reg, err := NewRegistry(path, "default")
	require.NoError(t, err)

	p := reg.RiskParams()
	assert.Equal(t, forecast.MethodATR, p.Method)
	assert.Equal(t, 2.0, p.ATRMultiplier)
	assert.Equal(t, 1.5, p.RRTakeProfit1)
	assert.Equal(t, 3.0, p.RRTakeProfit2)
	assert.Equal(t, []string{"default", "tight"}, reg.Snapshot().Names())
	assert.EqualValues(t, 1, reg.Snapshot().Version)
}

func TestRegistryRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"unknown method": "profiles:\n  default:\n    method: trailing\n",
		"unknown field":  "profiles:\n  default:\n    method: atr\n    leverage: 3\n",
		"bad rr":         "profiles:\n  default:\n    method: atr\n    rr_tp1: 3\n    rr_tp2: 2\n",
		"missing active": "profiles:\n  other:\n    method: atr\n",
		"empty":          "profiles: {}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), body)
			_, err := NewRegistry(path, "default")
			assert.Error(t, err)
		})
	}
}

func TestRegistryReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, validProfiles)
	reg, err := NewRegistry(path, "tight")
	require.NoError(t, err)
	require.Equal(t, forecast.MethodPercentage, reg.RiskParams().Method)

	writeFile(t, dir, "profiles:\n  tight:\n    method: nope\n")
	require.Error(t, reg.Reload())
	assert.Equal(t, 0.01, reg.RiskParams().Percentage)
	assert.EqualValues(t, 1, reg.Snapshot().Version)

	writeFile(t, dir, "profiles:\n  tight:\n    method: swing_low\n    swing_low_period: 20\n")
	require.NoError(t, reg.Reload())
	assert.Equal(t, forecast.MethodSwingLow, reg.RiskParams().Method)
	assert.Equal(t, 20, reg.RiskParams().SwingLowPeriod)
	assert.EqualValues(t, 2, reg.Snapshot().Version)
}

func TestNewRegistryRequiresInputs(t *testing.T) {
	_, err := NewRegistry("", "default")
	assert.Error(t, err)
	_, err = NewRegistry("x.yaml", "")
	assert.Error(t, err)
}
