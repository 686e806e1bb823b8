package binance

import (
	"strings"
	"time"
)

type Config struct {
	RESTBaseURL       string
	HTTPTimeout       time.Duration
	RequestsPerSecond float64
	Burst             int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://api.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = 8
	}
	if out.Burst <= 0 {
		out.Burst = 4
	}
	return out
}
