package config

import (
	"fmt"
	"strings"

	"spotanalitics/internal/scheduler"
)

// validate 对配置进行基础校验，未知的止损方式在启动时直接失败。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Scan.validate(); err != nil {
		return err
	}
	if err := c.Indicators.Settings().Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Lock.validate(); err != nil {
		return err
	}
	return c.Notify.Telegram.validate()
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.RESTBaseURL) == "" {
		return fmt.Errorf("market.rest_base_url is required")
	}
	if m.TopN < 0 {
		return fmt.Errorf("market.top_n must be >= 0")
	}
	return nil
}

func (s *ScanConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(s.Timeframe); !ok {
		return fmt.Errorf("scan.timeframe invalid: %q", s.Timeframe)
	}
	if _, ok := scheduler.ParseIntervalDuration(s.Interval); !ok {
		return fmt.Errorf("scan.interval invalid: %q", s.Interval)
	}
	if s.OffsetSeconds < 0 {
		return fmt.Errorf("scan.offset_seconds must be >= 0")
	}
	if s.CandleLimit < 50 || s.CandleLimit > 1000 {
		return fmt.Errorf("scan.candle_limit must be within [50, 1000], got %d", s.CandleLimit)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if err := r.Params().Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case "sqlite":
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("store.path is required for sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be sqlite or memory, got %q", s.Driver)
	}
	return nil
}

func (l *LockConfig) validate() error {
	switch l.Driver {
	case "local":
	case "redis":
		if strings.TrimSpace(l.RedisAddr) == "" {
			return fmt.Errorf("lock.redis_addr is required for redis driver")
		}
		if l.TTLSeconds <= 0 {
			return fmt.Errorf("lock.ttl_seconds must be > 0")
		}
	default:
		return fmt.Errorf("lock.driver must be local or redis, got %q", l.Driver)
	}
	return nil
}

func (t *TelegramConfig) validate() error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
	}
	if strings.TrimSpace(t.ChatID) == "" {
		return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
	}
	return nil
}
