package store

import (
	"context"
	"errors"
	"time"

	"spotanalitics/internal/forecast"
)

var (
	// ErrOpenForecastExists 该交易对已有未平仓预测。
	ErrOpenForecastExists = errors.New("open forecast already exists for symbol")
	ErrNotFound           = errors.New("not found")
)

// User 订阅通知的 Telegram 用户。
type User struct {
	ChatID      int64     `json:"chat_id"`
	Username    string    `json:"username"`
	RiskProfile string    `json:"risk_profile,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ForecastStore 持久化 open/history 两个集合。
// 同一 symbol 的 GetOpen / PutOpen / CloseForecast 都是原子的。
type ForecastStore interface {
	// GetOpen 没有未平仓预测时返回 (nil, nil)。
	GetOpen(ctx context.Context, symbol string) (*forecast.Forecast, error)
	// PutOpen 仅在 symbol 没有未平仓预测时写入，否则返回 ErrOpenForecastExists。
	PutOpen(ctx context.Context, f forecast.Forecast) error
	// CloseForecast 把未平仓预测移入历史并返回平仓后的记录；不存在时返回 (nil, nil)。
	CloseForecast(ctx context.Context, symbol string, hit forecast.Hit) (*forecast.Forecast, error)
	AllOpen(ctx context.Context) ([]forecast.Forecast, error)
	// AllHistory 按平仓时间升序。
	AllHistory(ctx context.Context) ([]forecast.Forecast, error)
	// RecentHistory 最近 limit 条，按平仓时间倒序。
	RecentHistory(ctx context.Context, limit int) ([]forecast.Forecast, error)
}

// UserStore 用户配置集合。
type UserStore interface {
	UpsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, chatID int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// Store 数据库入口。
type Store interface {
	ForecastStore
	UserStore
	Close() error
}
