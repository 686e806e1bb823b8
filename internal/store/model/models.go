package model

import (
	"time"

	"gorm.io/datatypes"
)

// ForecastColumns open 与 history 两张表共用的列。
type ForecastColumns struct {
	ForecastID   string         `gorm:"column:forecast_id;size:36;not null"`
	Symbol       string         `gorm:"column:symbol;size:32;not null;index"`
	Timeframe    string         `gorm:"column:timeframe;size:8"`
	Direction    string         `gorm:"column:direction;size:8"`
	Entry        float64        `gorm:"column:entry_price"`
	StopLoss     float64        `gorm:"column:stop_loss"`
	TakeProfit1  float64        `gorm:"column:take_profit_1"`
	TakeProfit2  float64        `gorm:"column:take_profit_2"`
	Method       string         `gorm:"column:stop_loss_method;size:16"`
	Params       datatypes.JSON `gorm:"column:stop_loss_params"`
	RawSignal    datatypes.JSON `gorm:"column:raw_signal"`
	CreatedAtUTC time.Time      `gorm:"column:created_at;not null"`
}

// OpenForecastModel symbol 为主键，保证每个交易对最多一条。
type OpenForecastModel struct {
	SymbolKey string `gorm:"column:symbol_key;primaryKey;size:32"`
	ForecastColumns
}

func (OpenForecastModel) TableName() string { return "open_forecasts" }

// ForecastHistoryModel 已平仓记录，只追加。
type ForecastHistoryModel struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	ForecastColumns
	Outcome         string    `gorm:"column:outcome;size:8;index"`
	HitPrice        float64   `gorm:"column:hit_price"`
	HitAt           time.Time `gorm:"column:hit_at;index"`
	DurationSeconds int64     `gorm:"column:duration_seconds"`
	IsSuccess       bool      `gorm:"column:is_success"`
}

func (ForecastHistoryModel) TableName() string { return "forecast_history" }

type UserModel struct {
	ChatID      int64     `gorm:"column:chat_id;primaryKey;autoIncrement:false"`
	Username    string    `gorm:"column:username;size:64"`
	RiskProfile string    `gorm:"column:risk_profile;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (UserModel) TableName() string { return "users" }
