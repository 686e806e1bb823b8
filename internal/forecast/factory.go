package forecast

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Draft 构造 Forecast 所需的输入。
type Draft struct {
	Symbol      string
	Timeframe   string
	Entry       float64
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	Method      StopLossMethod
	Params      StopLossParams
	Signal      RawSignal
}

// Factory 生成新的 open 状态 Forecast。
type Factory struct {
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
}

type Option func(*Factory)

// WithClock 替换时钟，测试使用。
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(f *Factory) {
		if gen != nil {
			f.newID = gen
		}
	}
}

func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New 分配 ID 与创建时间（UTC），校验价格顺序后返回。
func (f *Factory) New(d Draft) (Forecast, error) {
	fc := Forecast{
		ID:          f.newID(),
		Symbol:      d.Symbol,
		Timeframe:   d.Timeframe,
		Direction:   DirectionLong,
		Entry:       d.Entry,
		StopLoss:    d.StopLoss,
		TakeProfit1: d.TakeProfit1,
		TakeProfit2: d.TakeProfit2,
		Method:      d.Method,
		Params:      d.Params,
		Signal:      d.Signal,
		Status:      StatusOpen,
		CreatedAt:   f.now().UTC(),
	}
	if err := f.validate.Struct(fc); err != nil {
		return Forecast{}, fmt.Errorf("invalid forecast for %s: %w", d.Symbol, err)
	}
	return fc, nil
}
