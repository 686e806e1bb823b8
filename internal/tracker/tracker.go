package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/logger"
	"spotanalitics/internal/market"
	"spotanalitics/internal/pkg/decmath"
)

// checkCandles 取最近两根，来源会丢掉未收盘的那根。
const checkCandles = 2

// Store tracker 用到的存储操作。
type Store interface {
	AllOpen(ctx context.Context) ([]forecast.Forecast, error)
	CloseForecast(ctx context.Context, symbol string, hit forecast.Hit) (*forecast.Forecast, error)
}

// Decide 用一根已收盘 K 线判断是否触发平仓。
// 同一根 K 线同时触及止损和止盈时按止损处理，这是保守的建模假设：K 线内的先后顺序未知。
func Decide(f forecast.Forecast, c market.Candle) (forecast.Outcome, float64, bool) {
	switch {
	case decmath.LTE(c.Low, f.StopLoss):
		return forecast.OutcomeStopLoss, f.StopLoss, true
	case decmath.GTE(c.High, f.TakeProfit2):
		return forecast.OutcomeTakeProfit2, f.TakeProfit2, true
	case decmath.GTE(c.High, f.TakeProfit1):
		return forecast.OutcomeTakeProfit1, f.TakeProfit1, true
	default:
		return "", 0, false
	}
}

// Tracker 检查所有未平仓预测并关闭触价的那些。
type Tracker struct {
	store       Store
	source      market.Source
	concurrency int
	now         func() time.Time
}

type Option func(*Tracker)

func WithConcurrency(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func New(store Store, source market.Source, opts ...Option) *Tracker {
	t := &Tracker{store: store, source: source, concurrency: 4, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Resolve 返回本轮关闭的预测（按创建时间排序）。单个 symbol 的行情错误只记录日志并跳过。
func (t *Tracker) Resolve(ctx context.Context) ([]forecast.Forecast, error) {
	open, err := t.store.AllOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("load open forecasts: %w", err)
	}
	if len(open) == 0 {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		closed []forecast.Forecast
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for _, fc := range open {
		fc := fc
		g.Go(func() error {
			done, err := t.check(gctx, fc)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warnf("tracker: skip %s: %v", fc.Symbol, err)
				return nil
			}
			if done != nil {
				mu.Lock()
				closed = append(closed, *done)
				mu.Unlock()
			}
			return nil
		})
	}
	err = g.Wait()
	sort.Slice(closed, func(i, j int) bool { return closed[i].CreatedAt.Before(closed[j].CreatedAt) })
	return closed, err
}

func (t *Tracker) check(ctx context.Context, fc forecast.Forecast) (*forecast.Forecast, error) {
	candles, err := t.source.FetchCandles(ctx, fc.Symbol, fc.Timeframe, checkCandles)
	if err != nil {
		return nil, err
	}
	last, ok := market.Candles(candles).Last()
	if !ok {
		return nil, market.ErrNoData
	}
	outcome, price, hit := Decide(fc, last)
	if !hit {
		return nil, nil
	}
	done, err := t.store.CloseForecast(ctx, fc.Symbol, forecast.Hit{Outcome: outcome, Price: price, At: t.now()})
	if err != nil {
		return nil, err
	}
	if done == nil {
		return nil, nil
	}
	logger.Infof("tracker: %s closed %s at %.4f after %ds", fc.Symbol, outcome, price, done.Closure.DurationSeconds)
	return done, nil
}
