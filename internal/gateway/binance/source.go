package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"spotanalitics/internal/logger"
	"spotanalitics/internal/market"
	symbolpkg "spotanalitics/internal/pkg/symbol"
	"spotanalitics/internal/scheduler"
)

const maxKlineLimit = 1000

// FailureRecorder 记录行情失败类型，metrics.Recorder 实现了它。
type FailureRecorder interface {
	FetchFailed(kind string)
}

// Source 基于 go-binance 现货 SDK 实现 market.Source 与 market.Ranker。
// 所有请求先经过限速器，再经过熔断器。
type Source struct {
	cfg     Config
	client  *binance.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	rec     FailureRecorder
	nowFn   func() time.Time
}

func New(cfg Config, rec FailureRecorder) *Source {
	final := cfg.withDefaults()
	client := binance.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(final.RequestsPerSecond), final.Burst),
		breaker: newBreaker("binance-spot"),
		rec:     rec,
		nowFn:   time.Now,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// exchange-level rejections (e.g. delisted symbol) say nothing about connectivity
		IsSuccessful: func(err error) bool {
			var apiErr *common.APIError
			return err == nil || errors.As(err, &apiErr) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// FetchCandles 返回按时间升序、已收盘的 K 线。
func (s *Source) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	clean := symbolpkg.Binance.ToExchange(symbol)
	if clean == "" {
		return nil, fmt.Errorf("%w: symbol is required", market.ErrExchange)
	}
	interval := strings.TrimSpace(timeframe)
	if interval == "" {
		return nil, fmt.Errorf("%w: timeframe is required", market.ErrExchange)
	}

	res, err := s.call(ctx, func() (interface{}, error) {
		return s.client.NewKlinesService().Symbol(clean).Interval(interval).Limit(limit).Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", clean, interval, err)
	}
	kls, _ := res.([]*binance.Kline)
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	dur, _ := scheduler.ParseIntervalDuration(interval)
	out = scheduler.DropUnclosedAt(out, dur, s.nowFn().UTC(), scheduler.DefaultBinanceKlineGrace)
	if len(out) == 0 {
		return nil, fmt.Errorf("klines %s %s: %w", clean, interval, market.ErrNoData)
	}
	return out, nil
}

// RankedSymbols 按 24h 成交额降序返回以 quote 计价的交易对。
func (s *Source) RankedSymbols(ctx context.Context, quote string) ([]string, error) {
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		quote = symbolpkg.DefaultQuote
	}
	res, err := s.call(ctx, func() (interface{}, error) {
		return s.client.NewListPriceChangeStatsService().Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("24h tickers: %w", err)
	}
	stats, _ := res.([]*binance.PriceChangeStats)

	type ranked struct {
		symbol string
		volume float64
	}
	rows := make([]ranked, 0, len(stats))
	for _, st := range stats {
		if st == nil || !symbolpkg.HasQuote(st.Symbol, quote) {
			continue
		}
		vol := parseFloat(st.QuoteVolume)
		if vol <= 0 {
			continue
		}
		rows = append(rows, ranked{symbol: symbolpkg.Binance.FromExchange(st.Symbol), volume: vol})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].volume > rows[j].volume })
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.symbol
	}
	return out, nil
}

func (s *Source) call(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := s.breaker.Execute(fn)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	return res, nil
}

// classify maps SDK errors onto market.ErrExchange or market.ErrNetwork.
func (s *Source) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		s.record("exchange")
		return fmt.Errorf("%w: code=%d %s", market.ErrExchange, apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.record("breaker_open")
		return fmt.Errorf("%w: %v", market.ErrNetwork, err)
	}
	s.record("network")
	return fmt.Errorf("%w: %v", market.ErrNetwork, err)
}

func (s *Source) record(kind string) {
	if s.rec != nil {
		s.rec.FetchFailed(kind)
	}
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

var (
	_ market.Source = (*Source)(nil)
	_ market.Ranker = (*Source)(nil)
)
