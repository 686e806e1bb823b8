package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spotanalitics/internal/analysis/indicator"
	"spotanalitics/internal/coins"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/gateway/notifier"
	"spotanalitics/internal/logger"
	"spotanalitics/internal/market"
	"spotanalitics/internal/metrics"
	"spotanalitics/internal/pkg/passlock"
	"spotanalitics/internal/scheduler"
	"spotanalitics/internal/store"
	"spotanalitics/internal/strategy"
)

// Evaluator 判断一组带指标的 K 线是否触发信号。
type Evaluator interface {
	Evaluate(ctx context.Context, candles []market.Candle, symbol, timeframe string) (*forecast.Forecast, error)
}

// Resolver 检查未平仓预测并返回本轮平仓的记录。
type Resolver interface {
	Resolve(ctx context.Context) ([]forecast.Forecast, error)
}

// ScanSettings 扫描参数。
type ScanSettings struct {
	Timeframe   string
	CandleLimit int
	Concurrency int
	Indicators  indicator.Settings
}

type ServiceParams struct {
	Scan      ScanSettings
	Store     store.Store
	Source    market.Source
	Symbols   coins.SymbolProvider
	Evaluator Evaluator
	Tracker   Resolver
	Lock      passlock.Locker
	Notifier  notifier.TextNotifier
	Replier   notifier.ChatSender
	Metrics   *metrics.Recorder
	Scheduler *scheduler.AlignedScheduler
	// Profile 返回当前生效的风险 profile 名称，写入 /start 注册的用户。
	Profile   func() string
}

// PassReport 一次 pass 的结果。
type PassReport struct {
	ID          string              `json:"id"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Closed      []forecast.Forecast `json:"closed"`
	Opened      []forecast.Forecast `json:"opened"`
	Scanned     int                 `json:"scanned"`
	SkippedOpen int                 `json:"skipped_open"`
	Failed      int                 `json:"failed"`
}

// LiveService 驱动周期性的 pass：先跟踪未平仓预测，再扫描新信号。
type LiveService struct {
	scan      ScanSettings
	store     store.Store
	source    market.Source
	symbols   coins.SymbolProvider
	evaluator Evaluator
	tracker   Resolver
	lock      passlock.Locker
	notifier  notifier.TextNotifier
	replier   notifier.ChatSender
	metrics   *metrics.Recorder
	scheduler *scheduler.AlignedScheduler
	profile   func() string
	now       func() time.Time
}

func NewLiveService(p ServiceParams) *LiveService {
	scan := p.Scan
	if scan.Concurrency <= 0 {
		scan.Concurrency = 4
	}
	if scan.CandleLimit <= 0 {
		scan.CandleLimit = 200
	}
	if scan.Indicators.Validate() != nil {
		scan.Indicators = indicator.DefaultSettings()
	}
	lock := p.Lock
	if lock == nil {
		lock = passlock.NewLocal()
	}
	var tn notifier.TextNotifier = notifier.Nop{}
	if p.Notifier != nil {
		tn = p.Notifier
	}
	var cs notifier.ChatSender = notifier.Nop{}
	if p.Replier != nil {
		cs = p.Replier
	}
	profile := p.Profile
	if profile == nil {
		profile = func() string { return "" }
	}
	return &LiveService{
		scan:      scan,
		store:     p.Store,
		source:    p.Source,
		symbols:   p.Symbols,
		evaluator: p.Evaluator,
		tracker:   p.Tracker,
		lock:      lock,
		notifier:  tn,
		replier:   cs,
		metrics:   p.Metrics,
		scheduler: p.Scheduler,
		profile:   profile,
		now:       time.Now,
	}
}

// Run 按调度周期执行 pass，直到 ctx 结束。
func (s *LiveService) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("live service: scheduler not configured")
	}
	s.scheduler.Run(ctx, func(ctx context.Context) {
		if _, err := s.RunPass(ctx); err != nil && !errors.Is(err, passlock.ErrBusy) && ctx.Err() == nil {
			logger.Errorf("pass failed: %v", err)
		}
	})
	return nil
}

// RunPass 执行一次完整 pass；已有 pass 在运行时返回 passlock.ErrBusy。
func (s *LiveService) RunPass(ctx context.Context) (PassReport, error) {
	release, err := s.lock.TryLock(ctx)
	if err != nil {
		if errors.Is(err, passlock.ErrBusy) {
			logger.Infof("pass skipped: another pass is running")
			s.metrics.PassFinished("skipped", 0, s.now())
		}
		return PassReport{}, err
	}
	defer release()

	report := PassReport{ID: uuid.NewString(), StartedAt: s.now().UTC()}
	ctx = strategy.WithPassID(ctx, report.ID)
	logger.Infof("pass %s started", report.ID)

	err = s.runPass(ctx, &report)
	report.FinishedAt = s.now().UTC()
	took := report.FinishedAt.Sub(report.StartedAt)
	if err != nil {
		s.metrics.PassFinished("error", took, report.FinishedAt)
		return report, err
	}
	s.metrics.PassFinished("ok", took, report.FinishedAt)
	logger.Infof("pass %s done in %s: closed=%d opened=%d scanned=%d skipped_open=%d failed=%d",
		report.ID, took.Round(time.Millisecond), len(report.Closed), len(report.Opened), report.Scanned, report.SkippedOpen, report.Failed)
	return report, nil
}

func (s *LiveService) runPass(ctx context.Context, report *PassReport) error {
	closed, err := s.tracker.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve open forecasts: %w", err)
	}
	for _, fc := range closed {
		if fc.Closure != nil {
			s.metrics.ForecastClosed(string(fc.Closure.Outcome))
		}
		s.notify(ClosureMessage(fc))
	}
	report.Closed = closed

	if err := s.scanAll(ctx, report); err != nil {
		return err
	}

	open, err := s.store.AllOpen(ctx)
	if err != nil {
		return fmt.Errorf("count open forecasts: %w", err)
	}
	s.metrics.SetOpen(len(open))
	return nil
}

func (s *LiveService) scanAll(ctx context.Context, report *PassReport) error {
	symbols, err := s.symbols.List(ctx)
	if err != nil {
		return fmt.Errorf("list symbols (%s): %w", s.symbols.Name(), err)
	}
	open, err := s.store.AllOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open forecasts: %w", err)
	}
	busy := make(map[string]struct{}, len(open))
	for _, fc := range open {
		busy[strings.ToUpper(fc.Symbol)] = struct{}{}
	}
	candidates := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, ok := busy[strings.ToUpper(sym)]; ok {
			report.SkippedOpen++
			continue
		}
		candidates = append(candidates, sym)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scan.Concurrency)
	for _, sym := range candidates {
		sym := sym
		g.Go(func() error {
			fc, err := s.scanSymbol(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			report.Scanned++
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Failed++
				if errors.Is(err, strategy.ErrUnknownStopLossMethod) {
					logger.Errorf("scan %s: configuration error: %v", sym, err)
				} else {
					logger.Warnf("scan %s skipped: %v", sym, err)
				}
				return nil
			}
			if fc != nil {
				report.Opened = append(report.Opened, *fc)
			}
			return nil
		})
	}
	err = g.Wait()
	sort.Slice(report.Opened, func(i, j int) bool { return report.Opened[i].Symbol < report.Opened[j].Symbol })
	return err
}

func (s *LiveService) scanSymbol(ctx context.Context, sym string) (*forecast.Forecast, error) {
	candles, err := s.source.FetchCandles(ctx, sym, s.scan.Timeframe, s.scan.CandleLimit)
	if err != nil {
		if errors.Is(err, market.ErrNoData) {
			s.metrics.FetchFailed("no_data")
		}
		return nil, err
	}
	annotated := indicator.Annotate(candles, s.scan.Indicators)
	fc, err := s.evaluator.Evaluate(ctx, annotated, sym, s.scan.Timeframe)
	if err != nil || fc == nil {
		return nil, err
	}
	if err := s.store.PutOpen(ctx, *fc); err != nil {
		if errors.Is(err, store.ErrOpenForecastExists) {
			logger.Infof("scan %s: open forecast already exists, signal dropped", sym)
			return nil, nil
		}
		return nil, fmt.Errorf("persist forecast: %w", err)
	}
	logger.Infof("signal %s %s entry=%.4f sl=%.4f tp1=%.4f tp2=%.4f id=%s",
		fc.Symbol, fc.Timeframe, fc.Entry, fc.StopLoss, fc.TakeProfit1, fc.TakeProfit2, fc.ID)
	s.metrics.SignalEmitted(string(fc.Method))
	s.notify(SignalMessage(*fc))
	return fc, nil
}

// notify 通知失败只记录，不影响预测生命周期。
func (s *LiveService) notify(text string) {
	if err := s.notifier.SendText(text); err != nil {
		logger.Warnf("notify failed: %v", err)
		s.metrics.NotifyFailed()
	}
}

// OpenForecasts 当前未平仓预测。
func (s *LiveService) OpenForecasts(ctx context.Context) ([]forecast.Forecast, error) {
	return s.store.AllOpen(ctx)
}

// RecentHistory 最近平仓记录，倒序。
func (s *LiveService) RecentHistory(ctx context.Context, limit int) ([]forecast.Forecast, error) {
	return s.store.RecentHistory(ctx, limit)
}

// Stats 全部历史的统计。
func (s *LiveService) Stats(ctx context.Context) (forecast.Summary, []forecast.Forecast, error) {
	history, err := s.store.AllHistory(ctx)
	if err != nil {
		return forecast.Summary{}, nil, err
	}
	return forecast.Summarize(history), history, nil
}
