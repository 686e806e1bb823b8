package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"spotanalitics/internal/agent"
	"spotanalitics/internal/coins"
	"spotanalitics/internal/config"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/gateway/binance"
	"spotanalitics/internal/gateway/notifier"
	"spotanalitics/internal/logger"
	"spotanalitics/internal/market"
	"spotanalitics/internal/metrics"
	"spotanalitics/internal/pkg/passlock"
	"spotanalitics/internal/profile"
	"spotanalitics/internal/scheduler"
	"spotanalitics/internal/store"
	"spotanalitics/internal/store/evallog"
	"spotanalitics/internal/store/memory"
	"spotanalitics/internal/store/sqlite"
	"spotanalitics/internal/strategy"
	"spotanalitics/internal/tracker"
	livehttp "spotanalitics/internal/transport/http/live"
)

// MarketSource 行情与排名，binance.Source 实现了它。
type MarketSource interface {
	market.Source
	market.Ranker
}

type AppBuilder struct {
	cfg *config.Config

	sourceFn func(config.MarketConfig, *metrics.Recorder) MarketSource
	storeFn  func(config.StoreConfig) (store.Store, error)
	lockFn   func(config.LockConfig) (passlock.Locker, func() error, error)
}

type AppBuilderOption func(*AppBuilder)

// WithSource 替换行情来源（测试用）。
func WithSource(src MarketSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(config.MarketConfig, *metrics.Recorder) MarketSource { return src }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:      cfg,
		sourceFn: buildBinanceSource,
		storeFn:  openStore,
		lockFn:   buildLock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	a := &App{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	rec := metrics.NewRecorder()
	src := b.sourceFn(cfg.Market, rec)

	st, err := b.storeFn(cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	observers := strategy.MultiObserver{strategy.LogObserver{}}
	var evals *evallog.Store
	if path := strings.TrimSpace(cfg.Store.EvalLogPath); path != "" {
		evals, err = evallog.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("open evaluation journal: %w", err)
		}
		a.closers = append(a.closers, evals.Close)
		observers = append(observers, evals)
	}

	params, profileName, err := buildParams(cfg.Risk)
	if err != nil {
		return nil, err
	}
	evaluator := strategy.NewEvaluator(params, forecast.NewFactory(), observers)

	lock, closeLock, err := b.lockFn(cfg.Lock)
	if err != nil {
		return nil, err
	}
	if closeLock != nil {
		a.closers = append(a.closers, closeLock)
	}

	var tg *notifier.Telegram
	tgCfg := cfg.Notify.Telegram
	if tgCfg.Enabled {
		tg = notifier.NewTelegram(tgCfg.BotToken, tgCfg.ChatID, tgCfg.APIBase)
		if tgCfg.Commands {
			a.commands = tg
		}
	}

	interval, _ := scheduler.ParseIntervalDuration(cfg.Scan.Interval)
	sched := scheduler.NewAlignedScheduler(interval, cfg.Scan.Offset())
	sched.Name = "pass"
	sched.RunImmediately = cfg.Scan.RunImmediately

	symbols := coins.New(cfg.Market.Symbols, src, cfg.Market.QuoteAsset, cfg.Market.TopN)
	sp := agent.ServiceParams{
		Scan: agent.ScanSettings{
			Timeframe:   cfg.Scan.Timeframe,
			CandleLimit: cfg.Scan.CandleLimit,
			Concurrency: cfg.Scan.Concurrency,
			Indicators:  cfg.Indicators.Settings(),
		},
		Store:     st,
		Source:    src,
		Symbols:   symbols,
		Evaluator: evaluator,
		Tracker:   tracker.New(st, src, tracker.WithConcurrency(cfg.Scan.Concurrency)),
		Lock:      lock,
		Metrics:   rec,
		Scheduler: sched,
		Profile:   func() string { return profileName },
	}
	if tg != nil {
		sp.Notifier = tg
		sp.Replier = tg
	}
	a.live = agent.NewLiveService(sp)

	srvCfg := livehttp.ServerConfig{Addr: cfg.App.HTTPAddr, Service: a.live, Registry: rec.Registry()}
	if evals != nil {
		srvCfg.Evaluations = evals
	}
	a.liveHTTP, err = livehttp.NewServer(srvCfg)
	if err != nil {
		return nil, err
	}

	a.Summary = &StartupSummary{
		Env:       cfg.App.Env,
		HTTPAddr:  cfg.App.HTTPAddr,
		Symbols:   symbols.Name(),
		Timeframe: cfg.Scan.Timeframe,
		Interval:  cfg.Scan.Interval,
		Offset:    cfg.Scan.Offset(),
		Risk:      params.RiskParams(),
		Profile:   profileName,
		Store:     cfg.Store.Driver,
		Lock:      cfg.Lock.Driver,
		Telegram:  tgCfg.Enabled,
		Commands:  a.commands != nil,
	}
	ok = true
	return a, nil
}

func buildBinanceSource(cfg config.MarketConfig, rec *metrics.Recorder) MarketSource {
	return binance.New(binance.Config{
		RESTBaseURL:       cfg.RESTBaseURL,
		HTTPTimeout:       cfg.HTTPTimeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, rec)
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		logger.Warnf("store: using in-memory store, forecasts are lost on restart")
		return memory.New(), nil
	case "", "sqlite":
		st, err := sqlite.NewSqliteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open forecast store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func buildLock(cfg config.LockConfig) (passlock.Locker, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "local":
		return passlock.NewLocal(), nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return passlock.NewRedis(client, cfg.Key, cfg.TTL()), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock driver %q", cfg.Driver)
	}
}

// buildParams profiles_path 非空时使用热更新的 profile 文件，否则使用内联参数。
func buildParams(cfg config.RiskConfig) (strategy.ParamsProvider, string, error) {
	if path := strings.TrimSpace(cfg.ProfilesPath); path != "" {
		reg, err := profile.NewRegistry(path, cfg.Profile)
		if err != nil {
			return nil, "", err
		}
		reg.Watch()
		return reg, reg.Active(), nil
	}
	return strategy.StaticParams(cfg.Params()), "inline", nil
}
