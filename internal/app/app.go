package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"spotanalitics/internal/agent"
	"spotanalitics/internal/config"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/gateway/notifier"
	"spotanalitics/internal/logger"
	livehttp "spotanalitics/internal/transport/http/live"
)

// App 负责应用级编排：调度循环、HTTP 服务、Telegram 命令轮询。
type App struct {
	cfg      *config.Config
	live     *agent.LiveService
	liveHTTP *livehttp.Server
	commands *notifier.Telegram
	closers  []func() error
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动调度、HTTP 与命令轮询，直到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.live == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	if a.commands != nil {
		group.Go(func() error {
			logger.Infof("telegram command polling started")
			return a.commands.Poll(ctx, a.live.HandleCommand)
		})
	}
	group.Go(func() error {
		return a.live.Run(ctx)
	})
	return group.Wait()
}

// RunOnce executes a single pass and returns its report.
func (a *App) RunOnce(ctx context.Context) (agent.PassReport, error) {
	if a == nil || a.live == nil {
		return agent.PassReport{}, fmt.Errorf("app not initialized")
	}
	return a.live.RunPass(ctx)
}

// History 返回全部历史与统计。
func (a *App) History(ctx context.Context) (forecast.Summary, []forecast.Forecast, error) {
	if a == nil || a.live == nil {
		return forecast.Summary{}, nil, fmt.Errorf("app not initialized")
	}
	return a.live.Stats(ctx)
}

// LiveService exposes the underlying live service instance.
func (a *App) LiveService() *agent.LiveService {
	if a == nil {
		return nil
	}
	return a.live
}

// Close 逆序释放存储与连接。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) == 0 {
		logger.Infof("app closed")
	}
	return errors.Join(errs...)
}
