package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spotanalitics/internal/agent"
	"spotanalitics/internal/app"
	"spotanalitics/internal/config"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath, envFile string
	root := &cobra.Command{
		Use:           "spotanalitics",
		Short:         "Spot LONG signal scanner and forecast tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultCfg := os.Getenv("SPOT_CONFIG")
	if defaultCfg == "" {
		defaultCfg = "configs/config.yaml"
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "config file (env SPOT_CONFIG)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	load := func() (*app.App, func(), error) {
		cfg, logClose, err := loadConfig(envFile, cfgPath)
		if err != nil {
			return nil, nil, err
		}
		a, err := app.NewApp(cfg)
		if err != nil {
			logClose()
			return nil, nil, fmt.Errorf("初始化应用失败: %w", err)
		}
		return a, func() {
			if err := a.Close(); err != nil {
				logger.Warnf("close: %v", err)
			}
			logClose()
		}, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the scheduler, HTTP API and Telegram commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := load()
			if err != nil {
				return err
			}
			defer done()
			return a.Run(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Run a single pass and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := load()
			if err != nil {
				return err
			}
			defer done()
			report, err := a.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	})
	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print closed forecast statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := load()
			if err != nil {
				return err
			}
			defer done()
			summary, history, err := a.History(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), summary, history, historyLimit)
			return nil
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of most recent closed forecasts to list")
	root.AddCommand(historyCmd)
	return root
}

func loadConfig(envFile, cfgPath string) (*config.Config, func(), error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, fmt.Errorf("读取 env 文件失败: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，config=%s）", cfg.App.Env, cfgPath)
	return cfg, func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}, nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func printReport(w io.Writer, r agent.PassReport) {
	fmt.Fprintf(w, "pass %s  %s\n", r.ID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "scanned=%d skipped_open=%d failed=%d\n", r.Scanned, r.SkippedOpen, r.Failed)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range r.Closed {
		if f.Closure == nil {
			continue
		}
		fmt.Fprintf(tw, "closed\t%s\t%s\t%s\t%.4f\n", f.ShortID(), f.Symbol, f.Closure.Outcome, f.Closure.HitPrice)
	}
	for _, f := range r.Opened {
		fmt.Fprintf(tw, "opened\t%s\t%s\tentry %.4f\tsl %.4f\ttp1 %.4f\ttp2 %.4f\n", f.ShortID(), f.Symbol, f.Entry, f.StopLoss, f.TakeProfit1, f.TakeProfit2)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, s forecast.Summary, history []forecast.Forecast, limit int) {
	fmt.Fprintf(w, "closed=%d wins=%d losses=%d win_rate=%.1f%% avg_hold=%.1fh total_r=%+.2f\n",
		s.Total, s.Wins, s.Losses, s.WinRate*100, s.AvgDurationSeconds/3600, s.TotalR)
	fmt.Fprintf(w, "HIT_TP2=%d HIT_TP1=%d HIT_SL=%d\n",
		s.ByOutcome[forecast.OutcomeTakeProfit2], s.ByOutcome[forecast.OutcomeTakeProfit1], s.ByOutcome[forecast.OutcomeStopLoss])
	if limit <= 0 || len(history) == 0 {
		return
	}
	start := len(history) - limit
	if start < 0 {
		start = 0
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAIR\tOUTCOME\tENTRY\tHIT\tHOURS\tR")
	for i := len(history) - 1; i >= start; i-- {
		f := history[i]
		if f.Closure == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%.1f\t%+.2f\n", f.ShortID(), f.Symbol, f.Closure.Outcome,
			f.Entry, f.Closure.HitPrice, float64(f.Closure.DurationSeconds)/3600, f.RealizedR())
	}
	_ = tw.Flush()
}
