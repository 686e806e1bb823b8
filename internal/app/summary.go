package app

import (
	"fmt"
	"strings"
	"time"

	"spotanalitics/internal/strategy"
)

type StartupSummary struct {
	Env       string
	HTTPAddr  string
	Symbols   string
	Timeframe string
	Interval  string
	Offset    time.Duration
	Risk      strategy.RiskParams
	Profile   string
	Store     string
	Lock      string
	Telegram  bool
	Commands  bool
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("  环境: %s  HTTP: %s\n", orDash(s.Env), orDash(s.HTTPAddr))
	fmt.Printf("  币种来源: %s  周期: %s\n", orDash(s.Symbols), orDash(s.Timeframe))
	fmt.Printf("  扫描间隔: %s (+%s)\n", orDash(s.Interval), s.Offset)
	fmt.Printf("  风险 profile: %s  止损: %s  RR: %.2f / %.2f\n", orDash(s.Profile), s.Risk.Method, s.Risk.RRTakeProfit1, s.Risk.RRTakeProfit2)
	fmt.Printf("  存储: %s  锁: %s\n", orDash(s.Store), orDash(s.Lock))
	fmt.Printf("  Telegram: %v  命令: %v\n", s.Telegram, s.Commands)
	fmt.Println(strings.Repeat("=", 60))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
