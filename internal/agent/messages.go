package agent

import (
	"fmt"
	"strings"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/gateway/notifier"
)

func price(v float64) string { return fmt.Sprintf("%.4f", v) }

// OutcomeLabel 平仓结果的展示文字。
func OutcomeLabel(o forecast.Outcome) string {
	switch o {
	case forecast.OutcomeStopLoss:
		return "Stop loss hit"
	case forecast.OutcomeTakeProfit1:
		return "Take profit 1 hit"
	case forecast.OutcomeTakeProfit2:
		return "Take profit 2 hit"
	default:
		return string(o)
	}
}

// SignalMessage 新开预测的推送文本。
func SignalMessage(f forecast.Forecast) string {
	return notifier.Message{
		Icon:  "🟢",
		Title: fmt.Sprintf("New %s signal %s", f.Direction, f.Symbol),
		Fields: []notifier.Field{
			{Label: "ID", Value: f.ShortID()},
			{Label: "Pair", Value: f.Symbol},
			{Label: "Timeframe", Value: f.Timeframe},
			{Label: "Direction", Value: string(f.Direction)},
			{Label: "Entry", Value: price(f.Entry)},
			{Label: "Stop loss", Value: price(f.StopLoss)},
			{Label: "TP1", Value: price(f.TakeProfit1)},
			{Label: "TP2", Value: price(f.TakeProfit2)},
			{Label: "Risk", Value: fmt.Sprintf("%.2f%%", f.RiskPercent())},
			{Label: "SL method", Value: string(f.Method)},
		},
		Timestamp: f.CreatedAt,
	}.Render()
}

// ClosureMessage 平仓推送文本。
func ClosureMessage(f forecast.Forecast) string {
	msg := notifier.Message{
		Title: "Forecast closed " + f.Symbol,
		Fields: []notifier.Field{
			{Label: "ID", Value: f.ShortID()},
			{Label: "Pair", Value: f.Symbol},
			{Label: "Entry", Value: price(f.Entry)},
		},
	}
	if c := f.Closure; c != nil {
		msg.Icon = "🛑"
		if c.Success {
			msg.Icon = "✅"
		}
		msg.Fields = append(msg.Fields,
			notifier.Field{Label: "Outcome", Value: OutcomeLabel(c.Outcome)},
			notifier.Field{Label: "Hit price", Value: price(c.HitPrice)},
			notifier.Field{Label: "Duration", Value: fmt.Sprintf("%.1fh", float64(c.DurationSeconds)/3600)},
			notifier.Field{Label: "Result", Value: fmt.Sprintf("%+.2fR", f.RealizedR())},
		)
		msg.Timestamp = c.HitAt
	}
	return msg.Render()
}

// StatusMessage /status 回复。
func StatusMessage(open []forecast.Forecast) string {
	if len(open) == 0 {
		return "No open forecasts."
	}
	fields := make([]notifier.Field, 0, len(open))
	for _, f := range open {
		fields = append(fields, notifier.Field{
			Label: f.Symbol,
			Value: fmt.Sprintf("%s entry %s sl %s tp1 %s tp2 %s", f.Timeframe, price(f.Entry), price(f.StopLoss), price(f.TakeProfit1), price(f.TakeProfit2)),
		})
	}
	return notifier.Message{
		Icon:   "📋",
		Title:  fmt.Sprintf("%d open forecasts", len(open)),
		Fields: fields,
	}.Render()
}

// StatsMessage /stats 回复。
func StatsMessage(s forecast.Summary) string {
	if s.Total == 0 {
		return "No closed forecasts yet."
	}
	return notifier.Message{
		Icon:  "📊",
		Title: "Forecast statistics",
		Fields: []notifier.Field{
			{Label: "Closed", Value: fmt.Sprintf("%d", s.Total)},
			{Label: "Wins", Value: fmt.Sprintf("%d", s.Wins)},
			{Label: "Losses", Value: fmt.Sprintf("%d", s.Losses)},
			{Label: "Win rate", Value: fmt.Sprintf("%.1f%%", s.WinRate*100)},
			{Label: "HIT_TP2", Value: fmt.Sprintf("%d", s.ByOutcome[forecast.OutcomeTakeProfit2])},
			{Label: "HIT_TP1", Value: fmt.Sprintf("%d", s.ByOutcome[forecast.OutcomeTakeProfit1])},
			{Label: "HIT_SL", Value: fmt.Sprintf("%d", s.ByOutcome[forecast.OutcomeStopLoss])},
			{Label: "Avg hold", Value: fmt.Sprintf("%.1fh", s.AvgDurationSeconds/3600)},
			{Label: "Total R", Value: fmt.Sprintf("%+.2f", s.TotalR)},
		},
	}.Render()
}

const helpText = "Spot forecast bot.\n/status open forecasts\n/stats closed forecast statistics"

func welcomeText(username string) string {
	name := strings.TrimSpace(username)
	if name == "" {
		return "Subscribed.\n" + helpText
	}
	return fmt.Sprintf("Subscribed as @%s.\n%s", name, helpText)
}
