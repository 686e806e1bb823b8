package forecast

// Summary 历史平仓统计。
type Summary struct {
	Total              int             `json:"total"`
	Wins               int             `json:"wins"`
	Losses             int             `json:"losses"`
	WinRate            float64         `json:"win_rate"`
	ByOutcome          map[Outcome]int `json:"by_outcome"`
	AvgDurationSeconds float64         `json:"avg_duration_seconds"`
	TotalR             float64         `json:"total_r"`
}

// Summarize 忽略没有平仓信息的记录。
func Summarize(history []Forecast) Summary {
	s := Summary{ByOutcome: map[Outcome]int{
		OutcomeStopLoss:    0,
		OutcomeTakeProfit1: 0,
		OutcomeTakeProfit2: 0,
	}}
	var durSum int64
	for _, f := range history {
		if f.Closure == nil {
			continue
		}
		s.Total++
		s.ByOutcome[f.Closure.Outcome]++
		if f.Closure.Success {
			s.Wins++
		} else {
			s.Losses++
		}
		durSum += f.Closure.DurationSeconds
		s.TotalR += f.RealizedR()
	}
	if s.Total > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Total)
		s.AvgDurationSeconds = float64(durSum) / float64(s.Total)
	}
	return s
}
