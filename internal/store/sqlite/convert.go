package sqlite

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/store/model"
)

func symbolKey(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

func toColumns(f forecast.Forecast) (model.ForecastColumns, error) {
	params, err := json.Marshal(f.Params)
	if err != nil {
		return model.ForecastColumns{}, err
	}
	signal, err := json.Marshal(f.Signal)
	if err != nil {
		return model.ForecastColumns{}, err
	}
	return model.ForecastColumns{
		ForecastID:   f.ID,
		Symbol:       f.Symbol,
		Timeframe:    f.Timeframe,
		Direction:    string(f.Direction),
		Entry:        f.Entry,
		StopLoss:     f.StopLoss,
		TakeProfit1:  f.TakeProfit1,
		TakeProfit2:  f.TakeProfit2,
		Method:       string(f.Method),
		Params:       datatypes.JSON(params),
		RawSignal:    datatypes.JSON(signal),
		CreatedAtUTC: f.CreatedAt.UTC(),
	}, nil
}

func fromColumns(c model.ForecastColumns) (forecast.Forecast, error) {
	f := forecast.Forecast{
		ID:          c.ForecastID,
		Symbol:      c.Symbol,
		Timeframe:   c.Timeframe,
		Direction:   forecast.Direction(c.Direction),
		Entry:       c.Entry,
		StopLoss:    c.StopLoss,
		TakeProfit1: c.TakeProfit1,
		TakeProfit2: c.TakeProfit2,
		Method:      forecast.StopLossMethod(c.Method),
		Status:      forecast.StatusOpen,
		CreatedAt:   c.CreatedAtUTC.UTC(),
	}
	if len(c.Params) > 0 {
		if err := json.Unmarshal(c.Params, &f.Params); err != nil {
			return f, err
		}
	}
	if len(c.RawSignal) > 0 {
		if err := json.Unmarshal(c.RawSignal, &f.Signal); err != nil {
			return f, err
		}
	}
	return f, nil
}

func fromHistory(m model.ForecastHistoryModel) (forecast.Forecast, error) {
	f, err := fromColumns(m.ForecastColumns)
	if err != nil {
		return f, err
	}
	f.Status = forecast.StatusClosed
	f.Closure = &forecast.Closure{
		Outcome:         forecast.Outcome(m.Outcome),
		HitPrice:        m.HitPrice,
		HitAt:           m.HitAt.UTC(),
		DurationSeconds: m.DurationSeconds,
		Success:         m.IsSuccess,
	}
	return f, nil
}

func toHistory(f forecast.Forecast) (model.ForecastHistoryModel, error) {
	cols, err := toColumns(f)
	if err != nil {
		return model.ForecastHistoryModel{}, err
	}
	m := model.ForecastHistoryModel{ForecastColumns: cols}
	if f.Closure != nil {
		m.Outcome = string(f.Closure.Outcome)
		m.HitPrice = f.Closure.HitPrice
		m.HitAt = f.Closure.HitAt.UTC()
		m.DurationSeconds = f.Closure.DurationSeconds
		m.IsSuccess = f.Closure.Success
	}
	return m, nil
}
