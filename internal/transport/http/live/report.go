package livehttp

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/logger"
)

const (
	colorTP2 = "#22c55e"
	colorTP1 = "#86efac"
	colorSL  = "#ef4444"
)

func (r *Router) handleReport(c *gin.Context) {
	summary, history, err := r.svc.Stats(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] report failed: %v", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := RenderReport(&buf, summary, history); err != nil {
		logger.Errorf("[api] report render failed: %v", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// RenderReport 输出结果分布饼图与累计 R 曲线。history 需按平仓时间升序。
func RenderReport(w io.Writer, summary forecast.Summary, history []forecast.Forecast) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(outcomePie(summary), cumulativeLine(history))
	return page.Render(w)
}

func outcomePie(s forecast.Summary) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Forecast outcomes",
			Subtitle: fmt.Sprintf("%d closed, win rate %.1f%%, avg hold %.1fh", s.Total, s.WinRate*100, s.AvgDurationSeconds/3600),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)
	pie.AddSeries("outcomes", []opts.PieData{
		{Name: string(forecast.OutcomeTakeProfit2), Value: s.ByOutcome[forecast.OutcomeTakeProfit2], ItemStyle: &opts.ItemStyle{Color: colorTP2}},
		{Name: string(forecast.OutcomeTakeProfit1), Value: s.ByOutcome[forecast.OutcomeTakeProfit1], ItemStyle: &opts.ItemStyle{Color: colorTP1}},
		{Name: string(forecast.OutcomeStopLoss), Value: s.ByOutcome[forecast.OutcomeStopLoss], ItemStyle: &opts.ItemStyle{Color: colorSL}},
	})
	return pie
}

func cumulativeLine(history []forecast.Forecast) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cumulative R"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
	)
	xs, ys := cumulativeR(history)
	data := make([]opts.LineData, len(ys))
	for i, v := range ys {
		data[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(xs).AddSeries("R", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

// cumulativeR 按平仓顺序累加 RealizedR，保留两位小数。
func cumulativeR(history []forecast.Forecast) ([]string, []float64) {
	xs := make([]string, 0, len(history))
	ys := make([]float64, 0, len(history))
	total := 0.0
	for _, f := range history {
		if f.Closure == nil {
			continue
		}
		total += f.RealizedR()
		xs = append(xs, f.Closure.HitAt.UTC().Format("01-02 15:04"))
		ys = append(ys, math.Round(total*100)/100)
	}
	return xs, ys
}
