package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"tradejournal/internal/analytics"
)

const (
	chartWidthPx  = 1100
	chartHeightPx = 420

	colorBackground    = "#0f172a"
	colorTextPrimary   = "#e2e8f0"
	colorTextSecondary = "#94a3b8"
	colorProfit        = "#22c55e"
	colorLoss          = "#ef4444"
	colorEquity        = "#38bdf8"
)

// RenderPerformanceHTML writes a standalone HTML page with the monthly P&L bars and,
// when there are closed trades, the equity curve.
func RenderPerformanceHTML(w io.Writer, metrics *analytics.PerformanceMetrics) error {
	if metrics == nil {
		return fmt.Errorf("metrics are required")
	}
	page := components.NewPage()
	page.PageTitle = "Trading Journal Performance"
	page.SetLayout(components.PageFlexLayout)

	page.AddCharts(buildMonthlyChart(metrics.MonthlyPnL))
	if len(metrics.EquityCurve) > 0 {
		page.AddCharts(buildEquityChart(metrics.EquityCurve))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WritePerformanceHTML renders the chart page into filename.
func WritePerformanceHTML(filename string, metrics *analytics.PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return RenderPerformanceHTML(file, metrics)
}

func initOpts() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func buildMonthlyChart(months []analytics.MonthlyPnL) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:      "Monthly P&L",
			Subtitle:   fmt.Sprintf("%d months", len(months)),
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)

	labels := make([]string, len(months))
	values := make([]opts.BarData, len(months))
	for i, m := range months {
		labels[i] = m.Month
		if t, err := m.MonthTime(); err == nil {
			labels[i] = t.Format("Jan 2006")
		}
		color := colorProfit
		if m.PnL < 0 {
			color = colorLoss
		}
		values[i] = opts.BarData{
			Name:      labels[i],
			Value:     round2(m.PnL),
			ItemStyle: &opts.ItemStyle{Color: color},
		}
	}
	bar.SetXAxis(labels)
	bar.AddSeries("P&L", values)
	return bar
}

func buildEquityChart(points []analytics.EquityPoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Equity Curve", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
	)

	labels := make([]string, len(points))
	balance := make([]opts.LineData, len(points))
	drawdown := make([]opts.LineData, len(points))
	for i, p := range points {
		labels[i] = p.Time.UTC().Format("2006-01-02 15:04")
		balance[i] = opts.LineData{Value: round2(p.Balance)}
		drawdown[i] = opts.LineData{Value: round2(-p.Drawdown)}
	}
	line.SetXAxis(labels)
	line.AddSeries("Balance", balance, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	line.AddSeries("Drawdown", drawdown, charts.WithLineStyleOpts(opts.LineStyle{Color: colorLoss, Width: 1}))
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
