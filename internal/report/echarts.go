// Package report renders synchronization and benchmark results as
// HTML pages (go-echarts) and PNG plots (gonum/plot) for offline
// inspection.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sensorsync/internal/timesync"
)

// WriteBenchmarkHTML renders a self-contained HTML page comparing the
// four algorithms: raw sensor timestamps, the winning alignment, and
// per-algorithm accuracy/timing bars.
func WriteBenchmarkHTML(w io.Writer, seriesBySensor map[string]*timesync.Series, cfg timesync.Config, res *timesync.BenchmarkResult) error {
	sensors := sortedSensors(seriesBySensor)

	page := components.NewPage()
	page.AddCharts(
		rawTimestampScatter(seriesBySensor, sensors, cfg),
		alignedScatter(res, sensors),
		errorBars(res),
		timingBars(res),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render benchmark report: %w", err)
	}
	return nil
}

// rawTimestampScatter plots every sensor's timestamps on its own row.
func rawTimestampScatter(seriesBySensor map[string]*timesync.Series, sensors []string, cfg timesync.Config) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Raw Sensor Timestamps",
			Subtitle: fmt.Sprintf("reference=%s max_time_diff=%gs", cfg.ReferenceSensor, cfg.MaxTimeDiff),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sensor", Type: "value", Max: len(sensors)}),
	)

	for idx, sensor := range sensors {
		s := seriesBySensor[sensor]
		data := make([]opts.ScatterData, 0, s.Len())
		for i := 0; i < s.Len(); i++ {
			data = append(data, opts.ScatterData{Value: []interface{}{s.At(i), idx}})
		}
		scatter.AddSeries(sensor, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}
	return scatter
}

// alignedScatter plots the winning algorithm's synchronized points.
func alignedScatter(res *timesync.BenchmarkResult, sensors []string) *charts.Scatter {
	best := res.PerAlgorithm[res.Best]

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Synchronized Points",
			Subtitle: fmt.Sprintf("algorithm=%s rows=%d", res.Best, best.SyncCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sensor", Type: "value", Max: len(sensors)}),
	)

	for idx, sensor := range sensors {
		data := make([]opts.ScatterData, 0, len(best.Aligned))
		for _, row := range best.Aligned {
			if ts, found := row[sensor]; found {
				data = append(data, opts.ScatterData{Value: []interface{}{ts, idx}})
			}
		}
		scatter.AddSeries(sensor, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	return scatter
}

// errorBars compares the mean absolute error per algorithm.
func errorBars(res *timesync.BenchmarkResult) *charts.Bar {
	x := make([]string, 0, len(res.PerAlgorithm))
	y := make([]opts.BarData, 0, len(res.PerAlgorithm))
	for _, algo := range timesync.Algorithms() {
		run, found := res.PerAlgorithm[algo]
		if !found {
			continue
		}
		x = append(x, string(algo))
		y = append(y, opts.BarData{Value: run.Report.MeanAbsError * 1000})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Mean Absolute Error (ms)", Subtitle: "best: " + string(res.Best)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("mean_abs_error_ms", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

// timingBars compares wall-clock execution per algorithm.
func timingBars(res *timesync.BenchmarkResult) *charts.Bar {
	x := make([]string, 0, len(res.PerAlgorithm))
	y := make([]opts.BarData, 0, len(res.PerAlgorithm))
	for _, algo := range timesync.Algorithms() {
		run, found := res.PerAlgorithm[algo]
		if !found {
			continue
		}
		x = append(x, string(algo))
		y = append(y, opts.BarData{Value: float64(run.ExecTime) / float64(time.Microsecond)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Execution Time (µs)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("exec_time_us", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func sortedSensors(seriesBySensor map[string]*timesync.Series) []string {
	sensors := make([]string, 0, len(seriesBySensor))
	for name := range seriesBySensor {
		sensors = append(sensors, name)
	}
	sort.Strings(sensors)
	return sensors
}
