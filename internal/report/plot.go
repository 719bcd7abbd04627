package report

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sensorsync/internal/timesync"
)

// SaveTimelinePNG writes a scatter plot of every sensor's timestamps,
// one row per sensor, with the synchronized rows overlaid on the
// reference row when an alignment is provided.
func SaveTimelinePNG(path string, seriesBySensor map[string]*timesync.Series, aligned timesync.Alignment, referenceSensor string) error {
	sensors := sortedSensors(seriesBySensor)

	p := plot.New()
	p.Title.Text = "Sensor Timelines"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Sensor"
	p.Y.Min = -1
	p.Y.Max = float64(len(sensors))

	for idx, sensor := range sensors {
		s := seriesBySensor[sensor]
		xys := make(plotter.XYs, s.Len())
		for i := 0; i < s.Len(); i++ {
			xys[i].X = s.At(i)
			xys[i].Y = float64(idx)
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("timeline scatter for %s: %w", sensor, err)
		}
		scatter.GlyphStyle.Color = plotutil.Color(idx)
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add(sensor, scatter)
	}

	if len(aligned) > 0 {
		refIdx := indexOf(sensors, referenceSensor)
		xys := make(plotter.XYs, 0, len(aligned))
		for _, row := range aligned {
			if ts, found := row[referenceSensor]; found {
				xys = append(xys, plotter.XY{X: ts, Y: float64(refIdx)})
			}
		}
		synced, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("synced scatter: %w", err)
		}
		synced.GlyphStyle.Shape = plotutil.Shape(len(sensors))
		synced.GlyphStyle.Radius = vg.Points(5)
		p.Add(synced)
		p.Legend.Add("synced", synced)
	}

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save timeline plot: %w", err)
	}
	return nil
}

// SaveErrorHistogramPNG writes a histogram of per-sensor matching
// errors in milliseconds relative to the reference sensor.
func SaveErrorHistogramPNG(path string, aligned timesync.Alignment, referenceSensor string) error {
	var diffs plotter.Values
	for _, row := range aligned {
		ref, found := row[referenceSensor]
		if !found {
			continue
		}
		for sensor, ts := range row {
			if sensor == referenceSensor {
				continue
			}
			diffs = append(diffs, math.Abs(ts-ref)*1000)
		}
	}
	if len(diffs) == 0 {
		return fmt.Errorf("no matching errors to plot")
	}

	p := plot.New()
	p.Title.Text = "Matching Error Distribution"
	p.X.Label.Text = "Absolute error (ms)"
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(diffs, 15)
	if err != nil {
		return fmt.Errorf("error histogram: %w", err)
	}
	hist.FillColor = plotutil.Color(0)
	p.Add(hist)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save error histogram: %w", err)
	}
	return nil
}

func indexOf(sensors []string, name string) int {
	for i, s := range sensors {
		if s == name {
			return i
		}
	}
	return 0
}
