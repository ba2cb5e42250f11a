package chart

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
)

// maxTickLabels caps labelled ticks on a categorical time axis.
const maxTickLabels = 12

// categoryTicks labels every k-th position so long series stay legible.
func categoryTicks(labels []string) plot.Ticker {
	step := 1
	if len(labels) > maxTickLabels {
		step = int(math.Ceil(float64(len(labels)) / maxTickLabels))
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		ticks := make([]plot.Tick, 0, len(labels))
		for i, l := range labels {
			t := plot.Tick{Value: float64(i)}
			if i%step == 0 {
				t.Label = l
			}
			ticks = append(ticks, t)
		}
		return ticks
	})
}

func newLinePlot(title, xLabel, yLabel string, series analysis.Counts) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}
	pts := make(plotter.XYs, len(series))
	for i, kv := range series {
		pts[i].X = float64(i)
		pts[i].Y = float64(kv.Count)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	l, s, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	l.Color = lineColor
	l.LineStyle.Width = vg.Points(2)
	s.Color = lineColor
	s.Radius = vg.Points(2)
	p.Add(plotter.NewGrid(), l, s)
	p.X.Tick.Marker = categoryTicks(series.Values())
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.Y.Min = 0
	return p, nil
}

// Line draws a time series of counts in the order given.
func Line(path, title, xLabel, yLabel string, series analysis.Counts, sz Size) error {
	p, err := newLinePlot(title, xLabel, yLabel, series)
	if err != nil {
		return err
	}
	return save(p, sz, path)
}
