package chart

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
)

func newBarPlot(title, valueLabel string, counts analysis.Counts, horizontal bool) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}
	n := len(counts)
	vals := make(plotter.Values, n)
	labels := make([]string, n)
	for i, kv := range counts {
		idx := i
		if horizontal {
			// first bucket on top
			idx = n - 1 - i
		}
		vals[idx] = float64(kv.Count)
		labels[idx] = kv.Value
	}
	p := plot.New()
	p.Title.Text = title
	bars, err := plotter.NewBarChart(vals, vg.Points(defaultBarWidth))
	if err != nil {
		return nil, err
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	bars.Horizontal = horizontal
	p.Add(bars)
	if horizontal {
		p.X.Label.Text = valueLabel
		p.NominalY(labels...)
	} else {
		p.Y.Label.Text = valueLabel
		p.NominalX(labels...)
	}
	return p, nil
}

// Bar draws a bar chart of counts, horizontal bars listing the first
// bucket at the top.
func Bar(path, title, valueLabel string, counts analysis.Counts, horizontal bool) error {
	p, err := newBarPlot(title, valueLabel, counts, horizontal)
	if err != nil {
		return err
	}
	return save(p, Size{8, 5}, path)
}
