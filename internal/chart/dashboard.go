package chart

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
)

// Dashboard draws the 2x2 overview: yearly trend, top primary types,
// weekday distribution and top community areas.
func Dashboard(path string, res *analysis.Result) error {
	n := res.Options.DashboardTopN
	yearly, err := newLinePlot("Yearly Crime Trend", "Year", "Crime Count", res.Yearly)
	if err != nil {
		return err
	}
	types, err := newBarPlot(fmt.Sprintf("Top %d Primary Crime Types", n), "Count", res.PrimaryTypes.Top(n), false)
	if err != nil {
		return err
	}
	types.X.Tick.Label.Rotation = 0.785
	types.X.Tick.Label.XAlign = text.XRight
	daily, err := newBarPlot("Crimes by Day of Week", "Crime Count", res.Weekday, false)
	if err != nil {
		return err
	}
	areas, err := newBarPlot(fmt.Sprintf("Top %d Community Areas", n), "Crime Count", res.CommunityAreas.Top(n), false)
	if err != nil {
		return err
	}

	plots := [][]*plot.Plot{{yearly, types}, {daily, areas}}
	img := vgimg.New(15*vg.Inch, 12*vg.Inch)
	dc := draw.New(img)
	t := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      vg.Inch / 4,
		PadY:      vg.Inch / 4,
		PadTop:    vg.Inch / 4,
		PadBottom: vg.Inch / 4,
		PadLeft:   vg.Inch / 4,
		PadRight:  vg.Inch / 4,
	}
	canvases := plot.Align(plots, t, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return w.Close()
}
