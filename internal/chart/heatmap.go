package chart

import (
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
)

// countGrid adapts a row-major count matrix to plotter.GridXYZ. Row 0 is
// drawn at the top.
type countGrid struct {
	cells [][]int
}

func (g countGrid) Dims() (c, r int) {
	if len(g.cells) == 0 {
		return 0, 0
	}
	return len(g.cells[0]), len(g.cells)
}

func (g countGrid) Z(c, r int) float64 {
	return float64(g.cells[len(g.cells)-1-r][c])
}

func (g countGrid) X(c int) float64 { return float64(c) }
func (g countGrid) Y(r int) float64 { return float64(r) }

// Heatmap draws an annotated count matrix with rows and cols as axis labels.
func Heatmap(path, title string, rows, cols []string, cells [][]int, pal palette.Palette) error {
	if len(rows) == 0 || len(cols) == 0 {
		return ErrNoData
	}
	g := countGrid{cells: cells}
	hm := plotter.NewHeatMap(g, pal)
	hm.Min = 0
	hm.Max = float64(maxCell(cells))
	if hm.Max == 0 {
		hm.Max = 1
	}

	p := plot.New()
	p.Title.Text = title
	p.Add(hm)

	// cell annotations
	var xys plotter.XYs
	var lbls []string
	for r := range cells {
		for c := range cells[r] {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(len(cells) - 1 - r)})
			lbls = append(lbls, strconv.Itoa(cells[r][c]))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: lbls})
	if err != nil {
		return err
	}
	mid := hm.Max / 2
	i := 0
	for r := range cells {
		for c := range cells[r] {
			labels.TextStyle[i].XAlign = text.XCenter
			labels.TextStyle[i].YAlign = text.YCenter
			if float64(cells[r][c]) > mid {
				labels.TextStyle[i].Color = color.White
			}
			i++
		}
	}
	p.Add(labels)

	yLabels := make([]string, len(rows))
	for i, r := range rows {
		yLabels[len(rows)-1-i] = r
	}
	p.NominalX(cols...)
	p.NominalY(yLabels...)
	return save(p, Size{12, 8}, path)
}

func maxCell(cells [][]int) int {
	m := 0
	for _, row := range cells {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}
