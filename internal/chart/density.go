package chart

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
)

// DefaultDensityBins is the grid resolution per axis of the density chart.
const DefaultDensityBins = 60

// densityGrid is a binned 2D histogram over longitude (X) and latitude (Y).
type densityGrid struct {
	z          [][]float64 // z[row][col]
	minX, minY float64
	dx, dy     float64
}

func (g *densityGrid) Dims() (c, r int) { return len(g.z[0]), len(g.z) }
func (g *densityGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g *densityGrid) X(c int) float64    { return g.minX + (float64(c)+0.5)*g.dx }
func (g *densityGrid) Y(r int) float64    { return g.minY + (float64(r)+0.5)*g.dy }

// finite reports whether p can be placed on the grid.
func finite(p analysis.Point) bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lon, 0)
}

// newDensityGrid bins pts; callers pass finite points only.
func newDensityGrid(pts []analysis.Point, bins int) *densityGrid {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.Lon), math.Max(maxX, p.Lon)
		minY, maxY = math.Min(minY, p.Lat), math.Max(maxY, p.Lat)
	}
	// a single location still needs a non-zero extent
	if maxX-minX == 0 {
		minX, maxX = minX-0.005, maxX+0.005
	}
	if maxY-minY == 0 {
		minY, maxY = minY-0.005, maxY+0.005
	}
	g := &densityGrid{
		minX: minX, minY: minY,
		dx: (maxX - minX) / float64(bins),
		dy: (maxY - minY) / float64(bins),
	}
	raw := make([][]float64, bins)
	for i := range raw {
		raw[i] = make([]float64, bins)
	}
	for _, p := range pts {
		c := max(0, min(int((p.Lon-minX)/g.dx), bins-1))
		r := max(0, min(int((p.Lat-minY)/g.dy), bins-1))
		raw[r][c]++
	}
	g.z = smooth(raw)
	return g
}

// smooth applies a 3x3 binomial kernel so sparse bins read as a density
// surface rather than isolated dots.
func smooth(in [][]float64) [][]float64 {
	kernel := [3][3]float64{{1, 2, 1}, {2, 4, 2}, {1, 2, 1}}
	rows, cols := len(in), len(in[0])
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			var sum, wsum float64
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					rr, cc := r+dr, c+dc
					if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
						continue
					}
					w := kernel[dr+1][dc+1]
					sum += in[rr][cc] * w
					wsum += w
				}
			}
			out[r][c] = sum / wsum
		}
	}
	return out
}

// Density draws a filled density surface of incident coordinates.
// Points with a non-finite coordinate are ignored.
func Density(path, title string, pts []analysis.Point, bins int) error {
	usable := make([]analysis.Point, 0, len(pts))
	for _, p := range pts {
		if finite(p) {
			usable = append(usable, p)
		}
	}
	pts = usable
	if len(pts) == 0 {
		return ErrNoData
	}
	if bins < 2 {
		bins = DefaultDensityBins
	}
	g := newDensityGrid(pts, bins)
	hm := plotter.NewHeatMap(g, Reds)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(hm)
	return save(p, Size{10, 8}, path)
}
