// Package chart renders the analysis charts to PNG files with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
)

// Fixed artifact file names referenced by the Markdown report.
const (
	TopTypesFile    = "top5_crime_types.png"
	TopAreasFile    = "top5_crime_areas.png"
	TopDatesFile    = "top5_crime_dates.png"
	TypeAreaFile    = "type_area_heatmap.png"
	TypeDateFile    = "type_date_heatmap.png"
	GeoFile         = "geo_heatmap.png"
	MonthlyFile     = "monthly_trend.png"
	DashboardFile   = "crime_analysis.png"
	defaultBarWidth = 18
)

// ErrNoData is returned when a chart would have nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Artifact is one rendered image.
type Artifact struct {
	Name  string // file name within the output directory
	Title string
	Path  string
}

// Size is a figure size in inches.
type Size struct{ W, H float64 }

func save(p *plot.Plot, sz Size, path string) error {
	if err := p.Save(vg.Length(sz.W)*vg.Inch, vg.Length(sz.H)*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RenderAll draws every chart of the report into dir. The geographic
// density chart is skipped when no record carries coordinates.
func RenderAll(dir string, res *analysis.Result) ([]Artifact, error) {
	type job struct {
		name, title string
		draw        func(path string) error
		optional    bool
	}
	topN := res.Options.TopN
	typesTitle := fmt.Sprintf("Top %d Crime Types", topN)
	areasTitle := fmt.Sprintf("Top %d Crime Areas", topN)
	datesTitle := fmt.Sprintf("Top %d Crime Dates", topN)
	jobs := []job{
		{TopTypesFile, typesTitle, func(p string) error {
			return Bar(p, typesTitle, "Count", res.PrimaryTypes.Top(topN), true)
		}, false},
		{TopAreasFile, areasTitle, func(p string) error {
			return Bar(p, areasTitle, "Count", res.CommunityAreas.Top(topN), true)
		}, false},
		{TopDatesFile, datesTitle, func(p string) error {
			return Bar(p, datesTitle, "Count", res.Dates.Top(topN), true)
		}, false},
		{TypeAreaFile, "Top Crime Types vs Top Areas", func(p string) error {
			rows, cols := res.TopTypes(), res.TopAreas()
			return Heatmap(p, "Top Crime Types vs Top Areas", rows, cols, res.TypeByArea.Sub(rows, cols), Reds)
		}, false},
		{TypeDateFile, "Top Crime Types vs Top Dates", func(p string) error {
			rows, cols := res.TopTypes(), res.TopDates()
			return Heatmap(p, "Top Crime Types vs Top Dates", rows, cols, res.TypeByDate.Sub(rows, cols), Blues)
		}, false},
		{GeoFile, "Crime Geographic Distribution", func(p string) error {
			return Density(p, "Crime Geographic Distribution", res.Points, DefaultDensityBins)
		}, true},
		{MonthlyFile, "Monthly Crime Trend", func(p string) error {
			return Line(p, "Monthly Crime Trend", "Year-Month", "Crime Count", res.MonthlySeries, Size{12, 6})
		}, false},
		{DashboardFile, "Crime Analysis Dashboard", func(p string) error {
			return Dashboard(p, res)
		}, false},
	}
	var out []Artifact
	for _, j := range jobs {
		path := filepath.Join(dir, j.name)
		if err := j.draw(path); err != nil {
			if j.optional && errors.Is(err, ErrNoData) {
				continue
			}
			return out, fmt.Errorf("%s: %w", j.name, err)
		}
		out = append(out, Artifact{Name: j.name, Title: j.title, Path: path})
	}
	return out, nil
}
