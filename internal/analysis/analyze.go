package analysis

import (
	"time"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// Options controls how much of each ranking the charts and report show.
type Options struct {
	// TopN is the length of the top-N rankings and heatmap axes.
	TopN int
	// DashboardTopN is the length of the rankings on the dashboard and in
	// the plaintext report.
	DashboardTopN int
}

// DefaultOptions returns the five/ten split used by the report layout.
func DefaultOptions() Options {
	return Options{TopN: 5, DashboardTopN: 10}
}

// Point is one geocoded incident.
type Point struct {
	Lon, Lat float64
}

// Result holds every aggregate the charts and reports draw from.
type Result struct {
	Name    string
	Options Options

	Total   int
	Skipped int
	First   time.Time
	Last    time.Time

	PrimaryTypes   Counts
	Descriptions   Counts
	CommunityAreas Counts
	Locations      Counts
	Districts      Counts
	Dates          Counts

	Yearly        Counts
	Monthly       Counts
	Weekday       Counts
	Hourly        Counts
	MonthlySeries Counts

	Arrests  int
	Domestic int

	TypeByArea *Pivot
	TypeByDate *Pivot

	Points   []Point
	Warnings []string
}

// Analyze computes the aggregates over a preprocessed dataset.
func Analyze(ds *crime.Dataset, opt Options) *Result {
	if opt.TopN <= 0 {
		opt.TopN = 5
	}
	if opt.DashboardTopN <= 0 {
		opt.DashboardTopN = 10
	}
	recs := ds.Records
	res := &Result{
		Name:     ds.Name,
		Options:  opt,
		Total:    len(recs),
		Skipped:  ds.Skipped,
		Warnings: append([]string(nil), ds.Warnings...),
	}
	res.First, res.Last = ds.DateRange()

	res.PrimaryTypes = ValueCounts(recs, PrimaryType)
	res.Descriptions = ValueCounts(recs, Description)
	res.CommunityAreas = ValueCounts(recs, CommunityArea)
	res.Locations = ValueCounts(recs, LocationDescription)
	res.Districts = ValueCounts(recs, District)
	res.Dates = ValueCounts(recs, CalendarDay)

	res.Yearly = GroupCounts(recs, Year, NumericLess)
	res.Monthly = GroupCounts(recs, Month, NumericLess)
	res.Weekday = GroupCounts(recs, Weekday, WeekdayLess)
	res.Hourly = GroupCounts(recs, Hour, NumericLess)
	res.MonthlySeries = GroupCounts(recs, YearMonth, nil)

	for i := range recs {
		r := &recs[i]
		if r.Arrest {
			res.Arrests++
		}
		if r.Domestic {
			res.Domestic++
		}
		if r.HasCoords {
			res.Points = append(res.Points, Point{Lon: r.Longitude, Lat: r.Latitude})
		}
	}

	res.TypeByArea = NewPivot(recs, PrimaryType, CommunityArea)
	res.TypeByDate = NewPivot(recs, PrimaryType, CalendarDay)
	return res
}

// TopTypes is the leading primary types used on the heatmap rows.
func (r *Result) TopTypes() []string { return r.PrimaryTypes.Top(r.Options.TopN).Values() }

// TopAreas is the leading community areas used on the heatmap columns.
func (r *Result) TopAreas() []string { return r.CommunityAreas.Top(r.Options.TopN).Values() }

// TopDates is the leading calendar days used on the heatmap columns.
func (r *Result) TopDates() []string { return r.Dates.Top(r.Options.TopN).Values() }

// Share returns n as a percentage of the total, or 0 for an empty result.
func (r *Result) Share(n int) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(r.Total)
}
