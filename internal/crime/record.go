package crime

import "time"

// Record is a single reported incident.
type Record struct {
	ID                  string
	CaseNumber          string
	Date                string // raw timestamp as read from the source
	Block               string
	IUCR                string
	PrimaryType         string
	Description         string
	LocationDescription string
	Arrest              bool
	Domestic            bool
	Beat                string
	District            string
	Ward                string
	CommunityArea       string
	FBICode             string
	Latitude            float64
	Longitude           float64
	HasCoords           bool

	// Derived by Preprocess.
	Time      time.Time
	Year      int
	Month     time.Month
	Day       int
	Hour      int
	Weekday   time.Weekday
	YearMonth string
}

// Dataset is an in-memory table of incidents plus load bookkeeping.
type Dataset struct {
	Name string
	// Rows counts data rows seen in the source, including rows beyond MaxRows.
	Rows     int
	Records  []Record
	Skipped  int
	Warnings []string
}

// HasCoords reports whether at least one record carries coordinates.
func (d *Dataset) HasCoords() bool {
	for i := range d.Records {
		if d.Records[i].HasCoords {
			return true
		}
	}
	return false
}

// DateRange returns the earliest and latest preprocessed timestamps.
func (d *Dataset) DateRange() (first, last time.Time) {
	for i := range d.Records {
		t := d.Records[i].Time
		if t.IsZero() {
			continue
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if last.IsZero() || t.After(last) {
			last = t
		}
	}
	return first, last
}
