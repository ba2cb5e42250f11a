package crime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
}

// ErrBadTimestamp is returned for values that match no known layout.
var ErrBadTimestamp = errors.New("unrecognized timestamp")

// ParseTimestamp parses the timestamp formats used by the portal export,
// the Socrata API and warehouse copies of the dataset.
func ParseTimestamp(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadTimestamp)
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, v)
}

// PreprocessOptions controls timestamp handling.
type PreprocessOptions struct {
	// Strict fails on the first unparsable timestamp instead of dropping the row.
	Strict bool
}

// Preprocess parses each record's timestamp and fills the calendar fields.
// Records whose timestamp does not parse are removed and counted in Skipped.
// On error ds is left unchanged.
func Preprocess(ds *Dataset, opt PreprocessOptions) error {
	kept := make([]Record, 0, len(ds.Records))
	var firstBad string
	dropped := 0
	for _, r := range ds.Records {
		t, err := ParseTimestamp(r.Date)
		if err != nil {
			if opt.Strict {
				return fmt.Errorf("record %s: %w", r.ID, err)
			}
			if firstBad == "" {
				firstBad = r.Date
			}
			dropped++
			continue
		}
		r.Time = t
		r.Year = t.Year()
		r.Month = t.Month()
		r.Day = t.Day()
		r.Hour = t.Hour()
		r.Weekday = t.Weekday()
		r.YearMonth = t.Format("2006-01")
		kept = append(kept, r)
	}
	ds.Records = kept
	if dropped > 0 {
		ds.Skipped += dropped
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("dropped %d rows with unparsable DATE (first: %q)", dropped, firstBad))
	}
	return nil
}
