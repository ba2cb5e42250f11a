package analysis

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// Unknown is the bucket for records with an empty key, so that every count
// table sums to the number of records it was built from.
const Unknown = "(unknown)"

// CategoryCount is one bucket of a count table.
type CategoryCount struct {
	Value string
	Count int
}

// Counts is a count table in display order.
type Counts []CategoryCount

// Total sums all buckets.
func (c Counts) Total() int {
	n := 0
	for _, kv := range c {
		n += kv.Count
	}
	return n
}

// Top returns at most n leading buckets.
func (c Counts) Top(n int) Counts {
	if n <= 0 || n >= len(c) {
		return c
	}
	return c[:n]
}

// Values returns the bucket labels in order.
func (c Counts) Values() []string {
	out := make([]string, len(c))
	for i, kv := range c {
		out[i] = kv.Value
	}
	return out
}

// Get returns the count for value, or 0.
func (c Counts) Get(value string) int {
	for _, kv := range c {
		if kv.Value == value {
			return kv.Count
		}
	}
	return 0
}

// KeyFunc extracts a grouping key from a record.
type KeyFunc func(r *crime.Record) string

// Grouping keys over the incident fields.
var (
	PrimaryType         KeyFunc = func(r *crime.Record) string { return r.PrimaryType }
	Description         KeyFunc = func(r *crime.Record) string { return r.Description }
	CommunityArea       KeyFunc = func(r *crime.Record) string { return r.CommunityArea }
	LocationDescription KeyFunc = func(r *crime.Record) string { return r.LocationDescription }
	District            KeyFunc = func(r *crime.Record) string { return r.District }
	CalendarDay         KeyFunc = func(r *crime.Record) string { return dateKey(r.Time, "2006-01-02") }
	Year                KeyFunc = func(r *crime.Record) string { return dateKey(r.Time, "2006") }
	Month               KeyFunc = func(r *crime.Record) string { return dateKey(r.Time, "01") }
	YearMonth           KeyFunc = func(r *crime.Record) string { return r.YearMonth }
	Weekday             KeyFunc = func(r *crime.Record) string { return dateKey(r.Time, "Monday") }
	Hour                KeyFunc = func(r *crime.Record) string { return dateKey(r.Time, "15") }
)

func dateKey(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func tally(records []crime.Record, key KeyFunc) map[string]int {
	m := make(map[string]int)
	for i := range records {
		k := strings.TrimSpace(key(&records[i]))
		if k == "" {
			k = Unknown
		}
		m[k]++
	}
	return m
}

// ValueCounts counts records per key, most frequent first; ties break on
// the label so output is deterministic.
func ValueCounts(records []crime.Record, key KeyFunc) Counts {
	m := tally(records, key)
	out := make(Counts, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// GroupCounts counts records per key in key order, the way a group-by over
// a sortable column presents its index. less nil means lexical order.
func GroupCounts(records []crime.Record, key KeyFunc, less func(a, b string) bool) Counts {
	m := tally(records, key)
	out := make(Counts, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}
	sort.Slice(out, func(i, j int) bool {
		// unknown always trails
		if out[i].Value == Unknown || out[j].Value == Unknown {
			return out[j].Value == Unknown && out[i].Value != Unknown
		}
		return less(out[i].Value, out[j].Value)
	})
	return out
}

var weekdayOrder = map[string]int{
	"Monday": 0, "Tuesday": 1, "Wednesday": 2, "Thursday": 3, "Friday": 4, "Saturday": 5, "Sunday": 6,
}

// WeekdayLess orders weekday names Monday first.
func WeekdayLess(a, b string) bool { return weekdayOrder[a] < weekdayOrder[b] }

// NumericLess orders numeric labels by value, falling back to lexical order.
func NumericLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return x < y
}
