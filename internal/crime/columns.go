package crime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Canonical column names, matching the warehouse table.
const (
	ColID                  = "ID"
	ColCaseNumber          = "CASE_NUMBER"
	ColDate                = "DATE"
	ColBlock               = "BLOCK"
	ColIUCR                = "IUCR"
	ColPrimaryType         = "PRIMARY_TYPE"
	ColDescription         = "DESCRIPTION"
	ColLocationDescription = "LOCATION_DESCRIPTION"
	ColArrest              = "ARREST"
	ColDomestic            = "DOMESTIC"
	ColBeat                = "BEAT"
	ColDistrict            = "DISTRICT"
	ColWard                = "WARD"
	ColCommunityArea       = "COMMUNITY_AREA"
	ColFBICode             = "FBI_CODE"
	ColLatitude            = "LATITUDE"
	ColLongitude           = "LONGITUDE"
)

// Column is one column of the warehouse table.
type Column struct {
	Name string
	Type string
}

// Columns is the warehouse table layout in file order.
var Columns = []Column{
	{"ID", "VARCHAR(50)"},
	{"CASE_NUMBER", "VARCHAR(50)"},
	{"DATE", "VARCHAR(50)"},
	{"BLOCK", "VARCHAR(100)"},
	{"IUCR", "VARCHAR(10)"},
	{"PRIMARY_TYPE", "VARCHAR(100)"},
	{"DESCRIPTION", "VARCHAR(200)"},
	{"LOCATION_DESCRIPTION", "VARCHAR(100)"},
	{"ARREST", "BOOLEAN"},
	{"DOMESTIC", "BOOLEAN"},
	{"BEAT", "VARCHAR(10)"},
	{"DISTRICT", "VARCHAR(10)"},
	{"WARD", "VARCHAR(10)"},
	{"COMMUNITY_AREA", "VARCHAR(10)"},
	{"FBI_CODE", "VARCHAR(10)"},
	{"X_COORDINATE", "VARCHAR(20)"},
	{"Y_COORDINATE", "VARCHAR(20)"},
	{"YEAR", "VARCHAR(10)"},
	{"UPDATED_ON", "VARCHAR(50)"},
	{"LATITUDE", "VARCHAR(20)"},
	{"LONGITUDE", "VARCHAR(20)"},
	{"LOCATION", "VARCHAR(100)"},
	{"HISTORICAL_WARDS_2003_2015", "VARCHAR(10)"},
	{"ZIP_CODES", "VARCHAR(10)"},
	{"COMMUNITY_AREAS", "VARCHAR(10)"},
	{"CENSUS_TRACTS", "VARCHAR(10)"},
	{"WARDS", "VARCHAR(10)"},
	{"BOUNDARIES_ZIP_CODES", "VARCHAR(10)"},
	{"POLICE_DISTRICTS", "VARCHAR(10)"},
	{"POLICE_BEATS", "VARCHAR(10)"},
}

// ErrMissingColumn is returned when a header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// NormalizeColumn maps header spellings such as "Primary Type",
// "primary_type" and "Location-Description" to the canonical upper-snake name.
func NormalizeColumn(name string) string {
	s := strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	s = strings.ToUpper(s)
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch r {
		case ' ', '-', '.', '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Decoder turns positional rows into Records using a header mapping.
type Decoder struct {
	index map[string]int
}

// NewDecoder builds a Decoder for header. DATE and PRIMARY_TYPE are required.
func NewDecoder(header []string) (*Decoder, error) {
	d := &Decoder{index: make(map[string]int, len(header))}
	for i, h := range header {
		n := NormalizeColumn(h)
		if _, dup := d.index[n]; dup || n == "" {
			continue
		}
		d.index[n] = i
	}
	for _, req := range []string{ColDate, ColPrimaryType} {
		if _, ok := d.index[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}
	return d, nil
}

// Has reports whether the header carried the canonical column name.
func (d *Decoder) Has(col string) bool {
	_, ok := d.index[col]
	return ok
}

func (d *Decoder) field(row []string, col string) string {
	i, ok := d.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Decode maps row to a Record. Short rows yield empty fields.
func (d *Decoder) Decode(row []string) Record {
	r := Record{
		ID:                  d.field(row, ColID),
		CaseNumber:          d.field(row, ColCaseNumber),
		Date:                d.field(row, ColDate),
		Block:               d.field(row, ColBlock),
		IUCR:                d.field(row, ColIUCR),
		PrimaryType:         d.field(row, ColPrimaryType),
		Description:         d.field(row, ColDescription),
		LocationDescription: d.field(row, ColLocationDescription),
		Arrest:              ParseBool(d.field(row, ColArrest)),
		Domestic:            ParseBool(d.field(row, ColDomestic)),
		Beat:                d.field(row, ColBeat),
		District:            d.field(row, ColDistrict),
		Ward:                d.field(row, ColWard),
		CommunityArea:       normalizeCode(d.field(row, ColCommunityArea)),
		FBICode:             d.field(row, ColFBICode),
	}
	lat, okLat := parseFloat(d.field(row, ColLatitude))
	lon, okLon := parseFloat(d.field(row, ColLongitude))
	if okLat && okLon && !(lat == 0 && lon == 0) {
		r.Latitude, r.Longitude, r.HasCoords = lat, lon, true
	}
	return r
}

// ParseBool accepts the flag spellings found across exports of the dataset.
func ParseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "y", "yes", "1":
		return true
	}
	return false
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalizeCode strips a float suffix that spreadsheet and warehouse exports
// add to integer codes ("25.0" -> "25").
func normalizeCode(s string) string {
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(s, ".0")); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}
