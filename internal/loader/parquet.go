package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// parquetRecord is the on-disk layout for Parquet extracts of the dataset.
type parquetRecord struct {
	ID                  string   `parquet:"id"`
	CaseNumber          string   `parquet:"case_number"`
	Date                string   `parquet:"date"`
	Block               string   `parquet:"block"`
	IUCR                string   `parquet:"iucr"`
	PrimaryType         string   `parquet:"primary_type"`
	Description         string   `parquet:"description"`
	LocationDescription string   `parquet:"location_description"`
	Arrest              bool     `parquet:"arrest"`
	Domestic            bool     `parquet:"domestic"`
	Beat                string   `parquet:"beat"`
	District            string   `parquet:"district"`
	Ward                string   `parquet:"ward"`
	CommunityArea       string   `parquet:"community_area"`
	FBICode             string   `parquet:"fbi_code"`
	Latitude            *float64 `parquet:"latitude,optional"`
	Longitude           *float64 `parquet:"longitude,optional"`
}

type parquetSource struct{}

func (parquetSource) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".parquet")
}

func (parquetSource) Load(path string, opt Options) (*crime.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	for _, col := range []string{"date", "primary_type"} {
		if _, ok := pf.Schema().Lookup(col); !ok {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(path), crime.ErrMissingColumn, crime.NormalizeColumn(col))
		}
	}

	ds := &crime.Dataset{Name: filepath.Base(path)}
	reader := parquet.NewGenericReader[parquetRecord](f)
	defer reader.Close()
	buf := make([]parquetRecord, 512)
	for {
		n, err := reader.Read(buf)
		for _, pr := range buf[:n] {
			ds.Rows++
			if opt.MaxRows > 0 && len(ds.Records) >= opt.MaxRows {
				continue
			}
			ds.Records = append(ds.Records, fromParquet(pr))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read parquet: %w", err)
		}
		if n == 0 {
			break
		}
	}
	if opt.MaxRows > 0 && ds.Rows > opt.MaxRows {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", opt.MaxRows, ds.Rows))
	}
	return ds, nil
}

func fromParquet(pr parquetRecord) crime.Record {
	r := crime.Record{
		ID:                  pr.ID,
		CaseNumber:          pr.CaseNumber,
		Date:                pr.Date,
		Block:               pr.Block,
		IUCR:                pr.IUCR,
		PrimaryType:         pr.PrimaryType,
		Description:         pr.Description,
		LocationDescription: pr.LocationDescription,
		Arrest:              pr.Arrest,
		Domestic:            pr.Domestic,
		Beat:                pr.Beat,
		District:            pr.District,
		Ward:                pr.Ward,
		CommunityArea:       pr.CommunityArea,
		FBICode:             pr.FBICode,
	}
	if pr.Latitude != nil && pr.Longitude != nil {
		r.Latitude, r.Longitude, r.HasCoords = *pr.Latitude, *pr.Longitude, true
	}
	return r
}

func toParquet(r crime.Record) parquetRecord {
	pr := parquetRecord{
		ID:                  r.ID,
		CaseNumber:          r.CaseNumber,
		Date:                r.Date,
		Block:               r.Block,
		IUCR:                r.IUCR,
		PrimaryType:         r.PrimaryType,
		Description:         r.Description,
		LocationDescription: r.LocationDescription,
		Arrest:              r.Arrest,
		Domestic:            r.Domestic,
		Beat:                r.Beat,
		District:            r.District,
		Ward:                r.Ward,
		CommunityArea:       r.CommunityArea,
		FBICode:             r.FBICode,
	}
	if r.HasCoords {
		lat, lon := r.Latitude, r.Longitude
		pr.Latitude, pr.Longitude = &lat, &lon
	}
	return pr
}

// WriteParquet writes the dataset's records to path.
func WriteParquet(path string, ds *crime.Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}
	defer file.Close()

	rows := make([]parquetRecord, len(ds.Records))
	for i := range ds.Records {
		rows[i] = toParquet(ds.Records[i])
	}
	writer := parquet.NewGenericWriter[parquetRecord](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return file.Close()
}
