package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

type xlsxSource struct{}

func (xlsxSource) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet; the first row is the header.
func (xlsxSource) Load(path string, opt Options) (*crime.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &crime.Dataset{Name: filepath.Base(path)}, nil
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		found := false
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &crime.Dataset{Name: filepath.Base(path)}, nil
	}
	b, err := newBuilder(filepath.Base(path), rows[0], opt)
	if err != nil {
		return nil, err
	}
	for _, row := range rows[1:] {
		b.add(row)
	}
	return b.finish(), nil
}
