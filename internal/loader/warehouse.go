package loader

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// Querier streams the result of a query as string rows. The header is the
// same slice for every call.
type Querier interface {
	Query(ctx context.Context, query string, fn func(header, row []string) error) error
}

// LoadWarehouse reads the rows of table through q, at most opt.MaxRows when
// it is set.
func LoadWarehouse(ctx context.Context, q Querier, table string, opt Options) (*crime.Dataset, error) {
	var b *builder
	query := fmt.Sprintf("SELECT * FROM %s", table)
	if opt.MaxRows > 0 {
		query += fmt.Sprintf(" LIMIT %d", opt.MaxRows)
	}
	err := q.Query(ctx, query, func(header, row []string) error {
		if b == nil {
			nb, err := newBuilder(table, header, opt)
			if err != nil {
				return err
			}
			b = nb
		}
		b.add(row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	if b == nil {
		return &crime.Dataset{Name: table}, nil
	}
	ds := b.finish()
	if opt.MaxRows > 0 && ds.Rows >= opt.MaxRows {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("read only the first %d rows of %s due to MaxRows", opt.MaxRows, table))
	}
	return ds, nil
}
