package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Page is the transient result of one keyset query.
type Page[T any] struct {
	// Items holds at most Limit records in traversal order.
	Items []T
	// TotalCount is the number of rows matching the filters, ignoring the
	// cursor position.
	TotalCount int64
	// HasMore reports whether the lookahead row existed.
	HasMore bool
}

// FetchPage executes one bounded, ordered, filtered keyset query for the
// model T and returns the resulting page. The query is idempotent: it never
// mutates the source.
//
// Steps, in order: apply filters, count the filtered set, apply ordering and
// the keyset bound, fetch limit+1 rows, trim the lookahead row.
//
// searchableColumns declares the string columns eligible for substring
// matching; string filters on any other column are silently ignored.
func FetchPage[T any](ctx context.Context, db *gorm.DB, searchableColumns []string, d *CursorDescriptor) (*Page[T], error) {
	if db == nil {
		return nil, fmt.Errorf("cannot paginate: nil database handle")
	}

	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	// The total reflects only the filter predicate, never the keyset bound, so
	// it stays constant across pages of the same filtered set.
	var total int64
	counting := applyFilters(db.WithContext(ctx).Model(new(T)), d, searchableColumns)
	if err := counting.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("%w: count: %v", ErrDataSource, err)
	}

	query := applyFilters(db.WithContext(ctx).Model(new(T)), d, searchableColumns)
	query = query.Order(d.orderSQL())

	if expression := keysetPredicate(d).toGORMExpression(); expression != nil {
		query = query.Clauses(expression)
	}

	// Fetch one extra record to learn whether a next page exists.
	items := make([]T, 0, d.Limit+1)
	if err := query.Limit(d.Limit + 1).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrDataSource, err)
	}

	hasMore := len(items) > d.Limit
	if hasMore {
		items = items[:d.Limit]
	}

	return &Page[T]{
		Items:      items,
		TotalCount: total,
		HasMore:    hasMore,
	}, nil
}

// applyFilters adds the descriptor's filter predicates to the query. Filter
// entries that cannot be applied (unsafe column name, string value on a
// non-searchable column, unsupported value type) are dropped without error.
// Columns are visited in sorted order so identical descriptors always render
// identical SQL.
func applyFilters(query *gorm.DB, d *CursorDescriptor, searchableColumns []string) *gorm.DB {
	columns := lo.Keys(d.Filters)
	slices.Sort(columns)

	for _, column := range columns {
		if !validColumnName(column) {
			continue
		}

		value := d.Filters[column]
		switch v := value.(type) {
		case string:
			if slices.Contains(searchableColumns, column) {
				query = query.Where(fmt.Sprintf("LOWER(%s) LIKE ?", column), "%"+strings.ToLower(v)+"%")
			}
		case bool:
			query = query.Where(fmt.Sprintf("%s = ?", column), v)
		default:
			if isNumericValue(value) {
				query = query.Where(fmt.Sprintf("%s = ?", column), value)
			}
		}
	}

	return query
}

func isNumericValue(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}
