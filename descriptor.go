package pagination

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Direction defines the traversal direction of a pagination request.
type Direction string

const (
	// DirectionNext pages forward: ascending order, strict ">" keyset bound.
	DirectionNext Direction = "next"
	// DirectionPrev pages backward: descending order, strict "<" keyset bound.
	DirectionPrev Direction = "prev"
)

func (d Direction) Valid() bool {
	return d == DirectionNext || d == DirectionPrev
}

// orderKeyword maps the traversal direction to the SQL sort keyword.
func (d Direction) orderKeyword() string {
	switch d {
	case DirectionNext:
		return "ASC"
	case DirectionPrev:
		return "DESC"
	default:
		panic(fmt.Errorf("cannot map direction '%s' to sort keyword", d))
	}
}

// forOperator maps the traversal direction to the keyset comparison operator.
func (d Direction) forOperator() operator {
	switch d {
	case DirectionNext:
		return operatorGT
	case DirectionPrev:
		return operatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", d))
	}
}

// CursorDescriptor is the self-describing unit of pagination state. A
// descriptor is created fresh per request, either from defaults or by
// decoding a token, and is never mutated after being encoded: every derived
// cursor is a new value.
//
// IMPORTANT:
// OrderBy MUST end with a unique column (typically the primary key) for the
// ordering to be a strict total order. Without it rows sharing the leading
// sort values may be skipped or duplicated across page boundaries.
type CursorDescriptor struct {
	// CursorValues maps an ordering column to the last-seen value. A missing
	// or nil entry means "start of range" for that column.
	CursorValues map[string]any `json:"cursorValues"`
	// OrderBy is the ordered list of sort/tie-break columns. The same sequence
	// drives both the ORDER BY clause and the keyset tuple comparison.
	OrderBy []string `json:"orderBy"`
	// Limit is the page size. Must be positive.
	Limit int `json:"limit"`
	// Direction selects forward or backward traversal.
	Direction Direction `json:"direction"`
	// Filters maps a column to a scalar filter value. Strings on searchable
	// columns match as case-insensitive substrings, numbers and booleans as
	// exact equality.
	Filters map[string]any `json:"filters,omitempty"`
	// Timestamp records when the cursor was created. Informational only.
	Timestamp time.Time `json:"timestamp"`
}

// NewDescriptor builds a first-page descriptor ordered by the given columns.
func NewDescriptor(orderBy ...string) *CursorDescriptor {
	return &CursorDescriptor{
		CursorValues: map[string]any{},
		OrderBy:      orderBy,
		Limit:        DefaultLimit,
		Direction:    DirectionNext,
		Filters:      map[string]any{},
		Timestamp:    time.Now().UTC(),
	}
}

// WithLimit returns a copy of the descriptor with the given normalized limit.
func (d *CursorDescriptor) WithLimit(limit int) *CursorDescriptor {
	ret := d.clone()
	ret.Limit = NormalizeLimit(limit)

	return ret
}

// WithDirection returns a copy of the descriptor with the given direction.
func (d *CursorDescriptor) WithDirection(direction Direction) *CursorDescriptor {
	ret := d.clone()
	ret.Direction = direction

	return ret
}

// WithFilters returns a copy of the descriptor with the given filter map.
func (d *CursorDescriptor) WithFilters(filters map[string]any) *CursorDescriptor {
	ret := d.clone()
	ret.Filters = maps.Clone(filters)

	return ret
}

// clone deep-copies the descriptor so that derived cursors never alias the
// maps of the one they were derived from.
func (d *CursorDescriptor) clone() *CursorDescriptor {
	if d == nil {
		return NewDescriptor()
	}

	return &CursorDescriptor{
		CursorValues: maps.Clone(d.CursorValues),
		OrderBy:      slices.Clone(d.OrderBy),
		Limit:        d.Limit,
		Direction:    d.Direction,
		Filters:      maps.Clone(d.Filters),
		Timestamp:    d.Timestamp,
	}
}

// orderSQL renders the ORDER BY clause body, e.g. "created_at ASC, id ASC".
// Column order exactly matches OrderBy, which fixes tie-break precedence.
func (d *CursorDescriptor) orderSQL() string {
	keyword := d.Direction.orderKeyword()

	parts := lo.Map(d.OrderBy, func(column string, _ int) string {
		return fmt.Sprintf("%s %s", column, keyword)
	})

	return strings.Join(parts, ", ")
}

func (d *CursorDescriptor) validate() error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}

	if len(d.OrderBy) == 0 {
		return fmt.Errorf("empty ordering list")
	}

	for _, column := range d.OrderBy {
		if !validColumnName(column) {
			return fmt.Errorf("ordering column name contains forbidden symbols '%s'", column)
		}
	}

	if d.Limit <= 0 {
		return fmt.Errorf("non-positive limit %d", d.Limit)
	}

	if !d.Direction.Valid() {
		return fmt.Errorf("invalid direction '%s'", d.Direction)
	}

	// Cursor values outside the ordering list cannot participate in the keyset
	// comparison and indicate a token built against a different ordering.
	for column := range d.CursorValues {
		if !slices.Contains(d.OrderBy, column) {
			return fmt.Errorf("cursor value column '%s' is not part of the ordering", column)
		}
	}

	return nil
}

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// validColumnName guards against SQL injection by restricting the allowed
// characters in column names that get interpolated into clauses.
func validColumnName(name string) bool {
	return name != "" && lo.Every(_availableColumnNameSymbols, []rune(name))
}

// Getters maps ordering columns to value extractors for a model. The pager
// uses them to read boundary-row values when deriving next/previous cursors.
//
// Example:
//
//	pagination.Getters[User]{
//		"id":         func(u User) any { return u.ID },
//		"created_at": func(u User) any { return u.CreatedAt },
//	}
type Getters[T any] map[string]func(T) any
