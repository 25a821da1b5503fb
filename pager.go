package pagination

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PageMeta is the pagination metadata attached to every result.
type PageMeta struct {
	NextCursor     string `json:"nextCursor,omitempty"`
	PreviousCursor string `json:"previousCursor,omitempty"`
	HasMore        bool   `json:"hasMore"`
	TotalRowCount  int64  `json:"totalRowCount"`
}

// PaginatedResult is the public output of one pagination request.
type PaginatedResult[R any] struct {
	Data []R      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// Overrides carries caller-supplied parameters applied on top of the resolved
// descriptor. Each field is validated independently; an invalid field is
// discarded while the rest still apply. Zero values mean "no override",
// except Filters where a non-nil map replaces the descriptor's filters
// wholesale.
type Overrides struct {
	Limit     int
	Direction Direction
	Filters   map[string]any
}

// Pager orchestrates cursor pagination for the model T, mapping each record
// through a transform into the public representation R. It owns the cursor
// lifecycle policy: a token that fails to decode is logged and degrades to
// the first page rather than erroring, so a corrupted or tampered cursor
// never fails the request.
//
// A Pager holds no per-request state; concurrent Paginate calls are
// independent.
type Pager[T any, R any] struct {
	db           *gorm.DB
	transform    func(T) R
	searchable   []string
	getters      Getters[T]
	defaultOrder []string
	defaultLimit int
	codec        *Codec
	logger       *zap.Logger
}

// NewPager builds a pager over db for the model T. Configure it with the
// chainable With* methods; at minimum WithDefaultOrder and WithGetters must
// cover every ordering column.
func NewPager[T any, R any](db *gorm.DB, transform func(T) R) *Pager[T, R] {
	return &Pager[T, R]{
		db:           db,
		transform:    transform,
		defaultLimit: DefaultLimit,
		codec:        NewCodec(),
		logger:       zap.NewNop(),
	}
}

// WithDefaultOrder sets the ordering used when a request carries no (valid)
// cursor. The last column should be unique, e.g. the primary key.
func (p *Pager[T, R]) WithDefaultOrder(columns ...string) *Pager[T, R] {
	p.defaultOrder = columns

	return p
}

// WithDefaultLimit sets the page size used when a request carries no (valid)
// cursor and no limit override. The value is normalized against MaxLimit.
func (p *Pager[T, R]) WithDefaultLimit(limit int) *Pager[T, R] {
	p.defaultLimit = NormalizeLimit(limit)

	return p
}

// WithSearchable declares the string columns eligible for case-insensitive
// substring filtering.
func (p *Pager[T, R]) WithSearchable(columns ...string) *Pager[T, R] {
	p.searchable = columns

	return p
}

// WithGetters sets the value extractors used to read boundary-row values when
// deriving cursors. Every ordering column must have a getter.
func (p *Pager[T, R]) WithGetters(getters Getters[T]) *Pager[T, R] {
	p.getters = getters

	return p
}

// WithCodec replaces the default unsigned codec, e.g. with a signing one.
func (p *Pager[T, R]) WithCodec(codec *Codec) *Pager[T, R] {
	if codec != nil {
		p.codec = codec
	}

	return p
}

// WithLogger sets the logger for fallback and override-discard events.
func (p *Pager[T, R]) WithLogger(logger *zap.Logger) *Pager[T, R] {
	if logger != nil {
		p.logger = logger
	}

	return p
}

// Paginate serves one pagination request. encodedCursor may be empty (first
// page) or a token from a previous response; overrides may be nil.
//
// Only two classes of failure surface as errors: ErrInvalidDescriptor
// (misconfiguration, e.g. the effective ordering is empty or a getter is
// missing) and ErrDataSource (the underlying store failed, including context
// cancellation). Invalid cursors and invalid overrides never fail the
// request.
func (p *Pager[T, R]) Paginate(ctx context.Context, encodedCursor string, overrides *Overrides) (*PaginatedResult[R], error) {
	if p == nil || p.db == nil || p.transform == nil {
		return nil, fmt.Errorf("%w: pager is not configured", ErrInvalidDescriptor)
	}

	d, fromCursor := p.resolveDescriptor(encodedCursor)
	p.applyOverrides(d, overrides)

	page, err := FetchPage[T](ctx, p.db, p.searchable, d)
	if err != nil {
		return nil, err
	}

	meta := PageMeta{
		HasMore:       page.HasMore,
		TotalRowCount: page.TotalCount,
	}

	if page.HasMore && len(page.Items) > 0 {
		meta.NextCursor, err = p.deriveCursor(d, lo.LastOrEmpty(page.Items), DirectionNext)
		if err != nil {
			return nil, err
		}
	}

	// A previous cursor only makes sense when the request itself resumed from
	// a cursor: page 1 has nothing before it.
	if fromCursor && len(page.Items) > 0 {
		meta.PreviousCursor, err = p.deriveCursor(d, page.Items[0], DirectionPrev)
		if err != nil {
			return nil, err
		}
	}

	return &PaginatedResult[R]{
		Data: lo.Map(page.Items, func(item T, _ int) R { return p.transform(item) }),
		Meta: meta,
	}, nil
}

// descriptorOutcome is the tagged result of cursor resolution: either the
// decoded descriptor, or the default one with the reason the token was
// rejected. Resolution always yields a usable descriptor.
type descriptorOutcome struct {
	descriptor     *CursorDescriptor
	fallbackReason string
}

// resolveDescriptor turns the incoming token into the effective descriptor.
// The second return value reports whether the request genuinely resumed from
// a cursor (a rejected token counts as a first-page request).
func (p *Pager[T, R]) resolveDescriptor(encodedCursor string) (*CursorDescriptor, bool) {
	outcome := p.decodeOrFallback(encodedCursor)
	if outcome.fallbackReason != "" {
		p.logger.Warn(
			"cursor rejected, serving first page",
			zap.String("reason", outcome.fallbackReason),
		)

		return outcome.descriptor, false
	}

	return outcome.descriptor, encodedCursor != ""
}

func (p *Pager[T, R]) decodeOrFallback(encodedCursor string) descriptorOutcome {
	if encodedCursor == "" {
		return descriptorOutcome{descriptor: p.defaultDescriptor()}
	}

	d, err := p.codec.Decode(encodedCursor)
	if err != nil {
		return descriptorOutcome{
			descriptor:     p.defaultDescriptor(),
			fallbackReason: err.Error(),
		}
	}

	return descriptorOutcome{descriptor: d}
}

func (p *Pager[T, R]) defaultDescriptor() *CursorDescriptor {
	return &CursorDescriptor{
		CursorValues: map[string]any{},
		OrderBy:      slices.Clone(p.defaultOrder),
		Limit:        p.defaultLimit,
		Direction:    DirectionNext,
		Filters:      map[string]any{},
		Timestamp:    time.Now().UTC(),
	}
}

// applyOverrides validates each override field independently and discards
// invalid ones, so a bad limit does not lose a good filter set.
func (p *Pager[T, R]) applyOverrides(d *CursorDescriptor, overrides *Overrides) {
	if overrides == nil {
		return
	}

	if overrides.Limit != 0 {
		if overrides.Limit > 0 {
			d.Limit = NormalizeLimit(overrides.Limit)
		} else {
			p.logger.Debug("discarding invalid limit override", zap.Int("limit", overrides.Limit))
		}
	}

	if overrides.Direction != "" {
		if overrides.Direction.Valid() {
			d.Direction = overrides.Direction
		} else {
			p.logger.Debug("discarding invalid direction override", zap.String("direction", string(overrides.Direction)))
		}
	}

	if overrides.Filters != nil {
		d.Filters = overrides.Filters
	}
}

// deriveCursor builds and encodes a fresh descriptor positioned at a boundary
// row of the current page, carrying forward ordering, limit and filters.
func (p *Pager[T, R]) deriveCursor(d *CursorDescriptor, boundary T, direction Direction) (string, error) {
	values := make(map[string]any, len(d.OrderBy))
	for _, column := range d.OrderBy {
		getter, ok := p.getters[column]
		if !ok {
			return "", fmt.Errorf("%w: cannot find getter for column '%s' met in ordering", ErrInvalidDescriptor, column)
		}

		values[column] = getter(boundary)
	}

	derived := &CursorDescriptor{
		CursorValues: values,
		OrderBy:      slices.Clone(d.OrderBy),
		Limit:        d.Limit,
		Direction:    direction,
		Filters:      maps.Clone(d.Filters),
		Timestamp:    time.Now().UTC(),
	}

	return p.codec.Encode(derived)
}
