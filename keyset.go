package pagination

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"
)

// operator is a comparison operator used in keyset filtering conditions.
type operator string

const (
	operatorGT operator = ">"
	operatorLT operator = "<"

	// operatorEq only appears in the equality prefix of a keyset disjunct,
	// never as a cursor bound on its own.
	operatorEq operator = "="
)

type (
	conjunct struct {
		Column   string
		Value    any
		Operator operator
	}

	disjunct []conjunct

	// keysetDNF is the disjunctive normal form of the keyset predicate.
	// Disjuncts are joined by OR and each disjunct is a list of conjuncts
	// joined by AND:
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	keysetDNF []disjunct
)

// keysetPredicate expands a descriptor's cursor position into the composite
// tuple comparison that bounds the next page:
//
//	(c1 op v1) OR (c1 = v1 AND c2 op v2) OR (c1 = v1 AND c2 = v2 AND c3 op v3) ...
//
// for the OrderBy columns c1..cn that carry a defined, non-empty cursor value,
// where op is ">" for next and "<" for prev. Columns without a value
// contribute no term. With no bound columns at all (page 1) the predicate is
// empty and the caller must skip it.
//
// The expansion is a single linear pass: each successive OR-branch reuses the
// previous columns as an accumulated equality prefix. Dropping or reordering
// that prefix breaks the strict total order and with it the no-gap,
// no-duplicate guarantee.
func keysetPredicate(d *CursorDescriptor) keysetDNF {
	op := d.Direction.forOperator()

	bound := make([]conjunct, 0, len(d.OrderBy))
	for _, column := range d.OrderBy {
		value, ok := d.CursorValues[column]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			continue
		}

		bound = append(bound, conjunct{Column: column, Value: value, Operator: op})
	}

	if len(bound) == 0 {
		return nil
	}

	dnf := make(keysetDNF, 0, len(bound))
	for i := range bound {
		equalityPrefix := lo.Map(bound[:i], func(c conjunct, _ int) conjunct {
			return conjunct{Column: c.Column, Value: c.Value, Operator: operatorEq}
		})

		branch := make(disjunct, 0, len(equalityPrefix)+1)
		branch = append(branch, equalityPrefix...)
		branch = append(branch, bound[i])

		dnf = append(dnf, branch)
	}

	return dnf
}

// toGORMExpression renders the conjunct as "Column Operator ?" with a bound
// placeholder value.
func (c conjunct) toGORMExpression() clause.Expression {
	sqlClause, arg := c.toSQLClause()

	return clause.Expr{
		SQL:  sqlClause,
		Vars: []any{arg},
	}
}

func (c conjunct) toSQLClause() (string, driver.Value) {
	return fmt.Sprintf("%s %s ?", c.Column, c.Operator), parseAnyValue(c.Value)
}

// parseAnyValue revives RFC 3339 strings into time.Time so that timestamp
// bounds compare as timestamps rather than text. Non-temporal values pass
// through unchanged.
func parseAnyValue(v any) any {
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		err := dst.UnmarshalText(vBytes)
		if err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}

func (d disjunct) toGORMExpression() clause.Expression {
	andExpressions := make([]clause.Expression, 0, len(d))
	for _, c := range d {
		andExpressions = append(andExpressions, c.toGORMExpression())
	}

	if len(andExpressions) == 1 {
		return andExpressions[0]
	} else if len(andExpressions) > 1 {
		return clause.And(andExpressions...)
	}

	return nil
}

func (d disjunct) toSQLClause() (string, []driver.Value) {
	andClauses := make([]string, 0, len(d))
	andValues := make([]driver.Value, 0, len(d))

	for _, c := range d {
		andClause, andValue := c.toSQLClause()
		andClauses = append(andClauses, andClause)
		andValues = append(andValues, andValue)
	}

	if len(andClauses) >= 1 {
		return fmt.Sprintf("(%s)", strings.Join(andClauses, " AND ")), andValues
	}

	return "", nil
}

func (d keysetDNF) toGORMExpression() clause.Expression {
	orExpressions := make([]clause.Expression, 0, len(d))

	for _, branch := range d {
		andExpression := branch.toGORMExpression()
		if andExpression == nil {
			continue
		}

		orExpressions = append(orExpressions, andExpression)
	}

	if len(orExpressions) == 1 {
		return orExpressions[0]
	} else if len(orExpressions) > 1 {
		return clause.Or(orExpressions...)
	}

	return nil
}

func (d keysetDNF) toSQLClause() (string, []driver.Value) {
	orClauses := make([]string, 0, len(d))
	values := make([]driver.Value, 0, len(d))

	for _, branch := range d {
		orClause, orValues := branch.toSQLClause()
		if orClause == "" {
			continue
		}

		orClauses = append(orClauses, orClause)
		values = append(values, orValues...)
	}

	if len(orClauses) >= 1 {
		return fmt.Sprintf("(%s)", strings.Join(orClauses, " OR ")), values
	}

	return "TRUE", nil
}

// KeysetSQL renders the descriptor's keyset bound as a raw SQL condition with
// placeholder values, for callers assembling queries outside GORM:
//
//	query := fmt.Sprintf("SELECT * FROM t WHERE %s", sqlClause)
//
// Returns "TRUE" when the descriptor has no cursor position (page 1).
func (d *CursorDescriptor) KeysetSQL() (string, []driver.Value) {
	if err := d.validate(); err != nil {
		return "TRUE", nil
	}

	return keysetPredicate(d).toSQLClause()
}
