package store

import (
	"fmt"
	"strings"
)

// Op represents a comparison operator in a where clause
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpLike
	OpIn
)

// String returns the SQL representation of the operator
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpLike:
		return "LIKE"
	case OpIn:
		return "IN"
	default:
		return "UNKNOWN"
	}
}

// Condition is one field comparison in a where clause
type Condition struct {
	Field string
	Op    Op
	Value any
}

// WhereClause is an ordered list of conditions combined with AND
type WhereClause struct {
	Conditions []Condition
}

// Add appends a condition
func (w *WhereClause) Add(field string, op Op, value any) {
	w.Conditions = append(w.Conditions, Condition{Field: field, Op: op, Value: value})
}

// Empty reports whether the clause has no conditions
func (w *WhereClause) Empty() bool {
	return w == nil || len(w.Conditions) == 0
}

// ToSQL compiles the clause to a parameterized SQL fragment (without the
// leading WHERE keyword) plus its argument list. The counter carries the
// next placeholder ordinal across fragments.
func (w *WhereClause) ToSQL(dialect Dialect, counter *int, args *[]any) (string, error) {
	if w.Empty() {
		return "", nil
	}

	parts := make([]string, 0, len(w.Conditions))
	for _, cond := range w.Conditions {
		sql, err := conditionToSQL(cond, dialect, counter, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}

	return strings.Join(parts, " AND "), nil
}

func conditionToSQL(cond Condition, dialect Dialect, counter *int, args *[]any) (string, error) {
	field := dialect.QuoteIdent(cond.Field)

	switch cond.Op {
	case OpIn:
		values, ok := cond.Value.([]any)
		if !ok {
			return "", fmt.Errorf("IN operator requires []any value")
		}
		if len(values) == 0 {
			// IN with an empty list matches nothing
			return "FALSE", nil
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			*args = append(*args, v)
			placeholders[i] = dialect.Placeholder(*counter)
			*counter++
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), nil

	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike:
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s %s %s", field, cond.Op, dialect.Placeholder(*counter))
		*counter++
		return sql, nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", cond.Op)
	}
}
