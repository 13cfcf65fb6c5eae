package query

import (
	"errors"
	"fmt"
	"strings"
)

// Compile converts sel to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// MANDATORY: Every query ends with ORDER BY over the table key.
// MANDATORY: All values are parameterized (never interpolated).
func Compile(sel Select) (string, []any, error) {
	if problems := Validate(sel); len(problems) > 0 {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(problems, "; "))
	}

	columns := sel.Columns
	if len(columns) == 0 {
		columns = sel.From.Columns
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(columns, ", "), sel.From.Name)

	var params []any
	if sel.Filter != nil {
		where, p, err := compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = p
	}

	b.WriteString(" ORDER BY " + orderKey(sel.From))

	if sel.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, int64(sel.Limit))
	}
	return b.String(), params, nil
}

// orderKey returns the ORDER BY clause for a table.
// Uses COLLATE BINARY for deterministic text ordering.
func orderKey(t Table) string {
	parts := make([]string, len(t.Key))
	for i, k := range t.Key {
		if t.isText(k) {
			parts[i] = k + " ASC COLLATE BINARY"
		} else {
			parts[i] = k + " ASC"
		}
	}
	return strings.Join(parts, ", ")
}

// compilePredicate compiles a Predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil // Always true
	case Equals:
		v, err := param(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return pred.Field + " = ?", []any{v}, nil
	case *Equals:
		return compilePredicate(*pred)
	case In:
		return compileIn(pred)
	case *In:
		return compileIn(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileIn(in In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil // Never true
	}
	params := make([]any, len(in.Values))
	marks := make([]string, len(in.Values))
	for i, val := range in.Values {
		v, err := param(val)
		if err != nil {
			return "", nil, err
		}
		params[i] = v
		marks[i] = "?"
	}
	return fmt.Sprintf("%s IN (%s)", in.Field, strings.Join(marks, ", ")), params, nil
}

// compileAnd compiles an And predicate to a conjunction.
func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		if pred == nil {
			return "", nil, errors.New("nil predicate in conjunction")
		}
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}
