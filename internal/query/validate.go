package query

import (
	"fmt"
	"reflect"
)

// Validate checks sel against its table. Returns all problems found
// (does not fail-fast); an empty result means sel compiles.
func Validate(sel Select) []string {
	v := &validator{table: sel.From, problems: []string{}}

	if sel.From.Name == "" {
		v.add("query has no table")
	}
	if len(sel.From.Key) == 0 {
		v.add("table %q has no key columns to order by", sel.From.Name)
	}
	for _, k := range sel.From.Key {
		v.column(k)
	}
	for _, c := range sel.Columns {
		v.column(c)
	}
	if sel.Limit < 0 {
		v.add("negative limit %d", sel.Limit)
	}
	v.predicate(sel.Filter)
	return v.problems
}

// validator accumulates problems during traversal.
type validator struct {
	table    Table
	problems []string
}

func (v *validator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) column(name string) {
	if !v.table.HasColumn(name) {
		v.add("table %q has no column %q", v.table.Name, name)
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.column(pred.Field)
		v.value(pred.Field, pred.Value)
	case *Equals:
		v.predicate(*pred)
	case In:
		v.column(pred.Field)
		for _, val := range pred.Values {
			v.value(pred.Field, val)
		}
	case *In:
		v.predicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			if sub == nil {
				v.add("nil predicate in conjunction")
				continue
			}
			v.predicate(sub)
		}
	case *And:
		v.predicate(*pred)
	default:
		v.add("unknown predicate type: %T", p)
	}
}

func (v *validator) value(field string, val any) {
	if _, err := param(val); err != nil {
		v.add("field %q: %v", field, err)
	}
}

// param converts a predicate value to a SQL parameter. Named integer types
// such as ir.ElementID are widened to int64.
func param(val any) (any, error) {
	if val == nil {
		return nil, fmt.Errorf("NULL never equals anything; compare against a value")
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", val)
	}
}
