package query

// Table describes a queryable table.
type Table struct {
	Name    string
	Columns []string

	// Key columns, in order, give every row a unique stable position.
	Key []string

	// Text lists the columns that hold text, which sort with COLLATE BINARY.
	Text []string
}

// HasColumn reports whether name is one of t's columns.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t Table) isText(name string) bool {
	for _, c := range t.Text {
		if c == name {
			return true
		}
	}
	return false
}

// Select reads columns of rows matching Filter.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <from.Key>
//
// An empty Columns list selects every column of From, in table order.
// A nil Filter matches every row.
type Select struct {
	From    Table
	Columns []string
	Filter  Predicate
	Limit   int // 0 = no limit
}

// Predicate is a row filter.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches rows whose field equals a literal.
//
//	<field> = ?
//
// Value must be a string, a bool or an integer type.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// In matches rows whose field equals any of Values.
//
//	<field> IN (?, ?, ...)
//
// An empty Values list matches nothing.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// And is a conjunction. An empty And matches every row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
