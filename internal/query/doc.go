// Package query is a small relational filter language over the dispatch
// journal, compiled to parameterized SQLite.
//
// A Select names a Table, the columns to return and an optional Predicate:
//
//	query.Select{
//		From:    store.DispatchTable,
//		Columns: []string{"seq", "outcome"},
//		Filter: query.And{Predicates: []query.Predicate{
//			query.Equals{Field: "session", Value: "s1"},
//			query.In{Field: "outcome", Values: []any{"committed", "rejected"}},
//		}},
//	}
//
// compiles to
//
//	SELECT seq, outcome FROM dispatches
//	WHERE session = ? AND outcome IN (?, ?)
//	ORDER BY session ASC COLLATE BINARY, seq ASC
//
// # Sealed Interfaces
//
// Predicate is sealed with a marker method. Only Equals, In and And
// implement it, so the compiler's type switches are exhaustive.
//
// # Determinism
//
// Every compiled query ends with ORDER BY over the table's key columns.
// Text keys use COLLATE BINARY so ordering does not depend on the SQLite
// build. A replay reads dispatches in exactly the order they were applied.
//
// # Parameterization
//
// Values are always bound as ? parameters, never interpolated. Table and
// column names are checked against the Table before they reach the SQL.
package query
