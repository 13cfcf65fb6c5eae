package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/query"
)

// ReadSession retrieves a session by ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, rule_hash, ir_version, engine_version, initial_hash, source
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.RuleHash, &sess.IRVersion, &sess.EngineVersion, &sess.InitialHash, &sess.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by ID.
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_hash, ir_version, engine_version, initial_hash, source
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.RuleHash, &sess.IRVersion, &sess.EngineVersion, &sess.InitialHash, &sess.Source); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DispatchTable describes the dispatches table to the query compiler.
var DispatchTable = query.Table{
	Name:    "dispatches",
	Columns: []string{"session", "seq", "element_id", "event", "outcome", "epoch", "doc_hash", "error"},
	Key:     []string{"session", "seq"},
	Text:    []string{"session", "event", "outcome", "doc_hash", "error"},
}

// ReadDispatches returns every dispatch of a session in seq order.
// Returns an empty slice (not nil) if the session has none.
func (s *Store) ReadDispatches(ctx context.Context, session string) ([]DispatchRecord, error) {
	return s.QueryDispatches(ctx, query.Equals{Field: "session", Value: session}, 0)
}

// ReadBindingDispatches returns the dispatches of one (element, event)
// binding in seq order.
func (s *Store) ReadBindingDispatches(ctx context.Context, session string, key ir.ListenerKey) ([]DispatchRecord, error) {
	return s.QueryDispatches(ctx, query.And{Predicates: []query.Predicate{
		query.Equals{Field: "session", Value: session},
		query.Equals{Field: "element_id", Value: key.Element},
		query.Equals{Field: "event", Value: key.Event},
	}}, 0)
}

// QueryDispatches returns the dispatches matching filter, ordered by
// (session, seq). A nil filter matches every dispatch; limit 0 means all.
func (s *Store) QueryDispatches(ctx context.Context, filter query.Predicate, limit int) ([]DispatchRecord, error) {
	sql, params, err := query.Compile(query.Select{From: DispatchTable, Filter: filter, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	return s.queryDispatches(ctx, sql, params...)
}

func (s *Store) queryDispatches(ctx context.Context, query string, args ...any) ([]DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	records := []DispatchRecord{}
	for rows.Next() {
		var rec DispatchRecord
		var elem int64
		if err := rows.Scan(&rec.Session, &rec.Seq, &elem, &rec.Event, &rec.Outcome, &rec.Epoch, &rec.DocHash, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		rec.Element = ir.ElementID(elem)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return records, nil
}

// ReadDocument returns the canonical JSON body stored under hash.
// Returns ErrNotFound if no document has that hash.
func (s *Store) ReadDocument(ctx context.Context, hash string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE hash = ?`, hash).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return []byte(body), nil
}

// LastSeq returns the highest seq journaled for a session, or 0 if none.
func (s *Store) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM dispatches WHERE session = ?`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
