package store

import (
	"context"
	"fmt"

	"github.com/roach88/cui/internal/ir"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, rule_hash, ir_version, engine_version, initial_hash, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.RuleHash,
		sess.IRVersion,
		sess.EngineVersion,
		sess.InitialHash,
		sess.Source,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteDocument stores a resolved document as canonical JSON and returns
// its content hash. Identical documents share one row.
func (s *Store) WriteDocument(ctx context.Context, doc *ir.Document) (string, error) {
	body, err := ir.MarshalCanonicalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (hash, ir_version, body)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, ir.IRVersion, string(body))
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return hash, nil
}

// WriteDispatch inserts a dispatch record.
//
// Note: The session and the document referenced by DocHash must exist
// (foreign key constraints). A second write for the same (session, seq)
// is silently ignored.
func (s *Store) WriteDispatch(ctx context.Context, rec DispatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(session, seq, element_id, event, outcome, epoch, doc_hash, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		rec.Session,
		rec.Seq,
		int64(rec.Element),
		rec.Event,
		rec.Outcome,
		rec.Epoch,
		rec.DocHash,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}
	return nil
}
