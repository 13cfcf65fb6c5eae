package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/cui/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession writes a session with minimal required fields.
func createTestSession(t *testing.T, s *Store, id string) Session {
	t.Helper()
	sess := Session{
		ID:            id,
		RuleHash:      "rule-hash",
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
		InitialHash:   "initial-hash",
		Source:        "rules.yaml",
	}
	if err := s.WriteSession(context.Background(), sess); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}
	return sess
}

// createTestDocument builds a one-element document whose color property is c.
func createTestDocument(epoch int64, color string) *ir.Document {
	return &ir.Document{
		Root:  0,
		Epoch: epoch,
		Elements: map[ir.ElementID]ir.ElementState{
			0: {Class: "root", Parent: ir.NoElement, Properties: map[string]string{"color": color}, Structure: []ir.ElementID{}},
		},
		Listeners: map[ir.ListenerKey]ir.EffectProgram{},
	}
}
