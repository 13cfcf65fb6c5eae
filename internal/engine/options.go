package engine

import (
	"log/slog"

	"github.com/roach88/cui/internal/compiler"
)

// Option configures Compile, New and Replay.
// Options that do not apply to a call are ignored by it.
type Option func(*settings)

type settings struct {
	events   compiler.EventSet
	logger   *slog.Logger
	journal  Journal
	sessions SessionGenerator
	observer func(Dispatch)
	clock    *Clock
	source   string
}

func newSettings(opts []Option) settings {
	s := settings{
		events:   compiler.BuiltinEvents(),
		logger:   slog.Default(),
		sessions: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithEventSet replaces the recognized event names.
//
// Default: compiler.BuiltinEvents().
// Use compiler.BuiltinEvents().With("swipe") to extend it.
func WithEventSet(events compiler.EventSet) Option {
	return func(s *settings) {
		s.events = events
	}
}

// WithLogger sets the logger for engine lifecycle and defect reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJournal records every dispatch of the engine's session in j.
func WithJournal(j Journal) Option {
	return func(s *settings) {
		s.journal = j
	}
}

// WithSessionGenerator sets how session IDs are generated.
//
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(s *settings) {
		s.sessions = g
	}
}

// WithObserver registers fn to be called after every dispatch, from the
// Run goroutine, once the dispatch has fully settled.
func WithObserver(fn func(Dispatch)) Option {
	return func(s *settings) {
		s.observer = fn
	}
}

// WithClock starts the engine's seq numbering from c.
func WithClock(c *Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithSource records where the rules came from (usually a file path) in
// the journaled session.
func WithSource(source string) Option {
	return func(s *settings) {
		s.source = source
	}
}
