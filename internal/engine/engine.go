package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/store"
)

// Journal records a session's dispatches. Implemented by *store.Store.
type Journal interface {
	WriteSession(ctx context.Context, sess store.Session) error
	WriteDocument(ctx context.Context, doc *ir.Document) (string, error)
	WriteDispatch(ctx context.Context, rec store.DispatchRecord) error
}

// Dispatch is what an observer sees after each event settles.
type Dispatch struct {
	Seq    int64
	Event  Event
	Result *Result
	Err    error
}

// Engine is the single-writer event loop around a Runtime.
//
// CRITICAL: All mutations happen in the single-writer Run loop goroutine.
// External callers use Enqueue() to submit events for processing.
//
// Thread-safety model:
//   - Enqueue(), Stop(): safe from any goroutine
//   - Document(): safe from any goroutine; never observes a half-applied effect
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	mu       sync.RWMutex
	rt       *Runtime
	queue    *eventQueue
	clock    *Clock
	journal  Journal
	sessions SessionGenerator
	observer func(Dispatch)
	logger   *slog.Logger
	source   string
	session  string
}

// New creates an Engine that dispatches into rt.
//
// Options can be passed to attach a journal (WithJournal), an observer
// (WithObserver) or a deterministic session generator for tests.
func New(rt *Runtime, opts ...Option) *Engine {
	cfg := newSettings(opts)
	clock := cfg.clock
	if clock == nil {
		clock = NewClock()
	}
	return &Engine{
		rt:       rt,
		queue:    newEventQueue(),
		clock:    clock,
		journal:  cfg.journal,
		sessions: cfg.sessions,
		observer: cfg.observer,
		logger:   cfg.logger,
		source:   cfg.source,
	}
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns an ENGINE_STOPPED RuntimeError if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) error {
	if !e.queue.Enqueue(ev) {
		return &RuntimeError{
			Code:    ErrCodeEngineStopped,
			Message: "engine no longer accepts events",
			Element: ev.Element,
			Event:   ev.Name,
		}
	}
	return nil
}

// Session returns the ID of the running session, or "" before Run starts.
func (e *Engine) Session() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// Document returns a snapshot of the current resolved document.
func (e *Engine) Document() *ir.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rt.Document()
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled, or until Stop() is called and every
// event already queued has been dispatched.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: Dispatch errors (defects, unknown elements) are logged
// with full event context and processing continues; they are part of the
// journaled history, not reasons to stop. A journal write failure stops
// the loop, since a journal with gaps cannot be replayed.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.startSession(ctx); err != nil {
		e.queue.Close()
		return err
	}
	e.logger.Info("engine starting", slog.String("session", e.session))

	for {
		// Try non-blocking dequeue first
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				e.queue.Close()
				return err
			}
			continue
		}

		// No event ready - wait for signal or context cancellation
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which will cause this case to fire immediately
			if e.queue.Len() == 0 && e.stopped() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop stops accepting events. Run returns once the queue has drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

func (e *Engine) startSession(ctx context.Context) error {
	e.mu.Lock()
	e.session = e.sessions.Generate()
	e.mu.Unlock()

	if e.journal == nil {
		return nil
	}
	initial, err := e.journal.WriteDocument(ctx, e.rt.Document())
	if err != nil {
		return fmt.Errorf("journal initial document: %w", err)
	}
	err = e.journal.WriteSession(ctx, store.Session{
		ID:            e.session,
		RuleHash:      e.rt.RuleHash(),
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
		InitialHash:   initial,
		Source:        e.source,
	})
	if err != nil {
		return fmt.Errorf("journal session: %w", err)
	}
	return nil
}

// processEvent dispatches one event and records it.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) processEvent(ctx context.Context, ev Event) error {
	seq := e.clock.Next()

	e.mu.Lock()
	res, err := e.rt.Dispatch(ev.Element, ev.Name)
	e.mu.Unlock()

	if err != nil {
		logDispatchError(e.logger, seq, ev, err)
	}

	if e.journal != nil {
		if jerr := e.record(ctx, seq, res, err); jerr != nil {
			return jerr
		}
	}

	if e.observer != nil {
		e.observer(Dispatch{Seq: seq, Event: ev, Result: res, Err: err})
	}
	return nil
}

func (e *Engine) record(ctx context.Context, seq int64, res *Result, dispatchErr error) error {
	hash, err := e.journal.WriteDocument(ctx, res.Document)
	if err != nil {
		return fmt.Errorf("journal dispatch %d: %w", seq, err)
	}
	rec := store.DispatchRecord{
		Session: e.session,
		Seq:     seq,
		Element: res.Key.Element,
		Event:   res.Key.Event,
		Outcome: string(res.Outcome),
		Epoch:   res.Epoch,
		DocHash: hash,
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
	}
	if err := e.journal.WriteDispatch(ctx, rec); err != nil {
		return fmt.Errorf("journal dispatch %d: %w", seq, err)
	}
	return nil
}

// logDispatchError logs a failed dispatch with full context for later
// investigation and replay.
func logDispatchError(l *slog.Logger, seq int64, ev Event, err error) {
	if IsDefect(err) {
		// Runtime.Dispatch already reported the defect itself
		return
	}
	l.Warn("dispatch failed",
		slog.Int64("seq", seq),
		slog.Int("element", int(ev.Element)),
		slog.String("event", ev.Name),
		slog.Any("error", err),
	)
}
