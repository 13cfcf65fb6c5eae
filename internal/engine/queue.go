package engine

import (
	"fmt"
	"sync"

	"github.com/roach88/cui/internal/ir"
)

// Event is one named event addressed to an element.
type Event struct {
	Element ir.ElementID
	Name    string
}

func (e Event) String() string {
	return fmt.Sprintf("#%d:%s", e.Element, e.Name)
}

// eventQueue holds events waiting for the Run loop, in arrival order.
//
// Producers may enqueue from any goroutine and never block. The Run loop is
// the only consumer. signal has a buffer of one, so any number of enqueues
// between two waits coalesce into a single wake-up; the consumer drains with
// TryDequeue until it reports empty.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	head   int // index of the next event to deliver
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

// Enqueue appends e. Returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.events = append(q.events, e)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest event without blocking. Events enqueued before
// Close are still delivered.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.events) {
		return Event{}, false
	}
	e := q.events[q.head]
	q.events[q.head] = Event{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.events) {
		q.events, q.head = q.events[:0], 0
	} else if q.head > 32 && q.head*2 > len(q.events) {
		n := copy(q.events, q.events[q.head:])
		q.events, q.head = q.events[:n], 0
	}
	return e, true
}

// Wait returns the wake-up channel. It is closed by Close, so a select on
// it never hangs after shutdown.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len is the number of undelivered events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events) - q.head
}

// Close rejects further enqueues and wakes the consumer. Idempotent.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
}
