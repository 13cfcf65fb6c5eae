package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/ir"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(Event{Element: 3, Name: "click"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, Event{Element: 3, Name: "click"}, got)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for i := 1; i <= 3; i++ {
		q.Enqueue(Event{Element: ir.ElementID(i), Name: "click"})
	}

	for i := 1; i <= 3; i++ {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, ir.ElementID(i), e.Element)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignalsEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Element: 1, Name: "focus"})
	}()

	select {
	case <-q.Wait():
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, "focus", e.Name)
	case <-time.After(time.Second):
		t.Fatal("Wait did not signal")
	}
}

func TestEventQueue_Close_WakesWaiters(t *testing.T) {
	q := newEventQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("waiter did not wake after close")
	}

	// Closing twice is a no-op
	assert.NotPanics(t, q.Close)
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()

	ok := q.Enqueue(Event{Element: 0, Name: "click"})
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_DrainsAfterClose(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Element: 0, Name: "click"})
	q.Close()

	e, ok := q.TryDequeue()
	require.True(t, ok, "events queued before close are still delivered")
	assert.Equal(t, "click", e.Name)
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(Event{Element: 1, Name: "click"})
	assert.Equal(t, 1, q.Len())

	q.Enqueue(Event{Element: 2, Name: "click"})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(Event{Element: ir.ElementID(producerID*1000 + i), Name: "click"})
			}
		}(p)
	}
	wg.Wait()

	// Per-producer order is preserved
	last := make(map[int]int)
	count := 0
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		count++
		producer, i := int(e.Element)/1000, int(e.Element)%1000
		if prev, seen := last[producer]; seen {
			assert.Greater(t, i, prev)
		}
		last[producer] = i
	}
	assert.Equal(t, producers*eventsPerProducer, count)
}

func TestEventQueue_OrderSurvivesCompaction(t *testing.T) {
	q := newEventQueue()
	next := 0
	for range 100 {
		q.Enqueue(Event{Element: ir.ElementID(next), Name: "click"})
		next++
	}
	want := 0
	for range 60 {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		require.Equal(t, ir.ElementID(want), e.Element)
		want++
	}
	for range 20 {
		q.Enqueue(Event{Element: ir.ElementID(next), Name: "click"})
		next++
	}
	assert.Equal(t, next-want, q.Len())
	for q.Len() > 0 {
		e, _ := q.TryDequeue()
		require.Equal(t, ir.ElementID(want), e.Element)
		want++
	}
	assert.Equal(t, next, want)
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "#4:mouseover", Event{Element: 4, Name: "mouseover"}.String())
}
