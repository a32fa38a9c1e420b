// SPDX-License-Identifier: MIT

package queue

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
)

type recordingProc struct {
	mu        sync.Mutex
	processed []*event.Event
	gate      atomic.Bool // CanWork result
	panicOn   string      // event ID that triggers a panic
}

func newRecordingProc() *recordingProc {
	p := &recordingProc{}
	p.gate.Store(true)
	return p
}

func (p *recordingProc) CanWork() bool { return p.gate.Load() }

func (p *recordingProc) DoWork(e *event.Event) {
	if e != nil && e.ID == p.panicOn {
		panic("boom")
	}
	p.mu.Lock()
	p.processed = append(p.processed, e)
	p.mu.Unlock()
}

func (p *recordingProc) snapshot() []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*event.Event(nil), p.processed...)
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	pool := NewPool(2)
	t.Cleanup(pool.Shutdown)
	return pool
}

func makeEvents(n int) []*event.Event {
	out := make([]*event.Event, n)
	for i := range out {
		out[i] = event.New(event.TypeGeneric, map[string]any{"i": i}, nil)
	}
	return out
}

func TestEventsOfferedBeforeStartDeliverInOrder(t *testing.T) {
	proc := newRecordingProc()
	w := NewWorker("test", newTestPool(t), proc)

	events := makeEvents(10)
	for _, e := range events {
		w.Offer(e)
	}
	assert.Empty(t, proc.snapshot(), "nothing processes before start")

	require.True(t, w.Start())
	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == len(events)
	}, time.Second, 5*time.Millisecond)

	got := proc.snapshot()
	for i, e := range events {
		assert.Same(t, e, got[i], "delivery must be FIFO and exactly once")
	}
}

func TestStartReportsTransitionOnly(t *testing.T) {
	w := NewWorker("test", newTestPool(t), newRecordingProc())
	assert.True(t, w.Start())
	assert.False(t, w.Start(), "second start is not a transition")
	w.Stop()
	assert.True(t, w.Start())
}

func TestStopHaltsDequeuingWithoutClearingQueue(t *testing.T) {
	proc := newRecordingProc()
	w := NewWorker("test", newTestPool(t), proc)
	w.Start()
	w.Stop()

	for _, e := range makeEvents(5) {
		w.Offer(e)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, proc.snapshot())
	assert.Equal(t, 5, w.Len(), "stop must not clear the queue")

	w.Start()
	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == 5
	}, time.Second, 5*time.Millisecond)
}

func TestBlockSuspendsWithoutDroppingItems(t *testing.T) {
	proc := newRecordingProc()
	w := NewWorker("test", newTestPool(t), proc)
	w.Start()
	w.Block()

	events := makeEvents(7)
	for _, e := range events {
		w.Offer(e)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, proc.snapshot())

	// Unblock must trigger a pass by itself, not wait for the next offer.
	w.Unblock()
	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == len(events)
	}, time.Second, 5*time.Millisecond)

	got := proc.snapshot()
	for i, e := range events {
		assert.Same(t, e, got[i])
	}
}

func TestCanWorkGateSuspendsDequeue(t *testing.T) {
	proc := newRecordingProc()
	proc.gate.Store(false)
	w := NewWorker("test", newTestPool(t), proc)
	w.Start()
	w.Offer(event.New(event.TypeGeneric, nil, nil))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, proc.snapshot())
	assert.Equal(t, 1, w.Len())

	proc.gate.Store(true)
	// The gate flipping is observed on the next scheduling point.
	w.Offer(event.New(event.TypeGeneric, nil, nil))
	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestPanicInDoWorkDoesNotKillTheWorker(t *testing.T) {
	proc := newRecordingProc()
	w := NewWorker("test", newTestPool(t), proc)
	events := makeEvents(5)
	proc.panicOn = events[2].ID

	w.Start()
	for _, e := range events {
		w.Offer(e)
	}

	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == 4
	}, time.Second, 5*time.Millisecond)
	got := proc.snapshot()
	assert.Same(t, events[3], got[2], "processing continues after the failed item")
}

func TestConcurrentOffersAllDeliveredExactlyOnce(t *testing.T) {
	proc := newRecordingProc()
	w := NewWorker("test", newTestPool(t), proc)
	w.Start()

	const producers = 8
	const perProducer = 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				w.Offer(event.New(event.TypeGeneric, map[string]any{"p": p, "i": i}, nil))
			}
		}(p)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == producers*perProducer
	}, 2*time.Second, 5*time.Millisecond)

	seen := make(map[string]bool)
	for _, e := range proc.snapshot() {
		key := fmt.Sprintf("%v/%v", e.Payload["p"], e.Payload["i"])
		assert.False(t, seen[key], "event %s delivered twice", key)
		seen[key] = true
	}
}
