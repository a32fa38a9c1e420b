// SPDX-License-Identifier: MIT

package queue

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/log"
	"github.com/adobe/aepsdk-assurance-go/internal/metrics"
)

// Processor supplies the variable half of a queue worker: the readiness
// gate and the per-item work.
type Processor interface {
	// CanWork reports whether the worker may dequeue right now. Consulted
	// before every dequeue.
	CanWork() bool
	// DoWork processes one dequeued event.
	DoWork(e *event.Event)
}

// Worker drives a single consumer over an unbounded FIFO queue of events
// without busy-waiting. At most one processing pass runs at a time per
// worker; passes execute on the shared pool.
type Worker struct {
	name   string
	pool   *Pool
	proc   Processor
	logger zerolog.Logger

	mu           sync.Mutex
	queue        []*event.Event
	running      bool
	blocked      bool
	passInFlight bool
}

// NewWorker builds a worker named for logging and metrics.
func NewWorker(name string, pool *Pool, proc Processor) *Worker {
	return &Worker{
		name:   name,
		pool:   pool,
		proc:   proc,
		logger: log.WithComponent("queue." + name),
	}
}

// Offer appends e to the tail of the queue. Never rejects. If the worker
// is running and no pass is in flight, one pass is scheduled.
func (w *Worker) Offer(e *event.Event) {
	w.mu.Lock()
	w.queue = append(w.queue, e)
	metrics.QueueDepth.WithLabelValues(w.name).Set(float64(len(w.queue)))
	w.mu.Unlock()
	w.schedule()
}

// Start marks the worker eligible to run and schedules a pass if items are
// already queued. Returns true only when this call transitioned the worker
// from not-running to running.
func (w *Worker) Start() bool {
	w.mu.Lock()
	transitioned := !w.running
	w.running = true
	w.mu.Unlock()
	w.schedule()
	return transitioned
}

// Stop marks the worker ineligible. The queue is retained; a pass already
// in flight finishes its current item but dequeues no further.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// Block suspends dequeuing without dropping queued items.
func (w *Worker) Block() {
	w.mu.Lock()
	w.blocked = true
	w.mu.Unlock()
}

// Unblock lifts the gate and immediately attempts a pass, since items may
// have queued up while blocked.
func (w *Worker) Unblock() {
	w.mu.Lock()
	w.blocked = false
	w.mu.Unlock()
	w.schedule()
}

// Blocked reports whether the secondary gate is currently closed.
func (w *Worker) Blocked() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.blocked
}

// Len returns the current queue depth.
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// schedule submits one pass if the worker is runnable, work is queued, and
// no pass is already in flight.
func (w *Worker) schedule() {
	if !w.proc.CanWork() {
		return
	}
	w.mu.Lock()
	if !w.running || w.blocked || w.passInFlight || len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	w.passInFlight = true
	w.mu.Unlock()
	w.pool.Submit(w.pass)
}

func (w *Worker) pass() {
	for {
		if !w.gateOpen() || !w.proc.CanWork() {
			break
		}
		e, ok := w.pop()
		if !ok {
			break
		}
		w.work(e)
	}
	w.mu.Lock()
	w.passInFlight = false
	w.mu.Unlock()
	// An Offer racing the release above must not strand its item.
	w.schedule()
}

func (w *Worker) gateOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && !w.blocked
}

func (w *Worker) pop() (*event.Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil, false
	}
	e := w.queue[0]
	w.queue = w.queue[1:]
	metrics.QueueDepth.WithLabelValues(w.name).Set(float64(len(w.queue)))
	return e, true
}

// work isolates one item: a panic in DoWork is logged and must not kill
// the pass loop or corrupt worker state.
func (w *Worker) work(e *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.WorkItemFailuresTotal.WithLabelValues(w.name).Inc()
			w.logger.Error().
				Interface("panic", r).
				Str(log.FieldEventID, eventID(e)).
				Msg("work item failed")
		}
	}()
	w.proc.DoWork(e)
}

func eventID(e *event.Event) string {
	if e == nil {
		return ""
	}
	return e.ID
}
