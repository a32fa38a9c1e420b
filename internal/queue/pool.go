// SPDX-License-Identifier: MIT

// Package queue implements the flow-controlled event queue workers that sit
// between the session and the transport.
package queue

import (
	"sync"

	"github.com/adobe/aepsdk-assurance-go/internal/log"
)

// Pool is a small shared worker pool. Queue workers submit at most one pass
// at a time each, so a handful of goroutines serves every worker.
type Pool struct {
	mu     sync.Mutex
	tasks  chan func()
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts size goroutines consuming submitted tasks.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 2
	}
	p := &Pool{tasks: make(chan func(), 32)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for fn := range p.tasks {
				fn()
			}
		}()
	}
	return p
}

// Submit enqueues fn for execution. It never blocks the caller: if the task
// buffer is full the task runs on a fresh goroutine instead.
func (p *Pool) Submit(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logger := log.WithComponent("queue")
		logger.Debug().Msg("task submitted after pool shutdown, dropped")
		return
	}
	select {
	case p.tasks <- fn:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		go fn()
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
