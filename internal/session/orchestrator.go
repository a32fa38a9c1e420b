// SPDX-License-Identifier: MIT

package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/log"
	"github.com/adobe/aepsdk-assurance-go/internal/metrics"
	"github.com/adobe/aepsdk-assurance-go/internal/store"
	"github.com/adobe/aepsdk-assurance-go/internal/urlutil"
)

// ActiveSession is the slice of Session the orchestrator depends on.
// Narrow so tests can substitute a fake via the factory.
type ActiveSession interface {
	ID() string
	Connect(pin string)
	Disconnect()
	QueueOutbound(e *event.Event)
}

// Factory builds a session for the given identity. The orchestrator passes
// an onTerminated callback the session must invoke on terminal teardown.
type Factory func(id string, env urlutil.Environment, onTerminated func()) ActiveSession

// maxBufferedEvents caps the replay buffer. When full, the oldest event is
// dropped so a long-running process without a session holds the most recent
// window instead of growing without bound.
const maxBufferedEvents = 4096

// Orchestrator owns at most one active session and buffers events produced
// before any session exists.
type Orchestrator struct {
	factory Factory
	store   store.ConnectionStore
	shared  SharedState
	logger  zerolog.Logger

	mu     sync.Mutex
	active ActiveSession
	buffer []*event.Event
}

// NewOrchestrator builds an orchestrator with an empty outbound buffer.
func NewOrchestrator(factory Factory, st store.ConnectionStore, shared SharedState) *Orchestrator {
	if shared == nil {
		shared = NopSharedState{}
	}
	return &Orchestrator{
		factory: factory,
		store:   st,
		shared:  shared,
		logger:  log.WithComponent("orchestrator"),
		buffer:  make([]*event.Event, 0, 64),
	}
}

// CreateSession starts a session for id. No-op when one is already active.
// Buffered events are replayed into the new session before connecting.
func (o *Orchestrator) CreateSession(id string, env urlutil.Environment, pin string) {
	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		o.logger.Debug().Str(log.FieldSessionID, id).Msg("session already active, ignoring")
		return
	}
	s := o.factory(id, env, func() { o.dropSession() })
	o.active = s
	replay := make([]*event.Event, len(o.buffer))
	copy(replay, o.buffer)
	o.mu.Unlock()

	o.shared.PublishSessionID(id)
	for _, e := range replay {
		s.QueueOutbound(e)
	}
	o.logger.Info().
		Str(log.FieldSessionID, id).
		Str(log.FieldEnviron, string(env)).
		Int("replayed", len(replay)).
		Msg("session created")
	s.Connect(pin)
}

// TerminateSession explicitly ends the active session, if any.
func (o *Orchestrator) TerminateSession() {
	o.mu.Lock()
	s := o.active
	o.active = nil
	o.mu.Unlock()
	if s == nil {
		return
	}
	o.shared.Clear()
	s.Disconnect()
	o.logger.Info().Str(log.FieldSessionID, s.ID()).Msg("session terminated by request")
}

// dropSession releases the slot after a session tore itself down.
func (o *Orchestrator) dropSession() {
	o.mu.Lock()
	o.active = nil
	o.mu.Unlock()
	o.logger.Debug().Msg("active session reference dropped")
}

// QueueEvent appends e to the bounded outbound buffer, dropping the oldest
// entry when full, and forwards it live when a session is active.
func (o *Orchestrator) QueueEvent(e *event.Event) {
	if e == nil {
		return
	}
	o.mu.Lock()
	o.buffer = append(o.buffer, e)
	if len(o.buffer) > maxBufferedEvents {
		n := copy(o.buffer, o.buffer[len(o.buffer)-maxBufferedEvents:])
		o.buffer = o.buffer[:n]
		metrics.IncEventDropped("buffer_overflow")
	}
	s := o.active
	o.mu.Unlock()
	if s != nil {
		s.QueueOutbound(e)
	}
}

// CanProcessEvents reports whether the upstream event bus should bother
// constructing events at all.
func (o *Orchestrator) CanProcessEvents() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffer != nil || o.active != nil
}

// SessionActive reports whether a session currently occupies the slot.
func (o *Orchestrator) SessionActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// ActiveSessionID returns the active session's id, or "".
func (o *Orchestrator) ActiveSessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return ""
	}
	return o.active.ID()
}

// ReconnectToStoredSession restores the session persisted by a previous
// process. Returns false when no usable stored URL exists.
func (o *Orchestrator) ReconnectToStoredSession() bool {
	raw, err := o.store.ConnectionURL()
	if err != nil {
		o.logger.Error().Err(err).Msg("read stored connection url")
		return false
	}
	conn, err := urlutil.Parse(raw)
	if err != nil {
		o.logger.Debug().Err(err).Msg("no stored session to restore")
		return false
	}
	o.logger.Info().Str(log.FieldSessionID, conn.SessionID).Msg("restoring stored session")
	o.CreateSession(conn.SessionID, conn.Environment, conn.Token)
	return true
}
