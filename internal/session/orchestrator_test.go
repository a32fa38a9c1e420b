// SPDX-License-Identifier: MIT

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/store"
	"github.com/adobe/aepsdk-assurance-go/internal/urlutil"
)

type fakeSession struct {
	mu           sync.Mutex
	id           string
	env          urlutil.Environment
	pins         []string
	queued       []*event.Event
	disconnected int
	onTerminated func()
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Connect(pin string) {
	s.mu.Lock()
	s.pins = append(s.pins, pin)
	s.mu.Unlock()
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	s.disconnected++
	s.mu.Unlock()
	if s.onTerminated != nil {
		s.onTerminated()
	}
}

func (s *fakeSession) QueueOutbound(e *event.Event) {
	s.mu.Lock()
	s.queued = append(s.queued, e)
	s.mu.Unlock()
}

type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeSession
}

func (f *fakeFactory) build(id string, env urlutil.Environment, onTerminated func()) ActiveSession {
	s := &fakeSession{id: id, env: env, onTerminated: onTerminated}
	f.mu.Lock()
	f.created = append(f.created, s)
	f.mu.Unlock()
	return s
}

func (f *fakeFactory) last(t *testing.T) *fakeSession {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.created)
	return f.created[len(f.created)-1]
}

type sharedRecorder struct {
	mu        sync.Mutex
	published []string
	cleared   int
}

func (r *sharedRecorder) PublishSessionID(id string) {
	r.mu.Lock()
	r.published = append(r.published, id)
	r.mu.Unlock()
}

func (r *sharedRecorder) Clear() {
	r.mu.Lock()
	r.cleared++
	r.mu.Unlock()
}

func newOrchestratorFixture() (*Orchestrator, *fakeFactory, *store.Memory, *sharedRecorder) {
	factory := &fakeFactory{}
	st := store.NewMemory()
	shared := &sharedRecorder{}
	return NewOrchestrator(factory.build, st, shared), factory, st, shared
}

func TestCreateSessionIsNoOpWhileActive(t *testing.T) {
	o, factory, _, _ := newOrchestratorFixture()
	o.CreateSession(testSessionID, urlutil.EnvProd, "1234")
	o.CreateSession("other-id", urlutil.EnvProd, "9999")

	factory.mu.Lock()
	defer factory.mu.Unlock()
	assert.Len(t, factory.created, 1, "single active session slot")
}

func TestCreateSessionPublishesIDReplaysBufferAndConnects(t *testing.T) {
	o, factory, _, shared := newOrchestratorFixture()

	early := []*event.Event{
		event.New(event.TypeGeneric, map[string]any{"n": 1}, nil),
		event.New(event.TypeGeneric, map[string]any{"n": 2}, nil),
	}
	for _, e := range early {
		o.QueueEvent(e)
	}

	o.CreateSession(testSessionID, urlutil.EnvQA, "1234")
	s := factory.last(t)

	assert.Equal(t, []string{testSessionID}, shared.published)
	assert.Equal(t, urlutil.EnvQA, s.env)
	assert.Equal(t, []string{"1234"}, s.pins)
	require.Len(t, s.queued, 2, "buffered events replay into the new session")
	assert.Same(t, early[0], s.queued[0])
	assert.Same(t, early[1], s.queued[1])
}

func TestQueueEventAlwaysBuffersAndForwardsWhenActive(t *testing.T) {
	o, factory, _, _ := newOrchestratorFixture()

	before := event.New(event.TypeGeneric, map[string]any{"when": "before"}, nil)
	o.QueueEvent(before)

	o.CreateSession(testSessionID, urlutil.EnvProd, "1234")
	s := factory.last(t)
	require.Len(t, s.queued, 1)

	after := event.New(event.TypeGeneric, map[string]any{"when": "after"}, nil)
	o.QueueEvent(after)
	require.Len(t, s.queued, 2)
	assert.Same(t, after, s.queued[1])

	o.QueueEvent(nil)
	assert.Len(t, s.queued, 2)
}

func TestQueueEventBuffersWithoutSession(t *testing.T) {
	o, factory, _, _ := newOrchestratorFixture()
	o.QueueEvent(event.New(event.TypeGeneric, nil, nil))

	factory.mu.Lock()
	created := len(factory.created)
	factory.mu.Unlock()
	assert.Zero(t, created)
	assert.True(t, o.CanProcessEvents())
}

func TestQueueEventDropsOldestWhenBufferFull(t *testing.T) {
	o, factory, _, _ := newOrchestratorFixture()

	overflow := 5
	var first *event.Event
	for i := 0; i < maxBufferedEvents+overflow; i++ {
		e := event.New(event.TypeGeneric, map[string]any{"n": i}, nil)
		if i == 0 {
			first = e
		}
		o.QueueEvent(e)
	}

	o.CreateSession(testSessionID, urlutil.EnvProd, "1234")
	s := factory.last(t)

	require.Len(t, s.queued, maxBufferedEvents, "replay is capped at the buffer bound")
	assert.NotSame(t, first, s.queued[0], "oldest events are dropped first")
	assert.Equal(t, overflow, s.queued[0].Payload["n"], "replay starts at the oldest retained event")
}

func TestTerminateSessionClearsSlotAndSharedState(t *testing.T) {
	o, factory, _, shared := newOrchestratorFixture()
	o.CreateSession(testSessionID, urlutil.EnvProd, "1234")
	s := factory.last(t)

	o.TerminateSession()
	assert.Equal(t, 1, s.disconnected)
	assert.Equal(t, 1, shared.cleared)
	assert.False(t, o.SessionActive())

	// A second terminate is harmless.
	o.TerminateSession()
	assert.Equal(t, 1, s.disconnected)
}

func TestSessionDropsItsOwnSlotOnTerminalClose(t *testing.T) {
	o, factory, _, _ := newOrchestratorFixture()
	o.CreateSession(testSessionID, urlutil.EnvProd, "1234")
	s := factory.last(t)
	require.True(t, o.SessionActive())

	// The session tears itself down (terminal close code).
	s.onTerminated()
	assert.False(t, o.SessionActive())

	// The slot is free again.
	o.CreateSession("11111111-2222-3333-4444-555555555555", urlutil.EnvProd, "1234")
	factory.mu.Lock()
	created := len(factory.created)
	factory.mu.Unlock()
	assert.Equal(t, 2, created)
}

func TestReconnectToStoredSession(t *testing.T) {
	canonical := urlutil.BuildURL(urlutil.Connection{
		SessionID:   testSessionID,
		Token:       "1234",
		OrgID:       testOrgID,
		ClientID:    testClientID,
		Environment: urlutil.EnvQA,
	})

	cases := []struct {
		name   string
		stored string
		want   bool
	}{
		{"absent", "", false},
		{"missing sessionId", "wss://connect.griffon.adobe.com/client/v1?token=1234&orgId=" + testOrgID, false},
		{"missing token", "wss://connect.griffon.adobe.com/client/v1?sessionId=" + testSessionID + "&orgId=" + testOrgID, false},
		{"missing orgId", "wss://connect.griffon.adobe.com/client/v1?sessionId=" + testSessionID + "&token=1234", false},
		{"well-formed", canonical, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, factory, st, _ := newOrchestratorFixture()
			if tc.stored != "" {
				require.NoError(t, st.SaveConnectionURL(tc.stored))
			}
			assert.Equal(t, tc.want, o.ReconnectToStoredSession())
			if tc.want {
				s := factory.last(t)
				assert.Equal(t, testSessionID, s.id)
				assert.Equal(t, urlutil.EnvQA, s.env)
				assert.Equal(t, []string{"1234"}, s.pins)
			}
		})
	}
}
