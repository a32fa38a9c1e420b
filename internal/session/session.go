// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/log"
	"github.com/adobe/aepsdk-assurance-go/internal/metrics"
	"github.com/adobe/aepsdk-assurance-go/internal/queue"
	"github.com/adobe/aepsdk-assurance-go/internal/store"
	"github.com/adobe/aepsdk-assurance-go/internal/transport"
	"github.com/adobe/aepsdk-assurance-go/internal/urlutil"
)

// State is the connection lifecycle state of a session.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
)

// Control subtypes the session reacts to itself; everything else goes to
// the plugins.
const controlStartForwarding = "startEventForwarding"

// Scheduler defers fn by d. Injected so tests can fire retries directly.
// Cancellation is not required: a fired retry checks the session epoch and
// no-ops when the session has since been torn down.
type Scheduler func(d time.Duration, fn func())

func defaultScheduler(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// ChannelFactory builds the transport channel a session owns. Injected so
// tests can substitute a fake transport.
type ChannelFactory func(delegate transport.Delegate) transport.Channel

// Options carries the collaborators a session depends on.
type Options struct {
	ID          string
	Environment urlutil.Environment
	OrgID       string
	ClientID    string
	RetryDelay  time.Duration

	Pool     *queue.Pool
	Channels ChannelFactory
	Store    store.ConnectionStore
	Status   StatusListener
	Plugins  PluginNotifier
	Shared   SharedState
	Info     queue.InfoProvider
	Schedule Scheduler

	// OnTerminated fires after a terminal teardown so the owner can drop
	// its reference.
	OnTerminated func()
}

// Session owns one transport channel, the inbound and outbound queue
// workers, and the reconnect state machine.
type Session struct {
	id          string
	environment urlutil.Environment
	orgID       string
	clientID    string
	retryDelay  time.Duration

	channel  transport.Channel
	inbound  *queue.Inbound
	outbound *queue.Outbound
	store    store.ConnectionStore
	status   StatusListener
	plugins  PluginNotifier
	shared   SharedState
	schedule Scheduler
	onTerm   func()
	logger   zerolog.Logger

	mu                sync.Mutex
	state             State
	lastURL           string
	everOpened        bool
	reconnectAnnounce bool // latched once per disconnect cycle
	retryPending      bool
	terminated        bool
	epoch             uint64 // bumped on teardown; stale retries compare and bail
}

// New builds a session in the idle state. Nothing connects until Connect.
func New(opts Options) *Session {
	if opts.Status == nil {
		opts.Status = NopStatusListener{}
	}
	if opts.Plugins == nil {
		opts.Plugins = NopPluginNotifier{}
	}
	if opts.Shared == nil {
		opts.Shared = NopSharedState{}
	}
	if opts.Schedule == nil {
		opts.Schedule = defaultScheduler
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}

	s := &Session{
		id:          opts.ID,
		environment: opts.Environment,
		orgID:       opts.OrgID,
		clientID:    opts.ClientID,
		retryDelay:  opts.RetryDelay,
		store:       opts.Store,
		status:      opts.Status,
		plugins:     opts.Plugins,
		shared:      opts.Shared,
		schedule:    opts.Schedule,
		onTerm:      opts.OnTerminated,
		state:       StateIdle,
		logger: log.Derive(func(c *zerolog.Context) {
			*c = c.Str(log.FieldComponent, "session").Str(log.FieldSessionID, opts.ID)
		}),
	}
	s.channel = opts.Channels(s)
	s.inbound = queue.NewInbound(opts.Pool, s)
	s.outbound = queue.NewOutbound(opts.Pool, s.channel, opts.Info)
	// Outbound stays gated until the service sends startEventForwarding.
	s.outbound.Block()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueOutbound offers a locally produced event to the outbound worker.
func (s *Session) QueueOutbound(e *event.Event) {
	s.outbound.Offer(e)
}

// Connect opens the transport. An empty pin asks the presentation layer
// for one instead of connecting.
func (s *Session) Connect(pin string) {
	if pin == "" {
		s.status.OnSessionInitialized(s.id)
		return
	}

	org := s.orgID
	if org == "" {
		org = s.storedOrgID()
	}
	url := urlutil.BuildURL(urlutil.Connection{
		SessionID:   s.id,
		Token:       pin,
		OrgID:       org,
		ClientID:    s.clientID,
		Environment: s.environment,
	})

	s.setState(StateConnecting)
	s.mu.Lock()
	s.lastURL = url
	s.mu.Unlock()

	s.status.OnSessionConnecting()
	if err := s.channel.Connect(context.Background(), url); err != nil {
		s.logger.Warn().Err(err).Msg("transport connect rejected")
	}
}

// storedOrgID recovers the organization id from a previously stored
// connection URL, used when the live configuration value is empty.
func (s *Session) storedOrgID() string {
	raw, err := s.store.ConnectionURL()
	if err != nil {
		return ""
	}
	conn, err := urlutil.Parse(raw)
	if err != nil {
		return ""
	}
	return conn.OrgID
}

// Disconnect is the explicit close path. Always terminal regardless of
// close-code classification.
func (s *Session) Disconnect() {
	s.inbound.Stop()
	s.outbound.Stop()
	s.teardown(transport.CloseNormal)
	_ = s.channel.Close()
}

// OnConnect implements transport.Delegate.
func (s *Session) OnConnect() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	first := !s.everOpened
	s.everOpened = true
	s.state = StateOpen
	s.reconnectAnnounce = false // the disconnect cycle ends here
	url := s.lastURL
	s.mu.Unlock()
	metrics.SetSessionState(string(StateOpen))

	if err := s.store.SaveConnectionURL(url); err != nil {
		s.logger.Error().Err(err).Msg("persist connection url")
	}

	s.inbound.Start()
	// Start announces the client exactly once per genuine restart.
	s.outbound.Start()
	if !first {
		// Resumption after a reconnect gap: release buffered events.
		s.outbound.Unblock()
	}
	s.logger.Info().Bool("resumed", !first).Msg("session connected")
}

// OnMessage implements transport.Delegate. Malformed frames are dropped;
// no parse failure crosses into session control flow.
func (s *Session) OnMessage(data []byte) {
	e, err := event.Parse(data)
	if err != nil {
		metrics.IncEventDropped("parse_error")
		s.logger.Debug().Err(err).Msg("dropping malformed inbound frame")
		return
	}
	s.inbound.Offer(e)
}

// OnDisconnect implements transport.Delegate and drives the reconnect
// state machine.
func (s *Session) OnDisconnect(code transport.CloseCode, retryOK bool) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.inbound.Stop()
	s.outbound.Stop()

	if code.IsTerminal() || !retryOK {
		s.status.OnSessionDisconnected(code)
		s.teardown(code)
		return
	}

	// Recoverable gap: keep the stored URL and the queued-but-unsent
	// events, gate the outbound worker, and schedule one retry.
	s.outbound.Block()

	s.mu.Lock()
	announce := !s.reconnectAnnounce
	s.reconnectAnnounce = true
	s.state = StateReconnecting
	epoch := s.epoch
	s.mu.Unlock()
	metrics.SetSessionState(string(StateReconnecting))

	if announce {
		s.status.OnSessionDisconnected(code)
		s.plugins.SessionDisconnected(code)
		s.status.OnSessionReconnecting()
	}
	s.scheduleRetry(epoch)
}

func (s *Session) scheduleRetry(epoch uint64) {
	s.mu.Lock()
	if s.retryPending {
		s.mu.Unlock()
		return
	}
	s.retryPending = true
	s.mu.Unlock()

	s.logger.Info().Dur("delay", s.retryDelay).Msg("scheduling reconnect")
	s.schedule(s.retryDelay, func() { s.retry(epoch) })
}

// retry attempts to rebuild the connection from the stored URL. A session
// torn down since scheduling is detected by the epoch and ignored.
func (s *Session) retry(epoch uint64) {
	s.mu.Lock()
	s.retryPending = false
	stale := s.epoch != epoch
	s.mu.Unlock()
	if stale {
		return
	}

	metrics.ReconnectAttemptsTotal.Inc()
	raw, err := s.store.ConnectionURL()
	if err != nil {
		s.logger.Error().Err(err).Msg("read stored connection url")
		s.status.OnSessionInitialized(s.id)
		return
	}
	conn, err := urlutil.Parse(raw)
	if err != nil {
		// No usable stored URL: degrade to re-prompting rather than
		// retrying silently.
		s.logger.Warn().Err(err).Msg("no usable stored connection, prompting for pin")
		s.status.OnSessionInitialized(s.id)
		return
	}
	s.Connect(conn.Token)
}

// teardown finalizes a terminal disconnect: persisted URL cleared, shared
// state cleared, plugins told, pending retries invalidated.
func (s *Session) teardown(code transport.CloseCode) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.epoch++
	s.state = StateIdle
	s.mu.Unlock()
	metrics.SetSessionState(string(StateIdle))

	if err := s.store.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("clear stored connection url")
	}
	s.shared.Clear()
	s.plugins.SessionDisconnected(code)
	s.plugins.SessionTerminated(code)
	if s.onTerm != nil {
		s.onTerm()
	}
	s.logger.Info().Str(log.FieldCloseCode, code.String()).Msg("session terminated")
}

// OnInboundEvent implements the inbound worker's listener: the session
// consumes the forwarding gate itself and hands everything else to the
// plugins.
func (s *Session) OnInboundEvent(e *event.Event) {
	subtype, ok := e.ControlType()
	if !ok {
		return
	}
	if subtype == controlStartForwarding {
		s.outbound.Unblock()
		s.status.OnSessionConnected()
		s.plugins.SessionConnected()
		return
	}
	s.plugins.OnEvent(e)
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	metrics.SetSessionState(string(next))
	s.logger.Debug().
		Str(log.FieldOldState, string(prev)).
		Str(log.FieldNewState, string(next)).
		Msg("session state change")
}

var _ transport.Delegate = (*Session)(nil)
var _ queue.InboundListener = (*Session)(nil)
