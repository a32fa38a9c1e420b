// SPDX-License-Identifier: MIT

package queue

import (
	"github.com/rs/zerolog"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/log"
	"github.com/adobe/aepsdk-assurance-go/internal/metrics"
	"github.com/adobe/aepsdk-assurance-go/internal/transport"
)

// InfoProvider builds the synthetic client-info event announcing the
// client's identity to the remote service.
type InfoProvider interface {
	ClientInfoEvent() *event.Event
}

// Outbound consumes locally produced events, chunks oversized payloads,
// and writes the resulting frames to the transport in order.
type Outbound struct {
	*Worker
	channel transport.Channel
	info    InfoProvider
	logger  zerolog.Logger
}

// NewOutbound builds the outbound worker writing to channel.
func NewOutbound(pool *Pool, channel transport.Channel, info InfoProvider) *Outbound {
	out := &Outbound{
		channel: channel,
		info:    info,
		logger:  log.WithComponent("queue.outbound"),
	}
	out.Worker = NewWorker("outbound", pool, out)
	return out
}

// CanWork permits dequeuing only while the transport is open. The block
// gate is enforced by the base worker.
func (out *Outbound) CanWork() bool {
	return out.channel.State() == transport.StateOpen
}

// DoWork chunks the event if needed and writes each resulting frame.
func (out *Outbound) DoWork(e *event.Event) {
	for _, chunk := range Chunk(e) {
		out.send(chunk)
	}
}

// Start marks the worker running. On a genuine not-running to running
// transition with an open transport it also announces the client once,
// before any queued event is sent.
func (out *Outbound) Start() bool {
	transitioned := out.Worker.Start()
	if transitioned && out.channel.State() == transport.StateOpen {
		out.announce()
	}
	return transitioned
}

// Prepare re-announces the client immediately, without touching the queue.
// No-op unless the transport is open.
func (out *Outbound) Prepare() {
	if out.channel.State() == transport.StateOpen {
		out.announce()
	}
}

// SendClientInfo sends the client-info event directly, bypassing the queue
// and the block gate. Only honored while the worker is blocked, so a resumed
// connection's announcement cannot race the one the first queued pass emits
// after unblocking.
func (out *Outbound) SendClientInfo() {
	if !out.Blocked() {
		return
	}
	if out.channel.State() != transport.StateOpen {
		return
	}
	out.announce()
}

func (out *Outbound) announce() {
	e := out.info.ClientInfoEvent()
	if e == nil {
		return
	}
	out.send(e)
}

func (out *Outbound) send(e *event.Event) {
	raw, err := e.Marshal()
	if err != nil {
		out.logger.Error().Err(err).Str(log.FieldEventID, e.ID).Msg("marshal event")
		return
	}
	if err := out.channel.Send(raw); err != nil {
		out.logger.Warn().Err(err).
			Str(log.FieldEventID, e.ID).
			Int(log.FieldFrameSize, len(raw)).
			Msg("send frame")
		return
	}
	metrics.EventsSentTotal.WithLabelValues(e.Type).Inc()
}
