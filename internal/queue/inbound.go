// SPDX-License-Identifier: MIT

package queue

import (
	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/metrics"
)

// InboundListener receives control events arriving from the remote side.
type InboundListener interface {
	OnInboundEvent(e *event.Event)
}

// Inbound consumes events parsed off the transport, keeps only control
// events, and hands them to the listener. Delivery is never gated.
type Inbound struct {
	*Worker
	listener InboundListener
}

// NewInbound builds the inbound worker.
func NewInbound(pool *Pool, listener InboundListener) *Inbound {
	in := &Inbound{listener: listener}
	in.Worker = NewWorker("inbound", pool, in)
	return in
}

// CanWork always returns true; inbound delivery is never gated.
func (in *Inbound) CanWork() bool { return true }

// DoWork forwards control events to the listener. Nil events and events
// without a control subtype are dropped.
func (in *Inbound) DoWork(e *event.Event) {
	if e == nil {
		return
	}
	if _, ok := e.ControlType(); !ok {
		metrics.IncEventDropped("not_control")
		return
	}
	metrics.EventsReceivedTotal.WithLabelValues(e.Type).Inc()
	in.listener.OnInboundEvent(e)
}
