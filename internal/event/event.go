// SPDX-License-Identifier: MIT

// Package event defines the diagnostic event record exchanged with the
// remote inspection service, including its wire representation.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Reserved vendor and type identifiers of the wire protocol.
const (
	VendorAssurance = "com.adobe.griffon.mobile"
	VendorSDK       = "com.adobe.marketing.mobile.sdk"

	TypeGeneric = "generic"
	TypeLog     = "log"
	TypeControl = "control"
	TypeClient  = "client"
	TypeBlob    = "blob"
)

// Reserved payload/metadata keys.
const (
	ControlTypeKey   = "type"
	ControlDetailKey = "detail"

	ChunkDataKey     = "chunkData"
	ChunkIDKey       = "chunkId"
	ChunkSequenceKey = "chunkSequenceNumber"
	ChunkTotalKey    = "chunkTotal"

	metadataEnvelopeKey = "metadata"
)

// ErrMissingField classifies parse failures caused by an absent required
// wire field. Use errors.Is(err, ErrMissingField) instead of string matching.
var ErrMissingField = errors.New("missing required event field")

// sequence is the process-wide event counter. Every constructed Event gets
// the next value exactly once, including events rebuilt from wire bytes;
// the wire eventNumber is never trusted.
var sequence atomic.Uint64

func nextSequence() uint64 {
	return sequence.Add(1)
}

// Event is an immutable-after-construction diagnostic record. Ownership
// passes by value through every queue; no field is mutated after creation.
type Event struct {
	ID             string
	Vendor         string
	Type           string
	PairID         string
	Timestamp      int64 // milliseconds since epoch
	SequenceNumber uint64
	Payload        map[string]any
	Metadata       map[string]any
}

// Option adjusts optional fields during construction.
type Option func(*Event)

// WithVendor overrides the default vendor identifier.
func WithVendor(vendor string) Option {
	return func(e *Event) { e.Vendor = vendor }
}

// WithPairID tags the event as a response to a prior request.
func WithPairID(pairID string) Option {
	return func(e *Event) { e.PairID = pairID }
}

// WithTimestamp overrides the construction-time timestamp (milliseconds).
func WithTimestamp(ms int64) Option {
	return func(e *Event) { e.Timestamp = ms }
}

// New constructs an Event with a generated ID, the default vendor, the
// current timestamp, and the next process-wide sequence number.
func New(eventType string, payload, metadata map[string]any, opts ...Option) *Event {
	e := &Event{
		ID:             uuid.NewString(),
		Vendor:         VendorAssurance,
		Type:           eventType,
		Timestamp:      time.Now().UnixMilli(),
		SequenceNumber: nextSequence(),
		Payload:        payload,
		Metadata:       metadata,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// wireEvent is the JSON envelope used on the socket. Metadata rides inside
// the payload under a reserved key rather than as a top-level wire field.
type wireEvent struct {
	EventID     string         `json:"eventID"`
	Vendor      string         `json:"vendor"`
	Type        string         `json:"type"`
	PairID      string         `json:"pairID,omitempty"`
	Timestamp   *int64         `json:"timestamp,omitempty"`
	EventNumber uint64         `json:"eventNumber"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Marshal serializes the event for transmission. Fields that are absent on
// the event are omitted; nil-valued payload entries serialize as JSON null.
func (e *Event) Marshal() ([]byte, error) {
	w := wireEvent{
		EventID:     e.ID,
		Vendor:      e.Vendor,
		Type:        e.Type,
		PairID:      e.PairID,
		EventNumber: e.SequenceNumber,
	}
	if e.Timestamp != 0 {
		ts := e.Timestamp
		w.Timestamp = &ts
	}
	switch {
	case e.Metadata == nil:
		w.Payload = e.Payload
	default:
		merged := make(map[string]any, len(e.Payload)+1)
		for k, v := range e.Payload {
			merged[k] = v
		}
		merged[metadataEnvelopeKey] = e.Metadata
		w.Payload = merged
	}
	return json.Marshal(w)
}

// Parse reconstructs an Event from wire bytes. eventID, vendor, and type
// are required; their absence is a hard parse failure. The sequence number
// is assigned fresh, never taken from the wire.
func Parse(data []byte) (*Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if w.EventID == "" {
		return nil, fmt.Errorf("%w: eventID", ErrMissingField)
	}
	if w.Vendor == "" {
		return nil, fmt.Errorf("%w: vendor", ErrMissingField)
	}
	if w.Type == "" {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}

	e := &Event{
		ID:             w.EventID,
		Vendor:         w.Vendor,
		Type:           w.Type,
		PairID:         w.PairID,
		Timestamp:      time.Now().UnixMilli(),
		SequenceNumber: nextSequence(),
		Payload:        w.Payload,
	}
	if w.Timestamp != nil {
		e.Timestamp = *w.Timestamp
	}
	if meta, ok := w.Payload[metadataEnvelopeKey].(map[string]any); ok {
		e.Metadata = meta
		delete(w.Payload, metadataEnvelopeKey)
		if len(w.Payload) == 0 {
			e.Payload = nil
		}
	}
	return e, nil
}

// IsControl reports whether the event carries the reserved control marker.
func (e *Event) IsControl() bool {
	return e.Type == TypeControl
}

// ControlType returns the control subtype carried in the payload. ok is
// false when the event is not a control event, has no payload, or the
// nested type is absent or not a string.
func (e *Event) ControlType() (string, bool) {
	if !e.IsControl() || e.Payload == nil {
		return "", false
	}
	sub, ok := e.Payload[ControlTypeKey].(string)
	if !ok {
		return "", false
	}
	return sub, true
}

// ControlDetail returns the nested detail mapping of a control event. ok is
// false when the event is not a control event or detail is absent.
func (e *Event) ControlDetail() (map[string]any, bool) {
	if !e.IsControl() || e.Payload == nil {
		return nil, false
	}
	detail, ok := e.Payload[ControlDetailKey].(map[string]any)
	if !ok {
		return nil, false
	}
	return detail, true
}
