// SPDX-License-Identifier: MIT

package queue

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/metrics"
)

// Frame and chunk limits. ChunkBytes caps the raw length of one chunk-data
// piece; the split additionally tracks the piece's escaped length so the
// serialized chunk event stays under MaxFrameBytes even when the content is
// dominated by escape sequences.
const (
	MaxFrameBytes = 16 * 1024
	ChunkBytes    = 10 * 1024

	// frameReserve covers the wire envelope and chunk metadata wrapped
	// around the chunk-data string.
	frameReserve       = 1024
	escapedChunkBudget = MaxFrameBytes - frameReserve
)

// Chunk splits one oversized event into an ordered sequence of
// transport-safe events. Stateless.
//
// Identity cases: a nil event yields an empty sequence; an event with no
// payload, or whose serialized form already fits one frame, is returned
// unchanged as a single-element sequence.
func Chunk(e *event.Event) []*event.Event {
	if e == nil {
		return nil
	}
	if e.Payload == nil {
		return []*event.Event{e}
	}
	raw, err := e.Marshal()
	if err == nil && len(raw) <= MaxFrameBytes {
		return []*event.Event{e}
	}

	serialized, err := json.Marshal(e.Payload)
	if err != nil {
		// Unserializable payloads cannot be chunked; pass through.
		return []*event.Event{e}
	}

	pieces := split(string(serialized), ChunkBytes)
	groupID := uuid.NewString()
	total := len(pieces)

	chunks := make([]*event.Event, 0, total)
	for i, piece := range pieces {
		chunks = append(chunks, event.New(
			e.Type,
			map[string]any{event.ChunkDataKey: piece},
			map[string]any{
				event.ChunkIDKey:       groupID,
				event.ChunkSequenceKey: i,
				event.ChunkTotalKey:    total,
			},
			event.WithVendor(e.Vendor),
			event.WithTimestamp(e.Timestamp),
		))
	}
	metrics.ChunkedPayloadsTotal.Inc()
	metrics.ChunksEmittedTotal.Add(float64(total))
	return chunks
}

// split cuts s into consecutive substrings of at most size raw bytes whose
// escaped form also fits the frame budget. Cuts land only on rune starts so
// reassembly is byte-exact. A piece is closed as soon as the next rune
// would push it past either the raw cap or the escaped budget.
func split(s string, size int) []string {
	out := make([]string, 0, len(s)/size+1)
	start := 0
	raw, escaped := 0, 0
	for i := 0; i < len(s); {
		_, width := utf8.DecodeRuneInString(s[i:])
		cost := escapedCost(s[i : i+width])
		if raw > 0 && (raw+width > size || escaped+cost > escapedChunkBudget) {
			out = append(out, s[start:i])
			start = i
			raw, escaped = 0, 0
		}
		raw += width
		escaped += cost
		i += width
	}
	return append(out, s[start:])
}

// escapedCost returns an upper bound on the encoded length of one rune
// inside a JSON string produced by encoding/json.
func escapedCost(r string) int {
	if len(r) > 1 {
		// Multi-byte runes pass through raw except U+2028/U+2029, which
		// expand from three bytes to six.
		return 2 * len(r)
	}
	switch b := r[0]; {
	case b == '"' || b == '\\' || b == '\n' || b == '\r' || b == '\t':
		return 2
	case b == '<' || b == '>' || b == '&' || b < 0x20:
		return 6
	default:
		return 1
	}
}
