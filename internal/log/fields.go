// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldClientID  = "client_id"
	FieldOrgID     = "org_id"
	FieldEventID   = "event_id"
	FieldChunkID   = "chunk_id"
	FieldComponent = "component"
	FieldVendor    = "vendor"
	FieldEventType = "event_type"
	FieldEnviron   = "environment"

	// Transport fields
	FieldURL       = "url"
	FieldPath      = "path"
	FieldCloseCode = "close_code"
	FieldFrameSize = "frame_size"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Queue fields
	FieldQueueDepth = "queue_depth"
	FieldSeqNumber  = "sequence_number"
)
