// SPDX-License-Identifier: MIT

// Package transport provides the duplex socket abstraction the session
// rides on, and the close-code classification driving reconnect decisions.
package transport

import "fmt"

// CloseCode identifies why the remote service closed the connection.
type CloseCode int

const (
	CloseNormal          CloseCode = 1000
	CloseAbnormal        CloseCode = 1006
	CloseClientError     CloseCode = 4400
	CloseOrgMismatch     CloseCode = 4900
	CloseConnectionLimit CloseCode = 4901
	CloseEventLimit      CloseCode = 4902
	CloseSessionDeleted  CloseCode = 4903
)

// IsTerminal reports whether the close code permanently ends the session.
// Only an abnormal closure is recoverable; every other code tears down.
func (c CloseCode) IsTerminal() bool {
	return c != CloseAbnormal
}

func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "normal"
	case CloseAbnormal:
		return "abnormal"
	case CloseClientError:
		return "client_error"
	case CloseOrgMismatch:
		return "org_mismatch"
	case CloseConnectionLimit:
		return "connection_limit"
	case CloseEventLimit:
		return "event_limit"
	case CloseSessionDeleted:
		return "session_deleted"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// Description returns the operator-facing explanation for a close code,
// suitable for status displays and logs.
func (c CloseCode) Description() string {
	switch c {
	case CloseOrgMismatch:
		return "the session was started under a different organization"
	case CloseClientError:
		return "the service rejected the connection request"
	case CloseConnectionLimit:
		return "the session reached its connection limit"
	case CloseEventLimit:
		return "the session reached its event limit"
	case CloseSessionDeleted:
		return "the session was deleted"
	default:
		return "the connection was closed"
	}
}
