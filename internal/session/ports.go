// SPDX-License-Identifier: MIT

// Package session drives the connection lifecycle to the remote inspection
// service: connect, reconnect, teardown, and the two event queue workers.
package session

import (
	"github.com/adobe/aepsdk-assurance-go/internal/event"
	"github.com/adobe/aepsdk-assurance-go/internal/transport"
)

// StatusListener receives lifecycle notifications for the presentation
// layer (connection HUD, PIN prompt).
type StatusListener interface {
	// OnSessionInitialized asks the presentation layer to collect a PIN.
	OnSessionInitialized(sessionID string)
	OnSessionConnecting()
	OnSessionConnected()
	OnSessionReconnecting()
	OnSessionDisconnected(code transport.CloseCode)
}

// PluginNotifier fans session lifecycle and inbound control events out to
// registered plugins.
type PluginNotifier interface {
	SessionConnected()
	SessionDisconnected(code transport.CloseCode)
	SessionTerminated(code transport.CloseCode)
	// OnEvent dispatches one inbound control event.
	OnEvent(e *event.Event)
}

// SharedState publishes session identity into host-side shared state so
// other extensions can annotate their events.
type SharedState interface {
	PublishSessionID(id string)
	Clear()
}

// NopStatusListener ignores all notifications.
type NopStatusListener struct{}

func (NopStatusListener) OnSessionInitialized(string)               {}
func (NopStatusListener) OnSessionConnecting()                      {}
func (NopStatusListener) OnSessionConnected()                       {}
func (NopStatusListener) OnSessionReconnecting()                    {}
func (NopStatusListener) OnSessionDisconnected(transport.CloseCode) {}

// NopPluginNotifier ignores all notifications.
type NopPluginNotifier struct{}

func (NopPluginNotifier) SessionConnected()                       {}
func (NopPluginNotifier) SessionDisconnected(transport.CloseCode) {}
func (NopPluginNotifier) SessionTerminated(transport.CloseCode)   {}
func (NopPluginNotifier) OnEvent(*event.Event)                    {}

// NopSharedState ignores all publishes.
type NopSharedState struct{}

func (NopSharedState) PublishSessionID(string) {}
func (NopSharedState) Clear()                  {}

var (
	_ StatusListener = NopStatusListener{}
	_ PluginNotifier = NopPluginNotifier{}
	_ SharedState    = NopSharedState{}
)
