// SPDX-License-Identifier: MIT

// Package hostinfo collects client and host metadata for the client-info
// event announcing this client to the remote inspection service.
package hostinfo

import (
	"os"
	"runtime"

	"github.com/adobe/aepsdk-assurance-go/internal/event"
)

// Collector supplies host metadata. Injected so tests can substitute a
// fixed snapshot.
type Collector interface {
	DeviceInfo() map[string]any
	AppSettings() map[string]any
}

// Default collects metadata from the local process and OS.
type Default struct {
	AppName    string
	AppVersion string
}

func (d *Default) DeviceInfo() map[string]any {
	hostname, _ := os.Hostname()
	return map[string]any{
		"Canonical platform name": "Go",
		"Operating system":        runtime.GOOS,
		"Architecture":            runtime.GOARCH,
		"Device name":             hostname,
		"App name":                d.AppName,
		"App version":             d.AppVersion,
	}
}

func (d *Default) AppSettings() map[string]any {
	return map[string]any{
		"processId": os.Getpid(),
	}
}

// Provider builds client-info events from a Collector. It implements the
// outbound queue's InfoProvider contract.
type Provider struct {
	Version   string // protocol/SDK version string
	Collector Collector
}

// ClientInfoEvent returns the synthetic event re-announcing application,
// device, and session identity.
func (p *Provider) ClientInfoEvent() *event.Event {
	return event.New(event.TypeClient, map[string]any{
		"version":     p.Version,
		"type":        "connect",
		"deviceInfo":  p.Collector.DeviceInfo(),
		"appSettings": p.Collector.AppSettings(),
	}, nil)
}

var _ Collector = (*Default)(nil)
