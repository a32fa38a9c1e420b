// SPDX-License-Identifier: MIT

// Package store persists the last connection URL across process restarts.
package store

import "sync"

// ConnectionStore is the capability the session core depends on for
// persisting and restoring the last connection URL. Clearing persists an
// empty value rather than deleting the key.
type ConnectionStore interface {
	SaveConnectionURL(url string) error
	ConnectionURL() (string, error)
	Clear() error
}

// Memory is an in-process ConnectionStore used in tests and as a fallback
// when no data directory is configured.
type Memory struct {
	mu  sync.Mutex
	url string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SaveConnectionURL(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url = url
	return nil
}

func (m *Memory) ConnectionURL() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url, nil
}

func (m *Memory) Clear() error {
	return m.SaveConnectionURL("")
}

var _ ConnectionStore = (*Memory)(nil)
