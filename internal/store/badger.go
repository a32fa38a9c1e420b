// SPDX-License-Identifier: MIT

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

const connectionURLKey = "assurance/connection_url"

// Badger is a ConnectionStore backed by an embedded BadgerDB under the
// configured data directory. Survives process restarts.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) the store under dir.
func NewBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	opts := badger.DefaultOptions(filepath.Join(dir, "assurance-store"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) SaveConnectionURL(url string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(connectionURLKey), []byte(url))
	})
}

func (b *Badger) ConnectionURL() (string, error) {
	var out string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(connectionURLKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out = string(val)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read connection url: %w", err)
	}
	return out, nil
}

func (b *Badger) Clear() error {
	return b.SaveConnectionURL("")
}

// Close releases the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

var _ ConnectionStore = (*Badger)(nil)
