// Package mem provides an in-memory recipient directory.
package mem

import (
	"context"
	"sync"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/directory"
)

// Directory is an in-memory directory.Directory, safe for concurrent use.
type Directory struct {
	sync.RWMutex
	entries map[string]directory.Entry
}

var _ directory.Store = &Directory{}

// New returns an empty in-memory directory.
func New(_ config.Directory) (directory.Directory, error) {
	return NewDirectory(), nil
}

// NewDirectory returns an empty in-memory directory, optionally seeded with entries.
func NewDirectory(entries ...directory.Entry) *Directory {
	d := &Directory{entries: make(map[string]directory.Entry)}
	for _, e := range entries {
		d.Add(e.Address, e.Type)
	}
	return d
}

// Add registers address with the given type, replacing any existing entry.
func (d *Directory) Add(address string, t directory.RecipientType) {
	key := directory.NormalizeAddress(address)
	d.Lock()
	defer d.Unlock()
	d.entries[key] = directory.Entry{Address: key, Type: t}
}

// Remove deletes the entry for address.
func (d *Directory) Remove(address string) {
	d.Lock()
	defer d.Unlock()
	delete(d.entries, directory.NormalizeAddress(address))
}

// Put implements directory.Store.
func (d *Directory) Put(_ context.Context, e directory.Entry) error {
	d.Add(e.Address, e.Type)
	return nil
}

// Delete implements directory.Store.
func (d *Directory) Delete(_ context.Context, address string) error {
	d.Remove(address)
	return nil
}

// Find implements directory.Directory.
func (d *Directory) Find(_ context.Context, address string) (*directory.Entry, error) {
	d.RLock()
	defer d.RUnlock()
	e, ok := d.entries[directory.NormalizeAddress(address)]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &e, nil
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.entries)
}
