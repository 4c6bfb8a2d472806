package test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/inbucket/reroute/pkg/directory"
)

// DirectoryStub stubs directory.Store for testing.  Lookups of addresses with the local part
// "lookuperr" fail.
type DirectoryStub struct {
	sync.Mutex
	entries map[string]directory.Entry
	lookups []string
}

var _ directory.Store = &DirectoryStub{}

// NewDirectory creates a new DirectoryStub holding entries.
func NewDirectory(entries ...directory.Entry) *DirectoryStub {
	d := &DirectoryStub{entries: make(map[string]directory.Entry)}
	for _, e := range entries {
		_ = d.Put(context.Background(), e)
	}
	return d
}

// Find implements directory.Directory.
func (d *DirectoryStub) Find(_ context.Context, address string) (*directory.Entry, error) {
	key := directory.NormalizeAddress(address)
	d.Lock()
	defer d.Unlock()
	d.lookups = append(d.lookups, key)
	if strings.HasPrefix(key, "lookuperr@") {
		return nil, errors.New("internal error")
	}
	e, ok := d.entries[key]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &e, nil
}

// Put implements directory.Store.
func (d *DirectoryStub) Put(_ context.Context, e directory.Entry) error {
	d.Lock()
	defer d.Unlock()
	e.Address = directory.NormalizeAddress(e.Address)
	d.entries[e.Address] = e
	return nil
}

// Delete implements directory.Store.
func (d *DirectoryStub) Delete(_ context.Context, address string) error {
	d.Lock()
	defer d.Unlock()
	delete(d.entries, directory.NormalizeAddress(address))
	return nil
}

// Lookups returns the normalized addresses passed to Find, in call order.
func (d *DirectoryStub) Lookups() []string {
	d.Lock()
	defer d.Unlock()
	return append([]string(nil), d.lookups...)
}
