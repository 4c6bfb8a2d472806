package test

import (
	"context"
	"testing"

	"github.com/inbucket/reroute/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DirectoryFactory returns a new, empty directory for the test suite.
type DirectoryFactory func() (store directory.Store, destroy func(), err error)

// DirectorySuite runs a set of general tests on the provided directory.Store.
func DirectorySuite(t *testing.T, factory DirectoryFactory) {
	testCases := []struct {
		name string
		test func(*testing.T, directory.Store)
	}{
		{"find", testFind},
		{"not found", testNotFound},
		{"normalize", testNormalize},
		{"types", testTypes},
		{"replace", testReplace},
		{"delete", testDelete},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, destroy, err := factory()
			if err != nil {
				t.Fatal(err)
			}
			tc.test(t, store)
			destroy()
		})
	}
}

// testFind verifies a stored entry can be found.
func testFind(t *testing.T, store directory.Store) {
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "known@x.com", Type: directory.User}))

	e, err := store.Find(ctx, "known@x.com")
	require.NoError(t, err)
	assert.Equal(t, "known@x.com", e.Address)
	assert.Equal(t, directory.User, e.Type)
}

// testNotFound verifies missing addresses report ErrNotFound.
func testNotFound(t *testing.T, store directory.Store) {
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "known@x.com", Type: directory.User}))

	e, err := store.Find(ctx, "unknown@y.com")
	assert.ErrorIs(t, err, directory.ErrNotFound)
	assert.Nil(t, e)
}

// testNormalize verifies addresses are matched ignoring case, whitespace and angle brackets.
func testNormalize(t *testing.T, store directory.Store) {
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "Mixed@Case.COM", Type: directory.User}))

	for _, addr := range []string{"mixed@case.com", "MIXED@CASE.COM", " <mixed@case.com> "} {
		e, err := store.Find(ctx, addr)
		if assert.NoError(t, err, "address %q", addr) {
			assert.Equal(t, "mixed@case.com", e.Address)
		}
	}
}

// testTypes verifies every recipient type round trips.
func testTypes(t *testing.T, store directory.Store) {
	ctx := context.Background()
	types := []directory.RecipientType{
		directory.Unknown,
		directory.User,
		directory.Group,
		directory.Contact,
		directory.PublicFolder,
	}
	for _, rt := range types {
		addr := rt.String() + "@x.com"
		require.NoError(t, store.Put(ctx, directory.Entry{Address: addr, Type: rt}))
	}
	for _, rt := range types {
		e, err := store.Find(ctx, rt.String()+"@x.com")
		require.NoError(t, err)
		assert.Equal(t, rt, e.Type)
	}
}

// testReplace verifies Put replaces the entry for an existing address.
func testReplace(t *testing.T, store directory.Store) {
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "a@x.com", Type: directory.User}))
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "A@X.com", Type: directory.Group}))

	e, err := store.Find(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, directory.Group, e.Type)
}

// testDelete verifies deleted entries are no longer found, and that deleting twice is allowed.
func testDelete(t *testing.T, store directory.Store) {
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "a@x.com", Type: directory.User}))
	require.NoError(t, store.Put(ctx, directory.Entry{Address: "b@x.com", Type: directory.User}))

	require.NoError(t, store.Delete(ctx, "a@x.com"))
	require.NoError(t, store.Delete(ctx, "a@x.com"))

	_, err := store.Find(ctx, "a@x.com")
	assert.ErrorIs(t, err, directory.ErrNotFound)
	_, err = store.Find(ctx, "b@x.com")
	assert.NoError(t, err)
}
