package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates an in-memory store with the full schema. Cleanup is
// registered with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    s := storage.NewTestStore(t)
//	    // ... test code ...
//	}
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// NewTestStoreFile creates a file-backed store in t.TempDir() and returns it
// with its path, for tests that reopen the database.
func NewTestStoreFile(t testing.TB) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "symtree.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}
