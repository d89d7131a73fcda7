package vaultplan

import (
	"path/filepath"
	"testing"
)

// AUD is a helper for tests to create display-currency money from const.
func AUD(v float64) Money { return M(v, "AUD") }

// newTestStore opens a throwaway store backed by a temp file.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "AUD")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustAddWallet creates a wallet account or fails the test.
func mustAddWallet(t *testing.T, s *Store, name, address string) {
	t.Helper()
	if err := s.AddAccount(name, "wallet", 0, address); err != nil {
		t.Fatalf("AddAccount(%q) error = %v", name, err)
	}
}
