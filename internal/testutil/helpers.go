package testutil

import (
	"path/filepath"
	"testing"

	"github.com/ryokun6/ryos-sub006/internal/store"
)

// SampleLRC is a small well-formed LRC source used across tests.
const SampleLRC = `[ti:Test Song]
[00:01.00]Hello there
[00:02.00]猫が好き
[00:03.00]走る
`

// OpenTestStore opens a SQLite store in a per-test temp directory and
// closes it when the test finishes.
func OpenTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "lyrics.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("Failed to close test store: %v", err)
		}
	})
	return st
}
