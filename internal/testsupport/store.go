package testsupport

import (
	"testing"

	"conftalks/internal/config"
	"conftalks/internal/store"
)

// MustOpenStore opens a store.Store at the config's database path and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.DatabasePath(), opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
