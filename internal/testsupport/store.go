package testsupport

import (
	"testing"

	"recsync/internal/config"
	"recsync/internal/recdb"
)

// MustOpenStore opens a recdb.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *recdb.Store {
	t.Helper()

	store, err := recdb.Open(cfg)
	if err != nil {
		t.Fatalf("recdb.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
