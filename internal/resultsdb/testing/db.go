// Package resultsdbtesting opens throwaway result databases for tests.
package resultsdbtesting

import (
	"testing"
	"time"

	"qabench/internal/resultsdb"
	"qabench/internal/testutil"
)

const defaultTimeout = 5 * time.Second

// Open opens an in-memory results database with the schema applied.
func Open(t testing.TB) *resultsdb.DB {
	t.Helper()
	ctx := testutil.Context(t, defaultTimeout)
	db, err := resultsdb.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open results db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
