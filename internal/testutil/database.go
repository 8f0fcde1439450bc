package testutil

import (
	"testing"

	"diet-planner/internal/database"
)

// NewTestDatabase returns a migrated in-memory database closed at test cleanup.
func NewTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
