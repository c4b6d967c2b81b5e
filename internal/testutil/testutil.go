package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studydeck/internal/db"
	"github.com/vytor/studydeck/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied
// and foreign keys enabled. It is limited to one connection so every query
// sees the same in-memory database.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB), "failed to apply migrations")
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Now is a fixed UTC instant for deterministic tests.
var Now = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// InsertDeck stores a deck row directly, bypassing the repositories.
func InsertDeck(t *testing.T, sqlDB *sql.DB, d models.Deck) {
	t.Helper()
	var parent any
	if d.ParentID != nil {
		parent = d.ParentID.String()
	}
	_, err := sqlDB.Exec(`
INSERT INTO decks (id, parent_id, name, description, icon, color_name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, d.ID.String(), parent, d.Name, d.Description, d.Icon, d.ColorName, d.CreatedAt, d.UpdatedAt)
	require.NoError(t, err)
}
