package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recipe-box.db")

	db, err := NewDB(path, nil)
	require.NoError(t, err)
	defer db.Close()

	tables := []string{"recipes", "meal_plan_entries", "shopping_list_items", "shopping_item_contributions", "operation_metrics"}
	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			var name string
			err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
			require.NoError(t, err)
			assert.Equal(t, table, name)
		})
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe-box.db")

	require.NoError(t, RunMigrations(path, nil))
	require.NoError(t, RunMigrations(path, nil))
}
