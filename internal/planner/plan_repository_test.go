package planner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "planner.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPlanRepository(newTestDB(t).SQL)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("AddIsOncePerRecipe", func(t *testing.T) {
		added, err := repo.Add(ctx, Entry{PlanID: "p", RecipeID: "soup", RecipeTitle: "Soup", Day: "Monday", AddedAt: base})
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repo.Add(ctx, Entry{PlanID: "p", RecipeID: "soup", RecipeTitle: "Soup again", AddedAt: base.Add(time.Hour)})
		require.NoError(t, err)
		assert.False(t, added)

		added, err = repo.Add(ctx, Entry{PlanID: "other", RecipeID: "soup", RecipeTitle: "Soup", AddedAt: base})
		require.NoError(t, err)
		assert.True(t, added)
	})

	t.Run("ListInAddOrder", func(t *testing.T) {
		_, err := repo.Add(ctx, Entry{PlanID: "p", RecipeID: "bread", RecipeTitle: "Bread", AddedAt: base.Add(time.Minute)})
		require.NoError(t, err)

		entries, err := repo.List(ctx, "p")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "soup", entries[0].RecipeID)
		assert.Equal(t, "Soup", entries[0].RecipeTitle)
		assert.Equal(t, "Monday", entries[0].Day)
		assert.True(t, base.Equal(entries[0].AddedAt))
		assert.Equal(t, "bread", entries[1].RecipeID)
	})

	t.Run("Remove", func(t *testing.T) {
		removed, err := repo.Remove(ctx, "p", "soup")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Remove(ctx, "p", "soup")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("Clear", func(t *testing.T) {
		n, err := repo.Clear(ctx, "p")
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		entries, err := repo.List(ctx, "p")
		require.NoError(t, err)
		assert.Empty(t, entries)

		others, err := repo.List(ctx, "other")
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})
}
