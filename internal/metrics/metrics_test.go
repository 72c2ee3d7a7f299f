package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.Record(ctx, OperationMetric{Operation: "add_recipe", Outcome: OutcomeOK, ItemsTouched: 3, LatencyMS: 10, Timestamp: now}))
	require.NoError(t, store.Record(ctx, OperationMetric{Operation: "add_recipe", Outcome: OutcomeError, LatencyMS: 30, Timestamp: now}))
	require.NoError(t, store.Record(ctx, OperationMetric{Operation: "toggle_item", Outcome: OutcomeOK, ItemsTouched: 1, Timestamp: now.AddDate(0, 0, -40)}))

	t.Run("DailySummary", func(t *testing.T) {
		days, err := store.GetDailySummary(ctx, 7)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, now.Format("2006-01-02"), days[0].Date)
		assert.Equal(t, 2, days[0].Operations)
		assert.Equal(t, 1, days[0].Errors)
		assert.Equal(t, 3, days[0].ItemsTouched)
		assert.InDelta(t, 20.0, days[0].AvgLatencyMS, 0.001)
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := store.Cleanup(ctx, 30)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = store.Cleanup(ctx, 30)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	require.NoError(t, c.Record(ctx, OperationMetric{Operation: "add_recipe", Outcome: OutcomeOK, ItemsTouched: 4, LatencyMS: 12}))
	require.NoError(t, c.Record(ctx, OperationMetric{Operation: "add_recipe", Outcome: OutcomeOK, ItemsTouched: 1}))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `recipe_box_operations_total{operation="add_recipe",outcome="ok"} 2`)
	assert.Contains(t, body, `recipe_box_items_touched_total{operation="add_recipe"} 5`)
	assert.Contains(t, body, "go_goroutines")
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(context.Context, OperationMetric) error {
	f.calls++
	return errors.New("disk full")
}

func TestRecordersTriesEveryRecorder(t *testing.T) {
	first, second := &failingRecorder{}, &failingRecorder{}
	err := Recorders{first, second}.Record(context.Background(), OperationMetric{Operation: "x"})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), make([]byte, 2048), 0644))

	h := GetSysHealth(dir)
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
}
