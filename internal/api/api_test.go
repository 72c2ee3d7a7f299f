package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"recipe-box/internal/database"
	"recipe-box/internal/ingredient"
	"recipe-box/internal/metrics"
	"recipe-box/internal/planner"
	"recipe-box/internal/recipe"
	"recipe-box/internal/shopping"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	recipes := recipe.NewRepository(db.SQL, nil)
	require.NoError(t, recipes.Save(context.Background(), recipe.Recipe{
		ID:    "pancakes",
		Title: "Pancakes",
		Ingredients: []ingredient.Ingredient{
			{Name: "eggs", Quantity: ingredient.Qty(2)},
			{Name: "flour", Quantity: ingredient.Qty(1), Unit: ingredient.UnitCup},
		},
	}))

	orch := planner.NewOrchestrator("week", recipes, planner.NewPlanRepository(db.SQL),
		shopping.NewAggregator(shopping.NewRepository(db.SQL)))
	return NewRouter(Deps{Planner: orch, Metrics: metrics.NewCollector().Handler()})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) ListResponse {
	t.Helper()
	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMealPlanAndShoppingList(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/meal-plan/recipes/pancakes", `{"day":"Sunday"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var plan PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, "week", plan.PlanID)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "Sunday", plan.Entries[0].Day)

	rec = do(t, router, http.MethodGet, "/shopping-list", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeList(t, rec)
	assert.Equal(t, 2, list.Counts.Total)
	require.Len(t, list.Sections, 2)
	assert.Equal(t, shopping.CategoryDairy, list.Sections[0].Category)
	assert.Equal(t, "egg", list.Sections[0].Items[0].Name)

	eggID := list.Sections[0].Items[0].ID
	rec = do(t, router, http.MethodDelete, "/shopping-list/items/"+eggID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/shopping-list/items/"+eggID+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeList(t, rec).Counts.Checked)

	rec = do(t, router, http.MethodDelete, "/meal-plan/recipes/pancakes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/shopping-list", "")
	assert.Zero(t, decodeList(t, rec).Counts.Total)
}

func TestManualItems(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/shopping-list/items", `{"name":"Paper towels","quantity":2,"unit":"packs"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	list := decodeList(t, rec)
	require.Len(t, list.Sections, 1)
	item := list.Sections[0].Items[0]
	assert.Equal(t, ingredient.UnitPackage, item.Unit)
	assert.Equal(t, shopping.SourceManual, item.Source)

	rec = do(t, router, http.MethodPost, "/shopping-list/items", `{"name":"salt","unit":"furlong"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/shopping-list/items", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/shopping-list/items/"+item.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decodeList(t, rec).Counts.Total)

	rec = do(t, router, http.MethodPost, "/shopping-list/items/nope/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorBannerAndRetry(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/meal-plan/recipes/lasagna", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/shopping-list", "")
	assert.Contains(t, decodeList(t, rec).Error, "lasagna")

	rec = do(t, router, http.MethodDelete, "/error", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/shopping-list", "")
	assert.Empty(t, decodeList(t, rec).Error)

	rec = do(t, router, http.MethodPost, "/retry", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "retrying re-runs the failed lookup")

	rec = do(t, router, http.MethodPost, "/meal-plan/recipes/pancakes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/retry", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExport(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/meal-plan/recipes/pancakes", "").Code)

	rec := do(t, router, http.MethodGet, "/shopping-list/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "shopping-list.xlsx")
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Shopping List")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rec = do(t, router, http.MethodGet, "/shopping-list/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pantry,flour,1,cup,false,pancakes")

	rec = do(t, router, http.MethodGet, "/shopping-list/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthMetricsAndMiddleware(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	req := httptest.NewRequest(http.MethodGet, "/meal-plan", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	cors := httptest.NewRecorder()
	router.ServeHTTP(cors, req)
	assert.Equal(t, "*", cors.Header().Get("Access-Control-Allow-Origin"))
}
