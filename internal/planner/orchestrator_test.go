package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"recipe-box/internal/events"
	"recipe-box/internal/ingredient"
	"recipe-box/internal/metrics"
	"recipe-box/internal/recipe"
	"recipe-box/internal/shopping"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flakyList fails the next failAdds calls to AddRecipeIngredients and the
// next failRemoves calls to RemoveRecipeIngredients. With addEntered set, an
// add signals it and then waits for addRelease before doing anything.
type flakyList struct {
	ShoppingList
	failAdds    int
	failRemoves int
	addEntered  chan struct{}
	addRelease  chan struct{}
}

func (f *flakyList) AddRecipeIngredients(ctx context.Context, rec recipe.Recipe, planID string) ([]shopping.Item, error) {
	if f.addEntered != nil {
		f.addEntered <- struct{}{}
		<-f.addRelease
	}
	if f.failAdds > 0 {
		f.failAdds--
		return nil, errors.New("database is locked")
	}
	return f.ShoppingList.AddRecipeIngredients(ctx, rec, planID)
}

func (f *flakyList) RemoveRecipeIngredients(ctx context.Context, recipeID string) ([]shopping.Item, error) {
	if f.failRemoves > 0 {
		f.failRemoves--
		return nil, errors.New("database is locked")
	}
	return f.ShoppingList.RemoveRecipeIngredients(ctx, recipeID)
}

type memRecorder struct {
	mu  sync.Mutex
	got []metrics.OperationMetric
}

func (r *memRecorder) Record(_ context.Context, m metrics.OperationMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
	return nil
}

type harness struct {
	orch     *Orchestrator
	plan     *PlanRepository
	list     *flakyList
	recorder *memRecorder

	mu     sync.Mutex
	topics []events.Topic
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)

	recipes := recipe.NewRepository(db.SQL, nil)
	require.NoError(t, recipes.Save(ctx, recipe.Recipe{
		ID:    "pancakes",
		Title: "Pancakes",
		Ingredients: []ingredient.Ingredient{
			{Name: "eggs", Quantity: ingredient.Qty(2)},
			{Name: "flour", Quantity: ingredient.Qty(1), Unit: ingredient.UnitCup},
			{Name: "milk", Quantity: ingredient.Qty(1), Unit: ingredient.UnitCup},
		},
	}))
	require.NoError(t, recipes.Save(ctx, recipe.Recipe{
		ID:    "omelette",
		Title: "Cheese Omelette",
		Ingredients: []ingredient.Ingredient{
			{Name: "Eggs", Quantity: ingredient.Qty(1)},
			{Name: "cheddar cheese", Quantity: ingredient.Qty(50), Unit: ingredient.UnitG},
		},
	}))

	h := &harness{
		plan:     NewPlanRepository(db.SQL),
		list:     &flakyList{ShoppingList: shopping.NewAggregator(shopping.NewRepository(db.SQL))},
		recorder: &memRecorder{},
	}
	bus := events.NewBus()
	bus.Subscribe(func(ev events.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.topics = append(h.topics, ev.Topic)
	})

	h.orch = NewOrchestrator("week", recipes, h.plan, h.list,
		WithPublisher(bus),
		WithRecorder(h.recorder),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	return h
}

func itemNamed(t *testing.T, items []shopping.Item, name string) shopping.Item {
	t.Helper()
	for _, it := range items {
		if it.Name == name {
			return it
		}
	}
	t.Fatalf("no item named %q in %v", name, items)
	return shopping.Item{}
}

func TestRecipeAddedAggregatesAndPublishes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.orch.RecipeAdded(ctx, "pancakes", "Monday"))
	require.NoError(t, h.orch.RecipeAdded(ctx, "cheese omelette", ""))

	state := h.orch.State()
	assert.Empty(t, state.Error)
	assert.Equal(t, "add_recipe", state.LastOperation)
	require.Len(t, state.Entries, 2)
	assert.Equal(t, "Monday", state.Entries[0].Day)
	assert.Equal(t, "omelette", state.Entries[1].RecipeID)
	require.Len(t, state.Items, 4)

	eggs := itemNamed(t, state.Items, "egg")
	assert.Equal(t, 3.0, *eggs.Quantity)
	assert.Equal(t, []string{"pancakes", "omelette"}, eggs.RecipeIDs)

	assert.Equal(t, []events.Topic{
		events.ShoppingListChanged, events.MealPlanChanged,
		events.ShoppingListChanged, events.MealPlanChanged,
	}, h.topics)

	require.Len(t, h.recorder.got, 2)
	assert.Equal(t, metrics.OutcomeOK, h.recorder.got[0].Outcome)
	assert.Equal(t, 3, h.recorder.got[0].ItemsTouched)
}

func TestRecipeAddedTwiceCountsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.orch.RecipeAdded(ctx, "pancakes", ""))
	require.NoError(t, h.orch.RecipeAdded(ctx, "Pancakes", ""))

	state := h.orch.State()
	assert.Len(t, state.Entries, 1)
	assert.Equal(t, 2.0, *itemNamed(t, state.Items, "egg").Quantity)
}

func TestRecipeAddedUnknownRecipe(t *testing.T) {
	h := newHarness(t)

	err := h.orch.RecipeAdded(context.Background(), "lasagna", "")
	require.ErrorIs(t, err, ErrRecipeNotFound)

	state := h.orch.State()
	assert.Contains(t, state.Error, "lasagna")
	assert.Equal(t, "add_recipe", state.LastOperation)
	assert.Empty(t, h.topics)
	require.Len(t, h.recorder.got, 1)
	assert.Equal(t, metrics.OutcomeError, h.recorder.got[0].Outcome)
}

func TestRecipeRemoved(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.orch.RecipeAdded(ctx, "pancakes", ""))
	require.NoError(t, h.orch.RecipeAdded(ctx, "omelette", ""))
	h.topics = nil

	require.NoError(t, h.orch.RecipeRemoved(ctx, "PANCAKES"))

	state := h.orch.State()
	require.Len(t, state.Entries, 1)
	assert.Equal(t, "omelette", state.Entries[0].RecipeID)
	require.Len(t, state.Items, 2)
	eggs := itemNamed(t, state.Items, "egg")
	assert.Equal(t, 1.0, *eggs.Quantity)
	assert.Equal(t, "omelette", eggs.RecipeID)
	assert.Equal(t, []events.Topic{events.ShoppingListChanged, events.MealPlanChanged}, h.topics)
}

func TestClearAllKeepsManualItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.orch.RecipeAdded(ctx, "pancakes", ""))
	require.NoError(t, h.orch.RecipeAdded(ctx, "omelette", ""))
	require.NoError(t, h.orch.AddManualItem(ctx, "paper towels", nil, ingredient.UnitNone))

	require.NoError(t, h.orch.ClearAll(ctx))

	state := h.orch.State()
	assert.Empty(t, state.Entries)
	require.Len(t, state.Items, 1)
	assert.Equal(t, shopping.SourceManual, state.Items[0].Source)
}

func TestFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.list.failAdds = 1

	err := h.orch.RecipeAdded(ctx, "pancakes", "")
	require.Error(t, err)

	state := h.orch.State()
	assert.Contains(t, state.Error, "database is locked")
	assert.Equal(t, "add_recipe", state.LastOperation)
	assert.Len(t, state.Entries, 1, "membership written before the failure stays")
	assert.Empty(t, state.Items)
	assert.Empty(t, h.topics)

	require.NoError(t, h.orch.RetryLastOperation(ctx))
	state = h.orch.State()
	assert.Empty(t, state.Error)
	assert.Len(t, state.Items, 3)
	assert.Len(t, state.Entries, 1)

	assert.ErrorIs(t, h.orch.RetryLastOperation(ctx), ErrNothingToRetry)
}

func TestRecipeRemovedByTitleRetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.orch.RecipeAdded(ctx, "pancakes", ""))
	h.list.failRemoves = 1

	require.Error(t, h.orch.RecipeRemoved(ctx, "Pancakes"))
	state := h.orch.State()
	assert.Empty(t, state.Entries, "plan entry goes before the list fails")
	assert.Len(t, state.Items, 3)

	require.NoError(t, h.orch.RetryLastOperation(ctx))
	state = h.orch.State()
	assert.Empty(t, state.Error)
	assert.Empty(t, state.Entries)
	assert.Empty(t, state.Items)
}

func TestOperationsRunOneAtATime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.list.addEntered = make(chan struct{})
	h.list.addRelease = make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return h.orch.RecipeAdded(ctx, "pancakes", "") })
	<-h.list.addEntered

	g.Go(func() error { return h.orch.RecipeRemoved(ctx, "pancakes") })
	time.Sleep(50 * time.Millisecond)

	entries, err := h.plan.List(ctx, "week")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "removal must wait for the add in flight")

	close(h.list.addRelease)
	require.NoError(t, g.Wait())

	state := h.orch.State()
	assert.Empty(t, state.Entries)
	assert.Empty(t, state.Items)
}

func TestCancelledWhileWaitingForGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.list.addEntered = make(chan struct{})
	h.list.addRelease = make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return h.orch.RecipeAdded(ctx, "pancakes", "") })
	<-h.list.addEntered

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := h.orch.RecipeRemoved(cctx, "pancakes")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(h.list.addRelease)
	require.NoError(t, g.Wait())
	assert.Len(t, h.orch.State().Entries, 1)
}

func TestClearError(t *testing.T) {
	h := newHarness(t)
	require.Error(t, h.orch.RecipeAdded(context.Background(), "nothing", ""))
	require.NotEmpty(t, h.orch.State().Error)

	h.orch.ClearError()
	assert.Empty(t, h.orch.State().Error)
	assert.Equal(t, "add_recipe", h.orch.State().LastOperation)
}

func TestListCommands(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.orch.RecipeAdded(ctx, "pancakes", ""))
	require.NoError(t, h.orch.AddManualItem(ctx, "Paper Towels", ingredient.Qty(2), ingredient.UnitPackage))
	h.topics = nil

	towels := itemNamed(t, h.orch.State().Items, "paper towel")
	require.NoError(t, h.orch.ToggleItem(ctx, towels.ID))
	assert.Equal(t, []events.Topic{events.ShoppingListChanged}, h.topics)

	counts := h.orch.Counts()
	assert.Equal(t, shopping.Counts{Total: 4, Checked: 1, Unchecked: 3}, counts)

	sections := h.orch.Sections()
	require.NotEmpty(t, sections)
	assert.Equal(t, shopping.CategoryDairy, sections[0].Category)

	eggs := itemNamed(t, h.orch.State().Items, "egg")
	err := h.orch.DeleteItem(ctx, eggs.ID)
	assert.True(t, shopping.IsValidationError(err))

	require.NoError(t, h.orch.ClearChecked(ctx))
	assert.Len(t, h.orch.State().Items, 3)

	require.NoError(t, h.orch.Refresh(ctx))
	assert.Equal(t, "refresh", h.orch.State().LastOperation)
}
