// Package planner keeps the meal plan and the shopping list in step: adding
// a recipe to the plan puts its ingredients on the list, removing it takes
// them off again.
package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"recipe-box/internal/events"
	"recipe-box/internal/ingredient"
	"recipe-box/internal/metrics"
	"recipe-box/internal/recipe"
	"recipe-box/internal/shopping"
)

// RecipeFinder resolves a recipe by id or title.
type RecipeFinder interface {
	Find(ctx context.Context, query string) (*recipe.Recipe, error)
}

// PlanStore persists meal plan membership.
type PlanStore interface {
	Add(ctx context.Context, e Entry) (bool, error)
	Remove(ctx context.Context, planID, recipeID string) (bool, error)
	List(ctx context.Context, planID string) ([]Entry, error)
	Clear(ctx context.Context, planID string) (int64, error)
}

// ShoppingList is the aggregated list the orchestrator drives.
type ShoppingList interface {
	AddRecipeIngredients(ctx context.Context, rec recipe.Recipe, mealPlanID string) ([]shopping.Item, error)
	RemoveRecipeIngredients(ctx context.Context, recipeID string) ([]shopping.Item, error)
	AddManualItem(ctx context.Context, name string, quantity *float64, unit ingredient.Unit) (shopping.Item, error)
	ToggleChecked(ctx context.Context, id string) (shopping.Item, error)
	DeleteItem(ctx context.Context, id string) error
	ClearChecked(ctx context.Context) (int, error)
	Items(ctx context.Context) ([]shopping.Item, error)
}

// State is a snapshot of what the user sees.
type State struct {
	Items         []shopping.Item `json:"items"`
	Entries       []Entry         `json:"entries"`
	Error         string          `json:"error,omitempty"`
	LastOperation string          `json:"last_operation,omitempty"`
}

// Orchestrator owns the meal plan and shopping list state for one plan.
type Orchestrator struct {
	planID    string
	recipes   RecipeFinder
	plan      PlanStore
	list      ShoppingList
	publisher events.Publisher
	recorder  metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time

	// gate lets one operation at a time write the plan and the list.
	gate  *semaphore.Weighted
	mu    sync.RWMutex
	state State
	retry func(context.Context) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPublisher sets where change events go.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithRecorder sets where operation metrics go.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator for planID.
func NewOrchestrator(planID string, recipes RecipeFinder, plan PlanStore, list ShoppingList, opts ...Option) *Orchestrator {
	if planID == "" {
		planID = DefaultPlanID
	}
	o := &Orchestrator{
		planID:  planID,
		recipes: recipes,
		plan:    plan,
		list:    list,
		logger:  zap.NewNop(),
		now:     time.Now,
		gate:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PlanID returns the plan this orchestrator manages.
func (o *Orchestrator) PlanID() string {
	return o.planID
}

// RecipeAdded puts the recipe matching ref on the plan and its ingredients
// on the shopping list.
func (o *Orchestrator) RecipeAdded(ctx context.Context, ref, day string) error {
	return o.run(ctx, "add_recipe", true, func(ctx context.Context) (int, error) {
		rec, err := o.recipes.Find(ctx, ref)
		if err != nil {
			return 0, fmt.Errorf("failed to look up recipe %q: %w", ref, err)
		}
		if rec == nil {
			return 0, fmt.Errorf("%w: %q", ErrRecipeNotFound, ref)
		}

		added, err := o.plan.Add(ctx, Entry{
			PlanID:      o.planID,
			RecipeID:    rec.ID,
			RecipeTitle: rec.Title,
			Day:         day,
			AddedAt:     o.now(),
		})
		if err != nil {
			return 0, err
		}
		if !added {
			o.logger.Info("Recipe already on plan", zap.String("recipe_id", rec.ID))
		}

		items, err := o.list.AddRecipeIngredients(ctx, *rec, o.planID)
		return len(items), err
	})
}

// RecipeRemoved takes a recipe off the plan and its ingredients off the list.
// ref may be a recipe id or the title of a planned recipe. The ref is
// resolved once, so a retry still finds the recipe after its plan entry is
// gone.
func (o *Orchestrator) RecipeRemoved(ctx context.Context, ref string) error {
	var recipeID string
	return o.run(ctx, "remove_recipe", true, func(ctx context.Context) (int, error) {
		if recipeID == "" {
			entries, err := o.plan.List(ctx, o.planID)
			if err != nil {
				return 0, err
			}
			recipeID = resolvePlanned(entries, ref)
		}
		if _, err := o.plan.Remove(ctx, o.planID, recipeID); err != nil {
			return 0, err
		}
		items, err := o.list.RemoveRecipeIngredients(ctx, recipeID)
		return len(items), err
	})
}

// ClearAll empties the plan and removes every planned recipe's ingredients.
// Manual items stay on the list.
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	return o.run(ctx, "clear_plan", true, func(ctx context.Context) (int, error) {
		entries, err := o.plan.List(ctx, o.planID)
		if err != nil {
			return 0, err
		}
		touched := 0
		for _, e := range entries {
			items, err := o.list.RemoveRecipeIngredients(ctx, e.RecipeID)
			if err != nil {
				return touched, err
			}
			touched += len(items)
		}
		_, err = o.plan.Clear(ctx, o.planID)
		return touched, err
	})
}

// AddManualItem adds a user-entered item to the list.
func (o *Orchestrator) AddManualItem(ctx context.Context, name string, quantity *float64, unit ingredient.Unit) error {
	return o.run(ctx, "add_manual_item", false, func(ctx context.Context) (int, error) {
		_, err := o.list.AddManualItem(ctx, name, quantity, unit)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// ToggleItem flips an item's checked flag.
func (o *Orchestrator) ToggleItem(ctx context.Context, id string) error {
	return o.run(ctx, "toggle_item", false, func(ctx context.Context) (int, error) {
		if _, err := o.list.ToggleChecked(ctx, id); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// DeleteItem removes a manual item.
func (o *Orchestrator) DeleteItem(ctx context.Context, id string) error {
	return o.run(ctx, "delete_item", false, func(ctx context.Context) (int, error) {
		if err := o.list.DeleteItem(ctx, id); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// ClearChecked removes every checked item.
func (o *Orchestrator) ClearChecked(ctx context.Context) error {
	return o.run(ctx, "clear_checked", false, func(ctx context.Context) (int, error) {
		return o.list.ClearChecked(ctx)
	})
}

// Refresh reloads the list and the plan from persistence.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	return o.run(ctx, "refresh", true, func(context.Context) (int, error) {
		return 0, nil
	})
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.state
	s.Items = append([]shopping.Item(nil), o.state.Items...)
	s.Entries = append([]Entry(nil), o.state.Entries...)
	return s
}

// Sections groups the current items for display.
func (o *Orchestrator) Sections() []shopping.Section {
	return shopping.GroupSections(o.State().Items)
}

// Counts summarizes the current items.
func (o *Orchestrator) Counts() shopping.Counts {
	return shopping.CountItems(o.State().Items)
}

// ClearError dismisses the current error.
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Error = ""
}

// RetryLastOperation runs the most recent failed operation again.
func (o *Orchestrator) RetryLastOperation(ctx context.Context) error {
	o.mu.RLock()
	retry := o.retry
	o.mu.RUnlock()
	if retry == nil {
		return ErrNothingToRetry
	}
	return retry(ctx)
}

// run executes fn, refreshes state from persistence and publishes changes.
// On failure the error and the operation are remembered for a retry, and
// state is still re-fetched so the user sees what actually got written.
// Operations run one at a time; events go out after the gate is released.
func (o *Orchestrator) run(ctx context.Context, op string, planChanged bool, fn func(context.Context) (int, error)) error {
	if err := o.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire planner gate: %w", err)
	}
	start := o.now()
	touched, err := fn(ctx)
	if err == nil {
		err = o.reload(ctx)
	} else if rerr := o.reload(ctx); rerr != nil {
		o.logger.Warn("Failed to reload state after error", zap.String("operation", op), zap.Error(rerr))
	}
	o.record(ctx, op, touched, start, err)

	o.mu.Lock()
	o.state.LastOperation = op
	if err != nil {
		o.state.Error = err.Error()
		o.retry = func(ctx context.Context) error {
			return o.run(ctx, op, planChanged, fn)
		}
	} else {
		o.state.Error = ""
		o.retry = nil
	}
	items, entries := len(o.state.Items), len(o.state.Entries)
	o.mu.Unlock()
	o.gate.Release(1)

	if err != nil {
		o.logger.Error("Operation failed", zap.String("operation", op), zap.Error(err))
		return err
	}

	o.publish(ctx, events.Event{Topic: events.ShoppingListChanged, Operation: op, Count: items, At: o.now()})
	if planChanged {
		o.publish(ctx, events.Event{Topic: events.MealPlanChanged, Operation: op, Count: entries, At: o.now()})
	}
	return nil
}

// reload fetches the shopping list and then the meal plan.
func (o *Orchestrator) reload(ctx context.Context) error {
	items, err := o.list.Items(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.state.Items = items
	o.mu.Unlock()

	entries, err := o.plan.List(ctx, o.planID)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.state.Entries = entries
	o.mu.Unlock()
	return nil
}

func resolvePlanned(entries []Entry, ref string) string {
	for _, e := range entries {
		if e.RecipeID == ref {
			return ref
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e.RecipeTitle, strings.TrimSpace(ref)) {
			return e.RecipeID
		}
	}
	return ref
}

func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		o.logger.Warn("Failed to publish event", zap.String("topic", string(ev.Topic)), zap.Error(err))
	}
}

func (o *Orchestrator) record(ctx context.Context, op string, touched int, start time.Time, err error) {
	if o.recorder == nil {
		return
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	m := metrics.OperationMetric{
		Operation:    op,
		Outcome:      outcome,
		ItemsTouched: touched,
		LatencyMS:    o.now().Sub(start).Milliseconds(),
		Timestamp:    start,
	}
	if rerr := o.recorder.Record(ctx, m); rerr != nil {
		o.logger.Warn("Failed to record metric", zap.String("operation", op), zap.Error(rerr))
	}
}
