// Package shopping builds the shopping list out of meal-plan recipes: it merges
// ingredients that normalize to the same name, tracks which recipes contributed
// to each line, and classifies lines into store sections.
package shopping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"recipe-box/internal/ingredient"
	"recipe-box/internal/recipe"
)

// Aggregator applies recipe and manual changes to a single shopping list.
// Every mutating call holds the list gate for its whole read-then-write
// sequence, so concurrent callers never both miss an existing line.
type Aggregator struct {
	store  Store
	gate   *semaphore.Weighted
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator over store.
func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		gate:   semaphore.NewWeighted(1),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) lock(ctx context.Context) (func(), error) {
	if err := a.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire shopping list gate: %w", err)
	}
	return func() { a.gate.Release(1) }, nil
}

// AddRecipeIngredients merges the ingredients of rec into the list and returns
// the items it created or updated, in the order they were first touched.
// A recipe that already contributes to the list is not added twice. The writes
// for one recipe commit together or not at all.
func (a *Aggregator) AddRecipeIngredients(ctx context.Context, rec recipe.Recipe, mealPlanID string) ([]Item, error) {
	if len(rec.Ingredients) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(rec.ID) == "" {
		return nil, &ValidationError{Field: "recipe.id", Reason: "must not be empty"}
	}
	for i, ing := range rec.Ingredients {
		if err := ing.Validate(); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("ingredients[%d]", i), Reason: err.Error()}
		}
	}

	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var touched []Item
	err = a.inTx(ctx, func(s Store) error {
		var err error
		touched, err = a.addRecipe(ctx, s, rec, mealPlanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

func (a *Aggregator) addRecipe(ctx context.Context, s Store, rec recipe.Recipe, mealPlanID string) ([]Item, error) {
	existing, err := s.ContributionsByRecipe(ctx, rec.ID)
	if err != nil {
		return nil, persistErr("load recipe contributions", err)
	}
	if len(existing) > 0 {
		a.logger.Info("Recipe already on the shopping list", zap.String("recipe_id", rec.ID))
		return nil, nil
	}

	var (
		order   []string
		touched = make(map[string]Item)
		// Shares of this recipe written so far, so repeated ingredients accumulate.
		shares = make(map[string]Contribution)
	)
	touch := func(it Item) {
		if _, ok := touched[it.ID]; !ok {
			order = append(order, it.ID)
		}
		touched[it.ID] = it
	}

	for _, ing := range rec.Ingredients {
		key := ingredient.Normalize(ing.Name)
		if key == "" {
			continue
		}

		target, err := findMergeTarget(ctx, s, key, ing.Unit)
		if err != nil {
			return nil, err
		}

		if target == nil {
			item := Item{
				ID:           a.newID(),
				Name:         key,
				Quantity:     copyQty(ing.Quantity),
				Unit:         ing.Unit,
				RecipeID:     rec.ID,
				MealPlanID:   mealPlanID,
				Category:     Classify(key),
				Source:       SourceRecipe,
				OriginalName: strings.TrimSpace(ing.Name),
				CreatedAt:    a.now().UTC(),
				RecipeIDs:    []string{rec.ID},
			}
			if err := s.InsertItem(ctx, item); err != nil {
				return nil, persistErr("insert item", err)
			}
			share := Contribution{ItemID: item.ID, RecipeID: rec.ID, MealPlanID: mealPlanID, Quantity: copyQty(ing.Quantity), Unit: ing.Unit}
			if err := s.UpsertContribution(ctx, share); err != nil {
				return nil, persistErr("write contribution", err)
			}
			shares[item.ID] = share
			touch(item)
			a.logger.Debug("Shopping list item created", zap.String("item_id", item.ID), zap.String("name", key))
			continue
		}

		share, ok := shares[target.ID]
		if !ok {
			share = Contribution{ItemID: target.ID, RecipeID: rec.ID, MealPlanID: mealPlanID}
		}
		share.Quantity = sumQuantities(share.Quantity, ing.Quantity)
		if share.Unit == ingredient.UnitNone {
			share.Unit = ing.Unit
		}
		if err := s.UpsertContribution(ctx, share); err != nil {
			return nil, persistErr("write contribution", err)
		}
		shares[target.ID] = share

		updated, err := recompute(ctx, s, *target)
		if err != nil {
			return nil, err
		}
		touch(updated)
		a.logger.Debug("Shopping list item merged", zap.String("item_id", target.ID), zap.String("name", key))
	}

	a.logger.Info("Recipe added to shopping list",
		zap.String("recipe_id", rec.ID), zap.Int("items_touched", len(order)))
	return results(order, touched), nil
}

// RemoveRecipeIngredients retracts the share of recipeID. Items no other
// recipe contributes to are deleted; the rest are recomputed from what remains
// and returned.
func (a *Aggregator) RemoveRecipeIngredients(ctx context.Context, recipeID string) ([]Item, error) {
	if strings.TrimSpace(recipeID) == "" {
		return nil, &ValidationError{Field: "recipe.id", Reason: "must not be empty"}
	}

	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var survivors []Item
	err = a.inTx(ctx, func(s Store) error {
		var err error
		survivors, err = a.removeRecipe(ctx, s, recipeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return survivors, nil
}

// removeRecipe rewrites the affected items first and drops the contributions
// of recipeID last, so a run cut short can be repeated.
func (a *Aggregator) removeRecipe(ctx context.Context, s Store, recipeID string) ([]Item, error) {
	shares, err := s.ContributionsByRecipe(ctx, recipeID)
	if err != nil {
		return nil, persistErr("load recipe contributions", err)
	}

	var (
		survivors []Item
		deleted   int
	)
	for _, share := range shares {
		item, err := s.GetItem(ctx, share.ItemID)
		if err != nil {
			return nil, persistErr("load item", err)
		}
		if item == nil {
			continue
		}
		all, err := s.ContributionsByItem(ctx, item.ID)
		if err != nil {
			return nil, persistErr("load item contributions", err)
		}
		remaining := make([]Contribution, 0, len(all))
		for _, c := range all {
			if c.RecipeID != recipeID {
				remaining = append(remaining, c)
			}
		}
		if len(remaining) == 0 {
			if err := s.DeleteItem(ctx, item.ID); err != nil {
				return nil, persistErr("delete item", err)
			}
			deleted++
			continue
		}
		updated, err := applyShares(ctx, s, *item, remaining)
		if err != nil {
			return nil, err
		}
		survivors = append(survivors, updated)
	}

	if err := s.DeleteContributionsByRecipe(ctx, recipeID); err != nil {
		return nil, persistErr("delete recipe contributions", err)
	}
	// Items that point at the recipe but carry no contribution at all.
	orphans, err := s.DeleteItemsByRecipeID(ctx, recipeID)
	if err != nil {
		return nil, persistErr("delete orphaned items", err)
	}

	a.logger.Info("Recipe removed from shopping list",
		zap.String("recipe_id", recipeID), zap.Int("deleted", deleted+int(orphans)), zap.Int("updated", len(survivors)))
	return survivors, nil
}

// inTx runs fn in one store transaction. Errors from fn pass through as they
// are; begin and commit failures are reported as PersistenceError.
func (a *Aggregator) inTx(ctx context.Context, fn func(Store) error) error {
	var inner error
	err := a.store.WithTx(ctx, func(s Store) error {
		inner = fn(s)
		return inner
	})
	if err == nil || inner != nil {
		return err
	}
	return persistErr("run transaction", err)
}

// AddManualItem puts a user-entered item on the list. Manual items never merge
// with recipe items.
func (a *Aggregator) AddManualItem(ctx context.Context, name string, quantity *float64, unit ingredient.Unit) (Item, error) {
	raw := strings.TrimSpace(name)
	key := ingredient.Normalize(raw)
	if key == "" {
		return Item{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if err := (ingredient.Ingredient{Name: raw, Quantity: quantity, Unit: unit}).Validate(); err != nil {
		return Item{}, &ValidationError{Field: "item", Reason: err.Error()}
	}

	unlock, err := a.lock(ctx)
	if err != nil {
		return Item{}, err
	}
	defer unlock()

	item := Item{
		ID:           a.newID(),
		Name:         key,
		Quantity:     copyQty(quantity),
		Unit:         unit,
		Category:     Classify(key),
		Source:       SourceManual,
		OriginalName: raw,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.InsertItem(ctx, item); err != nil {
		return Item{}, persistErr("insert item", err)
	}
	return item, nil
}

// ToggleChecked flips the checked flag of an item.
func (a *Aggregator) ToggleChecked(ctx context.Context, id string) (Item, error) {
	unlock, err := a.lock(ctx)
	if err != nil {
		return Item{}, err
	}
	defer unlock()

	item, err := a.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, persistErr("load item", err)
	}
	if item == nil {
		return Item{}, ErrNotFound
	}
	checked := !item.Checked
	patch := ItemPatch{Checked: &checked}
	if err := a.store.UpdateItem(ctx, id, patch); err != nil {
		return Item{}, persistErr("update item", err)
	}
	return patch.Apply(*item), nil
}

// DeleteItem removes a manual item. Recipe items leave the list only when
// their recipes leave the meal plan.
func (a *Aggregator) DeleteItem(ctx context.Context, id string) error {
	unlock, err := a.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := a.store.GetItem(ctx, id)
	if err != nil {
		return persistErr("load item", err)
	}
	if item == nil {
		return ErrNotFound
	}
	if item.Source != SourceManual {
		return &ValidationError{Field: "id", Reason: "recipe items are removed with their recipe"}
	}
	if err := a.store.DeleteItem(ctx, id); err != nil {
		return persistErr("delete item", err)
	}
	return nil
}

// ClearChecked deletes every checked item and reports how many went.
func (a *Aggregator) ClearChecked(ctx context.Context) (int, error) {
	unlock, err := a.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	items, err := a.store.ListItems(ctx)
	if err != nil {
		return 0, persistErr("list items", err)
	}
	n := 0
	for _, it := range items {
		if !it.Checked {
			continue
		}
		if err := a.store.DeleteItem(ctx, it.ID); err != nil {
			return n, persistErr("delete item", err)
		}
		n++
	}
	return n, nil
}

// Items returns the current list. Reads do not take the gate.
func (a *Aggregator) Items(ctx context.Context) ([]Item, error) {
	items, err := a.store.ListItems(ctx)
	if err != nil {
		return nil, persistErr("list items", err)
	}
	return items, nil
}

// findMergeTarget returns the oldest recipe item named key whose unit does not
// conflict with unit, or nil.
func findMergeTarget(ctx context.Context, s Store, key string, unit ingredient.Unit) (*Item, error) {
	candidates, err := s.FindCandidates(ctx, key)
	if err != nil {
		return nil, persistErr("find candidates", err)
	}
	for _, c := range candidates {
		if c.Source != SourceRecipe || ingredient.Normalize(c.Name) != key {
			continue
		}
		if unitsConflict(c.Unit, unit) {
			continue
		}
		return &c, nil
	}
	return nil, nil
}

// recompute reloads the contributions of item and writes the derived columns.
func recompute(ctx context.Context, s Store, item Item) (Item, error) {
	shares, err := s.ContributionsByItem(ctx, item.ID)
	if err != nil {
		return item, persistErr("load item contributions", err)
	}
	return applyShares(ctx, s, item, shares)
}

func applyShares(ctx context.Context, s Store, item Item, shares []Contribution) (Item, error) {
	patch := derive(shares)
	if err := s.UpdateItem(ctx, item.ID, patch); err != nil {
		return item, persistErr("update item", err)
	}
	item = patch.Apply(item)
	item.RecipeIDs = make([]string, 0, len(shares))
	for _, s := range shares {
		item.RecipeIDs = append(item.RecipeIDs, s.RecipeID)
	}
	return item, nil
}

// derive computes the item columns that follow from its contributions:
// quantity is their sum, unit the first one set, recipe the first contributor.
func derive(shares []Contribution) ItemPatch {
	qs := make([]*float64, 0, len(shares))
	unit := ingredient.UnitNone
	for _, s := range shares {
		qs = append(qs, s.Quantity)
		if unit == ingredient.UnitNone {
			unit = s.Unit
		}
	}
	var recipeID string
	if len(shares) > 0 {
		recipeID = shares[0].RecipeID
	}
	return ItemPatch{
		Quantity:    sumQuantities(qs...),
		SetQuantity: true,
		Unit:        &unit,
		RecipeID:    &recipeID,
	}
}

// sumQuantities adds quantities in decimal, treating nil as zero. The result
// is nil only when every input is nil.
func sumQuantities(qs ...*float64) *float64 {
	total := decimal.Zero
	seen := false
	for _, q := range qs {
		if q == nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(*q))
		seen = true
	}
	if !seen {
		return nil
	}
	v := total.InexactFloat64()
	return &v
}

func unitsConflict(a, b ingredient.Unit) bool {
	return a != ingredient.UnitNone && b != ingredient.UnitNone && a != b
}

func results(order []string, touched map[string]Item) []Item {
	if len(order) == 0 {
		return nil
	}
	out := make([]Item, 0, len(order))
	for _, id := range order {
		out = append(out, touched[id])
	}
	return out
}
