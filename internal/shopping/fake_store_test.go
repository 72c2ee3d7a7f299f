package shopping

import (
	"context"
	"errors"
	"sync"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore is an in-memory Store that counts calls and can be told to fail.
type fakeStore struct {
	mu       sync.Mutex
	items    []Item
	contribs []Contribution
	calls    int
	writes   int
	failOn   string
	// noRollback makes WithTx keep partial writes, like a store without
	// transactions.
	noRollback bool
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) enter(op string, write bool) error {
	f.calls++
	if write {
		f.writes++
	}
	if f.failOn == op {
		return errStoreDown
	}
	return nil
}

func (f *fakeStore) FindCandidates(_ context.Context, key string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FindCandidates", false); err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range f.items {
		if it.Source == SourceRecipe && it.Name == key {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertItem(_ context.Context, item Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertItem", true); err != nil {
		return err
	}
	item.RecipeIDs = nil
	f.items = append(f.items, item)
	return nil
}

func (f *fakeStore) UpdateItem(_ context.Context, id string, patch ItemPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem", true); err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i] = patch.Apply(f.items[i])
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) DeleteItem(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem", true); err != nil {
		return err
	}
	f.removeItems(func(it Item) bool { return it.ID == id })
	return nil
}

func (f *fakeStore) DeleteItemsByRecipeID(_ context.Context, recipeID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItemsByRecipeID", true); err != nil {
		return 0, err
	}
	return f.removeItems(func(it Item) bool {
		return it.RecipeID == recipeID && it.Source == SourceRecipe && !f.hasContribution(it.ID)
	}), nil
}

func (f *fakeStore) ListItems(_ context.Context) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListItems", false); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, f.withRecipeIDs(it))
	}
	return out, nil
}

func (f *fakeStore) GetItem(_ context.Context, id string) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem", false); err != nil {
		return nil, err
	}
	for _, it := range f.items {
		if it.ID == id {
			it = f.withRecipeIDs(it)
			return &it, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpsertContribution(_ context.Context, c Contribution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpsertContribution", true); err != nil {
		return err
	}
	for i := range f.contribs {
		if f.contribs[i].ItemID == c.ItemID && f.contribs[i].RecipeID == c.RecipeID {
			f.contribs[i] = c
			return nil
		}
	}
	f.contribs = append(f.contribs, c)
	return nil
}

func (f *fakeStore) ContributionsByRecipe(_ context.Context, recipeID string) ([]Contribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ContributionsByRecipe", false); err != nil {
		return nil, err
	}
	var out []Contribution
	for _, c := range f.contribs {
		if c.RecipeID == recipeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ContributionsByItem(_ context.Context, itemID string) ([]Contribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ContributionsByItem", false); err != nil {
		return nil, err
	}
	var out []Contribution
	for _, c := range f.contribs {
		if c.ItemID == itemID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteContributionsByRecipe(_ context.Context, recipeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteContributionsByRecipe", true); err != nil {
		return err
	}
	kept := f.contribs[:0]
	for _, c := range f.contribs {
		if c.RecipeID != recipeID {
			kept = append(kept, c)
		}
	}
	f.contribs = kept
	return nil
}

func (f *fakeStore) WithTx(_ context.Context, fn func(Store) error) error {
	f.mu.Lock()
	items := append([]Item(nil), f.items...)
	contribs := append([]Contribution(nil), f.contribs...)
	f.mu.Unlock()

	err := fn(f)
	if err != nil && !f.noRollback {
		f.mu.Lock()
		f.items, f.contribs = items, contribs
		f.mu.Unlock()
	}
	return err
}

func (f *fakeStore) removeItems(match func(Item) bool) int64 {
	var n int64
	kept := f.items[:0]
	for _, it := range f.items {
		if match(it) {
			n++
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept

	contribs := f.contribs[:0]
	for _, c := range f.contribs {
		if f.hasItem(c.ItemID) {
			contribs = append(contribs, c)
		}
	}
	f.contribs = contribs
	return n
}

func (f *fakeStore) hasItem(id string) bool {
	for _, it := range f.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeStore) hasContribution(itemID string) bool {
	for _, c := range f.contribs {
		if c.ItemID == itemID {
			return true
		}
	}
	return false
}

func (f *fakeStore) withRecipeIDs(it Item) Item {
	it.RecipeIDs = nil
	for _, c := range f.contribs {
		if c.ItemID == it.ID {
			it.RecipeIDs = append(it.RecipeIDs, c.RecipeID)
		}
	}
	return it
}

func (f *fakeStore) counts() (calls, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.writes
}

func (f *fakeStore) snapshot() []Item {
	items, _ := f.ListItems(context.Background())
	return items
}
