package shopping

import "context"

// Store is the persistence port of the shopping list. Repository implements it
// on SQLite.
type Store interface {
	// FindCandidates returns recipe items that may normalize to key, oldest
	// first. It may over-return; callers filter on the normalized name.
	FindCandidates(ctx context.Context, key string) ([]Item, error)
	InsertItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, id string, patch ItemPatch) error
	// DeleteItem removes the item together with its contributions.
	DeleteItem(ctx context.Context, id string) error
	// DeleteItemsByRecipeID removes recipe items that point at recipeID and
	// have no contributions left. It returns how many were removed.
	DeleteItemsByRecipeID(ctx context.Context, recipeID string) (int64, error)
	ListItems(ctx context.Context) ([]Item, error)
	// GetItem returns nil, nil when no item has the id.
	GetItem(ctx context.Context, id string) (*Item, error)

	UpsertContribution(ctx context.Context, c Contribution) error
	ContributionsByRecipe(ctx context.Context, recipeID string) ([]Contribution, error)
	// ContributionsByItem returns contributions in the order they were first written.
	ContributionsByItem(ctx context.Context, itemID string) ([]Contribution, error)
	DeleteContributionsByRecipe(ctx context.Context, recipeID string) error

	// WithTx runs fn against a Store whose writes commit together when fn
	// returns nil and are discarded otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}
