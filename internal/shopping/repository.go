package shopping

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"recipe-box/internal/ingredient"
)

var _ Store = (*Repository)(nil)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Repository handles persistence of shopping list items and their recipe
// contributions.
type Repository struct {
	db *sql.DB // nil inside a transaction
	q  DBTX
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, q: d}
}

// WithTx runs fn against a repository bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Calls
// made on a repository that is already inside a transaction join it.
func (r *Repository) WithTx(ctx context.Context, fn func(Store) error) error {
	return r.inTx(ctx, func(q DBTX) error {
		return fn(&Repository{q: q})
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(DBTX) error) error {
	if r.db == nil {
		return fn(r.q)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const itemColumns = `id, name, quantity, unit, checked, recipe_id, meal_plan_id, category, source, original_name, created_at`

// FindCandidates returns recipe items whose stored name contains the last word
// of key. The caller narrows the result down by normalized name.
func (r *Repository) FindCandidates(ctx context.Context, key string) ([]Item, error) {
	words := strings.Fields(key)
	if len(words) == 0 {
		return nil, nil
	}
	head := words[len(words)-1]
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM shopping_list_items
		 WHERE source = ? AND (name = ? OR name LIKE ? ESCAPE '\')
		 ORDER BY created_at, rowid`,
		string(SourceRecipe), key, "%"+escapeLike(head)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate items: %w", err)
	}
	return scanItems(rows)
}

// InsertItem stores a new item.
func (r *Repository) InsertItem(ctx context.Context, item Item) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO shopping_list_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, nullFloat(item.Quantity), string(item.Unit), item.Checked,
		nullString(item.RecipeID), nullString(item.MealPlanID), string(item.Category), string(item.Source),
		item.OriginalName, formatTime(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert shopping list item: %w", err)
	}
	return nil
}

// UpdateItem overwrites the columns named by patch.
func (r *Repository) UpdateItem(ctx context.Context, id string, patch ItemPatch) error {
	var sets []string
	var args []any
	if patch.SetQuantity {
		sets = append(sets, "quantity = ?")
		args = append(args, nullFloat(patch.Quantity))
	}
	if patch.Unit != nil {
		sets = append(sets, "unit = ?")
		args = append(args, string(*patch.Unit))
	}
	if patch.Checked != nil {
		sets = append(sets, "checked = ?")
		args = append(args, *patch.Checked)
	}
	if patch.RecipeID != nil {
		sets = append(sets, "recipe_id = ?")
		args = append(args, nullString(*patch.RecipeID))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.q.ExecContext(ctx,
		`UPDATE shopping_list_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update shopping list item %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes an item and its contributions.
func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	return r.inTx(ctx, func(q DBTX) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM shopping_item_contributions WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete contributions of item %s: %w", id, err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete shopping list item %s: %w", id, err)
		}
		return nil
	})
}

// DeleteItemsByRecipeID removes recipe items pointing at recipeID that no
// contribution keeps alive.
func (r *Repository) DeleteItemsByRecipeID(ctx context.Context, recipeID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM shopping_list_items
		 WHERE recipe_id = ? AND source = ?
		   AND id NOT IN (SELECT item_id FROM shopping_item_contributions)`,
		recipeID, string(SourceRecipe))
	if err != nil {
		return 0, fmt.Errorf("failed to delete items of recipe %s: %w", recipeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted items: %w", err)
	}
	return n, nil
}

// ListItems returns every item, oldest first, with RecipeIDs filled in.
func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM shopping_list_items ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping list items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	byItem, err := r.recipeIDsByItem(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].RecipeIDs = byItem[items[i].ID]
	}
	return items, nil
}

// GetItem retrieves an item by ID, or nil when there is none.
func (r *Repository) GetItem(ctx context.Context, id string) (*Item, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM shopping_list_items WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list item: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	item := items[0]

	contribs, err := r.ContributionsByItem(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range contribs {
		item.RecipeIDs = append(item.RecipeIDs, c.RecipeID)
	}
	return &item, nil
}

// UpsertContribution writes the share of c.RecipeID in c.ItemID, replacing any
// previous value. The original write order is kept.
func (r *Repository) UpsertContribution(ctx context.Context, c Contribution) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO shopping_item_contributions (item_id, recipe_id, meal_plan_id, quantity, unit)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(item_id, recipe_id) DO UPDATE SET
		   meal_plan_id = excluded.meal_plan_id, quantity = excluded.quantity, unit = excluded.unit`,
		c.ItemID, c.RecipeID, nullString(c.MealPlanID), nullFloat(c.Quantity), string(c.Unit))
	if err != nil {
		return fmt.Errorf("failed to upsert contribution of recipe %s: %w", c.RecipeID, err)
	}
	return nil
}

// ContributionsByRecipe returns every contribution of a recipe.
func (r *Repository) ContributionsByRecipe(ctx context.Context, recipeID string) ([]Contribution, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT item_id, recipe_id, meal_plan_id, quantity, unit FROM shopping_item_contributions
		 WHERE recipe_id = ? ORDER BY rowid`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions of recipe %s: %w", recipeID, err)
	}
	return scanContributions(rows)
}

// ContributionsByItem returns the contributions of an item in write order.
func (r *Repository) ContributionsByItem(ctx context.Context, itemID string) ([]Contribution, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT item_id, recipe_id, meal_plan_id, quantity, unit FROM shopping_item_contributions
		 WHERE item_id = ? ORDER BY rowid`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions of item %s: %w", itemID, err)
	}
	return scanContributions(rows)
}

// DeleteContributionsByRecipe removes every contribution of a recipe.
func (r *Repository) DeleteContributionsByRecipe(ctx context.Context, recipeID string) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM shopping_item_contributions WHERE recipe_id = ?`, recipeID); err != nil {
		return fmt.Errorf("failed to delete contributions of recipe %s: %w", recipeID, err)
	}
	return nil
}

func (r *Repository) recipeIDsByItem(ctx context.Context) (map[string][]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT item_id, recipe_id FROM shopping_item_contributions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var itemID, recipeID string
		if err := rows.Scan(&itemID, &recipeID); err != nil {
			return nil, fmt.Errorf("failed to scan contribution row: %w", err)
		}
		out[itemID] = append(out[itemID], recipeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return out, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it                   Item
			qty                  sql.NullFloat64
			unit, category, src  string
			recipeID, mealPlanID sql.NullString
			createdAt            string
		)
		err := rows.Scan(&it.ID, &it.Name, &qty, &unit, &it.Checked, &recipeID, &mealPlanID,
			&category, &src, &it.OriginalName, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping list item: %w", err)
		}
		if qty.Valid {
			v := qty.Float64
			it.Quantity = &v
		}
		it.Unit = ingredient.Unit(unit)
		it.RecipeID = recipeID.String
		it.MealPlanID = mealPlanID.String
		it.Category = Category(category)
		it.Source = Source(src)
		it.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at of item %s: %w", it.ID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shopping list items: %w", err)
	}
	return items, nil
}

func scanContributions(rows *sql.Rows) ([]Contribution, error) {
	defer rows.Close()

	var out []Contribution
	for rows.Next() {
		var (
			c          Contribution
			mealPlanID sql.NullString
			qty        sql.NullFloat64
			unit       string
		)
		if err := rows.Scan(&c.ItemID, &c.RecipeID, &mealPlanID, &qty, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		c.MealPlanID = mealPlanID.String
		if qty.Valid {
			v := qty.Float64
			c.Quantity = &v
		}
		c.Unit = ingredient.Unit(unit)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return out, nil
}

func nullFloat(q *float64) sql.NullFloat64 {
	if q == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *q, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}
