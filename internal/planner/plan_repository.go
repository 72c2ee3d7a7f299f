package planner

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const addedAtLayout = "2006-01-02T15:04:05.000000000Z"

// PlanRepository is a database-backed repository for meal plan entries.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Add puts a recipe on the plan. It reports false when the recipe was
// already there, in which case the stored entry is left untouched.
func (r *PlanRepository) Add(ctx context.Context, e Entry) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO meal_plan_entries (plan_id, recipe_id, recipe_title, day, added_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.PlanID, e.RecipeID, e.RecipeTitle, e.Day, e.AddedAt.UTC().Format(addedAtLayout))
	if err != nil {
		return false, fmt.Errorf("failed to add recipe %s to plan %s: %w", e.RecipeID, e.PlanID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add recipe %s to plan %s: %w", e.RecipeID, e.PlanID, err)
	}
	return n == 1, nil
}

// Remove takes a recipe off the plan and reports whether it was there.
func (r *PlanRepository) Remove(ctx context.Context, planID, recipeID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_plan_entries WHERE plan_id = ? AND recipe_id = ?`, planID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to remove recipe %s from plan %s: %w", recipeID, planID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove recipe %s from plan %s: %w", recipeID, planID, err)
	}
	return n > 0, nil
}

// List returns the plan's entries in the order they were added.
func (r *PlanRepository) List(ctx context.Context, planID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT plan_id, recipe_id, recipe_title, day, added_at
		FROM meal_plan_entries
		WHERE plan_id = ?
		ORDER BY added_at, rowid`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan %s: %w", planID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var addedAt string
		if err := rows.Scan(&e.PlanID, &e.RecipeID, &e.RecipeTitle, &e.Day, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan entry: %w", err)
		}
		if e.AddedAt, err = time.Parse(addedAtLayout, addedAt); err != nil {
			return nil, fmt.Errorf("failed to parse added_at %q: %w", addedAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes every entry of the plan.
func (r *PlanRepository) Clear(ctx context.Context, planID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_plan_entries WHERE plan_id = ?`, planID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear plan %s: %w", planID, err)
	}
	return res.RowsAffected()
}
