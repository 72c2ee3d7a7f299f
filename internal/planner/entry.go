package planner

import (
	"errors"
	"time"
)

// DefaultPlanID is used when no plan id is configured.
const DefaultPlanID = "default"

var (
	// ErrRecipeNotFound is returned when a recipe reference matches nothing.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrNothingToRetry is returned by RetryLastOperation when no operation failed.
	ErrNothingToRetry = errors.New("no failed operation to retry")
)

// Entry is one recipe on a meal plan. A recipe appears on a plan at most once.
type Entry struct {
	PlanID      string    `json:"plan_id"`
	RecipeID    string    `json:"recipe_id"`
	RecipeTitle string    `json:"recipe_title"`
	Day         string    `json:"day,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}
