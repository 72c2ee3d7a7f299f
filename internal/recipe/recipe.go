// Package recipe holds the recipe model and its SQLite repository.
package recipe

import (
	"fmt"
	"strings"

	"recipe-box/internal/ingredient"
)

// Recipe is a stored recipe. Ingredients are kept structured so the shopping
// list can aggregate them without re-parsing.
type Recipe struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Ingredients  []ingredient.Ingredient `json:"ingredients"`
	Instructions string                  `json:"instructions,omitempty"`
	Tags         []string                `json:"tags,omitempty"`
	PrepTime     string                  `json:"prep_time,omitempty"`
	Servings     string                  `json:"servings,omitempty"`
	SourceURL    string                  `json:"source_url,omitempty"`
	UpdatedAt    string                  `json:"updated_at,omitempty"`
}

// Validate checks the fields every stored recipe needs.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("recipe id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("recipe %s has no title", r.ID)
	}
	for i, ing := range r.Ingredients {
		if err := ing.Validate(); err != nil {
			return fmt.Errorf("recipe %s ingredient %d: %w", r.ID, i, err)
		}
	}
	return nil
}

// ParseIngredientLines parses free-text ingredient lines. Lines that cannot be
// parsed are returned in skipped rather than failing the whole recipe.
func ParseIngredientLines(lines []string) (parsed []ingredient.Ingredient, skipped []string) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ing, err := ingredient.ParseLine(line)
		if err != nil {
			skipped = append(skipped, line)
			continue
		}
		parsed = append(parsed, ing)
	}
	return parsed, skipped
}

// Slug turns a title into a stable recipe id ("Mom's Lasagna" -> "moms-lasagna").
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '\'':
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
