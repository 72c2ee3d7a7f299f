package shopping

import (
	"time"

	"recipe-box/internal/ingredient"
)

// Category is the store section an item is shelved under.
type Category string

const (
	CategoryProduce Category = "Produce"
	CategoryDairy   Category = "Dairy"
	CategoryMeat    Category = "Meat & Seafood"
	CategoryPantry  Category = "Pantry"
	CategoryFrozen  Category = "Frozen"
	CategoryBakery  Category = "Bakery"
	CategoryOther   Category = "Other"
)

// CategoryOrder is the display order of shopping list sections.
var CategoryOrder = []Category{
	CategoryProduce,
	CategoryDairy,
	CategoryMeat,
	CategoryPantry,
	CategoryFrozen,
	CategoryBakery,
	CategoryOther,
}

// Source records how an item got onto the list.
type Source string

const (
	SourceRecipe Source = "recipe"
	SourceManual Source = "manual"
)

// Item is one line of the shopping list.
type Item struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Quantity     *float64        `json:"quantity,omitempty"`
	Unit         ingredient.Unit `json:"unit,omitempty"`
	Checked      bool            `json:"checked"`
	RecipeID     string          `json:"recipe_id,omitempty"`
	MealPlanID   string          `json:"meal_plan_id,omitempty"`
	Category     Category        `json:"category"`
	Source       Source          `json:"source"`
	OriginalName string          `json:"original_name"`
	CreatedAt    time.Time       `json:"created_at"`

	// RecipeIDs lists every recipe still contributing to the item, in the
	// order they first contributed. Read-only.
	RecipeIDs []string `json:"recipe_ids,omitempty"`
}

// Contribution is the share of one recipe in a recipe item.
type Contribution struct {
	ItemID     string          `json:"item_id"`
	RecipeID   string          `json:"recipe_id"`
	MealPlanID string          `json:"meal_plan_id,omitempty"`
	Quantity   *float64        `json:"quantity,omitempty"`
	Unit       ingredient.Unit `json:"unit,omitempty"`
}

// ItemPatch lists the columns UpdateItem should overwrite. Nil fields are left
// alone; SetQuantity makes Quantity apply even when it is nil.
type ItemPatch struct {
	Quantity    *float64
	SetQuantity bool
	Unit        *ingredient.Unit
	Checked     *bool
	RecipeID    *string
}

// Apply returns item with the patch applied.
func (p ItemPatch) Apply(item Item) Item {
	if p.SetQuantity {
		item.Quantity = copyQty(p.Quantity)
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.Checked != nil {
		item.Checked = *p.Checked
	}
	if p.RecipeID != nil {
		item.RecipeID = *p.RecipeID
	}
	return item
}

func copyQty(q *float64) *float64 {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}
