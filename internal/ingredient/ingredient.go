// Package ingredient holds the ingredient value type, the unit enumeration and
// the name normalization used to decide whether two ingredients are the same
// shopping-list entry.
package ingredient

import (
	"fmt"
	"math"
)

// Ingredient is one line of a recipe. A nil Quantity means "no amount given".
type Ingredient struct {
	Name     string   `json:"name" yaml:"name"`
	Quantity *float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Unit     Unit     `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Qty is a convenience for building a Quantity literal.
func Qty(v float64) *float64 {
	return &v
}

// Validate checks the shape constraints a stored ingredient must satisfy.
func (i Ingredient) Validate() error {
	if i.Quantity != nil {
		q := *i.Quantity
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("quantity for %q is not a finite number", i.Name)
		}
		if q <= 0 {
			return fmt.Errorf("quantity for %q must be positive, got %v", i.Name, q)
		}
	}
	if !i.Unit.Valid() {
		return fmt.Errorf("unit %q for %q is not a known unit", i.Unit, i.Name)
	}
	return nil
}
