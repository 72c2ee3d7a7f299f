package ingredient

import (
	"fmt"
	"strings"
)

// Unit is a measurement unit from the fixed enumeration. The zero value means
// the ingredient has no unit ("2 eggs").
type Unit string

const (
	UnitNone    Unit = ""
	UnitTsp     Unit = "tsp"
	UnitTbsp    Unit = "tbsp"
	UnitCup     Unit = "cup"
	UnitFlOz    Unit = "fl oz"
	UnitMl      Unit = "ml"
	UnitL       Unit = "l"
	UnitG       Unit = "g"
	UnitKg      Unit = "kg"
	UnitOz      Unit = "oz"
	UnitLb      Unit = "lb"
	UnitPinch   Unit = "pinch"
	UnitDash    Unit = "dash"
	UnitPiece   Unit = "piece"
	UnitClove   Unit = "clove"
	UnitSlice   Unit = "slice"
	UnitCan     Unit = "can"
	UnitPackage Unit = "package"
	UnitBunch   Unit = "bunch"
	UnitPint    Unit = "pint"
	UnitQuart   Unit = "quart"
	UnitGallon  Unit = "gallon"
)

// Units lists every member of the enumeration in display order.
var Units = []Unit{
	UnitTsp, UnitTbsp, UnitCup, UnitFlOz, UnitMl, UnitL, UnitG, UnitKg, UnitOz, UnitLb,
	UnitPinch, UnitDash, UnitPiece, UnitClove, UnitSlice, UnitCan, UnitPackage, UnitBunch,
	UnitPint, UnitQuart, UnitGallon,
}

var unitAliases = map[string]Unit{
	"t": UnitTsp, "tsp": UnitTsp, "tsps": UnitTsp, "teaspoon": UnitTsp, "teaspoons": UnitTsp,
	"tbsp": UnitTbsp, "tbsps": UnitTbsp, "tbs": UnitTbsp, "tbl": UnitTbsp, "tablespoon": UnitTbsp, "tablespoons": UnitTbsp,
	"c": UnitCup, "cup": UnitCup, "cups": UnitCup,
	"fl oz": UnitFlOz, "fl. oz": UnitFlOz, "fluid ounce": UnitFlOz, "fluid ounces": UnitFlOz,
	"ml": UnitMl, "milliliter": UnitMl, "milliliters": UnitMl, "millilitre": UnitMl, "millilitres": UnitMl,
	"l": UnitL, "liter": UnitL, "liters": UnitL, "litre": UnitL, "litres": UnitL,
	"g": UnitG, "gr": UnitG, "gram": UnitG, "grams": UnitG,
	"kg": UnitKg, "kilogram": UnitKg, "kilograms": UnitKg,
	"oz": UnitOz, "ounce": UnitOz, "ounces": UnitOz,
	"lb": UnitLb, "lbs": UnitLb, "pound": UnitLb, "pounds": UnitLb,
	"pinch": UnitPinch, "pinches": UnitPinch,
	"dash": UnitDash, "dashes": UnitDash,
	"piece": UnitPiece, "pieces": UnitPiece, "pc": UnitPiece, "pcs": UnitPiece,
	"clove": UnitClove, "cloves": UnitClove,
	"slice": UnitSlice, "slices": UnitSlice,
	"can": UnitCan, "cans": UnitCan, "tin": UnitCan, "tins": UnitCan,
	"package": UnitPackage, "packages": UnitPackage, "pkg": UnitPackage, "pack": UnitPackage, "packs": UnitPackage,
	"bunch": UnitBunch, "bunches": UnitBunch,
	"pint": UnitPint, "pints": UnitPint, "pt": UnitPint,
	"quart": UnitQuart, "quarts": UnitQuart, "qt": UnitQuart,
	"gallon": UnitGallon, "gallons": UnitGallon, "gal": UnitGallon,
}

// ParseUnit maps a unit spelling onto the enumeration. Empty input yields
// UnitNone; anything unrecognised is an error.
func ParseUnit(s string) (Unit, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, ".")
	if key == "" {
		return UnitNone, nil
	}
	if u, ok := unitAliases[key]; ok {
		return u, nil
	}
	return UnitNone, fmt.Errorf("unknown unit %q", s)
}

// Valid reports whether u is UnitNone or a member of the enumeration.
func (u Unit) Valid() bool {
	if u == UnitNone {
		return true
	}
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// IsUnitWord reports whether a single lowercase token spells a unit.
func IsUnitWord(token string) bool {
	_, ok := unitAliases[strings.TrimSuffix(token, ".")]
	return ok
}
