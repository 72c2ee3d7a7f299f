package ingredient

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var vulgarFractions = strings.NewReplacer(
	"½", " 1/2", "⅓", " 1/3", "⅔", " 2/3", "¼", " 1/4", "¾", " 3/4",
	"⅛", " 1/8", "⅜", " 3/8", "⅝", " 5/8", "⅞", " 7/8",
)

// numberWithUnit matches tokens like "200g" or "1.5kg".
var numberWithUnit = regexp.MustCompile(`^(\d+(?:\.\d+)?)([a-z]+)$`)

// ParseLine turns a free-text recipe line such as "2 ½ cups flour, sifted"
// into an Ingredient. The name keeps its raw text; normalization happens when
// the ingredient reaches the shopping list.
func ParseLine(line string) (Ingredient, error) {
	s := strings.TrimSpace(vulgarFractions.Replace(line))
	s = strings.TrimLeft(s, "-*•· \t")
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return Ingredient{}, fmt.Errorf("empty ingredient line")
	}

	var qty *float64
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if m := numberWithUnit.FindStringSubmatch(strings.ToLower(tok)); m != nil && IsUnitWord(m[2]) {
			v, _ := strconv.ParseFloat(m[1], 64)
			qty = addQty(qty, v)
			// Split the glued unit back out so the unit step below sees it.
			tokens = append(tokens[:i], append([]string{m[2]}, tokens[i+1:]...)...)
			break
		}
		v, ok := parseNumber(tok)
		if !ok {
			break
		}
		qty = addQty(qty, v)
		i++
	}
	if qty == nil && i < len(tokens)-1 {
		if lower := strings.ToLower(tokens[i]); (lower == "a" || lower == "an") && IsUnitWord(strings.ToLower(tokens[i+1])) {
			qty = Qty(1)
			i++
		}
	}

	unit := UnitNone
	if i < len(tokens) {
		if i+1 < len(tokens) {
			if u, err := ParseUnit(tokens[i] + " " + tokens[i+1]); err == nil && u != UnitNone {
				unit = u
				i += 2
			}
		}
		if unit == UnitNone {
			if u, err := ParseUnit(tokens[i]); err == nil && u != UnitNone && i+1 < len(tokens) {
				unit = u
				i++
			}
		}
	}
	if i < len(tokens) && strings.EqualFold(tokens[i], "of") {
		i++
	}

	name := strings.TrimSpace(strings.Join(tokens[i:], " "))
	if name == "" {
		return Ingredient{}, fmt.Errorf("ingredient line %q has no name", line)
	}
	ing := Ingredient{Name: name, Quantity: qty, Unit: unit}
	if err := ing.Validate(); err != nil {
		return Ingredient{}, err
	}
	return ing, nil
}

// parseNumber understands integers, decimals, simple fractions and ranges
// ("1-2" counts as the lower bound).
func parseNumber(tok string) (float64, bool) {
	tok = strings.ReplaceAll(tok, "⁄", "/")
	// Rejects words ParseFloat would accept, such as "nan" or "inf".
	if tok == "" || !strings.ContainsAny(tok[:1], "0123456789.") {
		return 0, false
	}
	if lo, _, found := strings.Cut(tok, "-"); found && lo != "" {
		tok = lo
	}
	if num, den, found := strings.Cut(tok, "/"); found {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func addQty(q *float64, v float64) *float64 {
	if q == nil {
		return Qty(v)
	}
	return Qty(*q + v)
}
