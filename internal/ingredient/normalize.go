package ingredient

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var parenthetical = regexp.MustCompile(`\([^()]*\)`)

// protectedPhrases are compound names that must survive descriptor stripping
// as a whole ("sun dried tomato" keeps its "dried").
var protectedPhrases = phraseList(
	"olive oil", "extra virgin olive oil", "vegetable oil", "canola oil", "sesame oil", "coconut oil",
	"soy sauce", "fish sauce", "hot sauce", "worcestershire sauce", "tomato sauce",
	"baking powder", "baking soda",
	"brown sugar", "powdered sugar", "granulated sugar", "cane sugar",
	"cream cheese", "cottage cheese", "parmesan cheese", "cheddar cheese", "mozzarella cheese",
	"feta cheese", "goat cheese", "ricotta cheese", "swiss cheese", "blue cheese",
	"all-purpose flour", "all purpose flour", "whole wheat flour", "bread flour", "cake flour",
	"almond flour", "rice flour", "self-rising flour",
	"chicken broth", "beef broth", "vegetable broth", "bone broth",
	"chicken stock", "beef stock", "vegetable stock", "fish stock",
	"apple cider vinegar", "balsamic vinegar", "red wine vinegar", "white wine vinegar",
	"rice vinegar", "white vinegar", "sherry vinegar",
	"sour cream", "heavy cream", "whipping cream", "ice cream",
	"sun dried tomato", "frozen yogurt", "cold brew", "small batch",
	"peanut butter", "maple syrup", "coconut milk",
)

// descriptorPhrases are modifiers removed from a name when they are not part
// of a protected phrase.
var descriptorPhrases = phraseList(
	"fresh", "freshly", "dried", "frozen",
	"chopped", "minced", "diced", "sliced", "finely", "roughly", "coarsely", "thinly",
	"large", "extra-large", "medium", "small",
	"cold", "melted", "softened", "room temperature",
)

var irregularPlurals = map[string]string{
	"leaves":   "leaf",
	"loaves":   "loaf",
	"halves":   "half",
	"knives":   "knife",
	"berries":  "berry",
	"cherries": "cherry",
	"cookies":  "cookie",
	"brownies": "brownie",
	"veggies":  "veggie",
	"pies":     "pie",
	"quiches":  "quiche",
	"brioches": "brioche",
	"mousses":  "mousse",
	"potatoes": "potato",
	"tomatoes": "tomato",
}

// pluralExceptions end in "s" without being plurals.
var pluralExceptions = map[string]struct{}{
	"molasses": {},
	"species":  {},
	"series":   {},
	"brussels": {},
	"schnapps": {},
	"grits":    {},
	"swiss":    {},
}

// Normalize canonicalizes an ingredient name into the key used to decide
// whether two ingredients are the same shopping-list entry. It never fails and
// is idempotent.
func Normalize(raw string) string {
	s := fold(raw)
	// Every pass that changes s makes it shorter, so this reaches a fixed point.
	for {
		next := normalizeFolded(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeFolded(s string) string {
	if s == "" || len([]rune(s)) == 1 {
		return s
	}

	tokens := strings.Split(s, " ")
	if onlyQuantities(tokens) {
		return s
	}

	protected := markProtected(tokens)
	tokens = stripDescriptors(tokens, protected)
	last := len(tokens) - 1
	tokens[last] = Singular(tokens[last])
	return strings.Join(tokens, " ")
}

// Similar reports whether two ingredient names normalize to the same key.
func Similar(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// ExtractBaseIngredient normalizes raw and then drops leading quantity words
// ("2 cups of", "a handful") so only the head noun phrase remains.
func ExtractBaseIngredient(raw string) string {
	s := Normalize(raw)
	if s == "" {
		return ""
	}
	tokens := strings.Split(s, " ")
	protected := markProtected(tokens)

	i := 0
	for i < len(tokens) && !protected[i] && isQuantityWord(tokens[i]) {
		i++
	}
	if i == len(tokens) {
		return s
	}
	return strings.Join(tokens[i:], " ")
}

// Singular reduces a single plural word to its singular form.
func Singular(word string) string {
	if len(word) <= 3 {
		return word
	}
	if s, ok := irregularPlurals[word]; ok {
		return s
	}
	if _, ok := pluralExceptions[word]; ok {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "oes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "sses"), strings.HasSuffix(word, "xes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

func fold(raw string) string {
	s := strings.ToLower(norm.NFKC.String(raw))
	// transform.Chain is stateful, so each call builds its own.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripAccents, s); err == nil {
		s = folded
	}
	for {
		next := parenthetical.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	s = strings.NewReplacer(",", " ", "(", " ", ")", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func markProtected(tokens []string) []bool {
	protected := make([]bool, len(tokens))
	for i := 0; i < len(tokens); i++ {
		for _, phrase := range protectedPhrases {
			if !matchPhrase(tokens, i, phrase, true) {
				continue
			}
			for j := range phrase {
				protected[i+j] = true
			}
			i += len(phrase) - 1
			break
		}
	}
	return protected
}

func stripDescriptors(tokens []string, protected []bool) []string {
	kept := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if protected[i] {
			kept = append(kept, tokens[i])
			continue
		}
		skip := 0
		for _, phrase := range descriptorPhrases {
			if matchPhrase(tokens, i, phrase, false) && !anyProtected(protected, i, len(phrase)) {
				skip = len(phrase)
				break
			}
		}
		if skip == 0 {
			kept = append(kept, tokens[i])
			continue
		}
		i += skip - 1
	}
	if len(kept) == 0 {
		return tokens
	}
	return kept
}

// matchPhrase reports whether phrase occurs in tokens at position i. When
// pluralTail is set the final token may also be the plural of the phrase end.
func matchPhrase(tokens []string, i int, phrase []string, pluralTail bool) bool {
	if i+len(phrase) > len(tokens) {
		return false
	}
	last := len(phrase) - 1
	for j, want := range phrase {
		got := tokens[i+j]
		if got == want {
			continue
		}
		if pluralTail && j == last && Singular(got) == want {
			continue
		}
		return false
	}
	return true
}

func anyProtected(protected []bool, from, n int) bool {
	for j := from; j < from+n; j++ {
		if protected[j] {
			return true
		}
	}
	return false
}

func onlyQuantities(tokens []string) bool {
	for _, t := range tokens {
		if !isNumeric(t) && !IsUnitWord(t) {
			return false
		}
	}
	return true
}

var countingWords = map[string]struct{}{
	"a": {}, "an": {}, "of": {}, "some": {}, "few": {}, "several": {}, "couple": {},
	"handful": {}, "handfuls": {}, "sprig": {}, "sprigs": {}, "head": {}, "heads": {},
	"stalk": {}, "stalks": {}, "whole": {}, "half": {}, "dozen": {}, "about": {},
	"approximately": {}, "heaping": {}, "level": {}, "scant": {},
}

func isQuantityWord(token string) bool {
	if isNumeric(token) || IsUnitWord(token) {
		return true
	}
	_, ok := countingWords[token]
	return ok
}

func isNumeric(token string) bool {
	hasDigit := false
	for _, r := range token {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '.' || r == '/' || r == '-' || r == '⁄':
		default:
			return false
		}
	}
	return hasDigit
}

func phraseList(phrases ...string) [][]string {
	out := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, strings.Fields(p))
	}
	// Longest phrases first so "extra virgin olive oil" wins over "olive oil".
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
