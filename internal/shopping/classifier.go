package shopping

import (
	"strings"

	"recipe-box/internal/ingredient"
)

type categoryTable struct {
	category Category
	// phrases match the whole normalized name.
	phrases map[string]struct{}
	// words match single tokens.
	words map[string]struct{}
}

// Tables are checked in this order; the first hit wins. Pantry sits before
// Meat & Seafood and Dairy so that "chicken broth" and "peanut butter" land in
// Pantry during the exact phase.
var categoryTables = []categoryTable{
	{
		category: CategoryFrozen,
		phrases: set(
			"ice cream", "frozen yogurt", "frozen pizza", "frozen dinner", "frozen vegetable",
			"frozen fruit", "frozen pea", "frozen corn", "tater tot", "fish stick", "ice",
		),
		words: set("sorbet", "gelato", "popsicle", "sherbet"),
	},
	{
		category: CategoryPantry,
		phrases: set(
			"olive oil", "extra virgin olive oil", "vegetable oil", "canola oil", "sesame oil", "coconut oil",
			"soy sauce", "fish sauce", "hot sauce", "worcestershire sauce", "tomato sauce", "tomato paste",
			"baking powder", "baking soda", "brown sugar", "powdered sugar", "granulated sugar",
			"all-purpose flour", "all purpose flour", "whole wheat flour", "bread flour", "cake flour",
			"chicken broth", "beef broth", "vegetable broth", "chicken stock", "beef stock", "vegetable stock",
			"apple cider vinegar", "balsamic vinegar", "red wine vinegar", "rice vinegar", "white vinegar",
			"peanut butter", "maple syrup", "coconut milk", "black pepper", "sun dried tomato",
			"chocolate chip", "vanilla extract", "canned tomato",
		),
		words: set(
			"salt", "pepper", "sugar", "flour", "oil", "vinegar", "rice", "pasta", "spaghetti", "noodle",
			"oat", "bean", "lentil", "chickpea", "quinoa", "broth", "stock", "sauce", "ketchup", "mustard",
			"mayonnaise", "honey", "syrup", "cumin", "paprika", "cinnamon", "oregano", "nutmeg", "turmeric",
			"vanilla", "yeast", "cornstarch", "cocoa", "chocolate", "almond", "walnut", "pecan", "cashew",
			"peanut", "raisin", "cereal", "cracker", "pesto", "salsa", "jam", "coffee", "tea", "molasses",
		),
	},
	{
		category: CategoryDairy,
		phrases: set(
			"cream cheese", "cottage cheese", "sour cream", "heavy cream", "whipping cream",
			"half and half", "parmesan cheese", "cheddar cheese", "mozzarella cheese", "feta cheese",
			"goat cheese", "ricotta cheese", "swiss cheese", "blue cheese", "greek yogurt",
		),
		words: set(
			"milk", "butter", "cheese", "yogurt", "cream", "egg", "parmesan", "cheddar", "mozzarella",
			"feta", "ricotta", "buttermilk", "ghee",
		),
	},
	{
		category: CategoryMeat,
		phrases: set(
			"ground beef", "ground turkey", "ground pork", "chicken breast", "chicken thigh",
			"pork chop", "deli meat", "hot dog",
		),
		words: set(
			"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak", "lamb", "veal",
			"salmon", "shrimp", "prawn", "tuna", "cod", "tilapia", "fish", "crab", "lobster", "scallop",
			"mussel", "clam", "anchovy", "chorizo", "prosciutto", "breast", "thigh", "drumstick",
		),
	},
	{
		category: CategoryProduce,
		phrases:  set("green bean", "bell pepper", "green onion", "spring onion", "sweet potato"),
		words: set(
			"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato", "onion",
			"garlic", "shallot", "lettuce", "spinach", "kale", "arugula", "broccoli", "cauliflower",
			"carrot", "celery", "cucumber", "zucchini", "eggplant", "mushroom", "corn", "pea", "grape",
			"strawberry", "blueberry", "raspberry", "berry", "cherry", "watermelon", "pineapple", "mango",
			"peach", "pear", "plum", "cilantro", "basil", "parsley", "mint", "dill", "thyme", "rosemary",
			"sage", "ginger", "jalapeno", "chili", "asparagus", "cabbage", "leek", "radish", "beet",
			"squash", "pumpkin", "herb", "scallion", "leaf",
		),
	},
	{
		category: CategoryBakery,
		phrases:  set("pita bread", "hamburger bun", "hot dog bun", "pie crust", "pizza dough"),
		words: set(
			"bread", "bagel", "baguette", "tortilla", "roll", "bun", "croissant", "muffin", "brioche",
			"loaf", "pita", "naan", "sourdough", "ciabatta", "focaccia",
		),
	},
}

// Classify maps a normalized ingredient name to a store section. It never
// fails; names no table recognises land in Other.
func Classify(name string) Category {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryOther
	}
	base := ingredient.ExtractBaseIngredient(name)
	tokens := strings.Fields(base)
	if len(tokens) == 0 {
		return CategoryOther
	}

	// Exact name.
	for _, t := range categoryTables {
		if t.hasPhrase(name) || t.hasPhrase(base) {
			return t.category
		}
		if len(tokens) == 1 && t.hasWord(tokens[0]) {
			return t.category
		}
	}

	// Head noun.
	head := tokens[len(tokens)-1]
	for _, t := range categoryTables {
		if t.hasWord(head) {
			return t.category
		}
	}

	// Any token.
	for _, t := range categoryTables {
		for _, tok := range tokens {
			if t.hasWord(tok) {
				return t.category
			}
		}
	}
	return CategoryOther
}

func (t categoryTable) hasPhrase(s string) bool {
	_, ok := t.phrases[s]
	return ok
}

func (t categoryTable) hasWord(s string) bool {
	_, ok := t.words[s]
	return ok
}

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
