// Package storage keeps recipes as hand-editable YAML files in a directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"recipe-box/internal/ingredient"
	"recipe-box/internal/recipe"
)

// RecipeStore provides a file-based storage for recipes, one YAML file each.
type RecipeStore struct {
	basePath string
}

// recipeFile is the on-disk shape of a recipe.
type recipeFile struct {
	ID           string           `yaml:"id,omitempty"`
	Title        string           `yaml:"title"`
	Servings     string           `yaml:"servings,omitempty"`
	PrepTime     string           `yaml:"prep_time,omitempty"`
	Tags         []string         `yaml:"tags,omitempty"`
	SourceURL    string           `yaml:"source_url,omitempty"`
	UpdatedAt    string           `yaml:"updated_at,omitempty"`
	Ingredients  []ingredientLine `yaml:"ingredients"`
	Instructions string           `yaml:"instructions,omitempty"`
}

// ingredientLine reads either a free-text line ("2 cups flour") or a mapping
// with name/quantity/unit, and always writes the free-text form.
type ingredientLine ingredient.Ingredient

func (l *ingredientLine) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		ing, err := ingredient.ParseLine(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*l = ingredientLine(ing)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Name     string   `yaml:"name"`
			Quantity *float64 `yaml:"quantity"`
			Unit     string   `yaml:"unit"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		unit, err := ingredient.ParseUnit(raw.Unit)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*l = ingredientLine{Name: raw.Name, Quantity: raw.Quantity, Unit: unit}
		return nil
	default:
		return fmt.Errorf("line %d: ingredient must be a string or a mapping", node.Line)
	}
}

func (l ingredientLine) MarshalYAML() (any, error) {
	return FormatIngredient(ingredient.Ingredient(l)), nil
}

// FormatIngredient renders an ingredient as a line ParseLine reads back.
func FormatIngredient(ing ingredient.Ingredient) string {
	var parts []string
	if ing.Quantity != nil {
		parts = append(parts, strconv.FormatFloat(*ing.Quantity, 'f', -1, 64))
	}
	if ing.Unit != ingredient.UnitNone {
		parts = append(parts, string(ing.Unit))
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}

// NewRecipeStore creates a new RecipeStore and ensures the base directory exists.
func NewRecipeStore(basePath string) (*RecipeStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &RecipeStore{basePath: basePath}, nil
}

func (s *RecipeStore) path(recipeID string) string {
	return filepath.Join(s.basePath, recipeID+".yaml")
}

// Save writes rec to <id>.yaml, replacing any previous version.
func (s *RecipeStore) Save(rec recipe.Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	f := recipeFile{
		ID:           rec.ID,
		Title:        rec.Title,
		Servings:     rec.Servings,
		PrepTime:     rec.PrepTime,
		Tags:         rec.Tags,
		SourceURL:    rec.SourceURL,
		UpdatedAt:    rec.UpdatedAt,
		Instructions: rec.Instructions,
	}
	for _, ing := range rec.Ingredients {
		f.Ingredients = append(f.Ingredients, ingredientLine(ing))
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

// Load reads the recipe stored under recipeID.
func (s *RecipeStore) Load(recipeID string) (*recipe.Recipe, error) {
	return s.loadFile(s.path(recipeID))
}

// Exists checks if a recipe file exists.
func (s *RecipeStore) Exists(recipeID string) bool {
	_, err := os.Stat(s.path(recipeID))
	return !errors.Is(err, os.ErrNotExist)
}

// Remove deletes a recipe file. Removing a missing recipe is not an error.
func (s *RecipeStore) Remove(recipeID string) error {
	if err := os.Remove(s.path(recipeID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove recipe file: %w", err)
	}
	return nil
}

// ListAll loads every *.yaml and *.yml file in the directory, sorted by file
// name. Files that fail to load are reported in errs and skipped.
func (s *RecipeStore) ListAll() (recipes []recipe.Recipe, errs []error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(s.basePath, pattern))
		if err != nil {
			return nil, []error{fmt.Errorf("failed to glob recipe files: %w", err)}
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rec, err := s.loadFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recipes = append(recipes, *rec)
	}
	return recipes, errs
}

func (s *RecipeStore) loadFile(path string) (*recipe.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	var f recipeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	rec := recipe.Recipe{
		ID:           f.ID,
		Title:        f.Title,
		Instructions: f.Instructions,
		Tags:         f.Tags,
		PrepTime:     f.PrepTime,
		Servings:     f.Servings,
		SourceURL:    f.SourceURL,
		UpdatedAt:    f.UpdatedAt,
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for _, l := range f.Ingredients {
		rec.Ingredients = append(rec.Ingredients, ingredient.Ingredient(l))
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe in %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
