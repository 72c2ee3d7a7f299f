// Package clipper imports recipes from web pages. It reads schema.org Recipe
// JSON-LD when the page has it and falls back to common recipe markup.
package clipper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"recipe-box/internal/recipe"
)

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	client *resty.Client
	logger *zap.Logger
}

// ExtractedRecipe is what a page yields before ingredient lines are parsed.
type ExtractedRecipe struct {
	Title       string
	Ingredients []string
	Steps       []string
	PrepTime    string
	Servings    string
	Tags        []string
}

// NewClipper creates a new Clipper instance.
func NewClipper(timeout time.Duration, logger *zap.Logger) *Clipper {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("User-Agent", "recipe-box/1.0 (+recipe clipper)").
		SetHeader("Accept", "text/html,application/xhtml+xml")
	return &Clipper{client: client, logger: logger}
}

// ClipURL fetches url and returns the recipe found there. The recipe is not
// saved; its id is derived from the title.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*recipe.Recipe, error) {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode())
	}

	extracted, err := Extract(resp.Body())
	if err != nil {
		return nil, err
	}

	ingredients, skipped := recipe.ParseIngredientLines(extracted.Ingredients)
	for _, line := range skipped {
		c.logger.Warn("Skipping unparseable ingredient line", zap.String("url", url), zap.String("line", line))
	}

	rec := &recipe.Recipe{
		ID:           recipe.Slug(extracted.Title),
		Title:        extracted.Title,
		Ingredients:  ingredients,
		Instructions: strings.Join(extracted.Steps, "\n"),
		Tags:         extracted.Tags,
		PrepTime:     extracted.PrepTime,
		Servings:     extracted.Servings,
		SourceURL:    url,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("clipped recipe is invalid: %w", err)
	}
	return rec, nil
}

// Extract pulls a recipe out of an HTML document.
func Extract(html []byte) (*ExtractedRecipe, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	extracted := fromJSONLD(doc)
	if extracted == nil {
		extracted = fromMarkup(doc)
	}
	if extracted.Title == "" {
		extracted.Title = clean(doc.Find("h1").First().Text())
	}
	if extracted.Title == "" {
		extracted.Title = clean(doc.Find("title").First().Text())
	}
	if extracted.Title == "" {
		return nil, fmt.Errorf("no recipe title found")
	}
	if len(extracted.Ingredients) == 0 {
		return nil, fmt.Errorf("no ingredients found for %q", extracted.Title)
	}
	return extracted, nil
}

func fromJSONLD(doc *goquery.Document) *ExtractedRecipe {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findRecipeNode(data)
		return found == nil
	})
	if found == nil {
		return nil
	}

	r := &ExtractedRecipe{
		Title:       clean(str(found["name"])),
		Ingredients: strs(found["recipeIngredient"]),
		Steps:       steps(found["recipeInstructions"]),
		PrepTime:    str(found["totalTime"]),
		Servings:    first(strs(found["recipeYield"])),
		Tags:        keywords(found["keywords"]),
	}
	if r.PrepTime == "" {
		r.PrepTime = str(found["prepTime"])
	}
	if len(r.Ingredients) == 0 {
		r.Ingredients = strs(found["ingredients"])
	}
	return r
}

// findRecipeNode walks objects, arrays and @graph containers for a node whose
// @type is or includes "Recipe".
func findRecipeNode(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, el := range v {
			if node := findRecipeNode(el); node != nil {
				return node
			}
		}
	case map[string]any:
		for _, t := range strs(v["@type"]) {
			if t == "Recipe" {
				return v
			}
		}
		if graph, ok := v["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

var (
	ingredientSelectors = `[itemprop="recipeIngredient"], [itemprop="ingredients"], .wprm-recipe-ingredient, .ingredients li, .ingredient-list li`
	stepSelectors       = `[itemprop="recipeInstructions"] li, .wprm-recipe-instruction, .instructions li, .directions li`
)

func fromMarkup(doc *goquery.Document) *ExtractedRecipe {
	doc.Find("script, style, nav, footer, iframe, .ads, #ads").Remove()

	r := &ExtractedRecipe{}
	doc.Find(ingredientSelectors).Each(func(_ int, s *goquery.Selection) {
		if line := clean(s.Text()); line != "" {
			r.Ingredients = append(r.Ingredients, line)
		}
	})
	doc.Find(stepSelectors).Each(func(_ int, s *goquery.Selection) {
		if line := clean(s.Text()); line != "" {
			r.Steps = append(r.Steps, line)
		}
	})
	return r
}

func steps(v any) []string {
	var out []string
	switch s := v.(type) {
	case string:
		for _, line := range strings.Split(s, "\n") {
			if line = clean(line); line != "" {
				out = append(out, line)
			}
		}
	case []any:
		for _, el := range s {
			switch step := el.(type) {
			case string:
				out = append(out, clean(step))
			case map[string]any:
				if items, ok := step["itemListElement"]; ok {
					out = append(out, steps(items)...)
					continue
				}
				if text := clean(str(step["text"])); text != "" {
					out = append(out, text)
				}
			}
		}
	}
	return out
}

func keywords(v any) []string {
	var out []string
	for _, k := range strs(v) {
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return fmt.Sprint(s)
	}
	return ""
}

func strs(v any) []string {
	switch s := v.(type) {
	case []any:
		var out []string
		for _, el := range s {
			if text := clean(str(el)); text != "" {
				out = append(out, text)
			}
		}
		return out
	default:
		if text := clean(str(s)); text != "" {
			return []string{text}
		}
	}
	return nil
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
