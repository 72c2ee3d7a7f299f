package clipper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/internal/ingredient"
)

const jsonLDPage = `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"WebSite","name":"Food Blog"}</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"BreadcrumbList"},
  {"@type":["Recipe","NewsArticle"],
   "name":"Lemon  Pasta",
   "recipeYield":["4","4 servings"],
   "totalTime":"PT25M",
   "keywords":"quick, weeknight",
   "recipeIngredient":["200g spaghetti","2 tbsp olive oil","1 lemon","a pinch of salt"],
   "recipeInstructions":[{"@type":"HowToStep","text":"Boil pasta."},{"@type":"HowToSection","itemListElement":[{"@type":"HowToStep","text":"Toss with lemon."}]}]}
]}
</script></head>
<body><h1>Ignored heading</h1></body></html>`

const markupPage = `<html><head><title>Tomato Soup | Blog</title><script>track()</script></head>
<body>
  <h1>Tomato   Soup</h1>
  <ul class="ingredients">
    <li>4 tomatoes</li>
    <li>1 cup vegetable broth</li>
    <li>   </li>
  </ul>
  <ol class="instructions"><li>Simmer everything.</li></ol>
  <footer><ul class="ingredients"><li>should be gone</li></ul></footer>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lemon-pasta", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jsonLDPage))
	})
	mux.HandleFunc("/tomato-soup", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(markupPage))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>About us</h1><p>No recipes here.</p></body></html>`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClipURLFromJSONLD(t *testing.T) {
	ts := newServer(t)
	c := NewClipper(5*time.Second, nil)

	rec, err := c.ClipURL(context.Background(), ts.URL+"/lemon-pasta")
	require.NoError(t, err)

	assert.Equal(t, "lemon-pasta", rec.ID)
	assert.Equal(t, "Lemon Pasta", rec.Title)
	assert.Equal(t, "4", rec.Servings)
	assert.Equal(t, "PT25M", rec.PrepTime)
	assert.Equal(t, []string{"quick", "weeknight"}, rec.Tags)
	assert.Equal(t, "Boil pasta.\nToss with lemon.", rec.Instructions)
	assert.Equal(t, ts.URL+"/lemon-pasta", rec.SourceURL)

	require.Len(t, rec.Ingredients, 4)
	assert.Equal(t, ingredient.Ingredient{Name: "spaghetti", Quantity: ingredient.Qty(200), Unit: ingredient.UnitG}, rec.Ingredients[0])
	assert.Equal(t, ingredient.UnitTbsp, rec.Ingredients[1].Unit)
	assert.Equal(t, "olive oil", rec.Ingredients[1].Name)
	assert.Equal(t, "lemon", rec.Ingredients[2].Name)
	assert.Equal(t, ingredient.UnitPinch, rec.Ingredients[3].Unit)
	assert.Equal(t, "salt", rec.Ingredients[3].Name)
}

func TestClipURLFromMarkup(t *testing.T) {
	ts := newServer(t)
	c := NewClipper(5*time.Second, nil)

	rec, err := c.ClipURL(context.Background(), ts.URL+"/tomato-soup")
	require.NoError(t, err)

	assert.Equal(t, "tomato-soup", rec.ID)
	assert.Equal(t, "Tomato Soup", rec.Title)
	assert.Equal(t, "Simmer everything.", rec.Instructions)
	require.Len(t, rec.Ingredients, 2)
	assert.Equal(t, "tomatoes", rec.Ingredients[0].Name)
	assert.Equal(t, ingredient.UnitCup, rec.Ingredients[1].Unit)
}

func TestClipURLErrors(t *testing.T) {
	ts := newServer(t)
	c := NewClipper(5*time.Second, nil)

	t.Run("NotFound", func(t *testing.T) {
		_, err := c.ClipURL(context.Background(), ts.URL+"/missing")
		assert.ErrorContains(t, err, "status 404")
	})

	t.Run("NoIngredients", func(t *testing.T) {
		_, err := c.ClipURL(context.Background(), ts.URL+"/about")
		assert.ErrorContains(t, err, "no ingredients")
	})
}
