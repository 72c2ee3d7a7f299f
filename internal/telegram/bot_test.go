package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/internal/database"
	"recipe-box/internal/ingredient"
	"recipe-box/internal/metrics"
	"recipe-box/internal/planner"
	"recipe-box/internal/recipe"
	"recipe-box/internal/shopping"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

type fakeClipper struct{}

func (fakeClipper) ClipURL(_ context.Context, url string) (*recipe.Recipe, error) {
	if strings.Contains(url, "broken") {
		return nil, errors.New("failed to fetch URL: status 404")
	}
	return &recipe.Recipe{
		ID:          "green-salad",
		Title:       "Green Salad",
		Ingredients: []ingredient.Ingredient{{Name: "lettuce", Quantity: ingredient.Qty(1)}},
		SourceURL:   url,
	}, nil
}

const allowedUser = 42

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	recipes := recipe.NewRepository(db.SQL, nil)
	require.NoError(t, recipes.Save(ctx, recipe.Recipe{
		ID:    "pancakes",
		Title: "Pancakes",
		Ingredients: []ingredient.Ingredient{
			{Name: "eggs", Quantity: ingredient.Qty(2)},
			{Name: "flour", Quantity: ingredient.Qty(1), Unit: ingredient.UnitCup},
		},
	}))

	orch := planner.NewOrchestrator("week", recipes, planner.NewPlanRepository(db.SQL),
		shopping.NewAggregator(shopping.NewRepository(db.SQL)))
	out := &fakeSender{}
	b := newBot(out, Deps{
		Planner:        orch,
		Clipper:        fakeClipper{},
		Recipes:        recipes,
		Metrics:        metrics.NewStore(db.SQL),
		AllowedUserIDs: []int64{allowedUser},
	})
	return b, out
}

func message(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from, UserName: "cook"},
		Chat: &tgbotapi.Chat{ID: 7},
		Text: text,
	}}
}

func TestHandleUpdateChecksAllowedUsers(t *testing.T) {
	b, out := newTestBot(t)

	b.handleUpdate(context.Background(), message(999, "/list"))
	assert.Empty(t, out.sent)

	b.handleUpdate(context.Background(), message(allowedUser, "/list"))
	require.Len(t, out.sent, 1)
	assert.Equal(t, int64(7), out.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, out.sent[0].ParseMode)
	assert.Contains(t, out.sent[0].Text, "Nothing to buy yet")
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	reply := b.respond(ctx, "/add Pancakes | Monday")
	assert.Contains(t, reply, "1. *Pancakes* (Monday)")

	reply = b.respond(ctx, "/list")
	assert.Contains(t, reply, "(0/2 checked)")
	assert.Contains(t, reply, "*Dairy*\n1. ☐ egg (2)")
	assert.Contains(t, reply, "2. ☐ flour (1 cup)")

	reply = b.respond(ctx, "/check 1")
	assert.Contains(t, reply, "1. ☑ egg (2)")

	reply = b.respond(ctx, "/check 9")
	assert.Contains(t, reply, "between 1 and 2")

	reply = b.respond(ctx, "/buy 2 packs paper towels")
	assert.Contains(t, reply, "3. ☐ paper towel (2 package)")

	reply = b.respond(ctx, "/done")
	assert.Contains(t, reply, "(0/2 checked)")

	reply = b.respond(ctx, "/plan@recipe_box_bot")
	assert.Contains(t, reply, "*Pancakes*")

	reply = b.respond(ctx, "/remove pancakes")
	assert.Contains(t, reply, "Nothing planned yet")

	reply = b.respond(ctx, "/list")
	assert.Contains(t, reply, "1. ☐ paper towel")
}

func TestRetryAndErrors(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	assert.Equal(t, "Nothing to retry.", b.respond(ctx, "/retry"))

	reply := b.respond(ctx, "/add lasagna")
	assert.True(t, strings.HasPrefix(reply, "🤷"), reply)

	reply = b.respond(ctx, "/retry")
	assert.True(t, strings.HasPrefix(reply, "🤷"), reply)

	require.Contains(t, b.respond(ctx, "/add pancakes"), "Pancakes")
	assert.Equal(t, "Nothing to retry.", b.respond(ctx, "/retry"))

	assert.Contains(t, b.respond(ctx, "/add"), "Usage")
	assert.Contains(t, b.respond(ctx, "/buy"), "Usage")
	assert.Equal(t, helpText, b.respond(ctx, "hello"))
}

func TestClipAndMetrics(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	reply := b.respond(ctx, "https://example.com/green-salad")
	assert.Contains(t, reply, "Recipe Saved")
	assert.Contains(t, b.respond(ctx, "/add Green Salad"), "*Green Salad*")

	reply = b.respond(ctx, "https://example.com/broken")
	assert.Contains(t, reply, "status 404")

	reply = b.respond(ctx, "/metrics")
	assert.Contains(t, reply, "System Health")
	assert.Contains(t, reply, "_No data yet_")
}

func TestFormatListMarkdownEscapes(t *testing.T) {
	sections := shopping.GroupSections([]shopping.Item{
		{ID: "1", Name: "hot_sauce", Category: shopping.CategoryPantry},
	})
	out := formatListMarkdown(sections, shopping.CountItems([]shopping.Item{{}}))
	assert.Contains(t, out, `hot\_sauce`)
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/List@recipe_box_bot   2 ")
	assert.Equal(t, "/list", cmd)
	assert.Equal(t, "2", args)
}
