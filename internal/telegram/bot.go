package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"recipe-box/internal/ingredient"
	"recipe-box/internal/metrics"
	"recipe-box/internal/planner"
	"recipe-box/internal/recipe"
)

// Clipper imports a recipe from a URL.
type Clipper interface {
	ClipURL(ctx context.Context, url string) (*recipe.Recipe, error)
}

// RecipeSaver stores clipped recipes.
type RecipeSaver interface {
	Save(ctx context.Context, rec recipe.Recipe) error
}

// MetricsReader reports recent activity for /metrics.
type MetricsReader interface {
	GetDailySummary(ctx context.Context, days int) ([]metrics.DailySummary, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Deps are the bot's collaborators.
type Deps struct {
	Planner        *planner.Orchestrator
	Clipper        Clipper
	Recipes        RecipeSaver
	Metrics        MetricsReader
	DataPaths      []string
	AllowedUserIDs []int64
	Logger         *zap.Logger
}

// Bot wraps the Telegram API, the planner and the clipper.
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	deps    Deps
	allowed map[int64]bool
	logger  *zap.Logger
}

// NewBot initializes the Telegram Bot. When webhookURL is set the webhook is
// registered; otherwise any existing webhook is removed so Run can poll.
func NewBot(token, webhookURL string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	b := newBot(api, deps)
	b.logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	if webhookURL != "" {
		wh, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
		}
		b.logger.Info("Webhook set", zap.String("description", resp.Description))
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("failed to remove webhook: %w", err)
	}
	return b, nil
}

func newBot(out sender, deps Deps) *Bot {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	b := &Bot{
		out:     out,
		deps:    deps,
		allowed: make(map[int64]bool, len(deps.AllowedUserIDs)),
		logger:  deps.Logger,
	}
	if api, ok := out.(*tgbotapi.BotAPI); ok {
		b.api = api
	}
	for _, id := range deps.AllowedUserIDs {
		b.allowed[id] = true
	}
	return b
}

// RegisterHandlers registers the webhook handler on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("Error parsing update", zap.Error(err))
		return
	}
	go b.handleUpdate(context.Background(), *update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed[msg.From.ID] {
		b.logger.Warn("Unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))
		return
	}
	b.processMessage(ctx, msg)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.respond(ctx, msg.Text))
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.out.Send(reply); err != nil {
		b.logger.Warn("Failed to send reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// respond runs the command in text and returns the Markdown reply.
func (b *Bot) respond(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return b.clip(ctx, text)
	}

	cmd, args := parseCommand(text)
	p := b.deps.Planner
	switch cmd {
	case "/list":
		if err := p.Refresh(ctx); err != nil {
			return formatError(err.Error())
		}
		return formatListMarkdown(p.Sections(), p.Counts())
	case "/plan":
		if err := p.Refresh(ctx); err != nil {
			return formatError(err.Error())
		}
		return formatPlanMarkdown(p.State().Entries)
	case "/add":
		name, day, _ := strings.Cut(args, "|")
		if strings.TrimSpace(name) == "" {
			return "Usage: /add <recipe> | <day>"
		}
		if err := p.RecipeAdded(ctx, strings.TrimSpace(name), strings.TrimSpace(day)); err != nil {
			return b.failure(err)
		}
		return formatPlanMarkdown(p.State().Entries)
	case "/remove":
		if args == "" {
			return "Usage: /remove <recipe>"
		}
		if err := p.RecipeRemoved(ctx, args); err != nil {
			return b.failure(err)
		}
		return formatPlanMarkdown(p.State().Entries)
	case "/clear":
		if err := p.ClearAll(ctx); err != nil {
			return b.failure(err)
		}
		return formatPlanMarkdown(p.State().Entries)
	case "/buy":
		ing, err := ingredient.ParseLine(args)
		if err != nil {
			return "Usage: /buy <item>, e.g. /buy 2 packs paper towels"
		}
		if err := p.AddManualItem(ctx, ing.Name, ing.Quantity, ing.Unit); err != nil {
			return b.failure(err)
		}
		return formatListMarkdown(p.Sections(), p.Counts())
	case "/check":
		n, err := strconv.Atoi(args)
		items := numbered(p.Sections())
		if err != nil || n < 1 || n > len(items) {
			return fmt.Sprintf("Usage: /check <n>, where n is between 1 and %d", len(items))
		}
		if err := p.ToggleItem(ctx, items[n-1].ID); err != nil {
			return b.failure(err)
		}
		return formatListMarkdown(p.Sections(), p.Counts())
	case "/done":
		if err := p.ClearChecked(ctx); err != nil {
			return b.failure(err)
		}
		return formatListMarkdown(p.Sections(), p.Counts())
	case "/retry":
		if err := p.RetryLastOperation(ctx); err != nil {
			if errors.Is(err, planner.ErrNothingToRetry) {
				return "Nothing to retry."
			}
			return b.failure(err)
		}
		return "✅ Done.\n\n" + formatListMarkdown(p.Sections(), p.Counts())
	case "/metrics":
		return b.metricsReport(ctx)
	default:
		return helpText
	}
}

func (b *Bot) failure(err error) string {
	if errors.Is(err, planner.ErrRecipeNotFound) {
		return "🤷 " + esc(err.Error())
	}
	return formatError(err.Error())
}

func (b *Bot) clip(ctx context.Context, url string) string {
	if b.deps.Clipper == nil || b.deps.Recipes == nil {
		return "Recipe clipping is not enabled."
	}
	rec, err := b.deps.Clipper.ClipURL(ctx, url)
	if err != nil {
		b.logger.Warn("Error clipping recipe", zap.String("url", url), zap.Error(err))
		return formatError(err.Error())
	}
	if err := b.deps.Recipes.Save(ctx, *rec); err != nil {
		return formatError(err.Error())
	}
	return fmt.Sprintf("✅ *Recipe Saved!*\n\n*Title:* %s\n*Ingredients:* %d\n\nSend /add %s to plan it.",
		esc(rec.Title), len(rec.Ingredients), esc(rec.Title))
}

func (b *Bot) metricsReport(ctx context.Context) string {
	var days []metrics.DailySummary
	if b.deps.Metrics != nil {
		var err error
		days, err = b.deps.Metrics.GetDailySummary(ctx, 7)
		if err != nil {
			return "❌ Error fetching metrics."
		}
	}
	return formatMetricsMarkdown(days, metrics.GetSysHealth(b.deps.DataPaths...))
}

// parseCommand splits "/cmd@bot args" into "/cmd" and "args".
func parseCommand(text string) (cmd, args string) {
	cmd, args, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}
