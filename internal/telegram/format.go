package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recipe-box/internal/metrics"
	"recipe-box/internal/planner"
	"recipe-box/internal/shopping"
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// numbered flattens sections into the order items are shown, so /check N
// refers to the Nth line of the last /list reply.
func numbered(sections []shopping.Section) []shopping.Item {
	var items []shopping.Item
	for _, sec := range sections {
		items = append(items, sec.Items...)
	}
	return items
}

func formatAmount(it shopping.Item) string {
	var parts []string
	if it.Quantity != nil {
		parts = append(parts, strconv.FormatFloat(*it.Quantity, 'f', -1, 64))
	}
	if it.Unit != "" {
		parts = append(parts, string(it.Unit))
	}
	return strings.Join(parts, " ")
}

func formatListMarkdown(sections []shopping.Section, counts shopping.Counts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 *Shopping List* (%d/%d checked)\n", counts.Checked, counts.Total)
	if counts.Total == 0 {
		sb.WriteString("\n_Nothing to buy yet_\n")
		return sb.String()
	}

	n := 1
	for _, sec := range sections {
		fmt.Fprintf(&sb, "\n*%s*\n", esc(string(sec.Category)))
		for _, it := range sec.Items {
			box := "☐"
			if it.Checked {
				box = "☑"
			}
			fmt.Fprintf(&sb, "%d. %s %s", n, box, esc(it.Name))
			if amount := formatAmount(it); amount != "" {
				fmt.Fprintf(&sb, " (%s)", esc(amount))
			}
			sb.WriteString("\n")
			n++
		}
	}
	return sb.String()
}

func formatPlanMarkdown(entries []planner.Entry) string {
	var sb strings.Builder
	sb.WriteString("📅 *Meal Plan*\n\n")
	if len(entries) == 0 {
		sb.WriteString("_Nothing planned yet_\n")
		return sb.String()
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. *%s*", i+1, esc(e.RecipeTitle))
		if e.Day != "" {
			fmt.Fprintf(&sb, " (%s)", esc(e.Day))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatMetricsMarkdown(days []metrics.DailySummary, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(days) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range days {
		fmt.Fprintf(&sb, "• *%s*: %d ops, %d errors, %d items (avg %.0fms)\n",
			d.Date, d.Operations, d.Errors, d.ItemsTouched, d.AvgLatencyMS)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func formatError(msg string) string {
	safeErr := strings.ReplaceAll(msg, "`", "'")
	return fmt.Sprintf("❌ *Something went wrong:*\n```\n%s\n```\nSend /retry to try again.", safeErr)
}

const helpText = `*Commands*
/list - show the shopping list
/plan - show the meal plan
/add <recipe> | <day> - plan a recipe (day optional)
/remove <recipe> - take a recipe off the plan
/clear - empty the meal plan
/buy <item> - add an item, e.g. /buy 2 packs paper towels
/check <n> - tick item n of the list
/done - remove ticked items
/retry - retry the last failed action
/metrics - usage and health
Send a recipe URL to save it.`
