package telegram

import (
	"fmt"
	"strings"

	"diet-planner/internal/app"
	"diet-planner/internal/planner"
	"diet-planner/internal/profile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen stays under Telegram's 4096 character limit.
const maxMessageLen = 4000

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func slotTitle(slot string) string {
	words := strings.Split(slot, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func pct(v float64) int { return int(v*100 + 0.5) }

// formatPlan renders a plan as Markdown, one block per day.
func formatPlan(plan *planner.MealPlan) string {
	if plan.Failed() {
		return fmt.Sprintf("❌ *Could not generate a plan:* %s", esc(plan.Error))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 *%d-day meal plan*\n", len(plan.Days))
	t := plan.Targets
	fmt.Fprintf(&sb, "🎯 Target: %d kcal · carbs %d%% · protein %d%% · fat %d%%\n",
		t.DailyCalories, pct(t.Carb), pct(t.Protein), pct(t.Fat))
	if plan.ClusterName != "" {
		fmt.Fprintf(&sb, "👥 Profile: %s\n", esc(plan.ClusterName))
	}
	if plan.Relaxed {
		sb.WriteString("_Some preferences were relaxed to find enough recipes._\n")
	}

	for _, day := range plan.Days {
		fmt.Fprintf(&sb, "\n*Day %d*\n", day.Day)
		for _, m := range day.Meals {
			if !m.Filled() {
				fmt.Fprintf(&sb, "• %s: _%s_\n", slotTitle(m.Slot), planner.NoRecipe)
				continue
			}
			fmt.Fprintf(&sb, "• %s: %s (%.0f kcal)\n", slotTitle(m.Slot), esc(m.Recipe.Name), m.Recipe.Nutrition.Calories)
		}
		fmt.Fprintf(&sb, "Total: %.0f kcal\n", day.Totals.Calories)
	}

	if o := plan.Overall; o != nil {
		fmt.Fprintf(&sb, "\n📈 Average: %.0f kcal/day\n", o.AvgDailyCalories)
	}
	return sb.String()
}

// formatReport renders the analysis of the latest plan.
func formatReport(r app.PlanReport) string {
	a, c := r.Analysis, r.Comparison

	var sb strings.Builder
	sb.WriteString("🔎 *Plan analysis*\n\n")
	fmt.Fprintf(&sb, "• Days: %d, meals: %d, unique recipes: %d\n", a.Days, a.TotalMeals, a.UniqueRecipes)
	fmt.Fprintf(&sb, "• Calories: %.0f kcal/day (target %d, %+.1f%%)\n", a.AvgCalories, c.TargetCalories, c.CalorieDeltaPct)
	fmt.Fprintf(&sb, "• Protein %.1f%% · Carbs %.1f%% · Fat %.1f%%\n", a.ProteinPercent, a.CarbsPercent, a.FatPercent)
	fmt.Fprintf(&sb, "• Sodium: %.0f mg/day, fiber: %.1f g/day\n", a.AvgSodium, a.AvgFiber)
	fmt.Fprintf(&sb, "• Variety: %.1f%%, coverage: %.1f%%\n", a.VarietyScore, a.MealCoverage)
	if c.WithinCalorieBand {
		sb.WriteString("\n✅ Calories are on target.")
	} else {
		sb.WriteString("\n⚠️ Calories are off target.")
	}
	return sb.String()
}

// formatProfile lists the stored profile with its derived summary.
func formatProfile(p profile.UserProfile) string {
	var sb strings.Builder
	sb.WriteString("👤 *Your profile*\n\n")
	for _, line := range profile.Summary(p) {
		fmt.Fprintf(&sb, "• %s\n", esc(line))
	}
	return sb.String()
}

// formatMetrics renders the admin usage report.
func formatMetrics(m app.MetricsReport) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(m.Usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range m.Usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🍽 *Meal Plans*\n")
	fmt.Fprintf(&sb, "• Generated: %d (failed %d, relaxed %d)\n", m.Plans.Total, m.Plans.Failed, m.Plans.Relaxed)
	fmt.Fprintf(&sb, "• Avg latency: %.0f ms\n", m.Plans.AvgLatencyMS)
	fmt.Fprintf(&sb, "• Stored recipes: %d\n", m.Recipes)

	h := m.Health
	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", h.AllocMB, h.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", h.Goroutines)
	fmt.Fprintf(&sb, "• Uptime: %s\n", h.Uptime)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", h.DataDiskSize)
	return sb.String()
}

const helpText = `🥗 *Diet planner*

/profile - show your profile
/profile key=value ... - update it, e.g. ` + "`/profile weight=72 diet_type=Vegetarian`" + `
/plan [days] - generate a meal plan
/analyze - analyze your latest plan
/shopping - shopping list for your latest plan

Send a link to a recipe page to add it to your recipes.`

// splitMessage cuts text at line breaks into chunks Telegram accepts.
func splitMessage(text string) []string {
	if len(text) <= maxMessageLen {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > maxMessageLen {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:maxMessageLen])
			line = line[maxMessageLen:]
		}
		if cur.Len()+len(line) > maxMessageLen {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
