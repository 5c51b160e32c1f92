package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/recipevoice/internal/domain"
)

// Toggle labels shown above the prompt.
const (
	LabelListening   = "● Listening (Enter to stop)"
	LabelIdle        = "○ Idle (Enter to listen)"
	LabelUnavailable = "✕ Voice unavailable (type your request)"
	LabelWorking     = "… Working"
)

var (
	listeningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fca5a5")).Bold(true)
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#fde68a"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#bbf7d0")).Bold(true)
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#27272a")).Background(lipgloss.Color("#bae6fd"))
	linkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#bae6fd")).Underline(true)
	ruleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52525b"))
)

var nutrientLabels = map[string]string{
	domain.NutrientCalories: "Calories",
	domain.NutrientProtein:  "Protein",
	domain.NutrientCarbs:    "Carbs",
	domain.NutrientFat:      "Fat",
}

var nutrientUnits = map[string]string{
	domain.NutrientCalories: "kcal",
	domain.NutrientProtein:  "g",
	domain.NutrientCarbs:    "g",
	domain.NutrientFat:      "g",
}

// Render draws the whole conversation state. It has no side effects, so
// the same state always renders the same text.
func Render(s domain.State, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(RenderStatus(s))
	b.WriteByte('\n')

	if s.Transcript != "" {
		b.WriteString(secondaryStyle.Render("  You said: "))
		b.WriteString(primaryStyle.Render(fmt.Sprintf("%q", s.Transcript)))
		b.WriteByte('\n')
	}

	if s.Phase == domain.PhaseClarifying && s.Question != "" {
		b.WriteString(secondaryStyle.Render(fmt.Sprintf("  Clarification %d of %d", s.Clarifications, s.ClarificationCap())))
		b.WriteByte('\n')
		b.WriteString(questionStyle.Render("  " + s.Question))
		b.WriteByte('\n')
	}

	if s.Phase == domain.PhasePresenting && s.Searched {
		b.WriteString(renderRecipes(s.Recipes, width, s.Err != ""))
	}

	if s.Err != "" {
		b.WriteString(urgentOutputStyle.Render("  " + s.Err))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderStatus returns the one-line toggle label for s.
func RenderStatus(s domain.State) string {
	switch {
	case s.Listening:
		return listeningStyle.Render(LabelListening)
	case s.CaptureDisabled:
		return idleStyle.Render(LabelUnavailable)
	case s.Busy:
		return idleStyle.Render(LabelWorking)
	default:
		return idleStyle.Render(LabelIdle)
	}
}

func renderRecipes(recipes []domain.Recipe, width int, failed bool) string {
	if len(recipes) == 0 {
		if failed {
			return ""
		}
		return secondaryStyle.Render("  No recipes found. Try describing it differently.") + "\n"
	}

	var b strings.Builder
	for i, r := range recipes {
		b.WriteString(rule(width))
		b.WriteByte('\n')
		b.WriteString(renderCard(i+1, r))
	}
	b.WriteString(rule(width))
	b.WriteByte('\n')
	return b.String()
}

// renderCard draws one recipe: title and source badge, then whatever
// optional details the recipe carries.
func renderCard(n int, r domain.Recipe) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("  %d. %s", n, r.Title)))
	if r.Source != "" {
		b.WriteString("  ")
		b.WriteString(badgeStyle.Render(" " + r.Source + " "))
	}
	b.WriteByte('\n')

	if r.Description != "" {
		b.WriteString(primaryStyle.Render("     " + r.Description))
		b.WriteByte('\n')
	}
	if r.ImageURL != "" {
		b.WriteString(secondaryStyle.Render("     Image: " + r.ImageURL))
		b.WriteByte('\n')
	}

	if r.HasNutrition() {
		for _, key := range domain.Nutrients {
			b.WriteString(primaryStyle.Render("     " + nutritionRow(r, key)))
			b.WriteByte('\n')
		}
	}
	if serving := r.ServingSize.String(); serving != "" {
		b.WriteString(secondaryStyle.Render("     Serving size: " + serving))
		b.WriteByte('\n')
	}
	for _, note := range r.NutritionNotes {
		b.WriteString(secondaryStyle.Render("     Note: " + note))
		b.WriteByte('\n')
	}

	if link := r.Link(); link != "" {
		b.WriteString(secondaryStyle.Render("     View recipe: "))
		b.WriteString(linkStyle.Render(link))
		b.WriteByte('\n')
	}
	return b.String()
}

// nutritionRow renders "Calories: 320 kcal (70% confidence)". Unknown
// amounts read "n/a"; the confidence suffix appears only when present.
func nutritionRow(r domain.Recipe, key string) string {
	amount := "n/a"
	if v := r.Nutrition[key]; v != nil {
		amount = formatAmount(*v) + " " + nutrientUnits[key]
	}
	row := nutrientLabels[key] + ": " + amount
	if c, ok := r.NutritionConfidence[key]; ok {
		row += fmt.Sprintf(" (%d%% confidence)", int(c*100+0.5))
	}
	return row
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func rule(width int) string {
	w := width - 4
	if w < 10 {
		w = 10
	}
	if w > 72 {
		w = 72
	}
	return ruleStyle.Render("  " + strings.Repeat("─", w))
}
