package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/habitual/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// RenderHabits renders the habit listing table.
func RenderHabits(habits []models.Habit) string {
	t := newTable("Name", "Interval", "Category", "Created", "Max Streak", "Source")
	for _, h := range habits {
		source := "custom"
		if !h.IsCustom {
			source = "predefined"
		}
		t.Row(h.Name, string(h.Interval), h.Category, h.CreatedDate, strconv.Itoa(h.MaxStreak), source)
	}
	return t.Render()
}

// RenderStreaks renders a habit/streak table with the given value header.
func RenderStreaks(streaks []models.HabitStreak, valueHeader string) string {
	t := newTable("Habit", valueHeader)
	for _, st := range streaks {
		t.Row(st.HabitName, strconv.Itoa(st.Streak))
	}
	return t.Render()
}

// RenderRepetitions renders a habit/repetitions table.
func RenderRepetitions(totals []models.HabitRepetitions) string {
	t := newTable("Habit", "Repetitions")
	for _, r := range totals {
		t.Row(r.HabitName, strconv.Itoa(r.Repetitions))
	}
	return t.Render()
}
