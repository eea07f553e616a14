package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"taskplanner/internal/domain/models"
	"taskplanner/internal/schedule"
)

var (
	completedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Faint(true)
	dueStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	overdueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	highlyOverdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	idStyle            = lipgloss.NewStyle().Faint(true)
)

// renderTaskLine formats one task as "id  title  [status label]  due date",
// coloring the label by urgency.
func renderTaskLine(task models.Task, now time.Time) string {
	st := schedule.Derive(task, now)

	style := dueStyle
	switch {
	case task.Status == models.StatusCompleted:
		style = completedStyle
	case st.HighlyOverdue:
		style = highlyOverdueStyle
	case st.Overdue:
		style = overdueStyle
	}

	return fmt.Sprintf("%s  %s  %s  due %s",
		idStyle.Render(task.ID),
		task.Title,
		style.Render("["+st.Label+"]"),
		task.DueDate.Format("2006-01-02"),
	)
}
