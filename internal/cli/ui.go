package cli

import (
	"strings"

	"hbinterface/backend/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6B7280")).
		Padding(0, 1)

	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// renderTable draws rows under headers with a rounded border
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func statusBadge(status model.BotStatus) string {
	label := strings.ToUpper(string(status))
	switch status {
	case model.BotStatusRunning:
		return runningStyle.Render(label)
	case model.BotStatusPaused:
		return pausedStyle.Render(label)
	case model.BotStatusError:
		return errorStyle.Render(label)
	default:
		return stoppedStyle.Render(label)
	}
}

func signed(d decimal.Decimal) string {
	switch {
	case d.IsPositive():
		return gainStyle.Render("+" + d.String())
	case d.IsNegative():
		return lossStyle.Render(d.String())
	default:
		return d.String()
	}
}

func panel(title, body string) string {
	return panelStyle.Render(titleStyle.Render(title) + "\n" + body)
}

func botRows(bots []*model.Bot) [][]string {
	rows := make([][]string, 0, len(bots))
	for _, b := range bots {
		rows = append(rows, []string{b.ID, b.Name, string(b.Strategy), b.Exchange, b.Pair(), statusBadge(b.Status)})
	}
	return rows
}

var botHeaders = []string{"ID", "NAME", "STRATEGY", "EXCHANGE", "PAIR", "STATUS"}
