package main

import (
	"fmt"
	"strings"

	"github.com/bitebudget/backend/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusStyles = map[domain.MatchStatus]lipgloss.Style{
		domain.StatusMatched:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		domain.StatusSaved:        lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		domain.StatusOverspent:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		domain.StatusNotPurchased: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

const statusColumn = 5

func renderReport(title string, report *domain.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		purchased, actual := "-", "-"
		if r.Purchased != nil {
			purchased = r.Purchased.ProductName
			actual = fmt.Sprintf("%.2f", r.Purchased.TotalPrice)
		}
		rows = append(rows, []string{
			r.Planned.Name,
			purchased,
			fmt.Sprintf("%.2f", r.Planned.EstimatedPrice),
			actual,
			fmt.Sprintf("%+.2f", r.PriceDifference),
			string(r.Status),
			fmt.Sprintf("%.0f%%", r.ConfidenceScore),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("PLANNED", "PURCHASED", "ESTIMATED", "ACTUAL", "DIFF", "STATUS", "CONFIDENCE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(report.Results) {
				if style, ok := statusStyles[report.Results[row].Status]; ok {
					return style.Padding(0, 1)
				}
			}
			return cellStyle
		})

	s := report.Summary
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Matched %d of %d planned items (%d saved, %d overspent, %d not purchased) from %d purchases\n",
		s.MatchedCount, s.PlannedCount, s.SavedCount, s.OverspentCount, s.NotPurchasedCount, s.PurchasedCount)
	fmt.Fprintf(&b, "Total savings:   %.2f\n", report.TotalSavings)
	fmt.Fprintf(&b, "Total overspend: %.2f", report.TotalOverspend)
	return b.String()
}
