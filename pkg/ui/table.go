package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = 2

// Table lays out rows in aligned columns. Cells may already be styled.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	writeRow(&b, headers, widths, StyleTableHeader)
	for _, row := range rows {
		writeRow(&b, row, widths, StyleTableCell)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int, style lipgloss.Style) {
	var line strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		line.WriteString(style.Render(cell))
		if i < len(widths)-1 {
			line.WriteString(strings.Repeat(" ", w-lipgloss.Width(cell)+columnGap))
		}
	}
	b.WriteString(strings.TrimRight(line.String(), " "))
	b.WriteString("\n")
}
