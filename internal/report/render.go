package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ginjaninja78/income-statement-generator/internal/statement"
)

var (
	// accentColor marks group header rows.
	accentColor = lipgloss.Color("86")
	// subtleColor is used for the period line and column rules.
	subtleColor = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	periodStyle = lipgloss.NewStyle().
			Foreground(subtleColor).
			MarginBottom(1)

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(subtleColor)

	groupStyle   = lipgloss.NewStyle().Foreground(accentColor)
	sectionStyle = lipgloss.NewStyle().Bold(true)
	plainStyle   = lipgloss.NewStyle()
)

const (
	indentWidth = 2
	columnGap   = "  "
)

// FormatAmount formats a value with thousands separators and two decimals.
// Missing values render as an empty string.
func FormatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return humanize.FormatFloat("#,###.##", *v)
}

// Render draws the statement as an aligned terminal table. Labels are
// indented by depth, group headers are highlighted and section rows are
// bold.
func Render(w io.Writer, rows []statement.Row, opts Options) error {
	headers := ColumnHeaders(opts)

	labelWidth := lipgloss.Width(headers[0])
	valueWidths := make([]int, len(headers)-1)
	for i, h := range headers[1:] {
		valueWidths[i] = lipgloss.Width(h)
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		label := strings.Repeat(" ", r.Depth()*indentWidth) + r.Label
		if lw := lipgloss.Width(label); lw > labelWidth {
			labelWidth = lw
		}

		vals := values(r, opts)
		cells[i] = make([]string, len(vals))
		for j, v := range vals {
			cells[i][j] = FormatAmount(v)
			if vw := lipgloss.Width(cells[i][j]); vw > valueWidths[j] {
				valueWidths[j] = vw
			}
		}
	}

	line := func(style lipgloss.Style, label string, vals []string) string {
		parts := []string{style.Width(labelWidth).Render(label)}
		for j, v := range vals {
			parts = append(parts, style.Width(valueWidths[j]).Align(lipgloss.Right).Render(v))
		}
		return strings.Join(parts, columnGap)
	}

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(titleStyle.Render(opts.Title))
		b.WriteString("\n")
	}
	if period := ytdPeriod(opts.Month); period != "" {
		b.WriteString(periodStyle.Render("Period: " + period))
		b.WriteString("\n")
	}

	header := line(plainStyle, headers[0], headers[1:])
	b.WriteString(columnHeaderStyle.Render(header))
	b.WriteString("\n")

	for i, r := range rows {
		style := plainStyle
		switch {
		case statement.IsSection(r.Label):
			style = sectionStyle
		case r.IsHeader():
			style = groupStyle
		}
		label := strings.Repeat(" ", r.Depth()*indentWidth) + r.Label
		b.WriteString(line(style, label, cells[i]))
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to render statement: %w", err)
	}
	return nil
}
