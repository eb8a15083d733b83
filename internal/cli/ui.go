package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/npmburst/pkg/drilldown"
	"github.com/matzehuels/npmburst/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleTableHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	styleTableCell   = lipgloss.NewStyle().Padding(0, 1)
	styleTableGlow   = styleTableCell.Foreground(colorCyan).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printNextStep prints a suggested next command.
func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// printStats prints chart statistics on a single line.
func printStats(w io.Writer, s pipeline.Stats, total int64, cached bool) {
	parts := []string{
		fmt.Sprintf("%d versions", s.Versions),
		fmt.Sprintf("%d leaves", s.Leaves),
		drilldown.FormatCount(total) + " downloads",
	}
	status, style := iconFresh, styleComputed
	if cached {
		status, style = iconCached, styleCached
	}

	var b strings.Builder
	b.WriteString("  ")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(StyleDim.Render(" · "))
		}
		b.WriteString(StyleDim.Render(p))
	}
	b.WriteString(StyleDim.Render(" · ") + style.Render(status))
	fmt.Fprintln(w, b.String())
}

// =============================================================================
// Drill-down Table
// =============================================================================

// renderTable draws t the way the chart page does: one row per child, or
// one group per child with its sub-versions when the node is two levels
// deep. Highlighted rows are bold.
func renderTable(t drilldown.Table) string {
	if t.Message != "" {
		return StyleDim.Render(t.Node + ": " + t.Message)
	}

	var rows [][]string
	var glow []bool
	if t.Nested {
		for _, r := range t.Rows {
			subs := r.SubRows
			if len(subs) == 0 {
				subs = []drilldown.Row{{}}
			}
			for i, sub := range subs {
				row := []string{"", "", ""}
				if i == 0 {
					row = tableCells(r)
				}
				if sub.Name != "" {
					row = append(row, tableCells(sub)...)
				} else {
					row = append(row, "", "", "")
				}
				rows = append(rows, row)
				glow = append(glow, (i == 0 && r.Highlight) || sub.Highlight)
			}
		}
	} else {
		for _, r := range t.Rows {
			rows = append(rows, tableCells(r))
			glow = append(glow, r.Highlight)
		}
	}

	headers := []string{"Version", "Count", t.Header}
	if t.Nested {
		headers = append(headers, "Sub-Version", "Count", t.Header)
	}
	footer := make([]string, len(headers))
	footer[0], footer[len(footer)-2] = "Total", drilldown.FormatCount(t.Total)
	rows = append(rows, footer)
	glow = append(glow, false)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleTableHeader
			case row == len(rows)-1:
				return styleTableHeader
			case glow[row]:
				return styleTableGlow
			}
			return styleTableCell
		})
	return tbl.Render()
}

func tableCells(r drilldown.Row) []string {
	return []string{r.Name, drilldown.FormatCount(r.Count), drilldown.FormatPercentage(r.Percentage)}
}
