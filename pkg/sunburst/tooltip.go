package sunburst

import (
	"strconv"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Chart geometry shared by the tooltip and the SVG renderer.
const (
	ChartWidth  = 450.0
	ChartHeight = ChartWidth * 0.75
	RingRadius  = 50.0
)

const (
	tooltipGap     = 8.0
	tooltipPadding = 8.0
	tooltipHeight  = 52.0

	titleCharWidth = 11 * 0.6
	bodyCharWidth  = 10 * 0.6
)

// Point is a pointer position in chart coordinates, origin top-left.
type Point struct{ X, Y float64 }

// TooltipState is everything a renderer needs to draw the tooltip.
type TooltipState struct {
	Visible    bool
	Title      string
	Downloads  string
	Percentage string

	// X and Y are the top-left corner of the box.
	X, Y          float64
	Width, Height float64
}

// Tooltip tracks the hovered arc. The zero value is not usable; create one
// with [NewTooltip].
type Tooltip struct {
	total         int64
	width, height float64
	state         TooltipState
}

// TooltipOption configures a [Tooltip].
type TooltipOption func(*Tooltip)

// WithChartSize overrides the chart dimensions used for the quadrant rule.
func WithChartSize(w, h float64) TooltipOption {
	return func(t *Tooltip) { t.width, t.height = w, h }
}

// NewTooltip returns a hidden tooltip for a chart whose root value is total.
func NewTooltip(total int64, opts ...TooltipOption) *Tooltip {
	t := &Tooltip{total: total, width: ChartWidth, height: ChartHeight}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enter shows the tooltip for a with the pointer at p.
func (t *Tooltip) Enter(a *Arc, p Point) TooltipState {
	s := TooltipState{
		Visible:    true,
		Title:      a.Name(),
		Downloads:  FormatDownloads(a.Value),
		Percentage: FormatShare(a.Value, t.total) + "%",
		Height:     tooltipHeight,
	}
	s.Width = max(
		textWidth(s.Title, titleCharWidth),
		textWidth(s.Downloads, bodyCharWidth),
		textWidth(s.Percentage, bodyCharWidth),
	) + 2*tooltipPadding
	t.state = s
	return t.Move(p)
}

// Move repositions a visible tooltip. It does nothing when hidden.
func (t *Tooltip) Move(p Point) TooltipState {
	if !t.state.Visible {
		return t.state
	}
	dx, dy := tooltipGap, tooltipGap
	if p.X > t.width/2 {
		dx = -(t.state.Width + tooltipGap)
	}
	if p.Y > t.height/2 {
		dy = -(t.state.Height + tooltipGap)
	}
	t.state.X, t.state.Y = p.X+dx, p.Y+dy
	return t.state
}

// Leave hides the tooltip.
func (t *Tooltip) Leave() TooltipState {
	t.state = TooltipState{}
	return t.state
}

// State returns the current tooltip.
func (t *Tooltip) State() TooltipState { return t.state }

func textWidth(s string, perCell float64) float64 {
	return float64(runewidth.StringWidth(s)) * perCell
}

var printer = message.NewPrinter(language.English)

// FormatDownloads renders n with thousands separators.
func FormatDownloads(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatShare renders value as a percentage of total with two decimals, or
// "0" when total is not positive.
func FormatShare(value, total int64) string {
	if total <= 0 {
		return "0"
	}
	return strconv.FormatFloat(versiontree.Percentage(value, total), 'f', 2, 64)
}
