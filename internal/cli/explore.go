package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/npmburst/pkg/drilldown"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/pipeline"
	"github.com/matzehuels/npmburst/pkg/sunburst"
)

const (
	frameInterval  = time.Second / 30
	thresholdStep  = 0.01
	defaultStripW  = 72
	ringsInStrip   = 2
	stripCellBlock = "█"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// exploreCommand creates the explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	opts := chartOpts{sortBy: sortByValue}

	cmd := &cobra.Command{
		Use:   "explore [package]",
		Short: "Explore a package's downloads by version interactively",
		Long: `Explore opens the chart in the terminal. Move through the versions of the
focused node, press enter to zoom in or expand a folded slice and backspace
to zoom out. The state query printed on exit reproduces the view.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg := c.Config.Defaults.Package
			if len(args) > 0 {
				pkg = args[0]
			}
			popts, err := c.pipelineOptions(pkg, &opts)
			if err != nil {
				return err
			}
			popts.Duration = sunburst.DefaultDuration

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			m := newExploreModel(ctx, pipeline.NewLoader(runner), popts)
			final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(cmd.ErrOrStderr())).Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(exploreModel); ok && fm.res != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "npmburst chart %s\n", fm.opts.Package)
				if q := fm.res.State().Query(); q != "" {
					printDetail(cmd.OutOrStdout(), "state: ?%s", q)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.lpf, "lpf", "", "fold versions below this share, in percent")
	cmd.Flags().StringVar(&opts.sortBy, "sort-by", opts.sortBy, "slice order: value or version")
	cmd.Flags().StringSliceVar(&opts.expand, "expand", nil, "aggregated slices to expand")
	cmd.Flags().StringVar(&opts.selected, "select", "", "version to focus")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// =============================================================================
// exploreModel - interactive sunburst
// =============================================================================

type loadedMsg struct {
	res     *pipeline.Result
	err     error
	rebuild bool
}

type tickMsg time.Time

// exploreModel is the bubbletea model of the explore command. Loads run on
// a [pipeline.Loader] so a newer request always wins.
type exploreModel struct {
	ctx    context.Context
	loader *pipeline.Loader
	opts   pipeline.Options

	res     *pipeline.Result
	rows    []drilldown.Row
	cursor  int
	loading bool
	err     error
	status  string
	width   int

	// animating is set while a tick chain is running.
	animating bool
}

func newExploreModel(ctx context.Context, l *pipeline.Loader, opts pipeline.Options) exploreModel {
	return exploreModel{
		ctx:     ctx,
		loader:  l,
		opts:    opts,
		loading: true,
		width:   defaultStripW,
	}
}

func (m exploreModel) Init() tea.Cmd {
	return m.load(false)
}

func (m exploreModel) load(rebuild bool) tea.Cmd {
	ctx, l, opts := m.ctx, m.loader, m.opts
	return func() tea.Msg {
		res, err := l.Load(ctx, opts)
		return loadedMsg{res: res, err: err, rebuild: rebuild}
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// animate starts the frame ticker unless one is already running.
func (m exploreModel) animate() (exploreModel, tea.Cmd) {
	if m.animating {
		return m, nil
	}
	m.animating = true
	return m, tick()
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return m.loaded(msg)

	case tickMsg:
		if m.res == nil {
			m.animating = false
			return m, nil
		}
		ctrl := m.res.Controller
		ctrl.Advance(frameInterval)
		if ctrl.Done() {
			m.animating = false
			return m, nil
		}
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = max(msg.Width-4, 20)

	case tea.KeyMsg:
		return m.key(msg.String())
	}
	return m, nil
}

func (m exploreModel) loaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if errs.IsSuperseded(msg.err) {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	m.err = nil

	if msg.rebuild && m.res != nil {
		// Keep the running controller so arcs move from where they are.
		ctrl := m.res.Controller
		ctrl.Rebuild(msg.res.Layout)
		msg.res.Controller = ctrl
		m.res = msg.res
		m.refreshRows()
		return m.animate()
	}
	m.res = msg.res
	m.cursor = 0
	m.refreshRows()
	return m, nil
}

func (m exploreModel) key(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "q", "ctrl+c", "esc":
		m.loader.Cancel()
		return m, tea.Quit
	case "r":
		if m.err != nil {
			return m.reload(m.res != nil)
		}
	}
	if m.res == nil || m.loading {
		return m, nil
	}
	m.status = ""

	switch k {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		return m.activate()
	case "backspace", "left", "h":
		prev := m.res.Controller.Focus().Name()
		m.res.Controller.ZoomOut()
		m.refreshRows()
		m.cursor = m.rowIndex(prev)
		return m.animate()
	case "s":
		m.opts.SortByVersion = !m.opts.SortByVersion
		return m.reload(true)
	case "+", "=":
		m.opts.Threshold = math.Round((m.opts.Threshold+thresholdStep)*100) / 100
		return m.reload(true)
	case "-", "_":
		m.opts.Threshold = math.Max(0, math.Round((m.opts.Threshold-thresholdStep)*100)/100)
		return m.reload(true)
	}
	return m, nil
}

func (m exploreModel) activate() (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	name := m.rows[m.cursor].Name
	tr, err := m.res.Controller.Activate(name)
	if errors.Is(err, sunburst.ErrNotActivatable) {
		m.status = name + " has no sub-versions"
		return m, nil
	}
	if err != nil {
		m.status = errs.UserMessage(err)
		return m, nil
	}
	if tr.NeedsRebuild {
		m.status = "expanding " + name
		return m.reload(true)
	}
	m.cursor = 0
	m.refreshRows()
	return m.animate()
}

// reload fetches the chart again with the current options, taking the
// focus and expanded set from the controller.
func (m exploreModel) reload(rebuild bool) (tea.Model, tea.Cmd) {
	if m.res != nil {
		m.opts.Selected = m.res.Controller.Focus().Name()
		m.opts.Expanded = m.res.Controller.Expanded().Names()
	}
	m.loading = true
	m.err = nil
	return m, m.load(rebuild)
}

func (m *exploreModel) refreshRows() {
	m.rows = m.table().Rows
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m exploreModel) table() drilldown.Table {
	focus := m.res.Controller.Focus().Name()
	node := m.res.Tree.Find(focus)
	if node == nil {
		node = m.res.Tree.Root
	}
	var highlighted string
	if m.cursor < len(m.rows) {
		highlighted = m.rows[m.cursor].Name
	}
	return drilldown.Build(node, highlighted)
}

func (m exploreModel) rowIndex(name string) int {
	for i, r := range m.rows {
		if r.Name == name {
			return i
		}
	}
	return 0
}

func (m exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("npmburst explore " + m.opts.Package))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ move  ⏎ zoom in  ⌫ zoom out  s sort  +/- lpf  q quit"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + errs.UserMessage(m.err))
		if errs.IsLoadError(m.err) {
			b.WriteString("\n" + listDimStyle.Render("press r to retry"))
		}
		return b.String()
	case m.res == nil:
		b.WriteString(styleIconSpinner.Render("⠋") + " loading " + m.opts.Package + "...")
		return b.String()
	}

	b.WriteString(renderStrip(m.res.Controller, m.width))
	b.WriteString("\n\n")
	b.WriteString(renderTable(m.table()))
	b.WriteString("\n")

	if m.cursor < len(m.rows) {
		if a := m.res.Layout.Find(m.rows[m.cursor].Name); a != nil {
			b.WriteString(listSelectedStyle.Render(a.Name()))
			fmt.Fprintf(&b, "  %s downloads  %s%%\n",
				sunburst.FormatDownloads(a.Value), sunburst.FormatShare(a.Value, m.res.Total()))
		}
	}

	state := fmt.Sprintf("lpf %s  sort %s", drilldown.FormatPercentage(m.opts.Threshold*100), sortName(m.opts.SortByVersion))
	if m.loading {
		state += "  loading..."
	}
	b.WriteString(listDimStyle.Render(state))
	if q := m.res.State().Query(); q != "" {
		b.WriteString("\n" + listDimStyle.Render("?"+q))
	}
	if m.status != "" {
		b.WriteString("\n" + StyleWarning.Render(m.status))
	}
	return b.String()
}

func sortName(byVersion bool) string {
	if byVersion {
		return sortByVersion
	}
	return sortByValue
}

// renderStrip unrolls the visible rings of the chart into rows of width
// cells, innermost ring first.
func renderStrip(c *sunburst.Controller, width int) string {
	colors := sunburst.Colors(c.Layout())
	frames := c.Frame()

	lines := make([]string, 0, ringsInStrip)
	for ring := 1; ring <= ringsInStrip; ring++ {
		y := float64(ring) + 0.5
		var line strings.Builder
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				line.WriteString(run.String())
			} else {
				line.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}
		for i := range width {
			angle := (float64(i) + 0.5) / float64(width) * sunburst.Tau
			color, cell := "", " "
			for _, f := range frames {
				r := f.Rect
				if f.Visible && r.Y0 <= y && y < r.Y1 && r.X0 <= angle && angle < r.X1 {
					color, cell = colors[f.Arc.Top().Name()], stripCellBlock
					break
				}
			}
			if color != runColor {
				flush()
				runColor = color
			}
			run.WriteString(cell)
		}
		flush()
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
