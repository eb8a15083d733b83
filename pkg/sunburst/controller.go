package sunburst

import (
	"errors"
	"math"
	"time"

	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// DefaultDuration is the length of a zoom transition.
const DefaultDuration = 750 * time.Millisecond

// ErrNotActivatable is returned when a plain leaf is activated.
var ErrNotActivatable = errors.New("sunburst: arc has no children and is not aggregated")

// Selection is emitted to listeners on every transition.
type Selection struct {
	Name       string
	Aggregated bool
}

// Transition describes what an activation did.
type Transition struct {
	// Focus is the arc the chart is zooming to.
	Focus     *Arc
	Selection Selection
	// NeedsRebuild is set after an aggregated leaf was activated: the
	// caller must rebuild the tree with [Controller.Expanded] and hand the
	// new layout to [Controller.Rebuild].
	NeedsRebuild bool
}

// Option configures a [Controller].
type Option func(*Controller)

// WithDuration sets the transition length. Non-positive durations make
// transitions instantaneous.
func WithDuration(d time.Duration) Option { return func(c *Controller) { c.duration = d } }

// WithListener registers fn to receive every [Selection].
func WithListener(fn func(Selection)) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, fn) }
}

// WithExpanded seeds the set of expanded aggregated names.
func WithExpanded(e versiontree.Expanded) Option {
	return func(c *Controller) { c.expanded = e.Clone() }
}

// Controller is the zoom state machine. It is not safe for concurrent use.
type Controller struct {
	layout    *Layout
	focus     *Arc
	expanded  versiontree.Expanded
	duration  time.Duration
	elapsed   time.Duration
	listeners []func(Selection)
}

// NewController returns a controller focused on the root of l.
func NewController(l *Layout, opts ...Option) *Controller {
	c := &Controller{
		layout:   l,
		focus:    l.Root,
		expanded: versiontree.NewExpanded(),
		duration: DefaultDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.elapsed = c.duration
	return c
}

// Layout returns the layout the controller is driving.
func (c *Controller) Layout() *Layout { return c.layout }

// Focus returns the arc currently zoomed to.
func (c *Controller) Focus() *Arc { return c.focus }

// Expanded returns a copy of the expanded set.
func (c *Controller) Expanded() versiontree.Expanded { return c.expanded.Clone() }

// Activate handles a click on the arc named name.
//
// Arcs with children are zoomed into. An aggregated leaf adds its name to
// the expanded set and zooms to its logical parent; the returned transition
// asks for a rebuild. Plain leaves return [ErrNotActivatable].
func (c *Controller) Activate(name string) (Transition, error) {
	a := c.layout.Find(name)
	if a == nil {
		return Transition{}, errs.New(errs.ErrCodeNodeNotFound, "no arc named %q", name)
	}

	switch {
	case a.HasChildren():
		sel := Selection{Name: a.Name()}
		c.zoomTo(a)
		c.emit(sel)
		return Transition{Focus: a, Selection: sel}, nil

	case a.IsAggregated():
		c.expanded.Add(a.Name())
		parent := c.layout.Find(versiontree.LogicalParent(a.Name()))
		if parent == nil || !parent.HasChildren() {
			parent = c.layout.Root
		}
		sel := Selection{Name: a.Name(), Aggregated: true}
		c.zoomTo(parent)
		c.emit(sel)
		return Transition{Focus: parent, Selection: sel, NeedsRebuild: true}, nil
	}
	return Transition{}, ErrNotActivatable
}

// ZoomOut moves the focus to its parent. At the root it re-selects the root.
func (c *Controller) ZoomOut() Transition {
	p := c.focus.Parent
	if p == nil {
		p = c.layout.Root
	}
	sel := Selection{Name: p.Name()}
	c.zoomTo(p)
	c.emit(sel)
	return Transition{Focus: p, Selection: sel}
}

// FocusOn jumps to the arc named name without animating or notifying
// listeners, as when restoring saved state. It reports whether the arc was
// found; an unknown name leaves the controller unchanged.
func (c *Controller) FocusOn(name string) bool {
	a := c.layout.Find(name)
	if a == nil || (!a.HasChildren() && a != c.layout.Root) {
		return false
	}
	c.focus = a
	Targets(c.layout.Arcs, a)
	for _, arc := range c.layout.Arcs {
		arc.Current, arc.from = arc.Target, arc.Target
	}
	c.elapsed = c.duration
	return true
}

// Rebuild swaps in a new layout. Arcs that exist in both layouts keep their
// current position, the focus is looked up again by name (falling back to
// the root), and a transition to the new targets starts.
func (c *Controller) Rebuild(l *Layout) {
	focus := l.Find(c.focus.Name())
	if focus == nil || !focus.HasChildren() {
		focus = l.Root
	}

	// New arcs appear where they will end up.
	Targets(l.Arcs, focus)
	for _, a := range l.Arcs {
		a.Current = a.Target
	}
	l.Adopt(c.layout)

	c.layout = l
	c.zoomTo(focus)
}

func (c *Controller) zoomTo(p *Arc) {
	c.focus = p
	for _, a := range c.layout.Arcs {
		a.from = a.Current
	}
	Targets(c.layout.Arcs, p)
	c.elapsed = 0
	if c.duration <= 0 {
		c.settle()
	}
}

func (c *Controller) emit(s Selection) {
	for _, fn := range c.listeners {
		fn(s)
	}
}

// Advance moves the running transition forward by dt and updates every
// arc's Current, including arcs that are not visible.
func (c *Controller) Advance(dt time.Duration) {
	if c.Done() {
		return
	}
	c.elapsed += dt
	if c.elapsed >= c.duration {
		c.settle()
		return
	}
	t := EaseCubicInOut(float64(c.elapsed) / float64(c.duration))
	for _, a := range c.layout.Arcs {
		a.Current = Interpolate(a.from, a.Target, t)
	}
}

// Finish jumps to the end of the running transition.
func (c *Controller) Finish() {
	if !c.Done() {
		c.settle()
	}
}

func (c *Controller) settle() {
	c.elapsed = c.duration
	for _, a := range c.layout.Arcs {
		a.Current, a.from = a.Target, a.Target
	}
}

// Done reports whether no transition is running.
func (c *Controller) Done() bool { return c.elapsed >= c.duration }

// Progress returns the eased completion of the running transition in [0, 1].
func (c *Controller) Progress() float64 {
	if c.Done() {
		return 1
	}
	return EaseCubicInOut(float64(c.elapsed) / float64(c.duration))
}

// ArcFrame is one arc as it should be drawn now.
type ArcFrame struct {
	Arc        *Arc
	Rect       Rect
	Visible    bool
	LabelShown bool
	Opacity    float64
}

// Frame returns every arc except the root at its current position.
func (c *Controller) Frame() []ArcFrame {
	current := func(a *Arc) Rect { return a.Current }
	arcs := c.layout.Descendants()
	frames := make([]ArcFrame, len(arcs))
	for i, a := range arcs {
		frames[i] = ArcFrame{
			Arc:        a,
			Rect:       a.Current,
			Visible:    ArcVisible(a.Current),
			LabelShown: LabelShown(a, current),
			Opacity:    Opacity(a, a.Current),
		}
	}
	return frames
}

// Targets sets the Target of every arc so that p fills the circle: angles
// are renormalised against p's layout span and depths shifted by p's depth.
func Targets(arcs []*Arc, p *Arc) {
	span := p.Rect.Width()
	norm := func(x float64) float64 {
		if span <= 0 {
			return 0
		}
		return clamp01((x-p.Rect.X0)/span) * Tau
	}
	depth := float64(p.Depth)
	for _, a := range arcs {
		a.Target = Rect{
			X0: norm(a.Rect.X0),
			X1: norm(a.Rect.X1),
			Y0: math.Max(0, a.Rect.Y0-depth),
			Y1: math.Max(0, a.Rect.Y1-depth),
		}
	}
}

// Interpolate returns the point a fraction t of the way from one rect to
// the other. t is clamped to [0, 1].
func Interpolate(from, to Rect, t float64) Rect {
	t = clamp01(t)
	lerp := func(a, b float64) float64 { return a + (b-a)*t }
	return Rect{
		X0: lerp(from.X0, to.X0),
		X1: lerp(from.X1, to.X1),
		Y0: lerp(from.Y0, to.Y0),
		Y1: lerp(from.Y1, to.Y1),
	}
}

// EaseCubicInOut is the symmetric cubic easing curve.
func EaseCubicInOut(t float64) float64 {
	t = clamp01(t) * 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
