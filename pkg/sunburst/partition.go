package sunburst

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Arc is a node of the tree placed in partition space.
type Arc struct {
	Node     *versiontree.Node
	Parent   *Arc
	Children []*Arc
	Depth    int
	Value    int64

	// Rect is the layout position. It never changes after Partition.
	Rect Rect
	// Current is where the arc is drawn right now.
	Current Rect
	// Target is where the running transition ends.
	Target Rect

	from Rect
}

// Name returns the name of the underlying node.
func (a *Arc) Name() string { return a.Node.Name }

// IsAggregated reports whether the arc stands for folded siblings.
func (a *Arc) IsAggregated() bool { return a.Node.IsAggregated() }

// HasChildren reports whether the arc can be zoomed into.
func (a *Arc) HasChildren() bool { return len(a.Children) > 0 }

// Activatable reports whether activating the arc does anything.
func (a *Arc) Activatable() bool { return a.HasChildren() || a.IsAggregated() }

// Top returns the depth-1 ancestor of a, which decides its colour. The root
// is its own top.
func (a *Arc) Top() *Arc {
	for a.Depth > 1 {
		a = a.Parent
	}
	return a
}

type arcKey struct {
	depth int
	name  string
}

func (a *Arc) key() arcKey { return arcKey{a.Depth, a.Name()} }

// Layout is a partitioned tree.
type Layout struct {
	Root *Arc
	// Arcs lists every arc in pre-order, root first.
	Arcs []*Arc
	// Height is the number of levels below the root.
	Height int

	byKey map[arcKey]*Arc
}

// Total returns the value of the root.
func (l *Layout) Total() int64 { return l.Root.Value }

// Descendants returns every arc except the root, in pre-order.
func (l *Layout) Descendants() []*Arc { return l.Arcs[1:] }

// Find returns the first arc named name in pre-order, or nil. A patch arc is
// found before its stable leaf of the same name.
func (l *Layout) Find(name string) *Arc {
	for _, a := range l.Arcs {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Adopt copies the current position of every arc that also exists in prev,
// matched by depth and name. Arcs with no counterpart keep their layout
// position.
func (l *Layout) Adopt(prev *Layout) {
	if prev == nil {
		return
	}
	for _, a := range l.Arcs {
		if old, ok := prev.byKey[a.key()]; ok {
			a.Current = old.Current
		}
	}
}

// Comparator orders siblings. It returns a negative number when a comes
// first.
type Comparator func(a, b *Arc) int

// ByValue puts larger subtrees first.
func ByValue(a, b *Arc) int {
	return cmp.Compare(b.Value, a.Value)
}

// ByVersion puts higher versions first. Names that do not coerce to a
// version, such as "Other", fall back to ascending value order against
// whatever they are compared with.
func ByVersion(a, b *Arc) int {
	va, errA := coerce(a.Name())
	vb, errB := coerce(b.Name())
	if errA != nil || errB != nil {
		return cmp.Compare(a.Value, b.Value)
	}
	return vb.Compare(va)
}

// coerce reads a level name ("v4", "v4.2", "v4.2.0-rc.1") as a version.
// Aggregated names coerce to their logical parent.
func coerce(name string) (*semver.Version, error) {
	name = strings.TrimSuffix(name, ".?")
	name = strings.TrimSuffix(name, "-other")
	return semver.NewVersion(name)
}

// Sorted wraps c so that aggregated leaves always come after real siblings.
func Sorted(c Comparator) Comparator {
	return func(a, b *Arc) int {
		switch aa, ba := a.IsAggregated(), b.IsAggregated(); {
		case aa && !ba:
			return 1
		case ba && !aa:
			return -1
		}
		return c(a, b)
	}
}

// Partition lays root out over a full circle. Siblings are ordered by
// Sorted(c); a nil c means ByValue. Current and Target start at the layout
// position.
func Partition(root *versiontree.Node, c Comparator) *Layout {
	if c == nil {
		c = ByValue
	}
	order := Sorted(c)

	l := &Layout{Height: root.Height(), byKey: make(map[arcKey]*Arc)}
	l.Root = build(root, nil, 0, order)

	l.Root.Rect = Rect{X0: 0, X1: Tau, Y0: 0, Y1: 1}
	dice(l.Root)

	var collect func(a *Arc)
	collect = func(a *Arc) {
		a.Current, a.Target, a.from = a.Rect, a.Rect, a.Rect
		l.Arcs = append(l.Arcs, a)
		if _, dup := l.byKey[a.key()]; !dup {
			l.byKey[a.key()] = a
		}
		for _, ch := range a.Children {
			collect(ch)
		}
	}
	collect(l.Root)
	return l
}

func build(n *versiontree.Node, parent *Arc, depth int, order Comparator) *Arc {
	a := &Arc{Node: n, Parent: parent, Depth: depth}
	versiontree.Match(n,
		func(_ string, children []*versiontree.Node) struct{} {
			a.Children = make([]*Arc, len(children))
			for i, c := range children {
				a.Children[i] = build(c, a, depth+1, order)
				a.Value += a.Children[i].Value
			}
			slices.SortStableFunc(a.Children, order)
			return struct{}{}
		},
		func(_ string, value int64, _ bool) struct{} {
			a.Value = value
			return struct{}{}
		},
	)
	return a
}

// dice splits the parent's angular span among its children in order, each
// taking a share proportional to its value, and places them one band out.
func dice(p *Arc) {
	var k float64
	if p.Value > 0 {
		k = p.Rect.Width() / float64(p.Value)
	}
	x := p.Rect.X0
	for _, c := range p.Children {
		c.Rect = Rect{
			X0: x,
			X1: x + float64(c.Value)*k,
			Y0: float64(c.Depth),
			Y1: float64(c.Depth + 1),
		}
		x = c.Rect.X1
		dice(c)
	}
}
