package sunburst

import (
	"fmt"
	"math"
)

// Tau is a full turn in radians.
const Tau = 2 * math.Pi

// Rect is a position in partition space: X0..X1 is the angular span in
// radians, Y0..Y1 the radial band in depth units.
type Rect struct {
	X0, X1 float64
	Y0, Y1 float64
}

// Width returns the angular span.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the radial span.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the span product used by the label threshold.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// MidAngle returns the angle halfway through the span.
func (r Rect) MidAngle() float64 { return (r.X0 + r.X1) / 2 }

// MidRadius returns the middle of the band.
func (r Rect) MidRadius() float64 { return (r.Y0 + r.Y1) / 2 }

// minLabelArea is the smallest span product that still fits a label.
const minLabelArea = 0.03

// maxVisibleDepth is the outer edge of the zoom window: two rings are shown
// around the focus.
const maxVisibleDepth = 3

func inWindow(r Rect) bool { return r.Y1 <= maxVisibleDepth && r.Y0 >= 1 }

// ArcVisible reports whether r lies in the visible depth window and has a
// non-degenerate angular span.
func ArcVisible(r Rect) bool {
	return inWindow(r) && r.X1 > r.X0
}

// LabelVisible reports whether r is in the window and large enough to carry
// a label.
func LabelVisible(r Rect) bool {
	return inWindow(r) && r.Area() > minLabelArea
}

// LabelShown reports whether the label of a should be drawn when arcs are at
// the positions returned by rect. A label is suppressed when the parent has
// the same name and shows its own label, as happens for a patch and its
// stable release.
func LabelShown(a *Arc, rect func(*Arc) Rect) bool {
	if p := a.Parent; p != nil && p.Name() == a.Name() && LabelVisible(rect(p)) {
		return false
	}
	return LabelVisible(rect(a))
}

// Opacity returns the fill opacity of a at position r.
func Opacity(a *Arc, r Rect) float64 {
	switch {
	case !ArcVisible(r):
		return 0
	case len(a.Children) > 0:
		return 0.6
	default:
		return 0.4
	}
}

// LabelPlacement positions a label along the middle of its arc.
type LabelPlacement struct {
	// Rotate is the angle in degrees, measured clockwise from 12 o'clock
	// and shifted so that 0 points along the x axis.
	Rotate float64
	// Translate is the radial distance in pixels.
	Translate float64
	// Flip is set for labels on the left half, which are turned upright.
	Flip bool
}

// LabelTransform returns the placement of a label for r in a chart whose
// rings are radius pixels wide.
func LabelTransform(r Rect, radius float64) LabelPlacement {
	x := r.MidAngle() * 180 / math.Pi
	return LabelPlacement{
		Rotate:    x - 90,
		Translate: r.MidRadius() * radius,
		Flip:      x >= 180,
	}
}

// String renders the placement as an SVG transform attribute.
func (p LabelPlacement) String() string {
	flip := 0
	if p.Flip {
		flip = 180
	}
	return fmt.Sprintf("rotate(%s) translate(%s,0) rotate(%d)", num(p.Rotate), num(p.Translate), flip)
}
