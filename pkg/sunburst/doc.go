// Package sunburst lays out a version tree as a radial partition and drives
// the zoom interaction on top of it.
//
// # Layout
//
// [Partition] assigns every node an angular span proportional to its value
// and a radial band equal to its depth. Coordinates follow the usual
// partition convention: x runs over [0, 2π] and y over [0, height+1], so a
// node at depth d occupies the band [d, d+1] and the root occupies the
// invisible band [0, 1].
//
// Sibling order comes from a [Comparator]. [ByValue] puts larger subtrees
// first, [ByVersion] puts higher versions first. Both are wrapped in [Sorted],
// which keeps aggregated leaves after their real siblings.
//
// # Interaction
//
// A [Controller] owns the focus arc and each arc's current and target
// rectangles. It has no notion of a display: callers activate arcs by name,
// advance the clock, and read [ArcFrame] values back for rendering.
//
//	ctrl := sunburst.NewController(layout, sunburst.WithListener(func(s sunburst.Selection) {
//	    fmt.Println("selected", s.Name)
//	}))
//	ctrl.Activate("v4")
//	for !ctrl.Done() {
//	    ctrl.Advance(16 * time.Millisecond)
//	    draw(ctrl.Frame())
//	}
//
// [Tooltip] handles hover presentation: the percentage text and the
// quadrant rule that keeps the box inside the chart.
package sunburst
