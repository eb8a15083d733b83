package sink

import (
	"encoding/json"

	"github.com/matzehuels/npmburst/pkg/sunburst"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	pkg    string
	query  string
	tree   *versiontree.Node
	radius float64
}

// WithJSONPackage records the package name.
func WithJSONPackage(name string) JSONOption { return func(r *jsonRenderer) { r.pkg = name } }

// WithJSONState records the encoded URL state the chart was built from, so
// that a client can link back to it.
func WithJSONState(query string) JSONOption { return func(r *jsonRenderer) { r.query = query } }

// WithJSONTree includes the aggregated tree in the front end's node format.
func WithJSONTree(root *versiontree.Node) JSONOption { return func(r *jsonRenderer) { r.tree = root } }

type jsonOutput struct {
	Package string            `json:"package,omitempty"`
	State   string            `json:"state,omitempty"`
	Width   float64           `json:"width"`
	Height  float64           `json:"height"`
	Radius  float64           `json:"radius"`
	Total   int64             `json:"total"`
	Focus   string            `json:"focus"`
	Arcs    []jsonArc         `json:"arcs"`
	Tree    *versiontree.Node `json:"tree,omitempty"`
}

type jsonArc struct {
	Name       string  `json:"name"`
	Parent     string  `json:"parent"`
	Depth      int     `json:"depth"`
	Value      int64   `json:"value"`
	Aggregated bool    `json:"aggregated,omitempty"`
	X0         float64 `json:"x0"`
	X1         float64 `json:"x1"`
	Y0         float64 `json:"y0"`
	Y1         float64 `json:"y1"`
	Visible    bool    `json:"visible"`
	Label      bool    `json:"label"`
	Opacity    float64 `json:"opacity"`
	Color      string  `json:"color"`
	Path       string  `json:"path,omitempty"`
}

// RenderJSON writes the current frame of c: every arc with its position,
// visibility and colour, the SVG path of visible arcs, and optionally the
// tree it was laid out from.
func RenderJSON(c *sunburst.Controller, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{radius: sunburst.RingRadius}
	for _, opt := range opts {
		opt(&r)
	}

	l := c.Layout()
	colors := sunburst.Colors(l)
	frames := c.Frame()

	out := jsonOutput{
		Package: r.pkg,
		State:   r.query,
		Width:   sunburst.ChartWidth,
		Height:  sunburst.ChartHeight,
		Radius:  r.radius,
		Total:   l.Total(),
		Focus:   c.Focus().Name(),
		Arcs:    make([]jsonArc, 0, len(frames)),
		Tree:    r.tree,
	}
	for _, f := range frames {
		a := jsonArc{
			Name:       f.Arc.Name(),
			Parent:     f.Arc.Parent.Name(),
			Depth:      f.Arc.Depth,
			Value:      f.Arc.Value,
			Aggregated: f.Arc.IsAggregated(),
			X0:         f.Rect.X0,
			X1:         f.Rect.X1,
			Y0:         f.Rect.Y0,
			Y1:         f.Rect.Y1,
			Visible:    f.Visible,
			Label:      f.LabelShown,
			Opacity:    f.Opacity,
			Color:      colors[f.Arc.Top().Name()],
		}
		if f.Visible {
			a.Path = sunburst.ArcPath(f.Rect, r.radius)
		}
		out.Arcs = append(out.Arcs, a)
	}
	return json.MarshalIndent(out, "", "  ")
}
