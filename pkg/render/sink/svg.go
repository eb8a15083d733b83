package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/matzehuels/npmburst/pkg/sunburst"
)

const arcInteractionCSS = `
    path[data-name] { transition: fill-opacity 0.2s ease; }
    path[data-name]:hover { fill-opacity: 0.8; }
    #innerCircle { transition: fill 0.2s ease-in-out; cursor: pointer; }
    #innerCircle:hover { fill: %s; }`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width, height float64
	radius        float64
	colors        map[string]string
	title         string
	total         int64
	interactive   bool
}

// WithSize sets the viewBox. The default is [sunburst.ChartWidth] by
// [sunburst.ChartHeight].
func WithSize(w, h float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height = w, h }
}

// WithRadius sets the width of one ring.
func WithRadius(px float64) SVGOption { return func(r *svgRenderer) { r.radius = px } }

// WithColors overrides the colour of top-level arcs by name.
func WithColors(c map[string]string) SVGOption { return func(r *svgRenderer) { r.colors = c } }

// WithTitle sets the document title.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// WithTotal sets the value percentages in arc tooltips are relative to. It
// defaults to the layout total.
func WithTotal(n int64) SVGOption { return func(r *svgRenderer) { r.total = n } }

// WithInteraction adds hover styles for browsers.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// RenderSVG draws the current frame of c.
func RenderSVG(c *sunburst.Controller, opts ...SVGOption) []byte {
	l := c.Layout()
	r := svgRenderer{
		width:  sunburst.ChartWidth,
		height: sunburst.ChartHeight,
		radius: sunburst.RingRadius,
		total:  l.Total(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.colors == nil {
		r.colors = sunburst.Colors(l)
	}

	w, h := num(r.width), num(r.height)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%s" height="%s" style="font: 5px sans-serif">`+"\n",
		w, h, w, h)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(r.title))
	}
	if r.interactive {
		fmt.Fprintf(&buf, "  <style>"+arcInteractionCSS+"\n  </style>\n", sunburst.CenterHover)
	}
	fmt.Fprintf(&buf, `  <g transform="translate(%s,%s)">`+"\n", num(r.width/2), num(r.height/2))

	frames := c.Frame()
	r.renderArcs(&buf, frames)
	r.renderLabels(&buf, frames)
	r.renderCenter(&buf, c.Focus())

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderArcs(buf *bytes.Buffer, frames []sunburst.ArcFrame) {
	buf.WriteString("    <g>\n")
	for _, f := range frames {
		events := "none"
		if f.Visible {
			events = "auto"
		}
		name := escapeXML(f.Arc.Name())
		fmt.Fprintf(buf, `      <path fill="%s" fill-opacity="%s" pointer-events="%s" data-name="%s" d="%s">`,
			r.colors[f.Arc.Top().Name()], num(f.Opacity), events, name, sunburst.ArcPath(f.Rect, r.radius))
		fmt.Fprintf(buf, "<title>%s\n%s\n%s%%</title></path>\n",
			name, sunburst.FormatDownloads(f.Arc.Value), sunburst.FormatShare(f.Arc.Value, r.total))
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderLabels(buf *bytes.Buffer, frames []sunburst.ArcFrame) {
	buf.WriteString(`    <g pointer-events="none" text-anchor="middle" style="user-select: none">` + "\n")
	for _, f := range frames {
		if !f.LabelShown {
			continue
		}
		fmt.Fprintf(buf, `      <text dy="0.35em" fill="%s" transform="%s">%s</text>`+"\n",
			sunburst.LabelColor, sunburst.LabelTransform(f.Rect, r.radius), escapeXML(f.Arc.Name()))
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderCenter(buf *bytes.Buffer, focus *sunburst.Arc) {
	fmt.Fprintf(buf, `    <circle id="innerCircle" r="%s" fill="%s" pointer-events="all" data-name="%s"/>`+"\n",
		num(r.radius-1), sunburst.CenterFill, escapeXML(focus.Name()))
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// num formats a number in its shortest form.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
