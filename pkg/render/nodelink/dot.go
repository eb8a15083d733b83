package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/npmburst/pkg/render"
	"github.com/matzehuels/npmburst/pkg/sunburst"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds download counts and shares to node labels. When false,
	// only the node name is shown.
	Detailed bool
	// Total is the value shares are relative to. It defaults to the sum of
	// the tree.
	Total int64
	// MaxDepth limits how many levels below the root are drawn. Zero draws
	// the whole tree.
	MaxDepth int
}

// ToDOT converts a version tree to Graphviz DOT format, root on the left.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Aggregated leaves are rendered with dashed outlines and grey fill to
// distinguish them from real versions.
func ToDOT(root *versiontree.Node, opts Options) string {
	if opts.Total <= 0 {
		opts.Total = root.Sum()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	// Names can repeat across subtrees, so nodes are keyed by position.
	var edges []string
	ids := map[*versiontree.Node]string{}
	var parents []*versiontree.Node
	root.Walk(func(n *versiontree.Node, depth int) bool {
		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			return false
		}
		id := "n" + strconv.Itoa(len(ids))
		ids[n] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(fmtAttrs(n, opts), ", "))

		parents = parents[:depth]
		if depth > 0 {
			edges = append(edges, fmt.Sprintf("  %s -> %s;\n", ids[parents[depth-1]], id))
		}
		parents = append(parents, n)
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *versiontree.Node, opts Options) string {
	if !opts.Detailed {
		return n.Name
	}
	v := n.Sum()
	return fmt.Sprintf("%s\n%s\n%s%%", n.Name, sunburst.FormatDownloads(v), sunburst.FormatShare(v, opts.Total))
}

func fmtAttrs(n *versiontree.Node, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts))}
	if n.IsAggregated() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// one so that the diagram scales like the sunburst.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion at the given scale.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
