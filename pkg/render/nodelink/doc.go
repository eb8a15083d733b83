// Package nodelink renders a version tree as a node-link diagram.
//
// The sunburst hides everything below the third ring; the diagram shows the
// same tree laid out by Graphviz, one box per node, which is easier to read
// when debugging how versions were bucketed and folded.
//
// # Usage
//
//	dot := nodelink.ToDOT(tree.Root, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [RenderPDF] and [RenderPNG] pass the SVG through rsvg-convert.
//
// Aggregated leaves ("Other", "v1.?") are drawn dashed and grey.
package nodelink
