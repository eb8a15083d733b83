// Package render turns a laid-out chart into output files.
//
// # Overview
//
//   - [sink]: the sunburst as SVG, and arcs plus tree as JSON
//   - [nodelink]: the version tree as a Graphviz diagram
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := sink.RenderSVG(controller, sink.WithTitle("react"))
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [sink]: github.com/matzehuels/npmburst/pkg/render/sink
// [nodelink]: github.com/matzehuels/npmburst/pkg/render/nodelink
package render
