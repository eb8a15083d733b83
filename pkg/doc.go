// Package pkg provides the core libraries for npmburst, a chart of npm
// downloads by version.
//
// # Overview
//
// npmburst takes last week's download counts of an npm package, one number per
// published version, and arranges them as a zoomable sunburst: majors on the
// inner ring, minors around them and patches and pre-release tags outside.
// Versions whose share is at or below a threshold are folded into "Other" and
// "vX.?" / "vX.Y.?" slices that expand on demand.
//
// # Architecture
//
// The typical data flow:
//
//	npm downloads API
//	         ↓
//	    [integrations/npm] (fetch counts, cached)
//	         ↓
//	    [versiontree] (bucketize + fold small versions)
//	         ↓
//	    [sunburst] (partition, zoom controller)
//	         ↓
//	    [render/sink] SVG/JSON, [render/nodelink] DOT, [render] PNG/PDF
//
// Each stage is its own package: [integrations/npm], [versiontree],
// [sunburst], [render/sink], [render/nodelink] and [render].
//
// [pipeline] runs these stages for the CLI, the explorer and the HTTP server
// alike, so all three share defaults and caching. [urlstate] encodes the
// chart state (package, threshold, order, selection, expansions) as query
// parameters and [drilldown] builds the table shown next to the chart.
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/npmburst/pkg/render/sink"
//	    "github.com/matzehuels/npmburst/pkg/sunburst"
//	    "github.com/matzehuels/npmburst/pkg/versiontree"
//	)
//
//	counts := map[string]int64{"18.2.0": 9000, "18.1.0": 700, "17.0.2": 300}
//
//	// 1. Build the version tree, folding anything at or below 2%
//	tree, _ := versiontree.Build("react", counts, versiontree.Options{Threshold: 0.02})
//
//	// 2. Lay it out and zoom to v18
//	c := sunburst.NewController(sunburst.Partition(tree.Root, sunburst.ByValue))
//	c.FocusOn("v18")
//
//	// 3. Render to SVG
//	svg := sink.RenderSVG(c)
//
// # Supporting Packages
//
// [cache] - Cache interface with file, Redis, MongoDB and null backends, plus
// key construction for HTTP responses and built trees.
//
// [config] - TOML configuration for the CLI and server.
//
// [errors] - Structured errors with codes shared by the CLI and HTTP API.
//
// [observability] - Hooks for fetch, build, render, cache and HTTP events.
//
// # Testing
//
//	go test ./...                          # All tests
//	go test -run Example ./pkg/...         # Examples only
//	go test -tags integration ./pkg/...    # Include Redis/MongoDB/registry tests
//
// [integrations/npm]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/integrations/npm
// [versiontree]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/versiontree
// [sunburst]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/sunburst
// [render]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/render
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/render/sink
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/pipeline
// [urlstate]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/urlstate
// [drilldown]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/drilldown
// [cache]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/npmburst/pkg/observability
package pkg
