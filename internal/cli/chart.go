package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npmburst/pkg/drilldown"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/observability"
	"github.com/matzehuels/npmburst/pkg/pipeline"
	"github.com/matzehuels/npmburst/pkg/render"
	"github.com/matzehuels/npmburst/pkg/render/nodelink"
	"github.com/matzehuels/npmburst/pkg/render/sink"
	"github.com/matzehuels/npmburst/pkg/urlstate"
)

const (
	sortByValue   = "value"
	sortByVersion = urlstate.SortByVersion
	defaultScale  = 4.0 // the sunburst viewBox is only 450 units wide
)

// chartOpts holds the command-line flags for the chart command.
type chartOpts struct {
	output    string   // output file (single format) or base path (multiple)
	formats   []string // table, svg, json, dot, png, pdf
	lpf       string   // low-pass filter as a percentage, e.g. "2.00"
	sortBy    string   // value or version
	expand    []string // aggregated names to expand
	selected  string   // node to focus
	highlight string   // table row to highlight
	tree      bool     // also draw the version tree with Graphviz
	detailed  bool     // counts in tree diagram labels
	scale     float64  // PNG scale
	refresh   bool     // bypass cached downloads
	noCache   bool     // disable caching entirely
}

// chartCommand creates the chart command.
func (c *CLI) chartCommand() *cobra.Command {
	var formatsStr string
	opts := chartOpts{sortBy: sortByValue, scale: defaultScale}

	cmd := &cobra.Command{
		Use:   "chart [package]",
		Short: "Chart last week's downloads of a package by version",
		Long: `Chart fetches last week's downloads of an npm package per version, folds
versions below the --lpf share into aggregated slices and prints the
drill-down table of the selected node. Other formats are written to files.`,
		Example: `  npmburst chart react
  npmburst chart @nx/js --select v19 -f table,svg
  npmburst chart react --lpf 5 --expand "v16.?" -f svg,png -o react`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			pkg := c.Config.Defaults.Package
			if len(args) > 0 {
				pkg = args[0]
			}
			return c.runChart(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), pkg, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): table (default), svg, json, dot, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&opts.lpf, "lpf", "", "fold versions below this share, in percent (default from config, 2.00)")
	cmd.Flags().StringVar(&opts.sortBy, "sort-by", opts.sortBy, "slice order: value or version")
	cmd.Flags().StringSliceVar(&opts.expand, "expand", nil, "aggregated slices to expand, e.g. Other,v1.?")
	cmd.Flags().StringVar(&opts.selected, "select", "", "version to focus, e.g. v18 or v18.2")
	cmd.Flags().StringVar(&opts.highlight, "highlight", "", "table row to highlight")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "also render the version tree as a node-link diagram")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show counts in the tree diagram")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached downloads")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// pipelineOptions turns flags into validated pipeline options.
func (c *CLI) pipelineOptions(pkg string, opts *chartOpts) (pipeline.Options, error) {
	threshold := c.Config.Defaults.Threshold
	if opts.lpf != "" {
		t, err := urlstate.ParsePercent(opts.lpf)
		if err != nil {
			return pipeline.Options{}, err
		}
		threshold = t
	}

	var byVersion bool
	switch opts.sortBy {
	case sortByValue, "":
	case sortByVersion:
		byVersion = true
	default:
		return pipeline.Options{}, errs.New(errs.ErrCodeInvalidInput, "invalid --sort-by %q (want value or version)", opts.sortBy)
	}

	p := pipeline.Options{
		Package:       pkg,
		Threshold:     threshold,
		SortByVersion: byVersion,
		Expanded:      opts.expand,
		Selected:      opts.selected,
		Refresh:       opts.refresh,
		Logger:        c.Logger,
	}
	return p, p.ValidateAndSetDefaults()
}

func (c *CLI) runChart(ctx context.Context, stdout, stderr io.Writer, pkg string, opts *chartOpts) error {
	popts, err := c.pipelineOptions(pkg, opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, stderr, "Fetching "+popts.Package+"...")
	spin.Start()
	res, err := runner.Execute(ctx, popts)
	spin.Stop()
	if err != nil {
		if errs.IsLoadError(err) {
			printError(stderr, "Could not load %s: %s", popts.Package, errs.UserMessage(err))
			printNextStep(stderr, "Try again", "npmburst chart "+popts.Package+" --refresh")
		}
		return err
	}
	prog.done("charted", "package", popts.Package, "leaves", res.Stats.Leaves)

	if n := len(res.Warnings()); n > 0 {
		printWarning(stderr, "Skipped %d versions that are not valid semver", n)
	}

	base := chartBasePath(opts.output, popts.Package)
	files := fileFormats(opts.formats)
	for _, format := range opts.formats {
		if format == pipeline.FormatTable {
			printChartTable(stdout, res, opts.highlight)
			continue
		}
		path := base + "." + format
		if len(files) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := c.writeChart(ctx, res, format, path, opts); err != nil {
			return err
		}
		printFile(stdout, path)
	}

	if opts.tree {
		for _, format := range treeFormats(files) {
			path := base + "_tree." + format
			if err := c.writeTree(ctx, res, format, path, opts); err != nil {
				return err
			}
			printFile(stdout, path)
		}
	}

	printStats(stdout, res.Stats, res.Total(), res.CacheInfo.TreeHit)
	if q := res.State().Query(); q != "" {
		printDetail(stdout, "state: ?%s", q)
	}
	return nil
}

// printChartTable prints the drill-down table of the focused node.
func printChartTable(w io.Writer, res *pipeline.Result, highlight string) {
	focus := res.Controller.Focus().Name()
	node := res.Tree.Find(focus)
	if node == nil {
		node = res.Tree.Root
	}
	fmt.Fprintln(w, StyleTitle.Render(res.Tree.Package)+" "+StyleDim.Render(drilldown.Header(focus)))
	fmt.Fprintln(w, renderTable(drilldown.Build(node, highlight)))
}

// renderChart produces the sunburst in format.
func renderChart(ctx context.Context, res *pipeline.Result, format string, opts *chartOpts) ([]byte, error) {
	svg := func() []byte {
		return sink.RenderSVG(res.Controller, sink.WithTitle(res.Tree.Package+" downloads by version"))
	}
	switch format {
	case pipeline.FormatSVG:
		return svg(), nil
	case pipeline.FormatJSON:
		return sink.RenderJSON(res.Controller,
			sink.WithJSONPackage(res.Tree.Package),
			sink.WithJSONState(res.State().Query()),
			sink.WithJSONTree(res.Tree.Root))
	case pipeline.FormatDOT:
		return []byte(nodelink.ToDOT(res.Tree.Root, nodelink.Options{Detailed: opts.detailed, Total: res.Total()})), nil
	case pipeline.FormatPNG:
		return render.ToPNG(ctx, svg(), opts.scale)
	case pipeline.FormatPDF:
		return render.ToPDF(ctx, svg())
	}
	return nil, errs.New(errs.ErrCodeUnsupported, "unsupported format %q", format)
}

func (c *CLI) writeChart(ctx context.Context, res *pipeline.Result, format, path string, opts *chartOpts) error {
	start := time.Now()
	data, err := renderChart(ctx, res, format, opts)
	observability.Pipeline().OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", format, err)
	}
	return writeFile(path, data)
}

// writeTree renders the version tree diagram through Graphviz.
func (c *CLI) writeTree(ctx context.Context, res *pipeline.Result, format, path string, opts *chartOpts) error {
	dot := nodelink.ToDOT(res.Tree.Root, nodelink.Options{Detailed: opts.detailed, Total: res.Total()})

	start := time.Now()
	var data []byte
	var err error
	switch format {
	case pipeline.FormatPNG:
		data, err = nodelink.RenderPNG(ctx, dot, 2)
	case pipeline.FormatPDF:
		data, err = nodelink.RenderPDF(ctx, dot)
	default:
		data, err = nodelink.RenderSVG(ctx, dot)
	}
	observability.Pipeline().OnRenderComplete(ctx, "tree-"+format, len(data), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("tree %s: %w", format, err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// chartBasePath derives the base output path. Without --output it is the
// package name made file-safe: "@nx/js" → "nx-js". A known format
// extension on output is stripped.
func chartBasePath(output, pkg string) string {
	if output == "" {
		name := strings.TrimPrefix(pkg, "@")
		return strings.ReplaceAll(name, "/", "-")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// fileFormats returns the formats that are written to files.
func fileFormats(formats []string) []string {
	var out []string
	for _, f := range formats {
		if f != pipeline.FormatTable {
			out = append(out, f)
		}
	}
	return out
}

// treeFormats picks the diagram formats for --tree: the image formats
// requested, or SVG when none was.
func treeFormats(files []string) []string {
	var out []string
	for _, f := range files {
		switch f {
		case pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatPDF:
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = []string{pipeline.FormatSVG}
	}
	return out
}
