// Package pipeline turns a package name into a navigable sunburst.
//
// This package implements the fetch → build → layout pipeline shared by the
// CLI, the explorer and the HTTP API, so that every entry point folds,
// orders and focuses a chart the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: last-week downloads per version from the npm registry
//  2. Build: bucketize versions and fold low-share siblings into a tree
//  3. Layout: partition the tree into arcs and focus the selected node
//
// # Usage
//
//	runner := pipeline.NewRunner(npm.NewClient(c, cache.TTLDownloads), c, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Package = "react"
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Controller.Focus().Name())
//
// Interactive front ends wrap the runner in a [Loader], which cancels a
// request as soon as a newer one starts.
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npmburst/pkg/cache"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/integrations/npm"
	"github.com/matzehuels/npmburst/pkg/sunburst"
	"github.com/matzehuels/npmburst/pkg/urlstate"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Explorer
// =============================================================================

const (
	// DefaultPackage is charted when no package is given.
	DefaultPackage = urlstate.DefaultPackage

	// DefaultThreshold is the share at or below which siblings are folded.
	DefaultThreshold = urlstate.DefaultThreshold
)

// Merge policy names.
const (
	MergeFirst  = "first"
	MergeSum    = "sum"
	MergeReject = "reject"
)

// Parse policy names.
const (
	ParseSkip   = "skip"
	ParseBucket = "bucket"
)

// Format constants for output formats.
const (
	FormatSVG   = "svg"
	FormatJSON  = "json"
	FormatDOT   = "dot"
	FormatTable = "table"
	FormatPNG   = "png"
	FormatPDF   = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:   true,
	FormatJSON:  true,
	FormatDOT:   true,
	FormatTable: true,
	FormatPNG:   true,
	FormatPDF:   true,
}

var mergePolicies = map[string]versiontree.MergePolicy{
	MergeFirst:  versiontree.MergeKeepFirst,
	MergeSum:    versiontree.MergeSum,
	MergeReject: versiontree.MergeReject,
}

var parsePolicies = map[string]versiontree.ParsePolicy{
	ParseSkip:   versiontree.ParseSkip,
	ParseBucket: versiontree.ParseBucket,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one chart.
// This struct supports JSON serialization for API requests.
type Options struct {
	Package string `json:"package"`
	// Threshold is used as given: zero disables folding. Start from
	// [DefaultOptions] to get the default threshold.
	Threshold     float64  `json:"threshold"`
	SortByVersion bool     `json:"sort_by_version,omitempty"`
	Expanded      []string `json:"expanded,omitempty"`
	Selected      string   `json:"selected,omitempty"`
	Merge         string   `json:"merge,omitempty"`
	Parse         string   `json:"parse,omitempty"`
	Refresh       bool     `json:"refresh,omitempty"`

	// Duration of zoom transitions. Zero snaps.
	Duration time.Duration `json:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultOptions returns the options of a fresh page.
func DefaultOptions() Options {
	return FromState(urlstate.Default())
}

// FromState converts decoded URL state into options.
func FromState(s urlstate.State) Options {
	return Options{
		Package:       s.Package,
		Threshold:     s.Threshold,
		SortByVersion: s.SortByVersion,
		Expanded:      s.Expanded.Names(),
		Selected:      s.Selected,
	}
}

// State converts options back into shareable URL state.
func (o *Options) State() urlstate.State {
	return urlstate.State{
		Package:       o.Package,
		SortByVersion: o.SortByVersion,
		Threshold:     o.Threshold,
		Selected:      o.Selected,
		Expanded:      versiontree.NewExpanded(o.Expanded...),
	}
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeUnsupported, "invalid format: %q (must be one of: table, svg, json, dot, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseMergePolicy maps a policy name to its value. The empty name is
// [MergeFirst].
func ParseMergePolicy(name string) (versiontree.MergePolicy, error) {
	if name == "" {
		return versiontree.MergeKeepFirst, nil
	}
	p, ok := mergePolicies[name]
	if !ok {
		return 0, errs.New(errs.ErrCodeInvalidInput, "invalid merge policy: %q (must be one of: first, sum, reject)", name)
	}
	return p, nil
}

// ParseParsePolicy maps a policy name to its value. The empty name is
// [ParseSkip].
func ParseParsePolicy(name string) (versiontree.ParsePolicy, error) {
	if name == "" {
		return versiontree.ParseSkip, nil
	}
	p, ok := parsePolicies[name]
	if !ok {
		return 0, errs.New(errs.ErrCodeInvalidInput, "invalid parse policy: %q (must be one of: skip, bucket)", name)
	}
	return p, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and fills in defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Package == "" {
		o.Package = DefaultPackage
	}
	if err := errs.ValidatePackageName(o.Package); err != nil {
		return err
	}
	if err := errs.ValidateThreshold(o.Threshold); err != nil {
		return err
	}
	if o.Selected == "" {
		o.Selected = versiontree.RootName
	}
	if o.Merge == "" {
		o.Merge = MergeFirst
	}
	if o.Parse == "" {
		o.Parse = ParseSkip
	}
	if _, err := ParseMergePolicy(o.Merge); err != nil {
		return err
	}
	if _, err := ParseParsePolicy(o.Parse); err != nil {
		return err
	}
	o.Expanded = versiontree.NewExpanded(o.Expanded...).Names()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// BuildOptions returns the tree options. Call after ValidateAndSetDefaults.
func (o *Options) BuildOptions() versiontree.Options {
	merge, _ := ParseMergePolicy(o.Merge)
	parse, _ := ParseParsePolicy(o.Parse)
	return versiontree.Options{
		Threshold: o.Threshold,
		Expanded:  versiontree.NewExpanded(o.Expanded...),
		Merge:     merge,
		Parse:     parse,
	}
}

// TreeKeyOpts returns cache key options for a tree built from counts whose
// hash is source.
func (o *Options) TreeKeyOpts(source string) cache.TreeKeyOpts {
	expanded := slices.Clone(o.Expanded)
	slices.Sort(expanded)
	return cache.TreeKeyOpts{
		Threshold: o.Threshold,
		Expanded:  expanded,
		Merge:     o.Merge,
		Parse:     o.Parse,
		Source:    source,
	}
}

// Comparator returns the sibling order of the chart.
func (o *Options) Comparator() sunburst.Comparator {
	if o.SortByVersion {
		return sunburst.ByVersion
	}
	return sunburst.ByValue
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Downloads holds the raw counts as fetched.
	Downloads *npm.Downloads

	// Tree is the aggregated version tree.
	Tree *versiontree.Tree

	// Layout is the partitioned tree.
	Layout *sunburst.Layout

	// Controller drives Layout and is focused on the selected node, or on
	// the root when that node is not part of the tree.
	Controller *sunburst.Controller

	// Options are the validated options the result was built with.
	Options Options

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Total returns the downloads of all versions.
func (r *Result) Total() int64 { return r.Tree.Total }

// Warnings returns the problems found while bucketizing.
func (r *Result) Warnings() []error { return r.Tree.Warnings }

// State returns the URL state of the result, with the selection the
// controller actually settled on.
func (r *Result) State() urlstate.State {
	s := r.Options.State()
	s.Selected = r.Controller.Focus().Name()
	s.Expanded = r.Controller.Expanded()
	return s
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Versions   int
	Leaves     int
	Arcs       int
	FetchTime  time.Duration
	BuildTime  time.Duration
	LayoutTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	TreeHit bool // Whether the tree came from cache
}

func (s Stats) String() string {
	return fmt.Sprintf("%d versions, %d leaves, %d arcs", s.Versions, s.Leaves, s.Arcs)
}
