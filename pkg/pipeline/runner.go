package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/npmburst/pkg/cache"
	"github.com/matzehuels/npmburst/pkg/integrations/npm"
	"github.com/matzehuels/npmburst/pkg/observability"
	"github.com/matzehuels/npmburst/pkg/sunburst"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Fetcher loads the download counts of a package.
type Fetcher interface {
	FetchDownloads(ctx context.Context, pkg string, refresh bool) (*npm.Downloads, error)
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner doesn't store pipeline results. Multiple goroutines can safely
// use the same Runner with different options; concurrent fetches of the same
// package share one registry request.
type Runner struct {
	Fetcher Fetcher
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger

	flights singleflight.Group
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(f Fetcher, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Fetcher: f,
		Cache:   c,
		Keyer:   keyer,
		Logger:  logger,
	}
}

// Execute runs the complete fetch → build → layout pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{Options: opts}

	// Stage 1: Fetch
	fetchStart := time.Now()
	d, err := r.Fetch(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Downloads = d
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.Versions = len(d.Downloads)

	// Stage 2: Build
	buildStart := time.Now()
	tree, hit, err := r.BuildWithCacheInfo(ctx, d, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Tree = tree
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Leaves = tree.Root.Leaves()
	result.CacheInfo.TreeHit = hit

	r.Logger.Info("built tree",
		"package", opts.Package,
		"versions", result.Stats.Versions,
		"leaves", result.Stats.Leaves,
		"cached", hit)
	for _, w := range tree.Warnings {
		r.Logger.Warn("skipped version", "package", opts.Package, "err", w)
	}

	// Stage 3: Layout
	layoutStart := time.Now()
	result.Layout, result.Controller = r.Layout(ctx, tree, opts)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Arcs = len(result.Layout.Arcs)

	return result, nil
}

// Fetch returns the download counts of opts.Package.
//
// Callers asking for the same package at the same time share one request.
// The shared request is detached from the caller's context; a caller whose
// context ends stops waiting and gets ctx.Err().
func (r *Runner) Fetch(ctx context.Context, opts Options) (*npm.Downloads, error) {
	if r.Fetcher == nil {
		return nil, errors.New("pipeline: runner has no fetcher")
	}
	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, opts.Package)
	start := time.Now()

	key := opts.Package + "\x00" + strconv.FormatBool(opts.Refresh)
	flight := context.WithoutCancel(ctx)
	ch := r.flights.DoChan(key, func() (any, error) {
		return r.Fetcher.FetchDownloads(flight, opts.Package, opts.Refresh)
	})

	select {
	case <-ctx.Done():
		hooks.OnFetchComplete(ctx, opts.Package, 0, time.Since(start), ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			hooks.OnFetchComplete(ctx, opts.Package, 0, time.Since(start), res.Err)
			return nil, res.Err
		}
		d := res.Val.(*npm.Downloads)
		hooks.OnFetchComplete(ctx, opts.Package, len(d.Downloads), time.Since(start), nil)
		if res.Shared {
			r.Logger.Debug("shared in-flight fetch", "package", opts.Package)
		}
		return d, nil
	}
}

// treeEntry is the cached form of a tree. Warnings are kept as text.
type treeEntry struct {
	Package  string            `json:"package"`
	Total    int64             `json:"total"`
	Root     *versiontree.Node `json:"root"`
	Warnings []string          `json:"warnings,omitempty"`
}

// BuildWithCacheInfo builds the aggregated tree with caching and returns
// cache hit info.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, d *npm.Downloads, opts Options) (*versiontree.Tree, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	hooks := observability.Cache()

	source, _ := json.Marshal(d.Downloads)
	cacheKey := r.Keyer.TreeKey(opts.Package, opts.TreeKeyOpts(cache.Hash(source)))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var e treeEntry
			if err := json.Unmarshal(data, &e); err == nil && e.Root != nil {
				hooks.OnCacheHit(ctx, "tree")
				return e.tree(), true, nil
			}
		}
		hooks.OnCacheMiss(ctx, "tree")
	}

	start := time.Now()
	tree, err := versiontree.Build(opts.Package, d.Downloads, opts.BuildOptions())
	if err != nil {
		observability.Pipeline().OnBuildComplete(ctx, opts.Package, 0, time.Since(start), err)
		return nil, false, err
	}
	observability.Pipeline().OnBuildComplete(ctx, opts.Package, tree.Root.Leaves(), time.Since(start), nil)

	if data, err := json.Marshal(newTreeEntry(tree)); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLTree) == nil {
			hooks.OnCacheSet(ctx, "tree", len(data))
		}
	}
	return tree, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, d *npm.Downloads, opts Options) (*versiontree.Tree, error) {
	tree, _, err := r.BuildWithCacheInfo(ctx, d, opts)
	return tree, err
}

// Layout partitions tree in the order opts asks for and returns a
// controller focused on opts.Selected. A selection that is not in the tree,
// or is a leaf, leaves the focus on the root.
func (r *Runner) Layout(ctx context.Context, tree *versiontree.Tree, opts Options) (*sunburst.Layout, *sunburst.Controller) {
	start := time.Now()
	l := sunburst.Partition(tree.Root, opts.Comparator())
	c := sunburst.NewController(l,
		sunburst.WithDuration(opts.Duration),
		sunburst.WithExpanded(versiontree.NewExpanded(opts.Expanded...)),
	)
	if opts.Selected != "" && !c.FocusOn(opts.Selected) {
		r.Logger.Debug("selection not in tree, focusing root", "package", opts.Package, "selected", opts.Selected)
	}
	observability.Pipeline().OnLayoutComplete(ctx, opts.Package, len(l.Arcs), time.Since(start))
	return l, c
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func newTreeEntry(t *versiontree.Tree) treeEntry {
	e := treeEntry{Package: t.Package, Total: t.Total, Root: t.Root}
	for _, w := range t.Warnings {
		e.Warnings = append(e.Warnings, w.Error())
	}
	return e
}

func (e treeEntry) tree() *versiontree.Tree {
	t := &versiontree.Tree{Package: e.Package, Total: e.Total, Root: e.Root}
	for _, w := range e.Warnings {
		t.Warnings = append(t.Warnings, errors.New(w))
	}
	return t
}
