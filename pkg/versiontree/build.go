package versiontree

import (
	errs "github.com/matzehuels/npmburst/pkg/errors"
)

// Options configures [Build].
type Options struct {
	// Threshold is the share of total downloads at or below which siblings
	// are folded into an aggregated leaf. 0 disables folding.
	Threshold float64

	// Expanded lists aggregated names whose level must not be folded.
	Expanded Expanded

	// Merge and Parse configure [Bucketize].
	Merge MergePolicy
	Parse ParsePolicy
}

// Tree is the result of one build: an immutable aggregated tree plus the
// figures the views need alongside it.
type Tree struct {
	Package string
	Root    *Node
	Total   int64

	// Warnings holds per-entry problems found while bucketizing. They never
	// prevent the tree from being built.
	Warnings []error
}

// Build bucketizes counts and aggregates the result.
//
// Every call works on fresh values: the memoized subtree sums live only for
// the duration of the call, keyed by pkg, so nothing leaks between packages
// or between rebuilds of the same package.
func Build(pkg string, counts map[string]int64, opts Options) (*Tree, error) {
	if err := errs.ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}

	raw, warnings := Bucketize(counts, BucketOptions{Merge: opts.Merge, Parse: opts.Parse})

	sums := newSumCache(pkg)
	root := aggregateWith(raw, opts.Threshold, opts.Expanded, sums)

	return &Tree{
		Package:  pkg,
		Root:     root,
		Total:    sums.sum(root, 0),
		Warnings: warnings,
	}, nil
}

// Find returns the node named name, or nil.
func (t *Tree) Find(name string) *Node {
	return t.Root.Find(name)
}

// Percentage returns value as a percentage of the tree total, 0 when the
// tree is empty.
func (t *Tree) Percentage(value int64) float64 {
	return Percentage(value, t.Total)
}

// Percentage returns value/total*100, or 0 when total is not positive.
func Percentage(value, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(value) / float64(total) * 100
}

// sumKey identifies a node within one package's tree. Depth separates a patch
// node from its stable leaf, which share a name.
type sumKey struct {
	pkg   string
	depth int
	name  string
}

// sumCache memoizes subtree sums for a single build. It is created by the
// build that uses it and dropped with it.
type sumCache struct {
	pkg  string
	sums map[sumKey]int64
}

func newSumCache(pkg string) *sumCache {
	return &sumCache{pkg: pkg, sums: make(map[sumKey]int64)}
}

func (c *sumCache) sum(n *Node, depth int) int64 {
	key := sumKey{pkg: c.pkg, depth: depth, name: n.Name}
	if v, ok := c.sums[key]; ok {
		return v
	}
	v := Match(n,
		func(_ string, children []*Node) int64 {
			var total int64
			for _, ch := range children {
				total += c.sum(ch, depth+1)
			}
			return total
		},
		func(_ string, value int64, _ bool) int64 { return value },
	)
	c.sums[key] = v
	return v
}
