package versiontree

import "strings"

// Aggregated-name conventions, one per level.
const (
	// OtherName is the aggregated leaf among the root's children.
	OtherName = "Other"

	groupSuffix = ".?"
	tagSuffix   = "-other"
)

// AggregatedName returns the conventional name of the aggregated leaf that
// folds the children of a node named parent at the given depth (0 = root).
func AggregatedName(parent string, depth int) string {
	switch {
	case depth <= 0:
		return OtherName
	case depth < 3:
		return parent + groupSuffix
	default:
		return parent + tagSuffix
	}
}

// LogicalParent returns the name of the node whose children an aggregated
// leaf stands for. Names that are not aggregated names are returned as-is.
//
//	Other          → versions
//	v1.?           → v1
//	v1.2.?         → v1.2
//	v1.2.3-other   → v1.2.3
func LogicalParent(name string) string {
	switch {
	case name == OtherName:
		return RootName
	case strings.HasSuffix(name, groupSuffix):
		return strings.TrimSuffix(name, groupSuffix)
	case strings.HasSuffix(name, tagSuffix):
		return strings.TrimSuffix(name, tagSuffix)
	}
	return name
}

// IsAggregatedName reports whether name follows one of the aggregated-name
// conventions.
func IsAggregatedName(name string) bool {
	return LogicalParent(name) != name
}

// Prune returns a copy of n without zero-valued leaves and without internal
// nodes whose subtree sums to zero. It returns nil if n itself sums to zero
// and is not the root of the walk.
func Prune(n *Node) *Node {
	pruned := prune(n)
	if pruned == nil {
		return NewInternal(n.Name)
	}
	return pruned
}

func prune(n *Node) *Node {
	return Match(n,
		func(name string, children []*Node) *Node {
			kept := make([]*Node, 0, len(children))
			for _, c := range children {
				if p := prune(c); p != nil {
					kept = append(kept, p)
				}
			}
			if len(kept) == 0 {
				return nil
			}
			return NewInternal(name, kept...)
		},
		func(name string, value int64, aggregated bool) *Node {
			if value <= 0 {
				return nil
			}
			return &Node{Kind: KindLeaf, Name: name, Value: value, Aggregated: aggregated}
		},
	)
}

// Aggregate folds low-share siblings into synthetic aggregated leaves.
//
// The share of a node is its value divided by the grand total of the whole
// tree, never by its parent. At every internal node, processed bottom-up,
// children whose share is at or below threshold are replaced by one
// aggregated leaf appended after the kept children, unless the node's
// aggregated name (see [AggregatedName]) is in expanded.
//
// The input is not modified. Zero-valued subtrees are pruned first.
func Aggregate(root *Node, threshold float64, expanded Expanded) *Node {
	return aggregateWith(root, threshold, expanded, newSumCache(""))
}

func aggregateWith(root *Node, threshold float64, expanded Expanded, sums *sumCache) *Node {
	pruned := Prune(root)
	a := aggregator{
		threshold: threshold,
		expanded:  expanded,
		sums:      sums,
		total:     sums.sum(pruned, 0),
	}
	return a.node(pruned, 0)
}

type aggregator struct {
	threshold float64
	expanded  Expanded
	sums      *sumCache
	total     int64
}

// share returns value as a fraction of the grand total, 0 for an empty tree.
func (a *aggregator) share(value int64) float64 {
	if a.total <= 0 {
		return 0
	}
	return float64(value) / float64(a.total)
}

func (a *aggregator) node(n *Node, depth int) *Node {
	if n.IsLeaf() {
		return n
	}

	children := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = a.node(c, depth+1)
	}

	name := AggregatedName(n.Name, depth)
	if a.expanded.Has(name) {
		return NewInternal(n.Name, children...)
	}

	kept := make([]*Node, 0, len(children))
	var folded int64
	var foldedAny bool
	for i, c := range children {
		value := a.sums.sum(n.Children[i], depth+1)
		if a.share(value) > a.threshold {
			kept = append(kept, c)
			continue
		}
		folded += value
		foldedAny = true
	}
	if foldedAny {
		kept = append(kept, NewAggregated(name, folded))
	}
	return NewInternal(n.Name, kept...)
}
