// Package versiontree turns a flat map of version → download count into the
// four-level version hierarchy drawn by the sunburst.
//
// # Tree Shape
//
// The tree always starts at a synthetic root named [RootName] ("versions") and
// has a fixed depth of four:
//
//	versions
//	└── v1                 major
//	    └── v1.2           minor
//	        └── v1.2.3     patch
//	            ├── v1.2.3          stable release (empty prerelease tag)
//	            └── v1.2.3-beta.1   prerelease tag
//
// A patch group holding a single tag is stored directly as a leaf named after
// the patch, so children lists never contain a one-child pass-through patch.
//
// # Nodes
//
// [Node] is an explicit tagged variant: [KindInternal] nodes carry children,
// [KindLeaf] nodes carry a download count and an aggregated flag. Code that
// needs to treat both shapes goes through [Match] instead of checking fields.
//
// # Building
//
// [Build] is the entry point used by the pipeline:
//
//	tree, err := versiontree.Build("nx", downloads, versiontree.Options{
//	    Threshold: 0.02,
//	    Expanded:  versiontree.NewExpanded("v15.?"),
//	})
//
// It runs three steps, each of which is also exported:
//
//  1. [Bucketize] parses every version string and groups counts into the tree.
//     Entries that are not valid semantic versions never fail the whole tree;
//     they are skipped (or bucketed, see [ParsePolicy]) and reported as
//     warnings.
//  2. [Prune] drops zero-valued subtrees.
//  3. [Aggregate] folds siblings whose share of the grand total is at or below
//     the threshold into a synthetic aggregated leaf, except for levels whose
//     aggregated name appears in the expanded set.
//
// # Aggregated Names
//
// Each level has a conventional name for its aggregated leaf:
//
//	versions → Other
//	v1       → v1.?
//	v1.2     → v1.2.?
//	v1.2.3   → v1.2.3-other
//
// [LogicalParent] maps an aggregated name back to the node whose children it
// stands for, which is where the sunburst moves focus when the user opens it.
//
// # Collisions
//
// Distinct version strings can normalize to the same (major, minor, patch,
// tag) key, for example "1.0.0+build.1" and "1.0.0+build.2". [MergePolicy]
// decides what happens: keep the first value (the historical behaviour), sum
// them, or keep the first and report the rest.
package versiontree
