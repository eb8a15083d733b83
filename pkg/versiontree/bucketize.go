package versiontree

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	errs "github.com/matzehuels/npmburst/pkg/errors"
)

// UnparseableName is the leaf that collects counts of invalid version strings
// when [ParseBucket] is in effect.
const UnparseableName = "unparseable"

// MergePolicy decides what happens when two version strings normalize to the
// same (major, minor, patch, tag) key.
type MergePolicy uint8

const (
	// MergeKeepFirst keeps the value of the first version in semver order and
	// silently discards the others.
	MergeKeepFirst MergePolicy = iota
	// MergeSum adds the values together.
	MergeSum
	// MergeReject keeps the first value and reports every later one.
	MergeReject
)

// ParsePolicy decides what happens to entries that are not valid semantic
// versions.
type ParsePolicy uint8

const (
	// ParseSkip drops the entry and reports it.
	ParseSkip ParsePolicy = iota
	// ParseBucket adds the entry's value to an [UnparseableName] leaf under
	// the root and reports it.
	ParseBucket
)

// BucketOptions configures [Bucketize].
type BucketOptions struct {
	Merge MergePolicy
	Parse ParsePolicy
}

type bucketKey struct {
	major, minor, patch uint64
	tag                 string
}

type entry struct {
	raw     string
	count   int64
	version *semver.Version
}

// ParseVersion parses a registry version string. A leading "v" or "=" and
// surrounding whitespace are accepted; everything else must be strict
// semantic versioning.
func ParseVersion(s string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimLeft(trimmed, "=v")
	v, err := semver.StrictNewVersion(trimmed)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidVersion, err, "invalid version %q", s)
	}
	return v, nil
}

// Bucketize groups counts into a four-level version tree rooted at
// [RootName]. Entries that fail to parse, or collide under [MergeReject],
// are reported in the returned slice; they never abort the build.
//
// Zero counts are dropped, so the returned tree contains no zero-valued node.
func Bucketize(counts map[string]int64, opts BucketOptions) (*Node, []error) {
	var (
		parsed      []entry
		unparseable []entry
		warnings    []error
	)
	for raw, count := range counts {
		if count < 0 {
			warnings = append(warnings, errs.New(errs.ErrCodeInvalidInput, "negative count %d for %q", count, raw))
			continue
		}
		v, err := ParseVersion(raw)
		if err != nil {
			warnings = append(warnings, err)
			unparseable = append(unparseable, entry{raw: raw, count: count})
			continue
		}
		parsed = append(parsed, entry{raw: raw, count: count, version: v})
	}

	// Map iteration order is random; semver order makes "first" well defined.
	slices.SortFunc(parsed, func(a, b entry) int {
		if c := a.version.Compare(b.version); c != 0 {
			return c
		}
		return strings.Compare(a.raw, b.raw)
	})

	buckets := make(map[bucketKey]int64, len(parsed))
	var order []bucketKey
	for _, e := range parsed {
		key := bucketKey{
			major: e.version.Major(),
			minor: e.version.Minor(),
			patch: e.version.Patch(),
			tag:   e.version.Prerelease(),
		}
		prev, seen := buckets[key]
		switch {
		case !seen:
			buckets[key] = e.count
			order = append(order, key)
		case opts.Merge == MergeSum:
			buckets[key] = prev + e.count
		case opts.Merge == MergeReject:
			warnings = append(warnings, errs.New(errs.ErrCodeInvalidVersion,
				"version %q collides with an earlier version of %s", e.raw, key.name()))
		}
	}

	root := convert(order, buckets)

	if opts.Parse == ParseBucket && len(unparseable) > 0 {
		var total int64
		for _, e := range unparseable {
			total += e.count
		}
		if total > 0 {
			root.Children = append(root.Children, NewLeaf(UnparseableName, total))
		}
	}

	slices.SortFunc(warnings, func(a, b error) int { return cmp.Compare(a.Error(), b.Error()) })
	return root, warnings
}

// convert renders buckets into nodes. Keys arrive in semver order, which is
// ascending by major, minor and patch, so appending preserves that order.
func convert(order []bucketKey, buckets map[bucketKey]int64) *Node {
	root := NewInternal(RootName)
	var (
		major, minor, patch *Node
		last                bucketKey
		tags                []*Node
	)

	flushPatch := func() {
		if patch == nil {
			return
		}
		switch len(tags) {
		case 0:
		case 1:
			minor.Children = append(minor.Children, NewLeaf(patch.Name, tags[0].Value))
		default:
			patch.Children = tags
			minor.Children = append(minor.Children, patch)
		}
		patch, tags = nil, nil
	}
	flushMinor := func() {
		flushPatch()
		if minor != nil && len(minor.Children) > 0 {
			major.Children = append(major.Children, minor)
		}
		minor = nil
	}
	flushMajor := func() {
		flushMinor()
		if major != nil && len(major.Children) > 0 {
			root.Children = append(root.Children, major)
		}
		major = nil
	}

	for i, key := range order {
		first := i == 0
		if first || key.major != last.major {
			flushMajor()
			major = NewInternal(fmt.Sprintf("v%d", key.major))
		}
		if first || key.major != last.major || key.minor != last.minor {
			flushMinor()
			minor = NewInternal(fmt.Sprintf("v%d.%d", key.major, key.minor))
		}
		if first || key.major != last.major || key.minor != last.minor || key.patch != last.patch {
			flushPatch()
			patch = NewInternal(key.patchName())
		}
		if count := buckets[key]; count > 0 {
			tags = append(tags, NewLeaf(key.name(), count))
		}
		last = key
	}
	flushMajor()
	return root
}

func (k bucketKey) patchName() string {
	return fmt.Sprintf("v%d.%d.%d", k.major, k.minor, k.patch)
}

// name is the leaf name: the bare patch name for stable releases, otherwise
// the patch name with the prerelease tag appended.
func (k bucketKey) name() string {
	if strings.TrimSpace(k.tag) == "" {
		return k.patchName()
	}
	return k.patchName() + "-" + k.tag
}
