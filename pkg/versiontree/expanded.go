package versiontree

import (
	"slices"
	"strings"
)

// Expanded is the set of aggregated-node names the user has opened. A level
// whose aggregated name is in the set shows all of its real children.
type Expanded map[string]struct{}

// NewExpanded returns a set holding names. Empty names are ignored.
func NewExpanded(names ...string) Expanded {
	e := make(Expanded, len(names))
	for _, n := range names {
		e.Add(n)
	}
	return e
}

// ParseExpanded splits a comma-joined list as stored in shareable state.
func ParseExpanded(s string) Expanded {
	return NewExpanded(strings.Split(s, ",")...)
}

// Has reports whether name is in the set. A nil set is empty.
func (e Expanded) Has(name string) bool {
	_, ok := e[name]
	return ok
}

// Add inserts name into the set.
func (e Expanded) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	e[name] = struct{}{}
}

// Names returns the members in sorted order.
func (e Expanded) Names() []string {
	names := make([]string, 0, len(e))
	for n := range e {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// String returns the comma-joined sorted members.
func (e Expanded) String() string {
	return strings.Join(e.Names(), ",")
}

// Clone returns an independent copy of the set.
func (e Expanded) Clone() Expanded {
	cp := make(Expanded, len(e))
	for n := range e {
		cp[n] = struct{}{}
	}
	return cp
}
