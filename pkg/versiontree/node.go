package versiontree

import (
	"encoding/json"
	"fmt"
)

// RootName is the name of the synthetic root of every version tree.
const RootName = "versions"

// Kind discriminates the two node shapes.
type Kind uint8

const (
	// KindInternal nodes group children and carry no value of their own.
	KindInternal Kind = iota
	// KindLeaf nodes carry a download count.
	KindLeaf
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindLeaf:
		return "leaf"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Node is one element of a version tree.
//
// Children is only meaningful for KindInternal nodes and its order is
// significant. Value and Aggregated are only meaningful for KindLeaf nodes.
// Use [Match] rather than inspecting fields directly.
type Node struct {
	Kind       Kind
	Name       string
	Children   []*Node
	Value      int64
	Aggregated bool
}

// NewInternal returns an internal node with the given children.
func NewInternal(name string, children ...*Node) *Node {
	return &Node{Kind: KindInternal, Name: name, Children: children}
}

// NewLeaf returns a leaf holding value downloads.
func NewLeaf(name string, value int64) *Node {
	return &Node{Kind: KindLeaf, Name: name, Value: value}
}

// NewAggregated returns a synthetic leaf standing for folded siblings.
func NewAggregated(name string, value int64) *Node {
	return &Node{Kind: KindLeaf, Name: name, Value: value, Aggregated: true}
}

// Match calls internal or leaf depending on the node's kind and returns the
// result. It is the single place where the two shapes are told apart.
func Match[T any](n *Node, internal func(name string, children []*Node) T, leaf func(name string, value int64, aggregated bool) T) T {
	switch n.Kind {
	case KindInternal:
		return internal(n.Name, n.Children)
	case KindLeaf:
		return leaf(n.Name, n.Value, n.Aggregated)
	}
	panic(fmt.Sprintf("versiontree: unknown node kind %v", n.Kind))
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool { return n.Kind == KindLeaf }

// IsAggregated reports whether n is a synthetic aggregated leaf.
func (n *Node) IsAggregated() bool { return n.Kind == KindLeaf && n.Aggregated }

// HasChildren reports whether n is an internal node with at least one child.
func (n *Node) HasChildren() bool { return n.Kind == KindInternal && len(n.Children) > 0 }

// Sum returns the leaf value, or the sum of all descendant leaves.
func (n *Node) Sum() int64 {
	return Match(n,
		func(_ string, children []*Node) int64 {
			var total int64
			for _, c := range children {
				total += c.Sum()
			}
			return total
		},
		func(_ string, value int64, _ bool) int64 { return value },
	)
}

// Height returns the number of levels below n (0 for a leaf).
func (n *Node) Height() int {
	return Match(n,
		func(_ string, children []*Node) int {
			h := 0
			for _, c := range children {
				h = max(h, c.Height()+1)
			}
			return h
		},
		func(string, int64, bool) int { return 0 },
	)
}

// Walk visits n and its descendants depth-first in child order. The visit
// function receives the node and its depth relative to n; returning false
// skips the node's children.
func (n *Node) Walk(visit func(node *Node, depth int) bool) {
	n.walk(visit, 0)
}

func (n *Node) walk(visit func(*Node, int) bool, depth int) {
	if !visit(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(visit, depth+1)
	}
}

// Leaves returns the number of leaves under n.
func (n *Node) Leaves() int {
	count := 0
	n.Walk(func(node *Node, _ int) bool {
		if node.IsLeaf() {
			count++
		}
		return true
	})
	return count
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	return Match(n,
		func(name string, children []*Node) *Node {
			cp := make([]*Node, len(children))
			for i, c := range children {
				cp[i] = c.Clone()
			}
			return NewInternal(name, cp...)
		},
		func(name string, value int64, aggregated bool) *Node {
			return &Node{Kind: KindLeaf, Name: name, Value: value, Aggregated: aggregated}
		},
	)
}

// Find returns the first node named name in a pre-order walk. A patch node
// and its stable leaf share a name; Find returns the patch node.
func (n *Node) Find(name string) *Node {
	path := n.Path(name)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// Path returns the chain of nodes from n down to the first node named name,
// or nil if there is none.
func (n *Node) Path(name string) []*Node {
	if n.Name == name {
		return []*Node{n}
	}
	for _, c := range n.Children {
		if p := c.Path(name); p != nil {
			return append([]*Node{n}, p...)
		}
	}
	return nil
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.Value != b.Value || a.Aggregated != b.Aggregated {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// jsonNode is the wire shape shared with the browser front end:
// internal nodes carry "children", leaves carry "value".
type jsonNode struct {
	Name         string  `json:"name"`
	Children     []*Node `json:"children,omitempty"`
	Value        *int64  `json:"value,omitempty"`
	IsAggregated bool    `json:"isAggregated,omitempty"`
}

// internalJSON always carries "children", even when empty.
type internalJSON struct {
	Name     string  `json:"name"`
	Children []*Node `json:"children"`
}

// MarshalJSON encodes the node in the front end's format.
func (n *Node) MarshalJSON() ([]byte, error) {
	wire := Match(n,
		func(name string, children []*Node) any {
			if children == nil {
				children = []*Node{}
			}
			return internalJSON{Name: name, Children: children}
		},
		func(name string, value int64, aggregated bool) any {
			return jsonNode{Name: name, Value: &value, IsAggregated: aggregated}
		},
	)
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a node, choosing the kind from the presence of the
// "value" field.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw jsonNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Value != nil {
		if *raw.Value < 0 {
			return fmt.Errorf("versiontree: negative value %d for %q", *raw.Value, raw.Name)
		}
		*n = Node{Kind: KindLeaf, Name: raw.Name, Value: *raw.Value, Aggregated: raw.IsAggregated}
		return nil
	}
	*n = Node{Kind: KindInternal, Name: raw.Name, Children: raw.Children}
	return nil
}
