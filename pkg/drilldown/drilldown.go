// Package drilldown builds the tabular view of a version-tree node: its
// children with their download counts and share of the node.
//
// A node whose children have children of their own gets a two-level table,
// one group per child with that child's sub-rows.
package drilldown

import (
	"slices"
	"strconv"

	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Row is one line of the table.
type Row struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	// Percentage is the share of the table's node, not of the row's parent.
	Percentage float64 `json:"percentage"`
	Highlight  bool    `json:"highlight,omitempty"`
	SubRows    []Row   `json:"subRows,omitempty"`
}

// Table is the drill-down view of one node.
type Table struct {
	Node    string `json:"node"`
	Header  string `json:"header"`
	Nested  bool   `json:"nested"`
	Rows    []Row  `json:"rows"`
	Total   int64  `json:"total"`
	Message string `json:"message,omitempty"`
}

// Build returns the table for n, highlighting rows named highlighted.
// Children appear last-first and zero-count children are left out.
func Build(n *versiontree.Node, highlighted string) Table {
	t := Table{
		Node:   n.Name,
		Header: Header(n.Name),
		Total:  n.Sum(),
		Rows:   []Row{},
	}
	if !n.HasChildren() {
		t.Message = "no sub-versions"
		return t
	}

	t.Nested = hasGrandChildren(n)
	for _, c := range visible(n.Children) {
		row := newRow(c, t.Total, highlighted)
		if t.Nested && c.HasChildren() {
			for _, gc := range visible(c.Children) {
				row.SubRows = append(row.SubRows, newRow(gc, t.Total, highlighted))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Rows lists the direct children of n as single-level rows.
func Rows(n *versiontree.Node, highlighted string) []Row {
	total := n.Sum()
	var rows []Row
	if !n.HasChildren() {
		return rows
	}
	for _, c := range visible(n.Children) {
		rows = append(rows, newRow(c, total, highlighted))
	}
	return rows
}

// Header is the title of the percentage column.
func Header(name string) string {
	if name == "" || name == versiontree.RootName {
		return "Percentage of all versions"
	}
	return "Percentage of " + name
}

func newRow(n *versiontree.Node, total int64, highlighted string) Row {
	count := n.Sum()
	return Row{
		Name:       n.Name,
		Count:      count,
		Percentage: versiontree.Percentage(count, total),
		Highlight:  highlighted != "" && n.Name == highlighted,
	}
}

// visible returns children in reverse order without zero-count entries.
func visible(children []*versiontree.Node) []*versiontree.Node {
	out := make([]*versiontree.Node, 0, len(children))
	for _, c := range slices.Backward(children) {
		if c.Sum() > 0 {
			out = append(out, c)
		}
	}
	return out
}

func hasGrandChildren(n *versiontree.Node) bool {
	return slices.ContainsFunc(n.Children, (*versiontree.Node).HasChildren)
}

// FormatCount abbreviates a download count: 1234 → "1.23k",
// 25_000_000 → "25.0m".
func FormatCount(n int64) string {
	f := float64(n)
	switch {
	case n > 100_000_000:
		return fixed(f/1e6, 0) + "m"
	case n > 10_000_000:
		return fixed(f/1e6, 1) + "m"
	case n > 1_000_000:
		return fixed(f/1e6, 2) + "m"
	case n > 100_000:
		return fixed(f/1e3, 0) + "k"
	case n > 10_000:
		return fixed(f/1e3, 1) + "k"
	case n > 1_000:
		return fixed(f/1e3, 2) + "k"
	}
	return strconv.FormatInt(n, 10)
}

// FormatPercentage renders p (already multiplied by 100) with fewer decimals
// for larger values.
func FormatPercentage(p float64) string {
	switch {
	case p > 10:
		return fixed(p, 1) + "%"
	case p > 1:
		return fixed(p, 2) + "%"
	}
	return fixed(p, 3) + "%"
}

func fixed(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
