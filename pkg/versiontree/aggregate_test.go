package versiontree

import (
	"testing"
)

var sampleCounts = map[string]int64{
	"1.0.0":        100,
	"1.0.1":        50,
	"2.0.0-beta.1": 1,
}

var wideCounts = map[string]int64{
	"0.9.0":       2,
	"1.0.0":       400,
	"1.0.1":       30,
	"1.1.0-rc.1":  3,
	"1.1.0-rc.2":  1,
	"1.1.0":       250,
	"1.2.0":       9,
	"2.0.0":       180,
	"2.0.1-alpha": 1,
	"2.0.1":       120,
	"3.0.0-next":  4,
}

func TestAggregatedName(t *testing.T) {
	tests := []struct {
		parent string
		depth  int
		want   string
	}{
		{RootName, 0, "Other"},
		{"v1", 1, "v1.?"},
		{"v1.2", 2, "v1.2.?"},
		{"v1.2.3", 3, "v1.2.3-other"},
	}
	for _, tt := range tests {
		got := AggregatedName(tt.parent, tt.depth)
		if got != tt.want {
			t.Errorf("AggregatedName(%q, %d) = %q, want %q", tt.parent, tt.depth, got, tt.want)
		}
		if back := LogicalParent(got); back != tt.parent {
			t.Errorf("LogicalParent(%q) = %q, want %q", got, back, tt.parent)
		}
		if !IsAggregatedName(got) {
			t.Errorf("IsAggregatedName(%q) = false", got)
		}
	}
	if IsAggregatedName("v1.2.3") {
		t.Error("IsAggregatedName(v1.2.3) = true")
	}
}

func TestAggregateScenario(t *testing.T) {
	raw, _ := Bucketize(sampleCounts, BucketOptions{})
	root := Aggregate(raw, 0.01, nil)

	if got := names(root.Children); !equalStrings(got, []string{"v1", "Other"}) {
		t.Fatalf("root children = %v, want [v1 Other]", got)
	}
	if got := root.Children[0].Sum(); got != 150 {
		t.Errorf("v1 = %d, want 150", got)
	}
	other := root.Children[1]
	if !other.IsAggregated() || other.Value != 1 {
		t.Errorf("Other = %+v, want aggregated leaf with value 1", other)
	}

	// The input is left untouched.
	if got := names(raw.Children); !equalStrings(got, []string{"v1", "v2"}) {
		t.Errorf("input mutated: %v", got)
	}
}

func TestAggregateThresholdZero(t *testing.T) {
	raw, _ := Bucketize(wideCounts, BucketOptions{})
	root := Aggregate(raw, 0, nil)

	root.Walk(func(n *Node, _ int) bool {
		if n.IsAggregated() {
			t.Errorf("unexpected aggregated leaf %s", n.Name)
		}
		return true
	})
	if !Equal(root, raw) {
		t.Error("threshold 0 should leave a pruned tree unchanged")
	}
}

func TestAggregateThresholdOne(t *testing.T) {
	raw, _ := Bucketize(wideCounts, BucketOptions{})
	total := raw.Sum()

	root := Aggregate(raw, 1, nil)
	if len(root.Children) != 1 || root.Children[0].Name != OtherName || root.Children[0].Value != total {
		t.Fatalf("root children = %+v, want single Other(%d)", root.Children, total)
	}

	// Expanding every level exposes exactly one aggregated leaf per internal node.
	expanded := NewExpanded(OtherName)
	root = Aggregate(raw, 1, expanded)
	for _, major := range root.Children {
		if len(major.Children) != 1 || !major.Children[0].IsAggregated() {
			t.Errorf("%s children = %v, want one aggregated leaf", major.Name, names(major.Children))
		}
		if major.Children[0].Name != major.Name+".?" {
			t.Errorf("aggregated name = %q, want %q", major.Children[0].Name, major.Name+".?")
		}
	}
}

func TestAggregateConservesMass(t *testing.T) {
	raw, _ := Bucketize(wideCounts, BucketOptions{})
	total := raw.Sum()

	thresholds := []float64{0, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 0.99, 1, 2}
	expansions := []Expanded{
		nil,
		NewExpanded(OtherName),
		NewExpanded(OtherName, "v1.?", "v1.1.?", "v1.1.0-other"),
	}
	for _, th := range thresholds {
		for _, exp := range expansions {
			root := Aggregate(raw, th, exp)
			if got := root.Sum(); got != total {
				t.Errorf("threshold %v expanded %v: sum = %d, want %d", th, exp, got, total)
			}
			checkAggregatedLast(t, root)
		}
	}
}

func checkAggregatedLast(t *testing.T, root *Node) {
	t.Helper()
	root.Walk(func(n *Node, _ int) bool {
		for i, c := range n.Children {
			if c.IsAggregated() && i != len(n.Children)-1 {
				t.Errorf("%s: aggregated child %s at %d of %d", n.Name, c.Name, i, len(n.Children))
			}
		}
		return true
	})
}

func TestAggregateExpandRevealsFoldedMass(t *testing.T) {
	raw, _ := Bucketize(wideCounts, BucketOptions{})
	const threshold = 0.05

	before := Aggregate(raw, threshold, nil)
	other := before.Find(OtherName)
	if other == nil {
		t.Fatal("expected an Other leaf")
	}

	after := Aggregate(raw, threshold, NewExpanded(OtherName))
	if after.Find(OtherName) != nil {
		t.Error("expanded level should not be folded")
	}

	kept := make(map[string]bool)
	for _, c := range before.Children {
		kept[c.Name] = true
	}
	var revealed int64
	for _, c := range after.Children {
		if !kept[c.Name] {
			revealed += c.Sum()
		}
	}
	if revealed != other.Value {
		t.Errorf("revealed %d, want %d", revealed, other.Value)
	}
}

func TestAggregateExpandedNamesAreScoped(t *testing.T) {
	raw, _ := Bucketize(wideCounts, BucketOptions{})

	// Expanding a nested level leaves the root folded.
	root := Aggregate(raw, 0.7, NewExpanded("v1.?"))
	if got := names(root.Children); !equalStrings(got, []string{OtherName}) {
		t.Errorf("root children = %v, want [Other]", got)
	}
}

func TestAggregateUsesGrandTotal(t *testing.T) {
	// v2.0.0 is 100% of v2 but only ~1% of the tree.
	raw, _ := Bucketize(map[string]int64{"1.0.0": 990, "2.0.0": 10}, BucketOptions{})
	root := Aggregate(raw, 0.02, NewExpanded(OtherName))

	v2 := root.Find("v2")
	if v2 == nil {
		t.Fatal("v2 should be revealed")
	}
	if got := names(v2.Children); !equalStrings(got, []string{"v2.?"}) {
		t.Errorf("v2 children = %v, want [v2.?]", got)
	}
}

func TestAggregateEmptyTree(t *testing.T) {
	root := Aggregate(NewInternal(RootName), 0.02, nil)
	if root.Name != RootName || len(root.Children) != 0 {
		t.Errorf("Aggregate(empty) = %+v", root)
	}

	zeros := NewInternal(RootName, NewInternal("v1", NewLeaf("v1.0.0", 0)))
	root = Aggregate(zeros, 0.02, nil)
	if len(root.Children) != 0 {
		t.Errorf("zero-valued subtrees should be pruned, got %v", names(root.Children))
	}
}

func TestAggregateIdempotent(t *testing.T) {
	raw, _ := Bucketize(wideCounts, BucketOptions{})
	exp := NewExpanded(OtherName, "v1.?")
	a := Aggregate(raw, 0.03, exp)
	b := Aggregate(raw, 0.03, exp)
	if !Equal(a, b) {
		t.Error("Aggregate is not deterministic")
	}
}

func TestPrune(t *testing.T) {
	root := NewInternal(RootName,
		NewInternal("v1",
			NewInternal("v1.0", NewLeaf("v1.0.0", 0), NewLeaf("v1.0.1", 3)),
			NewInternal("v1.1", NewLeaf("v1.1.0", 0)),
		),
		NewInternal("v2"),
	)
	got := Prune(root)
	want := NewInternal(RootName,
		NewInternal("v1",
			NewInternal("v1.0", NewLeaf("v1.0.1", 3)),
		),
	)
	if !Equal(got, want) {
		t.Errorf("Prune() mismatch")
	}
	if len(root.Children) != 2 {
		t.Error("Prune mutated its input")
	}
}
