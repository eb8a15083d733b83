package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/npmburst/pkg/drilldown"
	"github.com/matzehuels/npmburst/pkg/pipeline"
)

func TestRenderTableFlat(t *testing.T) {
	out := renderTable(drilldown.Table{
		Node:   "v2.0",
		Header: "Percentage of v2.0",
		Total:  1500,
		Rows: []drilldown.Row{
			{Name: "v2.0.1", Count: 1000, Percentage: 66.667},
			{Name: "v2.0.0", Count: 500, Percentage: 33.333, Highlight: true},
		},
	})
	for _, want := range []string{"Version", "Percentage of v2.0", "v2.0.1", "1000", "66.7%", "Total", "1.50k"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Sub-Version") {
		t.Error("flat table should not have sub-version columns")
	}
}

func TestRenderTableNested(t *testing.T) {
	out := renderTable(drilldown.Table{
		Node:   "versions",
		Header: "Percentage of all versions",
		Nested: true,
		Total:  1505,
		Rows: []drilldown.Row{
			{Name: "v2", Count: 500, Percentage: 33.2, SubRows: []drilldown.Row{{Name: "v2.0", Count: 500, Percentage: 33.2}}},
			{Name: "v1", Count: 1005, Percentage: 66.8, SubRows: []drilldown.Row{
				{Name: "v1.0", Count: 1000, Percentage: 66.4},
				{Name: "v1.?", Count: 5, Percentage: 0.33},
			}},
		},
	})
	for _, want := range []string{"Sub-Version", "v1.?", "0.330%"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	// One line per sub-row plus header, footer and borders.
	if got := strings.Count(out, "\n") + 1; got < 3+2 {
		t.Errorf("table has %d lines", got)
	}
}

func TestRenderTableMessage(t *testing.T) {
	out := renderTable(drilldown.Table{Node: "v2.0.0", Message: "no sub-versions"})
	if !strings.Contains(out, "v2.0.0: no sub-versions") {
		t.Errorf("renderTable() = %q", out)
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, pipeline.Stats{Versions: 3, Leaves: 3, FetchTime: time.Millisecond}, 1600, true)
	out := buf.String()
	for _, want := range []string{"3 versions", "3 leaves", "1.60k downloads", iconCached} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q: %q", want, out)
		}
	}
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	printSuccess(&buf, "wrote %d files", 2)
	printWarning(&buf, "skipped %s", "junk")
	printFile(&buf, "out/nx.svg")
	printNextStep(&buf, "Explore", "npmburst explore nx")

	out := buf.String()
	for _, want := range []string{iconSuccess + " wrote 2 files", "skipped junk", "out/nx.svg", "npmburst explore nx"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
