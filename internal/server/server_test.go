package server

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npmburst/pkg/cache"
	"github.com/matzehuels/npmburst/pkg/drilldown"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/integrations/npm"
	"github.com/matzehuels/npmburst/pkg/pipeline"
	"github.com/matzehuels/npmburst/pkg/sunburst"
)

var nestedCounts = map[string]int64{"1.0.0": 1000, "1.1.0": 5, "2.0.0": 500}

type fetcherFunc func(ctx context.Context, pkg string, refresh bool) (*npm.Downloads, error)

func (f fetcherFunc) FetchDownloads(ctx context.Context, pkg string, refresh bool) (*npm.Downloads, error) {
	return f(ctx, pkg, refresh)
}

func staticFetcher(counts map[string]int64) pipeline.Fetcher {
	return fetcherFunc(func(_ context.Context, pkg string, _ bool) (*npm.Downloads, error) {
		return &npm.Downloads{Package: pkg, Downloads: maps.Clone(counts)}, nil
	})
}

func failingFetcher(err error) pipeline.Fetcher {
	return fetcherFunc(func(context.Context, string, bool) (*npm.Downloads, error) { return nil, err })
}

func newTestServer(t *testing.T, f pipeline.Fetcher, c cache.Cache, opts ...Option) *httptest.Server {
	t.Helper()
	r := pipeline.NewRunner(f, c, nil, log.New(io.Discard))
	ts := httptest.NewServer(New(r, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, method, url string, v any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	var body map[string]string
	resp := get(t, http.MethodGet, ts.URL+"/api/health", &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("responses should carry a request ID")
	}
}

func TestRequestIDPassThrough(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc123" {
		t.Errorf("request ID = %q, want abc123", got)
	}
}

func TestDownloads(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	var d npm.Downloads
	resp := get(t, http.MethodGet, ts.URL+"/api/downloads?package=react", &d)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if d.Package != "react" || d.Downloads["1.0.0"] != 1000 {
		t.Errorf("downloads = %+v", d)
	}
}

func TestTree(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	var out treeResponse
	resp := get(t, http.MethodGet, ts.URL+"/api/tree?package=left-pad&selectedVersion=v1", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Package != "left-pad" || out.Total != 1505 || out.Selected != "v1" {
		t.Errorf("tree = %+v", out)
	}
	if out.State != "package=left-pad&selectedVersion=v1" {
		t.Errorf("State = %q", out.State)
	}
	if out.Tree == nil || out.Tree.Find("v1.?") == nil {
		t.Error("v1.1 should be folded into v1.?")
	}
}

func TestTreeDefaults(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil, WithDefaults("react", 0))

	var out treeResponse
	get(t, http.MethodGet, ts.URL+"/api/tree", &out)
	if out.Package != "react" {
		t.Errorf("Package = %q, want the server default", out.Package)
	}
	if out.Tree.Find("v1.1") == nil {
		t.Error("a zero default threshold should fold nothing")
	}
}

func TestTable(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	var tbl drilldown.Table
	resp := get(t, http.MethodGet, ts.URL+"/api/table?selectedVersion=v1&highlight=v1.0", &tbl)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if tbl.Node != "v1" || tbl.Header != "Percentage of v1" || tbl.Total != 1005 {
		t.Errorf("table = %+v", tbl)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %+v", tbl.Rows)
	}
	var highlighted int
	for _, row := range tbl.Rows {
		if row.Highlight {
			highlighted++
			if row.Name != "v1.0" {
				t.Errorf("highlighted %q", row.Name)
			}
		}
	}
	if highlighted != 1 {
		t.Errorf("highlighted %d rows, want 1", highlighted)
	}
}

func TestChartSVGCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, staticFetcher(nestedCounts), fc)

	for _, want := range []string{"MISS", "HIT"} {
		resp, err := http.Get(ts.URL + "/api/chart.svg?package=react")
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
			t.Fatalf("status = %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
		}
		if got := resp.Header.Get("X-Cache"); got != want {
			t.Errorf("X-Cache = %q, want %q", got, want)
		}
		if !strings.Contains(string(body), "<title>react downloads by version</title>") {
			t.Errorf("unexpected body:\n%s", body)
		}
	}

	resp, err := http.Get(ts.URL + "/api/chart.svg?package=react&refresh=true")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Error("refresh should bypass the chart cache")
	}
}

func TestChartJSON(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	var out struct {
		Package string `json:"package"`
		Total   int64  `json:"total"`
		Focus   string `json:"focus"`
		Arcs    []any  `json:"arcs"`
	}
	resp := get(t, http.MethodGet, ts.URL+"/api/chart.json?package=react&selectedVersion=v1", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Package != "react" || out.Total != 1505 || out.Focus != "v1" || len(out.Arcs) != 7 {
		t.Errorf("chart = %+v", out)
	}
}

func TestActivate(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	tests := []struct {
		name       string
		query      string
		status     int
		selected   string
		aggregated bool
		state      string
	}{
		{"zoom in", "name=v1", http.StatusOK, "v1", false, "selectedVersion=v1"},
		{"expand aggregated", "name=v1.%3F", http.StatusOK, "v1", true, "expanded=v1.%3F&selectedVersion=v1"},
		{"zoom from focus", "selectedVersion=v1&name=v1.0", http.StatusOK, "v1.0", false, "selectedVersion=v1.0"},
		{"expand keeps earlier expansions", "selectedVersion=v2&expanded=Other&name=v1.%3F", http.StatusOK, "v1", true, "expanded=Other%2Cv1.%3F&selectedVersion=v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out activateResponse
			resp := get(t, http.MethodPost, ts.URL+"/api/activate?"+tt.query, &out)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if out.Selected != tt.selected || out.Aggregated != tt.aggregated || out.Rebuild != tt.aggregated {
				t.Errorf("activate = %+v", out)
			}
			if out.State != tt.state {
				t.Errorf("State = %q, want %q", out.State, tt.state)
			}
		})
	}
}

func TestActivateErrors(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	tests := []struct {
		query  string
		status int
		code   errs.Code
	}{
		{"", http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"name=v9", http.StatusNotFound, errs.ErrCodeNodeNotFound},
		{"name=v2.0.0", http.StatusBadRequest, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		var body errorBody
		resp := get(t, http.MethodPost, ts.URL+"/api/activate?"+tt.query, &body)
		if resp.StatusCode != tt.status || body.Error.Code != string(tt.code) {
			t.Errorf("%q: %d %+v, want %d %s", tt.query, resp.StatusCode, body, tt.status, tt.code)
		}
	}

	resp := get(t, http.MethodGet, ts.URL+"/api/activate?name=v1", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET activate = %d", resp.StatusCode)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		fetch  error
		query  string
		status int
		code   errs.Code
		retry  bool
	}{
		{"not found", errs.New(errs.ErrCodePackageNotFound, "npm package nope not found"), "package=nope", http.StatusNotFound, errs.ErrCodePackageNotFound, true},
		{"network", errs.New(errs.ErrCodeNetwork, "registry unavailable"), "", http.StatusBadGateway, errs.ErrCodeNetwork, true},
		{"internal", io.ErrUnexpectedEOF, "", http.StatusInternalServerError, errs.ErrCodeInternal, false},
		{"bad threshold", nil, "lpf=abc", http.StatusBadRequest, errs.ErrCodeInvalidFormat, false},
		{"negative threshold", nil, "lpf=-5", http.StatusBadRequest, errs.ErrCodeInvalidThreshold, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := staticFetcher(nestedCounts)
			if tt.fetch != nil {
				f = failingFetcher(tt.fetch)
			}
			ts := newTestServer(t, f, nil)

			var body errorBody
			resp := get(t, http.MethodGet, ts.URL+"/api/tree?"+tt.query, &body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if body.Error.Code != string(tt.code) || body.Error.Retry != tt.retry || body.Error.Message == "" {
				t.Errorf("error body = %+v", body)
			}
		})
	}
}

func TestRateLimited(t *testing.T) {
	ts := newTestServer(t, failingFetcher(&errs.RateLimitedError{RetryAfter: 30}), nil)

	var body errorBody
	resp := get(t, http.MethodGet, ts.URL+"/api/tree", &body)
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "30" {
		t.Errorf("status = %d, Retry-After = %q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}
	if body.Error.Code != string(errs.ErrCodeRateLimited) || !body.Error.Retry {
		t.Errorf("error body = %+v", body)
	}
}

func TestNotFoundRoute(t *testing.T) {
	ts := newTestServer(t, staticFetcher(nestedCounts), nil)

	var body errorBody
	resp := get(t, http.MethodGet, ts.URL+"/nope", &body)
	if resp.StatusCode != http.StatusNotFound || body.Error.Code != string(errs.ErrCodeNotFound) {
		t.Errorf("unknown route = %d %+v", resp.StatusCode, body)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{sunburst.ErrNotActivatable, http.StatusBadRequest},
		{context.Canceled, http.StatusServiceUnavailable},
		{cache.ErrNotFound, http.StatusNotFound},
		{errs.New(errs.ErrCodeTimeout, "slow"), http.StatusGatewayTimeout},
		{errs.New(errs.ErrCodeUnsupported, "gif"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got, _ := classify(tt.err); got != tt.status {
			t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := New(pipeline.NewRunner(staticFetcher(nestedCounts), nil, nil, log.New(io.Discard)))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
