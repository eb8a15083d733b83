package npm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/npmburst/pkg/cache"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/integrations"
)

func newTestClient(t *testing.T, c cache.Cache, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := NewClient(c, time.Hour,
		WithBaseURL(srv.URL+"/"),
		WithHTTP(
			integrations.WithHTTPClient(srv.Client()),
			integrations.WithBackoff(cache.Backoff{Attempts: 2, Delay: time.Millisecond}),
		),
	)
	return client, srv
}

func TestEscapeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"react", "react"},
		{"@nx/js", "@nx%2fjs"},
		{"@angular/core", "@angular%2fcore"},
		{"lodash.merge", "lodash.merge"},
	}
	for _, tt := range tests {
		if got := EscapeName(tt.in); got != tt.want {
			t.Errorf("EscapeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDownloadsURL(t *testing.T) {
	c := NewClient(nil, time.Hour)
	want := "https://api.npmjs.org/versions/@nx%2fjs/last-week"
	if got := c.DownloadsURL("@nx/js"); got != want {
		t.Errorf("DownloadsURL = %q, want %q", got, want)
	}
}

func TestFetchDownloads(t *testing.T) {
	var path string
	client, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.RawPath
		if path == "" {
			path = r.URL.Path
		}
		w.Write([]byte(`{"package":"@nx/js","downloads":{"1.0.0":10,"2.0.0":32}}`))
	})

	d, err := client.FetchDownloads(context.Background(), " @nx/js ", false)
	if err != nil {
		t.Fatalf("FetchDownloads() error: %v", err)
	}
	if path != "/versions/@nx%2fjs/last-week" {
		t.Errorf("request path = %q", path)
	}
	if d.Package != "@nx/js" || len(d.Downloads) != 2 || d.Total() != 42 {
		t.Errorf("Downloads = %+v", d)
	}
}

func TestFetchDownloadsCaches(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	var calls atomic.Int32
	client, _ := newTestClient(t, fc, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"package":"react","downloads":{"18.2.0":5}}`))
	})

	ctx := context.Background()
	for range 3 {
		if _, err := client.FetchDownloads(ctx, "react", false); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("registry calls = %d, want 1", calls.Load())
	}

	if _, err := client.FetchDownloads(ctx, "react", true); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("refresh should bypass the cache, calls = %d", calls.Load())
	}

	if _, ok, _ := fc.Get(ctx, cache.NewDefaultKeyer().DownloadsKey("react")); !ok {
		t.Error("downloads not stored under DownloadsKey")
	}
}

func TestFetchDownloadsMissingFields(t *testing.T) {
	client, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	d, err := client.FetchDownloads(context.Background(), "left-pad", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Package != "left-pad" || d.Downloads == nil || d.Total() != 0 {
		t.Errorf("Downloads = %+v", d)
	}
}

func TestFetchDownloadsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   errs.Code
	}{
		{"not found", http.StatusNotFound, `{"error":"not found"}`, errs.ErrCodePackageNotFound},
		{"error body", http.StatusOK, `{"error":"package nope not found"}`, errs.ErrCodePackageNotFound},
		{"server error", http.StatusServiceUnavailable, ``, errs.ErrCodeNetwork},
		{"bad request", http.StatusBadRequest, ``, errs.ErrCodeNetwork},
		{"bad json", http.StatusOK, `{"downloads":`, errs.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchDownloads(context.Background(), "nope", false)
			if !errs.Is(err, tt.code) {
				t.Fatalf("error = %v, want code %s", err, tt.code)
			}
			if tt.code != errs.ErrCodeInternal && !errs.IsLoadError(err) {
				t.Errorf("%v should be a load error", err)
			}
		})
	}
}

func TestFetchDownloadsRateLimited(t *testing.T) {
	client, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchDownloads(context.Background(), "react", false)
	var rl *errs.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want RateLimitedError", err)
	}
}

func TestFetchDownloadsCanceled(t *testing.T) {
	client, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchDownloads(ctx, "react", false)
	if !errs.IsSuperseded(err) {
		t.Errorf("error = %v, want a silent cancellation", err)
	}
	if errs.IsLoadError(err) {
		t.Error("cancellation must not be reported as a load error")
	}
}

func TestFetchDownloadsInvalidName(t *testing.T) {
	client := NewClient(nil, time.Hour)
	for _, name := range []string{"", "../etc", "a//b"} {
		if _, err := client.FetchDownloads(context.Background(), name, false); !errs.Is(err, errs.ErrCodeInvalidPackage) {
			t.Errorf("FetchDownloads(%q) error = %v, want INVALID_PACKAGE", name, err)
		}
	}
}
