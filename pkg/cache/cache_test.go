package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if cleared, _ := Clear(ctx, c); cleared {
		t.Error("NullCache does not support clearing")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "downloads:nx"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "downloads:nx", []byte(`{"1.0.0":1}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "downloads:nx")
	if err != nil || !hit || string(data) != `{"1.0.0":1}` {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "downloads:nx"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "downloads:nx"); hit {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "downloads:nx"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", []byte("a"), time.Minute)
	_ = c.Set(ctx, "forever", []byte("b"), 0)

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want silent miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), time.Hour)
	}

	cleared, err := Clear(ctx, c)
	if !cleared || err != nil {
		t.Fatalf("Clear = %v, %v", cleared, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d entries left after Clear", len(entries))
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("Clear should keep the root directory")
	}
}

func TestHash(t *testing.T) {
	h1, h2, h3 := Hash([]byte("hello")), Hash([]byte("hello")), Hash([]byte("world"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == h3 {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.HTTPKey("chart", "package=nx&lpf=2.00"); got != "http:chart:package=nx&lpf=2.00" {
		t.Errorf("HTTPKey = %q", got)
	}
	if got := k.DownloadsKey("@nx/js"); got != "downloads:@nx/js" {
		t.Errorf("DownloadsKey = %q", got)
	}

	base := TreeKeyOpts{Threshold: 0.02}
	t1 := k.TreeKey("nx", base)
	if !strings.HasPrefix(t1, "tree:") {
		t.Errorf("TreeKey = %q", t1)
	}
	if t1 != k.TreeKey("nx", base) {
		t.Error("TreeKey should be deterministic")
	}
	variants := []TreeKeyOpts{
		{Threshold: 0.05},
		{Threshold: 0.02, Expanded: []string{"Other"}},
		{Threshold: 0.02, Merge: "sum"},
		{Threshold: 0.02, Parse: "bucket"},
		{Threshold: 0.02, Source: "abc"},
	}
	for _, v := range variants {
		if k.TreeKey("nx", v) == t1 {
			t.Errorf("TreeKey(%+v) collides with defaults", v)
		}
	}
	if k.TreeKey("react", base) == t1 {
		t.Error("different packages should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "staging:")
	if got := scoped.HTTPKey("chart", "x"); got != "staging:http:chart:x" {
		t.Errorf("HTTPKey = %q", got)
	}
	if got := scoped.DownloadsKey("nx"); got != "staging:downloads:nx" {
		t.Errorf("DownloadsKey = %q", got)
	}
	if got := scoped.TreeKey("nx", TreeKeyOpts{}); !strings.HasPrefix(got, "staging:tree:") {
		t.Errorf("TreeKey = %q", got)
	}

	if got := NewScopedKeyer(nil, "p:").DownloadsKey("nx"); got != "p:downloads:nx" {
		t.Errorf("nil inner: %q", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("message = %q", err.Error())
	}
	if IsRetryable(ErrNotFound) {
		t.Error("plain errors are not retryable")
	}
}

func TestBackoff(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	if err := fast.Do(ctx, func() error { calls++; return nil }); err != nil || calls != 1 {
		t.Errorf("success: err=%v calls=%d", err, calls)
	}

	calls = 0
	err := fast.Do(ctx, func() error { calls++; return ErrNotFound })
	if err != ErrNotFound || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = fast.Do(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry then succeed: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = fast.Do(ctx, func() error { calls++; return Retryable(ErrNetwork) })
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}

	calls = 0
	_ = Backoff{}.Do(ctx, func() error { calls++; return Retryable(ErrNetwork) })
	if calls != 1 {
		t.Errorf("zero Backoff should make one attempt, made %d", calls)
	}
}

func TestBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DefaultBackoff.Do(ctx, func() error { return Retryable(ErrNetwork) })
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
