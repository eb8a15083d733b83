//go:build integration

package npm

import (
	"context"
	"testing"
	"time"

	errs "github.com/matzehuels/npmburst/pkg/errors"
)

func TestFetchDownloads_Integration(t *testing.T) {
	client := NewClient(nil, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{"unscoped", "react", false},
		{"scoped", "@nx/js", false},
		{"nonexistent", "this-package-should-not-exist-12345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := client.FetchDownloads(ctx, tt.pkg, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchDownloads(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errs.IsLoadError(err) {
					t.Errorf("error %v should be a load error", err)
				}
				return
			}
			if d.Package != tt.pkg {
				t.Errorf("Package = %q, want %q", d.Package, tt.pkg)
			}
			if len(d.Downloads) == 0 {
				t.Error("expected at least one version")
			}
		})
	}
}
