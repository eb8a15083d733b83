package npm

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/npmburst/pkg/cache"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/integrations"
)

// DefaultBaseURL is the public npm downloads API.
const DefaultBaseURL = "https://api.npmjs.org"

// Downloads is the last-week download count of every published version.
type Downloads struct {
	Package   string           `json:"package" bson:"package"`
	Downloads map[string]int64 `json:"downloads" bson:"downloads"`
}

// Total returns the sum of all counts.
func (d *Downloads) Total() int64 {
	var n int64
	for _, v := range d.Downloads {
		n += v
	}
	return n
}

type Client struct {
	*integrations.Client
	baseURL string
	keyer   cache.Keyer
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL points the client at another API host, such as a mirror or a
// test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithKeyer replaces [cache.DefaultKeyer].
func WithKeyer(k cache.Keyer) Option {
	return func(c *Client) { c.keyer = k }
}

// WithHTTP passes options to the shared HTTP client.
func WithHTTP(opts ...integrations.Option) Option {
	return func(c *Client) {
		for _, opt := range opts {
			opt(c.Client)
		}
	}
}

// NewClient returns a client caching responses in c for ttl. A nil cache
// disables caching.
func NewClient(c cache.Cache, ttl time.Duration, opts ...Option) *Client {
	client := &Client{
		Client:  integrations.NewClient(c, ttl, nil),
		baseURL: DefaultBaseURL,
		keyer:   cache.NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// EscapeName encodes pkg for use as a single path segment. Scoped names keep
// their "@" and send the slash as %2f.
func EscapeName(pkg string) string {
	return strings.ReplaceAll(url.PathEscape(pkg), "%2F", "%2f")
}

// DownloadsURL returns the endpoint for pkg.
func (c *Client) DownloadsURL(pkg string) string {
	return c.baseURL + "/versions/" + EscapeName(pkg) + "/last-week"
}

// FetchDownloads returns the per-version counts of pkg.
func (c *Client) FetchDownloads(ctx context.Context, pkg string, refresh bool) (*Downloads, error) {
	pkg = strings.TrimSpace(pkg)
	if err := errs.ValidatePackageName(pkg); err != nil {
		return nil, err
	}

	var d Downloads
	err := c.Cached(ctx, c.keyer.DownloadsKey(pkg), refresh, &d, func() error {
		return c.fetch(ctx, pkg, &d)
	})
	if err != nil {
		return nil, classify(ctx, pkg, err)
	}
	return &d, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, d *Downloads) error {
	var data response
	if err := c.Get(ctx, c.DownloadsURL(pkg), &data); err != nil {
		return err
	}
	if data.Error != "" {
		return integrations.ErrNotFound
	}
	*d = Downloads{Package: data.Package, Downloads: data.Downloads}
	if d.Package == "" {
		d.Package = pkg
	}
	if d.Downloads == nil {
		d.Downloads = map[string]int64{}
	}
	return nil
}

// classify attaches an error code to a fetch failure. Cancellation and rate
// limiting pass through unchanged.
func classify(ctx context.Context, pkg string, err error) error {
	var rl *errs.RateLimitedError
	switch {
	case errors.Is(err, context.Canceled), errors.As(err, &rl):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errs.Wrap(errs.ErrCodeTimeout, err, "timed out fetching %s", pkg)
	case errors.Is(err, integrations.ErrNotFound):
		return errs.Wrap(errs.ErrCodePackageNotFound, err, "npm package %s not found", pkg)
	case errors.Is(err, integrations.ErrNetwork):
		return errs.Wrap(errs.ErrCodeNetwork, err, "fetching downloads of %s", pkg)
	}
	return errs.Wrap(errs.ErrCodeInternal, err, "fetching downloads of %s", pkg)
}

type response struct {
	Package   string           `json:"package"`
	Downloads map[string]int64 `json:"downloads"`
	Error     string           `json:"error"`
}
