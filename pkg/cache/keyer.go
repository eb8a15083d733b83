package cache

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey is the key of a rendered HTTP response body, such as a chart
	// served by the API.
	HTTPKey(namespace, key string) string

	// DownloadsKey is the key of a package's decoded version counts.
	DownloadsKey(pkg string) string

	// TreeKey is the key of an aggregated tree.
	TreeKey(pkg string, opts TreeKeyOpts) string
}

// TreeKeyOpts holds every input that changes the shape of a built tree.
type TreeKeyOpts struct {
	Threshold float64  `json:"threshold"`
	Expanded  []string `json:"expanded"`
	Merge     string   `json:"merge"`
	Parse     string   `json:"parse"`
	Source    string   `json:"source"` // hash of the download counts
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// DownloadsKey returns "downloads:<pkg>".
func (DefaultKeyer) DownloadsKey(pkg string) string {
	return "downloads:" + pkg
}

// TreeKey hashes the options so that keys stay short whatever the size of
// the expanded set. Expanded names must be sorted by the caller.
func (DefaultKeyer) TreeKey(pkg string, opts TreeKeyOpts) string {
	return hashKey("tree", pkg, opts)
}

var _ Keyer = DefaultKeyer{}
