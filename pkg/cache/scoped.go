package cache

// ScopedKeyer prefixes every key of an inner Keyer, so that independent
// deployments can share a Redis or Mongo instance.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. A nil inner means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HTTPKey returns the prefixed HTTP key.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// DownloadsKey returns the prefixed downloads key.
func (k *ScopedKeyer) DownloadsKey(pkg string) string {
	return k.prefix + k.inner.DownloadsKey(pkg)
}

// TreeKey returns the prefixed tree key.
func (k *ScopedKeyer) TreeKey(pkg string, opts TreeKeyOpts) string {
	return k.prefix + k.inner.TreeKey(pkg, opts)
}
