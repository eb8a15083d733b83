// Package integrations provides the shared HTTP client for registry APIs.
//
// The registry itself lives in a subpackage:
//
//   - [npm]: weekly download counts per version from api.npmjs.org
//
// # Client Pattern
//
//	client := npm.NewClient(fileCache, cache.TTLDownloads)
//	d, err := client.FetchDownloads(ctx, "react", false) // false = use cache
//
// [Client] handles:
//   - HTTP requests with retry on 5xx and network failures
//   - 404 mapped to [ErrNotFound], 429 mapped to a rate-limit error
//   - Response caching through any [cache.Cache] backend
//   - Request and cache events reported to [observability] hooks
//
// [npm]: github.com/matzehuels/npmburst/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/npmburst/pkg/cache.Cache
// [observability]: github.com/matzehuels/npmburst/pkg/observability
package integrations
