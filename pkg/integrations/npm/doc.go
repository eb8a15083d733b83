// Package npm fetches weekly download counts per version from the npm
// downloads API.
//
// # Usage
//
//	client := npm.NewClient(c, cache.TTLDownloads)
//	d, err := client.FetchDownloads(ctx, "@nx/js", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(d.Package, d.Total())
//
// # Endpoint
//
// Counts come from https://api.npmjs.org/versions/<name>/last-week. The slash
// of a scoped name is sent as %2f, see [EscapeName].
//
// # Errors
//
// An unknown package yields an error with code PACKAGE_NOT_FOUND, transport
// failures NETWORK_ERROR or TIMEOUT, and HTTP 429 a rate-limit error. All of
// them satisfy errors.IsLoadError. A canceled context is returned as-is.
//
// # Caching
//
// Decoded responses are cached under the key given by the client's
// [cache.Keyer]. Pass refresh=true to bypass the cache.
package npm
