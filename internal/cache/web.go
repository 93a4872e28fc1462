package cache

import "time"

// WebDataCache holds text payloads from external lookups (search snippets,
// quote rows). Negative results are never stored; callers signal failure
// through GetOrFill's error path.
type WebDataCache = Cache[string]

// NewWebDataCache creates the text-payload cache.
func NewWebDataCache(maxSize int, ttl, sweepInterval time.Duration) *WebDataCache {
	return New[string](maxSize, ttl, sweepInterval)
}

// DocumentCache holds uploaded document bodies between intake and analysis,
// keyed by the document's assigned ID.
type DocumentCache = Cache[[]byte]

// NewDocumentCache creates the document-blob cache.
func NewDocumentCache(maxSize int, ttl, sweepInterval time.Duration) *DocumentCache {
	return New[[]byte](maxSize, ttl, sweepInterval)
}
