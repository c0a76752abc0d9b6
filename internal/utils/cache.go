package utils

import (
	"crypto/sha256"
	"html/template"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RenderCache memoizes rendered HTML keyed by the digest of its source.
// Entries never go stale: equal source always renders to equal HTML.
type RenderCache struct {
	lruCache *lru.Cache[[sha256.Size]byte, template.HTML]
}

// NewRenderCache creates a cache holding up to size entries.
func NewRenderCache(size int) (*RenderCache, error) {
	l, err := lru.New[[sha256.Size]byte, template.HTML](size)
	if err != nil {
		return nil, err
	}
	return &RenderCache{lruCache: l}, nil
}

// Get returns the cached HTML for source.
func (c *RenderCache) Get(source string) (template.HTML, bool) {
	return c.lruCache.Get(sha256.Sum256([]byte(source)))
}

// Set stores the HTML rendered from source.
func (c *RenderCache) Set(source string, html template.HTML) {
	c.lruCache.Add(sha256.Sum256([]byte(source)), html)
}

func (c *RenderCache) Len() int {
	return c.lruCache.Len()
}
