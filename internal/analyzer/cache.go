package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache memoizes per-file analysis keyed by content hash, so repeated
// generations over the same checkout skip the parse entirely.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*FileAnalysis
	max     int
}

func NewCache(max int) *Cache {
	if max <= 0 {
		max = 4096
	}
	return &Cache{
		entries: make(map[string]*FileAnalysis),
		max:     max,
	}
}

func (c *Cache) Get(path string, content []byte) (*FileAnalysis, bool) {
	key := cacheKey(path, content)
	c.mu.RLock()
	defer c.mu.RUnlock()
	fa, ok := c.entries[key]
	return fa, ok
}

func (c *Cache) Put(path string, content []byte, fa *FileAnalysis) {
	key := cacheKey(path, content)
	c.mu.Lock()
	defer c.mu.Unlock()
	// Full reset on overflow; cheaper than tracking recency and rare in
	// practice since entries are per file, not per generation.
	if len(c.entries) >= c.max {
		c.entries = make(map[string]*FileAnalysis)
	}
	c.entries[key] = fa
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(path string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
