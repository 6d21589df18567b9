package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCacheTTL is the default freshness window for cached index pages.
const DefaultCacheTTL = 24 * time.Hour

// cacheMetadata is the sidecar file stored alongside each cached page,
// mirroring the cached-at/expires-at/content-hash bookkeeping used
// elsewhere in this codebase's on-disk caches.
type cacheMetadata struct {
	CachedAt    time.Time `json:"cached_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	LastAccess  time.Time `json:"last_access"`
	ContentHash string    `json:"content_hash"`
}

type cachedPage struct {
	Versions []string            `json:"versions"`
	Entries  map[string]Metadata `json:"entries"`
}

// CachedIndex wraps an Index with an on-disk, TTL-based cache, so repeated
// lookups for the same package within the freshness window avoid the
// underlying Index entirely.
type CachedIndex struct {
	underlying Index
	cacheDir   string
	ttl        time.Duration

	mu sync.Mutex
}

// NewCachedIndex wraps underlying with a disk cache rooted at cacheDir. A
// zero ttl uses DefaultCacheTTL.
func NewCachedIndex(underlying Index, cacheDir string, ttl time.Duration) *CachedIndex {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedIndex{underlying: underlying, cacheDir: cacheDir, ttl: ttl}
}

func (c *CachedIndex) pagePath(name string) string {
	canon := canonicalName(name)
	shard := "_"
	if len(canon) > 0 {
		shard = string(canon[0])
	}
	return filepath.Join(c.cacheDir, shard, canon+".json")
}

func (c *CachedIndex) metaPath(name string) string {
	canon := canonicalName(name)
	shard := "_"
	if len(canon) > 0 {
		shard = string(canon[0])
	}
	return filepath.Join(c.cacheDir, shard, canon+".meta.json")
}

func (c *CachedIndex) readCached(name string) (*cachedPage, bool) {
	metaData, err := os.ReadFile(c.metaPath(name))
	if err != nil {
		return nil, false
	}
	var meta cacheMetadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, false
	}
	if time.Now().After(meta.ExpiresAt) {
		return nil, false
	}

	pageData, err := os.ReadFile(c.pagePath(name))
	if err != nil {
		return nil, false
	}
	if computeContentHash(pageData) != meta.ContentHash {
		return nil, false
	}

	var page cachedPage
	if err := json.Unmarshal(pageData, &page); err != nil {
		return nil, false
	}

	meta.LastAccess = time.Now()
	if data, err := json.Marshal(meta); err == nil {
		_ = os.WriteFile(c.metaPath(name), data, 0o644)
	}

	return &page, true
}

func (c *CachedIndex) writeCached(name string, page *cachedPage) error {
	pageData, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("index: marshaling cache page: %w", err)
	}

	dir := filepath.Dir(c.pagePath(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("index: creating cache directory: %w", err)
	}

	if err := os.WriteFile(c.pagePath(name), pageData, 0o644); err != nil {
		return fmt.Errorf("index: writing cache page: %w", err)
	}

	now := time.Now()
	meta := cacheMetadata{
		CachedAt:    now,
		ExpiresAt:   now.Add(c.ttl),
		LastAccess:  now,
		ContentHash: computeContentHash(pageData),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("index: marshaling cache metadata: %w", err)
	}
	return os.WriteFile(c.metaPath(name), metaData, 0o644)
}

func computeContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// fetch returns the full page for name, from cache if fresh, else from the
// underlying Index (persisting the result to cache).
func (c *CachedIndex) fetch(ctx context.Context, name string) (*cachedPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if page, ok := c.readCached(name); ok {
		return page, nil
	}

	versions, err := c.underlying.Versions(ctx, name)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Metadata, len(versions))
	for _, v := range versions {
		md, err := c.underlying.Metadata(ctx, name, v)
		if err != nil {
			continue
		}
		entries[v] = *md
	}

	page := &cachedPage{Versions: versions, Entries: entries}
	if err := c.writeCached(name, page); err != nil {
		return page, nil // cache write failure shouldn't fail the lookup
	}
	return page, nil
}

func (c *CachedIndex) Versions(ctx context.Context, name string) ([]string, error) {
	page, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return page.Versions, nil
}

func (c *CachedIndex) Metadata(ctx context.Context, name, version string) (*Metadata, error) {
	page, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	md, ok := page.Entries[version]
	if !ok {
		return nil, notFoundError(name, version)
	}
	return &md, nil
}
