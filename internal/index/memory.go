package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Entry mirrors one element of the per-package array in the JSON document
// format: {"<name>": [{"version","deps","url","sha256"}, ...]}. Unknown keys
// are ignored by encoding/json by default.
type Entry struct {
	Version string   `json:"version"`
	Deps    []string `json:"deps"`
	URL     string   `json:"url"`
	SHA256  string   `json:"sha256"`
}

// MemoryIndex is an Index backed by an in-memory document, typically loaded
// once from a JSON file at process startup.
type MemoryIndex struct {
	mu       sync.RWMutex
	packages map[string][]Entry // keyed by canonical name, unordered
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{packages: make(map[string][]Entry)}
}

// LoadMemoryIndex reads the JSON document format from r and returns a
// populated MemoryIndex.
func LoadMemoryIndex(r io.Reader) (*MemoryIndex, error) {
	var doc map[string][]Entry
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("index: decoding document: %w", err)
	}

	idx := NewMemoryIndex()
	for name, entries := range doc {
		idx.packages[canonicalName(name)] = entries
	}
	return idx, nil
}

// LoadMemoryIndexFile reads the JSON document format from a file path.
func LoadMemoryIndexFile(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: opening %s: %w", path, err)
	}
	defer f.Close()
	return LoadMemoryIndex(f)
}

// Put inserts or replaces all known versions for name. name is
// canonicalized before storage.
func (m *MemoryIndex) Put(name string, entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[canonicalName(name)] = entries
}

func (m *MemoryIndex) Versions(_ context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.packages[canonicalName(name)]
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		versions = append(versions, e.Version)
	}
	SortVersions(versions)
	return versions, nil
}

func (m *MemoryIndex) Metadata(_ context.Context, name, version string) (*Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	canon := canonicalName(name)
	for _, e := range m.packages[canon] {
		if e.Version == version {
			return &Metadata{
				Name:              canon,
				Version:           e.Version,
				DependencyStrings: e.Deps,
				ArtifactURL:       e.URL,
				ArtifactDigest:    e.SHA256,
			}, nil
		}
	}
	return nil, notFoundError(name, version)
}
