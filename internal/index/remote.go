package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pybun/pybun/internal/httputil"
)

// remotePage is the JSON shape returned by a "simple" index endpoint at
// GET {baseURL}/{name}/ : a flat page of every published version and its
// per-version metadata, PyPI-simple-inspired but not the real PyPI wire
// protocol.
type remotePage struct {
	Versions []remoteVersion `json:"versions"`
}

type remoteVersion struct {
	Version string   `json:"version"`
	Deps    []string `json:"deps"`
	URL     string   `json:"url"`
	SHA256  string   `json:"sha256"`
}

// RemoteIndex is an Index backed by an HTTP "simple" endpoint.
type RemoteIndex struct {
	baseURL string
	client  *http.Client
}

// NewRemoteIndex returns a RemoteIndex querying baseURL with an
// SSRF-hardened client built from opts. A zero ClientOptions value uses
// httputil.DefaultOptions().
func NewRemoteIndex(baseURL string, opts httputil.ClientOptions) *RemoteIndex {
	if (opts == httputil.ClientOptions{}) {
		opts = httputil.DefaultOptions()
	}
	return &RemoteIndex{
		baseURL: baseURL,
		client:  httputil.NewSecureClient(opts),
	}
}

func (r *RemoteIndex) fetchPage(ctx context.Context, name string) (*remotePage, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return nil, fmt.Errorf("index: parsing base URL: %w", err)
	}
	u.Path = joinURLPath(u.Path, canonicalName(name)+"/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("index: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index: requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &remotePage{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index: unexpected status %d fetching %s", resp.StatusCode, u)
	}

	var page remotePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("index: decoding response from %s: %w", u, err)
	}
	return &page, nil
}

func (r *RemoteIndex) Versions(ctx context.Context, name string) ([]string, error) {
	page, err := r.fetchPage(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(page.Versions))
	for _, v := range page.Versions {
		versions = append(versions, v.Version)
	}
	SortVersions(versions)
	return versions, nil
}

func (r *RemoteIndex) Metadata(ctx context.Context, name, version string) (*Metadata, error) {
	page, err := r.fetchPage(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, v := range page.Versions {
		if v.Version == version {
			return &Metadata{
				Name:              canonicalName(name),
				Version:           v.Version,
				DependencyStrings: v.Deps,
				ArtifactURL:       v.URL,
				ArtifactDigest:    v.SHA256,
			}, nil
		}
	}
	return nil, notFoundError(name, version)
}

func joinURLPath(base, segment string) string {
	if base == "" {
		return "/" + segment
	}
	if base[len(base)-1] == '/' {
		return base + segment
	}
	return base + "/" + segment
}
