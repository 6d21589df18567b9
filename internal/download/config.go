// Package download fetches artifacts over HTTP with bounded concurrency,
// retrying transient failures, and verifying each artifact's checksum and
// optional signature before it is considered complete.
package download

import (
	"net/http"
	"time"

	"github.com/pybun/pybun/internal/httputil"
)

// Config controls a Downloader's concurrency and network behavior.
type Config struct {
	MaxConcurrency int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Retries        int
}

// DefaultConfig returns reasonable defaults: modest concurrency, generous
// timeouts, a handful of retries for idempotent GETs.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    60 * time.Second,
		Retries:        3,
	}
}

// SignatureSpec, when set on a DownloadRequest, verifies an ed25519
// signature over the artifact's bytes after it's written.
type SignatureSpec struct {
	SignatureB64 string
	PublicKeyB64 string
}

// DownloadRequest describes one artifact to fetch.
type DownloadRequest struct {
	URL              string
	Destination      string
	ExpectedChecksum string // hex sha256, optional
	Signature        *SignatureSpec
}

// Downloader fetches DownloadRequests with bounded concurrency, retrying
// transient failures per Config.Retries.
type Downloader struct {
	config Config
	client *http.Client
	sem    chan struct{}
}

// New returns a Downloader backed by an SSRF-hardened client built from
// cfg's timeouts.
func New(cfg Config) *Downloader {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}

	opts := httputil.DefaultOptions()
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.Timeout = cfg.ReadTimeout
	}

	return &Downloader{
		config: cfg,
		client: httputil.NewSecureClient(opts),
		sem:    make(chan struct{}, cfg.MaxConcurrency),
	}
}
