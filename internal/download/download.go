package download

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pybun/pybun/internal/integrity"
)

// DownloadFile fetches req.URL to req.Destination, retrying transport and
// retryable HTTP-status failures up to Config.Retries times. Once the body
// is fully written, it verifies req.ExpectedChecksum (if set) and
// req.Signature (if set, independent of whether a checksum was set, and
// always after a checksum check that passed). Either verification failure
// removes the partially written file before returning.
func (d *Downloader) DownloadFile(ctx context.Context, req DownloadRequest) (string, error) {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-d.sem }()

	var lastErr error

	for attempt := 0; attempt <= d.config.Retries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		err := d.attemptDownload(ctx, req)
		if err == nil {
			return req.Destination, nil
		}

		lastErr = err

		var dlErr *Error
		if !asDownloadError(err, &dlErr) || !dlErr.retryable() {
			return "", err
		}
	}

	return "", lastErr
}

func asDownloadError(err error, target **Error) bool {
	de, ok := err.(*Error)
	if ok {
		*target = de
	}
	return ok
}

func sleepBackoff(ctx context.Context, attempt int) error {
	base := time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	select {
	case <-time.After(base + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Downloader) attemptDownload(ctx context.Context, req DownloadRequest) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return &Error{Kind: ErrTransport, URL: req.URL, Cause: err}
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return &Error{Kind: ErrTransport, URL: req.URL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: ErrHTTPStatus, URL: req.URL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return &Error{Kind: ErrIO, URL: req.URL, Cause: err}
	}

	f, err := os.OpenFile(req.Destination, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return &Error{Kind: ErrIO, URL: req.URL, Cause: err}
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(req.Destination)
		return &Error{Kind: ErrIO, URL: req.URL, Cause: err}
	}
	f.Close()

	if req.ExpectedChecksum != "" {
		actual, err := integrity.SumFile(req.Destination)
		if err != nil {
			os.Remove(req.Destination)
			return &Error{Kind: ErrIO, URL: req.URL, Cause: err}
		}
		if actual != req.ExpectedChecksum {
			os.Remove(req.Destination)
			return &Error{Kind: ErrChecksumMismatch, URL: req.URL, Expected: req.ExpectedChecksum, Actual: actual}
		}
	}

	if req.Signature != nil {
		data, err := os.ReadFile(req.Destination)
		if err != nil {
			os.Remove(req.Destination)
			return &Error{Kind: ErrIO, URL: req.URL, Cause: err}
		}
		if err := integrity.VerifyEd25519(req.Signature.PublicKeyB64, req.Signature.SignatureB64, data); err != nil {
			os.Remove(req.Destination)
			return &Error{Kind: ErrSignatureVerificationFailed, URL: req.URL, Cause: err}
		}
	}

	return nil
}

// Result is one entry of DownloadParallel's output, in the same order as
// the corresponding input request.
type Result struct {
	Path string
	Err  error
}

// DownloadParallel runs DownloadFile for each request with at most limit
// in flight at once (or d.config.MaxConcurrency if limit <= 0). The
// returned slice matches the input order regardless of completion order;
// one request failing does not cancel the others.
func (d *Downloader) DownloadParallel(ctx context.Context, requests []DownloadRequest, limit int) []Result {
	if limit <= 0 {
		limit = d.config.MaxConcurrency
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([]Result, len(requests))
	sem := make(chan struct{}, limit)
	done := make(chan int, len(requests))

	for i, req := range requests {
		i, req := i, req
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- i }()
			path, err := d.DownloadFile(ctx, req)
			results[i] = Result{Path: path, Err: err}
		}()
	}

	for range requests {
		<-done
	}

	return results
}
