package install

import (
	"github.com/pybun/pybun/internal/log"
)

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the Logger an Installer uses. Defaults to log.Default().
func WithLogger(l log.Logger) Option {
	return func(i *Installer) {
		i.logger = l
	}
}

// WithDownloadConcurrency overrides how many artifacts Execute fetches at
// once. Defaults to 4; the Downloader's own MaxConcurrency still caps the
// requests in flight.
func WithDownloadConcurrency(n int) Option {
	return func(i *Installer) {
		i.downloadConcurrency = n
	}
}
