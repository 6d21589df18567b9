// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/pybun/pybun/internal/download"
	"github.com/pybun/pybun/internal/lockfile"
	"github.com/pybun/pybun/internal/resolve"
)

// ErrorContext provides additional context for error formatting.
type ErrorContext struct {
	PackageName string // the package being operated on (for suggestions)
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	errMsg := err.Error()

	var resolveErr *resolve.ResolveError
	if errors.As(err, &resolveErr) {
		return formatResolveError(resolveErr, ctx)
	}

	var dlErr *download.Error
	if errors.As(err, &dlErr) {
		return formatDownloadError(dlErr, ctx)
	}

	var magicErr *lockfile.InvalidMagicError
	if errors.As(err, &magicErr) {
		return formatLockfileCorruptError(magicErr.Error(), ctx)
	}

	var versionErr *lockfile.UnsupportedVersionError
	if errors.As(err, &versionErr) {
		return formatLockfileVersionError(versionErr, ctx)
	}

	if isRateLimitError(errMsg) {
		return formatRateLimitError(errMsg, ctx)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(netErr, ctx)
	}

	if isNetworkError(errMsg) {
		return formatGenericNetworkError(errMsg, ctx)
	}

	if isNotFoundError(errMsg) {
		return formatNotFoundError(errMsg, ctx)
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg, ctx)
	}

	return errMsg
}

func formatResolveError(err *resolve.ResolveError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	switch {
	case err.Missing != nil:
		sb.WriteString("\nPossible causes:\n")
		if len(err.Missing.AvailableVersions) == 0 {
			sb.WriteString("  - The package does not exist in the index\n")
			sb.WriteString("  - The dependency string uses an unsupported version operator\n")
		} else {
			sb.WriteString("  - No published version satisfies the requested constraint\n")
		}

		sb.WriteString("\nSuggestions:\n")
		if len(err.Missing.AvailableVersions) > 0 {
			sb.WriteString(fmt.Sprintf("  - Available versions: %s\n", strings.Join(err.Missing.AvailableVersions, ", ")))
		}
		sb.WriteString(fmt.Sprintf("  - Check the spelling of %q\n", err.Missing.Name))
		sb.WriteString("  - Only == and >= constraints are supported\n")

	case err.Conflict != nil:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - Two packages require incompatible versions of the same dependency\n")

		sb.WriteString("\nSuggestions:\n")
		sb.WriteString(fmt.Sprintf("  - %s was first pinned to %s via %s\n",
			err.Conflict.Name, err.Conflict.Existing, strings.Join(err.Conflict.ExistingChain, " -> ")))
		sb.WriteString(fmt.Sprintf("  - %s via %s requires %s instead\n",
			err.Conflict.Name, strings.Join(err.Conflict.RequestedChain, " -> "), err.Conflict.Requested))
		sb.WriteString("  - Pin one of the requesting packages to a compatible version\n")

	default:
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Try again in a few minutes\n")
	}

	return sb.String()
}

func formatDownloadError(err *download.Error, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	switch {
	case err.Kind == download.ErrChecksumMismatch:
		sb.WriteString("  - The artifact was corrupted in transit\n")
		sb.WriteString("  - The index points to a stale or tampered artifact\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Retry the install; mirrors occasionally serve bad copies\n")
		sb.WriteString("  - Report a persistent mismatch to the index maintainer\n")
	case err.Kind == download.ErrSignatureVerificationFailed:
		sb.WriteString("  - The artifact does not match its published signature\n")
		sb.WriteString("  - The public key configured for this source is wrong or outdated\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Do not trust this artifact; treat it as compromised\n")
		sb.WriteString("  - Verify the source's public key out of band\n")
	case err.Kind == download.ErrHTTPStatus:
		sb.WriteString(fmt.Sprintf("  - The server returned HTTP %d for this artifact\n", err.StatusCode))
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check the artifact URL in the index\n")
		sb.WriteString("  - Try again in a few minutes\n")
	default:
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - Service temporarily unavailable\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check your internet connection\n")
		sb.WriteString("  - Try again in a few minutes\n")
	}

	return sb.String()
}

func formatLockfileCorruptError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The lockfile was truncated or edited by hand\n")
	sb.WriteString("  - The file is not a pybun lockfile at all\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Delete the lockfile and re-run install to regenerate it\n")

	return sb.String()
}

func formatLockfileVersionError(err *lockfile.UnsupportedVersionError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The lockfile was written by a newer version of pybun\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Upgrade pybun to a version that supports this lockfile format\n")
	sb.WriteString("  - Or delete the lockfile and let install regenerate it\n")

	return sb.String()
}

func formatRateLimitError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Too many requests to the index\n")
	sb.WriteString("  - Unauthenticated requests have lower limits\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Wait a few minutes before retrying\n")
	if ctx != nil && ctx.PackageName != "" {
		sb.WriteString(fmt.Sprintf("  - Pin %s to a specific version to avoid repeated version lookups\n", ctx.PackageName))
	}

	return sb.String()
}

func formatNetworkError(err net.Error, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if err.Timeout() {
		sb.WriteString("  - Request timed out\n")
		sb.WriteString("  - Slow or unstable network connection\n")
	} else {
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - DNS resolution failure\n")
	}
	sb.WriteString("  - Firewall or proxy blocking the connection\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")
	if err.Timeout() {
		sb.WriteString("  - Check if you're behind a slow proxy\n")
	}

	return sb.String()
}

func formatGenericNetworkError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Network connectivity issue\n")
	sb.WriteString("  - DNS resolution failure\n")
	sb.WriteString("  - Service temporarily unavailable\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")

	return sb.String()
}

func formatNotFoundError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The package does not exist in the configured index\n")
	sb.WriteString("  - Typo in the package name\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check the spelling of the package name\n")
	if ctx != nil && ctx.PackageName != "" {
		sb.WriteString(fmt.Sprintf("  - Confirm %q is published to the index you configured\n", ctx.PackageName))
	}

	return sb.String()
}

func formatPermissionError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Insufficient permissions on $PYBUN_HOME directory\n")
	sb.WriteString("  - File or directory owned by a different user\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check permissions on ~/.pybun directory\n")
	sb.WriteString("  - Ensure you own the pybun directories: ls -la ~/.pybun\n")

	return sb.String()
}

// isRateLimitError checks if the error message indicates a rate limit.
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests")
}

// isNetworkError checks if the error message indicates a network issue.
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "i/o timeout")
}

// isNotFoundError checks if the error message indicates something not found.
func isNotFoundError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "404") ||
		strings.Contains(lower, "does not exist")
}

// isPermissionError checks if the error message indicates a permission issue.
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
