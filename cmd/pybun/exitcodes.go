package main

import "os"

// Exit codes for different error types. These enable scripts to
// distinguish between failure modes.
const (
	ExitSuccess = 0

	// ExitGeneral indicates an unclassified error.
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error.
	ExitUsage = 2

	// ExitResolveFailed indicates dependency resolution failed.
	ExitResolveFailed = 3

	// ExitInstallFailed indicates a download or unpack step failed.
	ExitInstallFailed = 4

	// ExitCancelled indicates the operation was cancelled (SIGINT/SIGTERM).
	ExitCancelled = 5
)

func exitWithCode(code int) {
	os.Exit(code)
}
