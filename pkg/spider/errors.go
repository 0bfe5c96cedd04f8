package spider

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	err := runner.Run(ctx, cfg)
//	if errors.Is(err, spider.ErrCatalogUnavailable) {
//	    // The catalog itself is down; nothing was written.
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCatalogUnavailable indicates the CSW catalog is unreachable or
	// returned a malformed paginated response. Fatal: partial catalog
	// results are not meaningful, so the whole run aborts.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrServiceUnreachable indicates a single service's capabilities
	// document could not be retrieved after exhausting retries. Scoped to
	// one record; the run continues without it.
	ErrServiceUnreachable = errors.New("service unreachable")

	// ErrCapabilityParse indicates a capabilities document was retrieved
	// but could not be parsed into the common service model. Scoped to one
	// record; the run continues without it.
	ErrCapabilityParse = errors.New("capability document parse failed")

	// ErrSortRule indicates the sorting-rules file is malformed or contains
	// an invalid regular expression. Raised at startup, before any network
	// activity.
	ErrSortRule = errors.New("invalid sorting rules")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrCatalogUnavailable):
		return ExitCatalogUnavailable
	case errors.Is(err, ErrSortRule):
		return ExitSortRuleError
	}

	// Cobra reports flag and argument misuse as plain errors.
	errStr := err.Error()
	if strings.Contains(errStr, "unknown flag") ||
		strings.Contains(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "unknown command") ||
		strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "required flag") ||
		strings.Contains(errStr, "accepts") && strings.Contains(errStr, "arg(s)") {
		return ExitUsageError
	}

	return ExitGeneralError
}
