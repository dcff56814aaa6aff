package pgingest

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes both pipelines report.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	_, err := loader.Load(ctx, cfg)
//	if errors.Is(err, pgingest.ErrEmptySource) {
//	    // the file only had a header row
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrStorage indicates a statement, copy or transaction failed on the server.
	// The surrounding transaction has been rolled back when this is returned.
	ErrStorage = errors.New("storage error")

	// ErrTransport indicates an HTTP fetch failed or returned a non-2xx status.
	ErrTransport = errors.New("transport error")

	// ErrParse indicates a value could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrEmptyResult indicates a scrape found no marker table or extracted no rows.
	ErrEmptyResult = errors.New("empty result")

	// ErrEmptySource indicates a delimited file has no data rows beyond the header.
	ErrEmptySource = errors.New("source has no data rows")

	// ErrInvalidSchema indicates a header or explicit column override is unusable.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrApprovalDenied indicates the user declined a destructive operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"missing required argument",
	"invalid argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrStorage):
		return ExitStorageError
	case errors.Is(err, ErrTransport):
		return ExitTransportError
	case errors.Is(err, ErrEmptyResult), errors.Is(err, ErrEmptySource):
		return ExitEmptyResult
	case errors.Is(err, ErrInvalidSchema), errors.Is(err, ErrParse):
		return ExitInvalidInput
	}

	errStr := err.Error()

	// cobra reports flag and argument misuse as plain errors
	for _, pattern := range usageErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	// pgx does not always wrap dial failures in a typed error
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
