package pgingest

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Command completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied truncate approval
	ExitStorageError    = 13 // Statement or copy failed, transaction rolled back
	ExitTransportError  = 14 // HTTP fetch failed
	ExitEmptyResult     = 15 // Nothing to load (empty file, no table, no rows)
	ExitInvalidInput    = 16 // Unusable header or column override
)

const (
	// DefaultForceApprovalCountdown is the countdown duration before a forced truncate proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first connection retry.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between connection retries.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retries.
	DefaultRetryMaxAttempts = 3

	// DefaultTimeout bounds a whole command run.
	DefaultTimeout = 3 * time.Minute

	// DefaultDelimiter is the field separator when none is configured.
	DefaultDelimiter = ","

	// AutoDelimiter asks the reader to sniff the separator from the file head.
	AutoDelimiter = "auto"

	// DefaultNullSentinel is the literal that stands for a missing value.
	DefaultNullSentinel = ""

	// DefaultScrapeURL is the page holding the largest-banks table.
	DefaultScrapeURL = "https://en.wikipedia.org/wiki/List_of_largest_banks"

	// DefaultTableClass is the CSS class marking the table to extract.
	DefaultTableClass = "wikitable"

	// DefaultBankTable is the table scraped rows are persisted to.
	DefaultBankTable = "bank_market_cap"

	// DefaultChunkSize is the number of bank rows sent per batch.
	DefaultChunkSize = 10

	// DefaultFetchTimeout bounds the single HTTP GET of a scrape.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultBaseCurrency is the currency of the scraped amount column.
	DefaultBaseCurrency = "USD"
)
