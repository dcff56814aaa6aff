package pgingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InferenceMode selects how column types are derived from a delimited file.
type InferenceMode string

const (
	// InferFirstRow types every column from the first data row only.
	InferFirstRow InferenceMode = "first-row"

	// InferConsensus scans every row and widens each column to the narrowest
	// type all its non-null values fit.
	InferConsensus InferenceMode = "consensus"
)

// IsValid reports whether m names a known inference mode.
func (m InferenceMode) IsValid() bool {
	return m == InferFirstRow || m == InferConsensus
}

// LoadConfig contains all parameters needed to load a delimited file into a table.
type LoadConfig struct {
	// SourcePath is the delimited file to read. The first line is the header.
	SourcePath string

	// Table is the target table, optionally schema-qualified ("staging.rewards").
	Table string

	// Delimiter is a single character, or AutoDelimiter to sniff it.
	Delimiter string

	// NullSentinel is the literal that is loaded as SQL NULL and never votes on a column type.
	NullSentinel string

	// Inference selects the type inference strategy. Defaults to InferConsensus.
	Inference InferenceMode

	// Columns overrides inferred types by column name ("zip" -> "text").
	Columns map[string]string

	// Truncate empties the target table before copying.
	Truncate bool

	// Force skips the interactive truncate confirmation.
	Force bool

	// Timeout is the global timeout for the whole load.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.SourcePath == "" {
		errs = append(errs, fmt.Errorf("SourcePath is required: %w", ErrInvalidConfig))
	}

	if err := ValidateTableName(c.Table); err != nil {
		errs = append(errs, err)
	}

	if c.Delimiter != AutoDelimiter && len([]rune(c.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("delimiter must be a single character or %q, got %q: %w", AutoDelimiter, c.Delimiter, ErrInvalidConfig))
	}

	if c.Inference == "" {
		c.Inference = InferConsensus
	}
	if !c.Inference.IsValid() {
		errs = append(errs, fmt.Errorf("unknown inference mode %q: %w", c.Inference, ErrInvalidConfig))
	}

	if c.Force && !c.Truncate {
		errs = append(errs, fmt.Errorf("force flag requires truncate to be enabled: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// Rate is a fixed conversion factor from the base currency into Code.
type Rate struct {
	Code   string
	Factor decimal.Decimal
}

// DefaultRates returns the static conversion table: 1 USD in EUR, GBP and INR.
func DefaultRates() []Rate {
	return []Rate{
		{Code: "EUR", Factor: decimal.RequireFromString("0.93")},
		{Code: "GBP", Factor: decimal.RequireFromString("0.80")},
		{Code: "INR", Factor: decimal.RequireFromString("83.40")},
	}
}

// ScrapeConfig contains all parameters needed for a scrape run.
type ScrapeConfig struct {
	// URL is the page holding the marker table.
	URL string

	// TableClass is the CSS class the marker table carries.
	TableClass string

	// Table is the target table for persisted rows.
	Table string

	// BaseCurrency labels the scraped amount column.
	BaseCurrency string

	// Rates are applied to the base amount in order, one output column each.
	Rates []Rate

	// ChunkSize is the number of rows sent per batch when persisting.
	ChunkSize int

	// FetchTimeout bounds the HTTP request.
	FetchTimeout time.Duration

	// UserAgent is sent with the request. Some hosts reject the Go default.
	UserAgent string

	// Load persists the snapshot after a successful scrape.
	Load bool

	// Truncate empties the target table before persisting.
	Truncate bool

	// Force skips the interactive truncate confirmation.
	Force bool

	// Timeout is the global timeout for the whole run.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

var (
	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

	// a single CSS class name, so "table." + class stays one compound selector
	cssClassPattern = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)
)

// Validate checks if the ScrapeConfig has all required fields and valid values.
func (c *ScrapeConfig) Validate() error {
	var errs []error

	if c.URL == "" {
		errs = append(errs, fmt.Errorf("URL is required: %w", ErrInvalidConfig))
	}

	if c.TableClass == "" {
		errs = append(errs, fmt.Errorf("TableClass is required: %w", ErrInvalidConfig))
	} else if !cssClassPattern.MatchString(c.TableClass) {
		errs = append(errs, fmt.Errorf("table class %q is not a single CSS class name: %w", c.TableClass, ErrInvalidConfig))
	}

	if c.Load || c.Truncate {
		if err := ValidateTableName(c.Table); err != nil {
			errs = append(errs, err)
		}
	}

	if !currencyCodePattern.MatchString(c.BaseCurrency) {
		errs = append(errs, fmt.Errorf("base currency %q is not a 3-letter code: %w", c.BaseCurrency, ErrInvalidConfig))
	}

	if len(c.Rates) == 0 {
		errs = append(errs, fmt.Errorf("at least one conversion rate is required: %w", ErrInvalidConfig))
	}
	seen := make(map[string]bool, len(c.Rates))
	for _, r := range c.Rates {
		if !currencyCodePattern.MatchString(r.Code) {
			errs = append(errs, fmt.Errorf("currency %q is not a 3-letter code: %w", r.Code, ErrInvalidConfig))
		}
		if seen[r.Code] || r.Code == c.BaseCurrency {
			errs = append(errs, fmt.Errorf("currency %q listed twice: %w", r.Code, ErrInvalidConfig))
		}
		seen[r.Code] = true
		if !r.Factor.IsPositive() {
			errs = append(errs, fmt.Errorf("rate for %s must be positive: %w", r.Code, ErrInvalidConfig))
		}
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive: %w", ErrInvalidConfig))
	}

	if c.Force && !c.Truncate {
		errs = append(errs, fmt.Errorf("force flag requires truncate to be enabled: %w", ErrInvalidConfig))
	}

	if c.FetchTimeout < 0 || c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ValidateTableName checks a table name is present and has at most one schema qualifier.
func ValidateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table name is required: %w", ErrInvalidConfig)
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("table name %q has too many qualifiers: %w", name, ErrInvalidConfig)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("table name %q has an empty part: %w", name, ErrInvalidConfig)
		}
	}
	return nil
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Client certificate authentication
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
