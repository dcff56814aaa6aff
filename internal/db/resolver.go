package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// DefaultAppName is reported to the server as application_name.
const DefaultAppName = "pgingest"

// GranularConnFlags are the libpq-style -h, -p, -U, -d flags.
//
// Password is deliberately not a flag. Use $PGPASSWORD, ~/.pgpass or a
// connection string instead.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether none of the server-selecting flags were given.
// Database is excluded: -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g == nil || (g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "")
}

// CloudFlags select a cloud IAM authentication method.
// At most one of Azure, AWS and Google may be set.
type CloudFlags struct {
	Azure         bool
	AzureTenantID string
	AzureClientID string

	AWS       bool
	AWSRegion string

	Google         bool
	GoogleInstance string
}

func (c *CloudFlags) selected() []pgingest.AuthMethod {
	var methods []pgingest.AuthMethod
	if c.Azure || c.AzureTenantID != "" || c.AzureClientID != "" {
		methods = append(methods, pgingest.AuthMethodAzureEntraID)
	}
	if c.AWS {
		methods = append(methods, pgingest.AuthMethodAWSIAM)
	}
	if c.Google {
		methods = append(methods, pgingest.AuthMethodGoogleIAM)
	}
	return methods
}

// EnvVars holds the environment variables that feed connection resolution.
// See https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
	AWS_REGION          string
}

// LoadFromEnvironment snapshots the connection-related environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
	}
}

// ResolveConnectionParams builds the target ConnectionConfig.
//
// Server selection, first match wins:
//  1. --connection
//  2. $DATABASE_URL, when no granular flag is set
//  3. granular flags, then PG* variables, then pgingest.yaml, then defaults
//
// -d overrides the database in every path. Cloud authentication comes from
// CloudFlags, else from auth_method in pgingest.yaml.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgingest.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf("%w: cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)", pgingest.ErrInvalidConfig)
	}

	var cfg *pgingest.ConnectionConfig
	var err error
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}

	if err := applyCloudAuth(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFromConnectionString(connStr string, envVars *EnvVars) (*pgingest.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid connection string: %v", pgingest.ErrInvalidConfig, err)
	}

	// libpq treats PG* variables as fallbacks for anything the string omits
	if cfg.SSLMode == "" {
		cfg.SSLMode = envVars.PGSSLMODE
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "prefer"
	}
	if cfg.Password == "" {
		cfg.Password = envVars.PGPASSWORD
	}
	return cfg, nil
}

func resolveFromGranularParams(flags *GranularConnFlags, envVars *EnvVars, pc config.ConnectionConfig) (*pgingest.ConnectionConfig, error) {
	cfg := &pgingest.ConnectionConfig{
		AuthMethod:       pgingest.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
		SSLCert:          pc.SSLCert,
		SSLKey:           pc.SSLKey,
		SSLRootCert:      pc.SSLRootCert,
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid $PGPORT value '%s': must be an integer", pgingest.ErrInvalidConfig, envVars.PGPORT)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database, "postgres")
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")

	return cfg, nil
}

func applyCloudAuth(cfg *pgingest.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	method := pgingest.AuthMethodStandard

	switch selected := flags.selected(); len(selected) {
	case 0:
		if pc.AuthMethod != "" {
			m, err := parseAuthMethod(pc.AuthMethod)
			if err != nil {
				return err
			}
			method = m
		}
	case 1:
		method = selected[0]
	default:
		return fmt.Errorf("%w: choose only one of --azure, --aws, --google", pgingest.ErrInvalidConfig)
	}

	cfg.AuthMethod = method
	switch method {
	case pgingest.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		// secret only ever comes from the environment
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case pgingest.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case pgingest.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

func parseAuthMethod(s string) (pgingest.AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return pgingest.AuthMethodStandard, nil
	case "azure", "entra", "azure-entra-id":
		return pgingest.AuthMethodAzureEntraID, nil
	case "aws", "aws-iam":
		return pgingest.AuthMethodAWSIAM, nil
	case "google", "gcp", "google-iam":
		return pgingest.AuthMethodGoogleIAM, nil
	}
	return pgingest.AuthMethodStandard, fmt.Errorf("%w: auth_method %q", pgingest.ErrUnsupportedAuthMethod, s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
