package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Pool limits. A load or a scrape needs one connection at a time; the
// extra slot lets the TUI count rows while a clear is settling.
const (
	DefaultMaxConns        = 2
	DefaultMinConns        = 0
	DefaultMaxConnIdleTime = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger pgingest.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("server notice: %s", notice.Message)
	}
}

// openPool opens and pings a pool for cfg, retrying transient failures.
func openPool(ctx context.Context, cfg *pgingest.ConnectionConfig, logger pgingest.Logger, executor *retry.Executor) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := executor.Execute(ctx, func(ctx context.Context) error {
		poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(cfg))
		if err != nil {
			return fmt.Errorf("%w: failed to parse connection config: %v", pgingest.ErrInvalidConfig, err)
		}
		configurePool(poolConfig, logger)

		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Verbose("Connected to %s:%d/%s as %s", cfg.Host, cfg.Port, cfg.Database, cfg.Username)
	return pool, nil
}

// StandardConnector connects with username/password authentication.
type StandardConnector struct {
	config   *pgingest.ConnectionConfig
	logger   pgingest.Logger
	executor *retry.Executor
}

// NewStandardConnector creates a StandardConnector that retries transient
// connection failures with the default backoff.
func NewStandardConnector(config *pgingest.ConnectionConfig, logger pgingest.Logger) *StandardConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &StandardConnector{
		config:   config,
		logger:   logger,
		executor: retry.ForConnections(logger),
	}
}

func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return openPool(ctx, c.config, c.logger, c.executor)
}

// NewConnector returns the Connector matching config.AuthMethod.
func NewConnector(config *pgingest.ConnectionConfig, logger pgingest.Logger) (pgingest.Connector, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	switch config.AuthMethod {
	case pgingest.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case pgingest.AuthMethodAWSIAM:
		provider, err := NewAWSIAMTokenProvider(fmt.Sprintf("%s:%d", config.Host, config.Port), config.AWSRegion, config.Username)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pgingest.ErrInvalidConfig, err)
		}
		return NewTokenBasedConnector(config, provider, "AWS IAM", logger), nil
	case pgingest.AuthMethodAzureEntraID:
		provider, err := newAzureTokenProvider(config)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pgingest.ErrInvalidConfig, err)
		}
		return NewTokenBasedConnector(config, provider, "Azure", logger), nil
	case pgingest.AuthMethodGoogleIAM:
		if config.GoogleInstance == "" {
			return nil, fmt.Errorf("%w: Google Cloud SQL IAM auth requires --google-instance (project:region:instance)", pgingest.ErrInvalidConfig)
		}
		if config.Username == "" {
			return nil, fmt.Errorf("%w: Google Cloud SQL IAM auth requires username (-U)", pgingest.ErrInvalidConfig)
		}
		return NewGoogleCloudSQLConnector(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgingest.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError adds actionable guidance to raw pgx connection errors.
// The result always wraps both ErrConnectionFailed and err.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		hint = fmt.Sprintf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port`, addr, host, port)

	case strings.Contains(errStr, "no such host"):
		hint = fmt.Sprintf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not reachable`, host)

	case strings.Contains(errStr, "password authentication failed"):
		hint = fmt.Sprintf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username`, database)

	case strings.Contains(errStr, "database") && strings.Contains(errStr, "does not exist"):
		hint = fmt.Sprintf(`database "%s" does not exist

To create it:
  createdb %s`, database, database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		hint = fmt.Sprintf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		hint = `SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (check sslrootcert)`

	default:
		return fmt.Errorf("%w: %w", pgingest.ErrConnectionFailed, err)
	}

	return fmt.Errorf("%w: %s\n\nOriginal error: %w", pgingest.ErrConnectionFailed, hint, err)
}
