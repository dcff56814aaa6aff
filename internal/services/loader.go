package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgingest/internal/ingest"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ConnectorFactory builds a Connector for a resolved connection config.
type ConnectorFactory func(*pgingest.ConnectionConfig, pgingest.Logger) (pgingest.Connector, error)

// LoadService connects to the target database and runs the file loader.
type LoadService struct {
	connectorFactory ConnectorFactory
	approver         pgingest.Approver
	logger           pgingest.Logger
}

// NewLoadService creates a LoadService. Nil dependencies are programmer
// errors and panic.
func NewLoadService(connectorFactory ConnectorFactory, approver pgingest.Approver, logger pgingest.Logger) *LoadService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LoadService{connectorFactory: connectorFactory, approver: approver, logger: logger}
}

// Load validates cfg, connects and loads cfg.SourcePath into cfg.Table.
func (s *LoadService) Load(ctx context.Context, connConfig *pgingest.ConnectionConfig, cfg pgingest.LoadConfig) (*ingest.LoadResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := connect(ctx, s.connectorFactory, connConfig, s.logger)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return ingest.NewLoader(pool, s.approver, s.logger).Load(ctx, cfg)
}

// Truncate empties table after approval.
func (s *LoadService) Truncate(ctx context.Context, connConfig *pgingest.ConnectionConfig, table string) error {
	if err := pgingest.ValidateTableName(table); err != nil {
		return err
	}

	pool, err := connect(ctx, s.connectorFactory, connConfig, s.logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	return ingest.NewLoader(pool, s.approver, s.logger).TruncateTable(ctx, table)
}

func connect(ctx context.Context, factory ConnectorFactory, connConfig *pgingest.ConnectionConfig, logger pgingest.Logger) (*pgxpool.Pool, error) {
	connector, err := factory(connConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	logger.Verbose("Connected to %s:%d/%s", connConfig.Host, connConfig.Port, connConfig.Database)
	return pool, nil
}
