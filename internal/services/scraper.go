package services

import (
	"context"
	"fmt"

	"github.com/vvka-141/pgingest/internal/ingest"
	"github.com/vvka-141/pgingest/internal/scrape"
	"github.com/vvka-141/pgingest/internal/store"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

var errNoConnection = fmt.Errorf("no database connection configured: %w", pgingest.ErrInvalidConfig)

// ScrapeResult summarizes ScrapeService.Run.
type ScrapeResult struct {
	Snapshot *scrape.Snapshot
	Saved    int
}

// ScrapeService binds one scrape configuration to a target database.
// Thread-Safety: every method opens and closes its own pool, so calls
// from a UI command goroutine do not share connection state.
type ScrapeService struct {
	connectorFactory ConnectorFactory
	approver         pgingest.Approver
	logger           pgingest.Logger
	connConfig       *pgingest.ConnectionConfig
	cfg              pgingest.ScrapeConfig
}

// NewScrapeService creates a ScrapeService. connConfig may be nil when the
// service only scrapes. Nil required dependencies panic.
func NewScrapeService(
	connectorFactory ConnectorFactory,
	approver pgingest.Approver,
	logger pgingest.Logger,
	connConfig *pgingest.ConnectionConfig,
	cfg pgingest.ScrapeConfig,
) *ScrapeService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ScrapeService{
		connectorFactory: connectorFactory,
		approver:         approver,
		logger:           logger,
		connConfig:       connConfig,
		cfg:              cfg,
	}
}

// Config returns the bound scrape configuration.
func (s *ScrapeService) Config() pgingest.ScrapeConfig {
	return s.cfg
}

// Scrape fetches, extracts and converts without touching the database.
func (s *ScrapeService) Scrape(ctx context.Context, progress scrape.Progress) (*scrape.Snapshot, error) {
	return scrape.NewPipeline(s.cfg, nil, s.logger).Run(ctx, progress)
}

// Save appends snap to the bank table.
func (s *ScrapeService) Save(ctx context.Context, snap *scrape.Snapshot, progress store.WriteProgress) (int, error) {
	writer, closeFn, err := s.openWriter(ctx)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	return writer.Write(ctx, snap, s.cfg.ChunkSize, progress)
}

// Clear empties the bank table. Callers confirm with the user first.
func (s *ScrapeService) Clear(ctx context.Context) error {
	writer, closeFn, err := s.openWriter(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := writer.EnsureTable(ctx, s.cfg.BaseCurrency, s.currencies()); err != nil {
		return err
	}
	return writer.Truncate(ctx)
}

// Run scrapes once and, when cfg.Load is set, persists the snapshot,
// replacing the table contents if truncate was requested and approved. A failed scrape returns
// before any connection is made, so the table is left unchanged.
func (s *ScrapeService) Run(ctx context.Context, progress scrape.Progress) (*ScrapeResult, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	snap, err := s.Scrape(ctx, progress)
	if err != nil {
		return nil, err
	}
	result := &ScrapeResult{Snapshot: snap}
	if !s.cfg.Load {
		return result, nil
	}

	if s.cfg.Truncate {
		if err := ingest.RequestTruncateApproval(ctx, s.approver, s.cfg.Table); err != nil {
			return result, err
		}
	}

	writer, closeFn, err := s.openWriter(ctx)
	if err != nil {
		return result, err
	}
	defer closeFn()

	if s.cfg.Truncate {
		result.Saved, err = writer.Replace(ctx, snap, s.cfg.ChunkSize, nil)
	} else {
		result.Saved, err = writer.Write(ctx, snap, s.cfg.ChunkSize, nil)
	}
	return result, err
}

func (s *ScrapeService) currencies() []string {
	codes := make([]string, len(s.cfg.Rates))
	for i, r := range s.cfg.Rates {
		codes[i] = r.Code
	}
	return codes
}

func (s *ScrapeService) openWriter(ctx context.Context) (*store.BankWriter, func(), error) {
	if s.connConfig == nil {
		return nil, nil, errNoConnection
	}
	pool, err := connect(ctx, s.connectorFactory, s.connConfig, s.logger)
	if err != nil {
		return nil, nil, err
	}
	return store.NewBankWriter(pool, s.cfg.Table, s.logger), pool.Close, nil
}
