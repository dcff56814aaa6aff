package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// LoadResult summarizes a completed load.
type LoadResult struct {
	Table     string
	Schema    TableSchema
	Delimiter rune
	Rows      int64
	Truncated bool
	Duration  time.Duration
}

// Loader runs the file-to-table pipeline against a database.
type Loader struct {
	db       DB
	approver pgingest.Approver
	logger   pgingest.Logger
}

// NewLoader creates a Loader. approver is consulted before any truncate and
// may be nil when truncation is never requested.
func NewLoader(db DB, approver pgingest.Approver, logger pgingest.Logger) *Loader {
	return &Loader{db: db, approver: approver, logger: logger}
}

// Load reads cfg.SourcePath and loads it into cfg.Table.
func (l *Loader) Load(ctx context.Context, cfg pgingest.LoadConfig) (*LoadResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", cfg.SourcePath, pgingest.ErrInvalidConfig, err)
	}
	defer f.Close()

	return l.LoadReader(ctx, f, cfg)
}

// LoadReader loads an already opened stream; cfg.SourcePath is used for
// messages only.
//
// The table is created if absent, optionally truncated, and filled in one
// transaction. Any storage failure rolls everything back, so a failed load
// leaves the table exactly as it was.
func (l *Loader) LoadReader(ctx context.Context, r io.Reader, cfg pgingest.LoadConfig) (*LoadResult, error) {
	start := time.Now()
	if cfg.Inference == "" {
		cfg.Inference = pgingest.InferConsensus
	}

	src, err := ReadSource(r, cfg.Delimiter)
	if err != nil {
		if errors.Is(err, pgingest.ErrEmptySource) {
			return nil, fmt.Errorf("%s: %w", cfg.SourcePath, err)
		}
		return nil, err
	}
	l.logger.Verbose("Read %d rows with %d columns from %s (delimiter %q)", len(src.Rows), len(src.Header), cfg.SourcePath, src.Delimiter)

	schema, err := InferSchema(src.Header, src.Rows, cfg.Inference, cfg.NullSentinel, cfg.Columns)
	if err != nil {
		return nil, err
	}
	l.logger.Verbose("Schema (%s): %s", cfg.Inference, schema)

	if cfg.Truncate {
		if err := l.approve(ctx, cfg.Table); err != nil {
			return nil, err
		}
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin load: %w: %w", pgingest.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := CreateTable(ctx, tx, cfg.Table, schema); err != nil {
		l.logger.Error("Create table %s failed: %v", cfg.Table, err)
		return nil, err
	}
	if cfg.Truncate {
		if err := Truncate(ctx, tx, cfg.Table); err != nil {
			l.logger.Error("Truncate %s failed: %v", cfg.Table, err)
			return nil, err
		}
		l.logger.Verbose("Truncated %s", cfg.Table)
	}

	n, err := BulkCopy(ctx, tx, cfg.Table, schema, src.Rows, cfg.NullSentinel)
	if err != nil {
		l.logger.Error("Copy into %s failed, rolled back: %v", cfg.Table, err)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		l.logger.Error("Commit into %s failed: %v", cfg.Table, err)
		return nil, fmt.Errorf("commit load: %w: %w", pgingest.ErrStorage, err)
	}

	result := &LoadResult{
		Table:     cfg.Table,
		Schema:    schema,
		Delimiter: src.Delimiter,
		Rows:      n,
		Truncated: cfg.Truncate,
		Duration:  time.Since(start),
	}
	l.logger.Info("Loaded %d rows into %s in %s", n, cfg.Table, result.Duration.Round(time.Millisecond))
	return result, nil
}

// TruncateTable empties table after approval.
func (l *Loader) TruncateTable(ctx context.Context, table string) error {
	if err := l.approve(ctx, table); err != nil {
		return err
	}
	if err := Truncate(ctx, l.db, table); err != nil {
		l.logger.Error("Truncate %s failed: %v", table, err)
		return err
	}
	l.logger.Info("Truncated %s", table)
	return nil
}

func (l *Loader) approve(ctx context.Context, table string) error {
	return RequestTruncateApproval(ctx, l.approver, table)
}

// RequestTruncateApproval asks approver before table is emptied. A nil
// approver or a refusal returns ErrApprovalDenied.
func RequestTruncateApproval(ctx context.Context, approver pgingest.Approver, table string) error {
	if approver == nil {
		return fmt.Errorf("truncate of %s requested without an approver: %w", table, pgingest.ErrApprovalDenied)
	}
	ok, err := approver.RequestApproval(ctx, table)
	if err != nil {
		return fmt.Errorf("approval for %s: %w", table, err)
	}
	if !ok {
		return fmt.Errorf("truncate of %s: %w", table, pgingest.ErrApprovalDenied)
	}
	return nil
}
