package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgingest/internal/ingest"
	"github.com/vvka-141/pgingest/internal/scrape"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// DB is the subset of *pgxpool.Pool the writer needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WriteProgress receives the number of rows sent so far and the total.
type WriteProgress func(written, total int)

// BankWriter writes snapshots to one table.
type BankWriter struct {
	db     DB
	table  string
	logger pgingest.Logger
}

// NewBankWriter creates a BankWriter for table.
func NewBankWriter(db DB, table string, logger pgingest.Logger) *BankWriter {
	return &BankWriter{db: db, table: table, logger: logger}
}

// Table returns the target table name.
func (w *BankWriter) Table() string {
	return w.table
}

// AmountColumn names the column holding amounts in currency code.
func AmountColumn(code string) string {
	return "market_cap_" + strings.ToLower(code)
}

func amountColumns(base string, currencies []string) []string {
	cols := make([]string, 0, len(currencies)+1)
	cols = append(cols, AmountColumn(base))
	for _, c := range currencies {
		cols = append(cols, AmountColumn(c))
	}
	return cols
}

// CreateTableSQL renders the bank table DDL for base and currencies.
func CreateTableSQL(table, base string, currencies []string) (string, error) {
	ident, err := ingest.TableIdentifier(table)
	if err != nil {
		return "", err
	}

	defs := []string{"id SERIAL PRIMARY KEY", "bank_name VARCHAR(255)"}
	for _, col := range amountColumns(base, currencies) {
		defs = append(defs, pgx.Identifier{col}.Sanitize()+" NUMERIC(15,2)")
	}
	defs = append(defs, "scrape_date TIMESTAMP")

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", ")), nil
}

func insertSQL(table, base string, currencies []string) (string, error) {
	ident, err := ingest.TableIdentifier(table)
	if err != nil {
		return "", err
	}

	cols := []string{"bank_name"}
	cols = append(cols, amountColumns(base, currencies)...)
	cols = append(cols, "scrape_date")

	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident.Sanitize(), strings.Join(quoted, ", "), strings.Join(params, ", ")), nil
}

// EnsureTable creates the table if it does not exist.
func (w *BankWriter) EnsureTable(ctx context.Context, base string, currencies []string) error {
	return ensureTable(ctx, w.db, w.table, base, currencies)
}

func ensureTable(ctx context.Context, db ingest.DB, table, base string, currencies []string) error {
	sql, err := CreateTableSQL(table, base, currencies)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w: %w", table, pgingest.ErrStorage, err)
	}
	return nil
}

// Write appends every snapshot row, chunkSize rows per batch, in one
// transaction. The table is created first if needed. An empty snapshot
// writes nothing and does not touch the database.
func (w *BankWriter) Write(ctx context.Context, snap *scrape.Snapshot, chunkSize int, progress WriteProgress) (int, error) {
	return w.write(ctx, snap, chunkSize, progress, false)
}

// Replace is Write preceded by a truncate in the same transaction. If any
// chunk fails the previous contents are kept.
func (w *BankWriter) Replace(ctx context.Context, snap *scrape.Snapshot, chunkSize int, progress WriteProgress) (int, error) {
	return w.write(ctx, snap, chunkSize, progress, true)
}

func (w *BankWriter) write(ctx context.Context, snap *scrape.Snapshot, chunkSize int, progress WriteProgress, truncate bool) (int, error) {
	if snap == nil || len(snap.Rows) == 0 {
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = pgingest.DefaultChunkSize
	}
	if progress == nil {
		progress = func(int, int) {}
	}

	sql, err := insertSQL(w.table, snap.BaseCurrency, snap.Currencies)
	if err != nil {
		return 0, err
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin write to %s: %w: %w", w.table, pgingest.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := ensureTable(ctx, tx, w.table, snap.BaseCurrency, snap.Currencies); err != nil {
		w.logger.Error("Create table %s failed: %v", w.table, err)
		return 0, err
	}
	if truncate {
		if err := ingest.Truncate(ctx, tx, w.table); err != nil {
			w.logger.Error("Clear %s failed: %v", w.table, err)
			return 0, err
		}
		w.logger.Verbose("Cleared %s", w.table)
	}

	total := len(snap.Rows)
	written := 0
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)

		batch := &pgx.Batch{}
		for _, row := range snap.Rows[start:end] {
			batch.Queue(sql, rowArgs(row, snap)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			w.logger.Error("Write to %s failed at rows %d-%d, rolled back: %v", w.table, start+1, end, err)
			return 0, fmt.Errorf("insert rows %d-%d into %s: %w: %w", start+1, end, w.table, pgingest.ErrStorage, err)
		}

		written = end
		w.logger.Verbose("Inserted rows %d-%d of %d", start+1, end, total)
		progress(written, total)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit write to %s: %w: %w", w.table, pgingest.ErrStorage, err)
	}
	w.logger.Info("Saved %d banks to %s", written, w.table)
	return written, nil
}

// Amounts are sent as fixed-point text so NUMERIC receives them exactly.
func rowArgs(row scrape.CurrencyRow, snap *scrape.Snapshot) []any {
	args := make([]any, 0, len(row.Converted)+3)
	args = append(args, row.Bank, row.MarketCap.StringFixed(2))
	for _, a := range row.Converted {
		args = append(args, a.Value.StringFixed(2))
	}
	return append(args, snap.ScrapedAt)
}

// Truncate empties the table and restarts its id sequence.
func (w *BankWriter) Truncate(ctx context.Context) error {
	if err := ingest.Truncate(ctx, w.db, w.table); err != nil {
		w.logger.Error("Clear %s failed: %v", w.table, err)
		return err
	}
	w.logger.Info("Cleared %s", w.table)
	return nil
}

// Count returns the number of rows in the table.
func (w *BankWriter) Count(ctx context.Context) (int64, error) {
	ident, err := ingest.TableIdentifier(w.table)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := w.db.QueryRow(ctx, "SELECT count(*) FROM "+ident.Sanitize()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w: %w", w.table, pgingest.ErrStorage, err)
	}
	return n, nil
}
