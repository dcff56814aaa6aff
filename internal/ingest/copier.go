package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// CoerceRow converts row values to the Go types pgx encodes for schema.
// Values equal to nullSentinel become nil (SQL NULL). rowNum is used in
// error messages only.
func CoerceRow(row []string, schema TableSchema, nullSentinel string, rowNum int) ([]any, error) {
	out := make([]any, len(schema))
	for i, col := range schema {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		if value == nullSentinel {
			out[i] = nil
			continue
		}

		switch col.Type {
		case TypeInteger:
			n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %q is not an integer: %w", rowNum, col.Name, value, pgingest.ErrParse)
			}
			out[i] = n
		case TypeReal:
			f, err := parseReal(strings.TrimSpace(value), 32)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %q is not a real: %w", rowNum, col.Name, value, pgingest.ErrParse)
			}
			out[i] = float32(f)
		default:
			out[i] = value
		}
	}
	return out, nil
}

// BulkCopy copies rows into table inside its own transaction on db and
// returns the number of rows written. On any failure the transaction is
// rolled back and nothing is visible. A value that does not fit its column
// type fails as ErrStorage (wrapping ErrParse) before any statement runs.
//
// Passing a pgx.Tx as db nests the copy in a savepoint.
func BulkCopy(ctx context.Context, db DB, table string, schema TableSchema, rows [][]string, nullSentinel string) (int64, error) {
	ident, err := TableIdentifier(table)
	if err != nil {
		return 0, err
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		// header is line 1
		v, err := CoerceRow(NormalizeRow(row, len(schema)), schema, nullSentinel, i+2)
		if err != nil {
			return 0, fmt.Errorf("copy into %s: %w: %w", table, pgingest.ErrStorage, err)
		}
		values[i] = v
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin copy into %s: %w: %w", table, pgingest.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := tx.CopyFrom(ctx, ident, schema.Names(), pgx.CopyFromRows(values))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w: %w", table, pgingest.ErrStorage, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit copy into %s: %w: %w", table, pgingest.ErrStorage, err)
	}
	return n, nil
}
