package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// DB is the subset of *pgxpool.Pool and pgx.Tx the loader needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TableIdentifier splits "schema.table" into a pgx.Identifier.
func TableIdentifier(table string) (pgx.Identifier, error) {
	if err := pgingest.ValidateTableName(table); err != nil {
		return nil, err
	}
	return pgx.Identifier(strings.Split(table, ".")), nil
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for schema with every
// identifier quoted.
func CreateTableSQL(table string, schema TableSchema) (string, error) {
	ident, err := TableIdentifier(table)
	if err != nil {
		return "", err
	}
	if len(schema) == 0 {
		return "", fmt.Errorf("table %s has no columns: %w", table, pgingest.ErrInvalidSchema)
	}

	cols := make([]string, len(schema))
	for i, c := range schema {
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type.SQLType()
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(cols, ", ")), nil
}

// TruncateSQL renders TRUNCATE TABLE ... RESTART IDENTITY.
func TruncateSQL(table string) (string, error) {
	ident, err := TableIdentifier(table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", ident.Sanitize()), nil
}

// CreateTable creates table if it does not exist. An existing table is left
// as is, whatever its columns.
func CreateTable(ctx context.Context, db DB, table string, schema TableSchema) error {
	sql, err := CreateTableSQL(table, schema)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w: %w", table, pgingest.ErrStorage, err)
	}
	return nil
}

// Truncate empties table and resets its sequences.
func Truncate(ctx context.Context, db DB, table string) error {
	sql, err := TruncateSQL(table)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("truncate %s: %w: %w", table, pgingest.ErrStorage, err)
	}
	return nil
}
