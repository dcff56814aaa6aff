// Package store persists scrape snapshots into the bank market cap table.
//
// The table is created on first write with one NUMERIC(15,2) column per
// currency. Rows are sent in pgx batches of a configurable size, all inside
// a single transaction, so a failed write leaves the table untouched.
package store
