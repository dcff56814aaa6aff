// Package scrape fetches the largest-banks page, extracts its marker table
// and converts the market capitalization column into further currencies.
//
// The pipeline is one GET, one parse and one in-memory conversion. Nothing
// is retried and nothing is persisted here; see internal/store for that.
package scrape
