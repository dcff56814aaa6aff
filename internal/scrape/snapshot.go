package scrape

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the immutable result of one scrape run.
type Snapshot struct {
	RunID        uuid.UUID
	URL          string
	ScrapedAt    time.Time
	BaseCurrency string

	// Currencies lists the converted currency codes in column order.
	Currencies []string

	Rows    []CurrencyRow
	Skipped int
}

// Headers returns the display column titles.
func (s *Snapshot) Headers() []string {
	headers := []string{"Rank", "Bank", fmt.Sprintf("Market Cap (%s Billion)", s.BaseCurrency)}
	for _, code := range s.Currencies {
		headers = append(headers, fmt.Sprintf("Market Cap (%s Billion)", code))
	}
	return headers
}

// Records renders every row as display strings with two decimal places.
func (s *Snapshot) Records() [][]string {
	records := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		rec := []string{row.Rank, row.Bank, row.MarketCap.StringFixed(convertedPlaces)}
		for _, a := range row.Converted {
			rec = append(rec, a.Value.StringFixed(convertedPlaces))
		}
		records[i] = rec
	}
	return records
}

// WriteCSV writes Headers and Records to w.
func (s *Snapshot) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Headers()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range s.Records() {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
