package scrape

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Progress receives a completion percentage and a short stage label.
type Progress func(percent int, stage string)

// DocumentFetcher retrieves and parses a page. *Fetcher implements it.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Pipeline runs fetch, extract and convert for one ScrapeConfig.
type Pipeline struct {
	cfg     pgingest.ScrapeConfig
	fetcher DocumentFetcher
	logger  pgingest.Logger
	now     func() time.Time
}

// NewPipeline creates a Pipeline. A nil fetcher uses NewFetcher with the
// config's timeout and user agent.
func NewPipeline(cfg pgingest.ScrapeConfig, fetcher DocumentFetcher, logger pgingest.Logger) *Pipeline {
	if fetcher == nil {
		fetcher = NewFetcher(cfg.FetchTimeout, cfg.UserAgent)
	}
	return &Pipeline{cfg: cfg, fetcher: fetcher, logger: logger, now: time.Now}
}

// Run scrapes once and returns the snapshot. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, progress Progress) (*Snapshot, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	runID := uuid.New()
	p.logger.Info("Starting scrape %s of %s", runID, p.cfg.URL)

	progress(10, "Fetching webpage...")
	doc, err := p.fetcher.Fetch(ctx, p.cfg.URL)
	if err != nil {
		p.logger.Error("Scrape %s failed: %v", runID, err)
		return nil, err
	}

	progress(30, "Parsing HTML...")
	p.logger.Verbose("Fetched %s", p.cfg.URL)

	progress(50, "Extracting table data...")
	extraction, err := ExtractBanks(doc, p.cfg.TableClass)
	if err != nil {
		p.logger.Error("Scrape %s failed: %v", runID, err)
		return nil, err
	}
	if extraction.Skipped > 0 {
		p.logger.Verbose("Skipped %d rows with unparsable market cap", extraction.Skipped)
	}

	progress(70, "Processing data...")
	currencies := make([]string, len(p.cfg.Rates))
	for i, r := range p.cfg.Rates {
		currencies[i] = r.Code
	}
	snap := &Snapshot{
		RunID:        runID,
		URL:          p.cfg.URL,
		ScrapedAt:    p.now(),
		BaseCurrency: p.cfg.BaseCurrency,
		Currencies:   currencies,
		Rows:         ConvertRows(extraction.Rows, p.cfg.Rates),
		Skipped:      extraction.Skipped,
	}

	progress(100, "Scraping complete!")
	p.logger.Info("Scrape %s completed successfully. Found %d banks.", runID, len(snap.Rows))
	return snap, nil
}
