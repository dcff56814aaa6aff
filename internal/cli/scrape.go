package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/scrape"
	"github.com/vvka-141/pgingest/internal/services"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape bank market caps and optionally save them",
	Long: `Scrape fetches the largest-banks page once, reads the first table carrying
the marker class, and converts each market cap (in billions of the base
currency) into every configured currency, rounded to two decimals.

The result is printed as a table or CSV. With --load it is also appended to
the bank table, which is created on first use; --truncate empties it first.
Nothing is written when the page has no matching table or no usable rows.

Default rates (1 USD): EUR 0.93, GBP 0.80, INR 83.40. Override them with
scraper.rates in pgingest.yaml.

Examples:
  # Print the converted table
  pgingest scrape

  # Save to the default table in chunks of 25 rows
  pgingest scrape --load --chunk-size 25

  # Replace the table contents without a prompt, CSV to a file
  pgingest scrape --load --truncate --force --output csv > banks.csv`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

type scrapeFlagValues struct {
	conn         connectionFlags
	url          string
	tableClass   string
	table        string
	chunkSize    int
	fetchTimeout time.Duration
	userAgent    string
	output       string
	load         bool
	truncate     bool
	force        bool
	timeout      time.Duration
}

var scrapeFlags scrapeFlagValues

const (
	outputTable = "table"
	outputCSV   = "csv"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addConnectionFlags(scrapeCmd, &scrapeFlags.conn)
	addScraperFlags(scrapeCmd, &scrapeFlags)

	scrapeCmd.Flags().StringVarP(&scrapeFlags.output, "output", "o", outputTable,
		"Output format: table|csv")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.load, "load", false,
		"Append the scraped rows to the bank table")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.truncate, "truncate", false,
		"Empty the bank table before saving (requires --load, asks for confirmation)")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.force, "force", false,
		"Skip the interactive truncate prompt (countdown instead)")
	scrapeCmd.Flags().DurationVar(&scrapeFlags.timeout, "timeout", pgingest.DefaultTimeout,
		"Catastrophic failure protection timeout (default 3m)")
}

// addScraperFlags registers the flags shared by scrape and ui.
func addScraperFlags(cmd *cobra.Command, f *scrapeFlagValues) {
	cmd.Flags().StringVar(&f.url, "url", pgingest.DefaultScrapeURL,
		"Page holding the banks table")
	cmd.Flags().StringVar(&f.tableClass, "table-class", pgingest.DefaultTableClass,
		"CSS class of the table to extract (the first match is used)")
	cmd.Flags().StringVarP(&f.table, "table", "t", pgingest.DefaultBankTable,
		"Table the rows are saved to, optionally schema-qualified")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", pgingest.DefaultChunkSize,
		"Rows sent per batch when saving")
	cmd.Flags().DurationVar(&f.fetchTimeout, "fetch-timeout", pgingest.DefaultFetchTimeout,
		"HTTP request timeout")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", scrape.DefaultUserAgent,
		"User-Agent header sent with the request")
}

// buildScrapeConfig merges flags over pgingest.yaml over defaults.
func buildScrapeConfig(cmd *cobra.Command, f *scrapeFlagValues, projectCfg *config.ProjectConfig) (pgingest.ScrapeConfig, error) {
	var yamlCfg config.ScraperConfig
	if projectCfg != nil {
		yamlCfg = projectCfg.Scraper
	}
	changed := cmd.Flags().Changed

	cfg := pgingest.ScrapeConfig{
		URL:          pick(changed("url"), f.url, yamlCfg.URL),
		TableClass:   pick(changed("table-class"), f.tableClass, yamlCfg.TableClass),
		Table:        pick(changed("table"), f.table, yamlCfg.Table),
		BaseCurrency: pgingest.DefaultBaseCurrency,
		Rates:        pgingest.DefaultRates(),
		ChunkSize:    f.chunkSize,
		FetchTimeout: f.fetchTimeout,
		UserAgent:    pick(changed("user-agent"), f.userAgent, yamlCfg.UserAgent),
		Load:         f.load,
		Truncate:     f.truncate,
		Force:        f.force,
		Verbose:      getVerboseFlag(cmd),
	}

	if yamlCfg.BaseCurrency != "" {
		cfg.BaseCurrency = yamlCfg.BaseCurrency
	}
	rates, err := yamlCfg.RateTable()
	if err != nil {
		return pgingest.ScrapeConfig{}, err
	}
	if rates != nil {
		cfg.Rates = rates
	}
	if !changed("chunk-size") && yamlCfg.ChunkSize != 0 {
		cfg.ChunkSize = yamlCfg.ChunkSize
	}
	if !changed("fetch-timeout") {
		d, err := yamlCfg.FetchTimeoutDuration()
		if err != nil {
			return pgingest.ScrapeConfig{}, err
		}
		if d > 0 {
			cfg.FetchTimeout = d
		}
	}

	if cmd.Flags().Lookup("timeout") != nil {
		timeout, err := resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
		if err != nil {
			return pgingest.ScrapeConfig{}, err
		}
		cfg.Timeout = timeout
	}

	if cfg.Truncate && !cfg.Load {
		return pgingest.ScrapeConfig{}, fmt.Errorf("--truncate requires --load: %w", pgingest.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return pgingest.ScrapeConfig{}, err
	}
	return cfg, nil
}

// pick returns the flag value when the flag was set or the yaml value is empty.
func pick(flagSet bool, flagValue, yamlValue string) string {
	if flagSet || yamlValue == "" {
		return flagValue
	}
	return yamlValue
}

func runScrape(cmd *cobra.Command, args []string) error {
	if scrapeFlags.output != outputTable && scrapeFlags.output != outputCSV {
		return fmt.Errorf("unknown output format %q (want table or csv): %w", scrapeFlags.output, pgingest.ErrInvalidConfig)
	}

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	cfg, err := buildScrapeConfig(cmd, &scrapeFlags, projectCfg)
	if err != nil {
		return err
	}

	logger, closer, err := newCommandLogger(cmd, projectCfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	var connConfig *pgingest.ConnectionConfig
	if cfg.Load {
		connConfig, err = resolveConnection(scrapeFlags.conn, projectCfg)
		if err != nil {
			return err
		}
		logConnectionVerbose(logger, connConfig)
	}

	ctx, cancel := commandContext(cfg.Timeout)
	defer cancel()

	svc := services.NewScrapeService(db.NewConnector, newApprover(cfg.Force, cfg.Verbose), logger, connConfig, cfg)
	result, err := svc.Run(ctx, func(percent int, stage string) {
		logger.Verbose("[%3d%%] %s", percent, stage)
	})
	if result != nil {
		if werr := writeSnapshot(cmd.OutOrStdout(), result.Snapshot, scrapeFlags.output); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}
	return nil
}

func writeSnapshot(w io.Writer, snap *scrape.Snapshot, format string) error {
	if format == outputCSV {
		return snap.WriteCSV(w)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(snap.Headers()...).
		Rows(snap.Records()...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
