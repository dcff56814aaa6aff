package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/services"
	"github.com/vvka-141/pgingest/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Interactive bank scraper",
	Long: `UI opens the scraper as a full-screen terminal application.

Keys:
  s  scrape the page and show the converted table
  l  append the shown rows to the bank table (after a scrape)
  c  clear the bank table (asks y/n first)
  q  quit

A scrape or save in progress cannot be interrupted. Log output goes to
--log-file (or log_file in pgingest.yaml) so it does not disturb the screen.`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

var uiFlags scrapeFlagValues

func init() {
	rootCmd.AddCommand(uiCmd)
	addConnectionFlags(uiCmd, &uiFlags.conn)
	addScraperFlags(uiCmd, &uiFlags)
}

func runUI(cmd *cobra.Command, args []string) error {
	if !tui.IsInteractive() {
		return fmt.Errorf("%w: use 'pgingest scrape' in scripts and pipelines", tui.ErrNotInteractive)
	}

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err := buildScrapeConfig(cmd, &uiFlags, projectCfg)
	if err != nil {
		return err
	}
	connConfig, err := resolveConnection(uiFlags.conn, projectCfg)
	if err != nil {
		return err
	}

	// the screen owns the terminal, so only the log file receives output
	logger, closer, err := newCommandLogger(cmd, projectCfg, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()
	logConnectionVerbose(logger, connConfig)

	ctx, cancel := commandContext(0)
	defer cancel()

	// clearing is confirmed on screen
	approver := newApprover(false, cfg.Verbose)
	svc := services.NewScrapeService(db.NewConnector, approver, logger, connConfig, cfg)
	if err := tui.RunScraper(ctx, svc, cfg.Table); err != nil {
		return err
	}
	return nil
}

var _ tui.Backend = (*services.ScrapeService)(nil)
