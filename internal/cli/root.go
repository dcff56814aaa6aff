package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pgingest",
	Short: "Load delimited files and scraped tables into PostgreSQL",
	Long: `pgingest moves tabular data into PostgreSQL.

  load      Infer column types from a delimited file, create the table if it
            does not exist, and bulk-copy every row in one transaction.
  scrape    Fetch the largest-banks page, convert market caps into further
            currencies, print them, and optionally append them to a table.
  ui        The scraper as an interactive terminal screen.
  truncate  Empty a table after confirmation.

Configuration precedence: flags > environment (.env, PG*, DATABASE_URL) >
pgingest.yaml > built-in defaults.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied truncate approval
  13 - Storage error (transaction rolled back)
  14 - HTTP fetch failed
  15 - Nothing to load (empty file, no marker table, no rows)
  16 - Unusable header, column override or value`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h is the host flag, so help gets a long name only
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgingest")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", "",
		"Path to pgingest.yaml or the directory holding it (default: ./pgingest.yaml if present)")
	rootCmd.PersistentFlags().String("log-file", "",
		"Also append every log line, verbose included, to this file")
	rootCmd.PersistentFlags().Bool("log-json", false,
		"Write the --log-file as JSON lines instead of text")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}
