package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/ingest"
	"github.com/vvka-141/pgingest/internal/services"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a delimited file into a table",
	Long: `Load reads a delimited file whose first line is the header, infers a type
for every column, creates the table if it does not exist and copies every row
in a single transaction. A failed load leaves the table exactly as it was.

Column types:
  integer  -> BIGINT    every non-null value parses as a base-10 64-bit integer
  real     -> REAL      every non-null value parses as a number
  text     -> TEXT      anything else, and columns holding only nulls

Inference modes:
  consensus  (default) scan every row; a column widens integer -> real -> text
  first-row  type each column from the first data row only

Rows longer than the header are truncated and shorter rows padded with empty
values. The --null literal is loaded as SQL NULL.

Examples:
  # Create "rewards" from rewards.csv and load it
  pgingest load rewards.csv

  # Semicolon file into a schema-qualified table, "NA" as NULL
  pgingest load export.csv --table staging.rewards --delimiter ';' --null NA

  # Keep zip codes as text and replace the current contents
  pgingest load rewards.csv --column zip:text --truncate`,
	Args: RequireFilePath,
	RunE: runLoad,
}

type loadFlagValues struct {
	conn      connectionFlags
	table     string
	delimiter string
	null      string
	infer     string
	columns   []string
	truncate  bool
	force     bool
	timeout   time.Duration
}

var loadFlags loadFlagValues

func init() {
	rootCmd.AddCommand(loadCmd)
	addConnectionFlags(loadCmd, &loadFlags.conn)

	loadCmd.Flags().StringVarP(&loadFlags.table, "table", "t", "",
		"Target table, optionally schema-qualified (default: file name without extension)")
	loadCmd.Flags().StringVar(&loadFlags.delimiter, "delimiter", pgingest.DefaultDelimiter,
		"Field separator, a single character, or \"auto\" to detect one of , ; tab |")
	loadCmd.Flags().StringVar(&loadFlags.null, "null", pgingest.DefaultNullSentinel,
		"Literal loaded as SQL NULL (default: empty string)")
	loadCmd.Flags().StringVar(&loadFlags.infer, "infer", string(pgingest.InferConsensus),
		"Type inference: consensus|first-row")
	loadCmd.Flags().StringArrayVar(&loadFlags.columns, "column", nil,
		"Override an inferred type as name:type (can be specified multiple times)\n"+
			"Example: --column zip:text --column amount:real")
	loadCmd.Flags().BoolVar(&loadFlags.truncate, "truncate", false,
		"Empty the table before loading (asks for confirmation)")
	loadCmd.Flags().BoolVar(&loadFlags.force, "force", false,
		"Skip the interactive truncate prompt (countdown instead)\n"+
			"Use with --truncate for CI/CD pipelines")
	loadCmd.Flags().DurationVar(&loadFlags.timeout, "timeout", pgingest.DefaultTimeout,
		"Catastrophic failure protection timeout (default 3m)\n"+
			"Examples: 30s, 5m, 1h30m")
}

// defaultTableName derives a table name from a file path: "data/Rewards 2024.csv" -> "rewards_2024".
func defaultTableName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ToLower(strings.Join(strings.Fields(base), "_"))
}

func buildLoadConfig(cmd *cobra.Command, path string, projectCfg *config.ProjectConfig) (pgingest.LoadConfig, error) {
	if info, err := os.Stat(path); err != nil {
		return pgingest.LoadConfig{}, fmt.Errorf("%w: %v", pgingest.ErrInvalidConfig, err)
	} else if info.IsDir() {
		return pgingest.LoadConfig{}, fmt.Errorf("%s is a directory: %w", path, pgingest.ErrInvalidConfig)
	}

	var yamlCfg config.LoaderConfig
	if projectCfg != nil {
		yamlCfg = projectCfg.Loader
	}

	delimiter := loadFlags.delimiter
	if !cmd.Flags().Changed("delimiter") && yamlCfg.Delimiter != "" {
		delimiter = yamlCfg.Delimiter
	}
	if delimiter == `\t` || delimiter == "tab" {
		delimiter = "\t"
	}

	null := loadFlags.null
	if !cmd.Flags().Changed("null") && yamlCfg.Null != nil {
		null = *yamlCfg.Null
	}

	infer := loadFlags.infer
	if !cmd.Flags().Changed("infer") && yamlCfg.Infer != "" {
		infer = yamlCfg.Infer
	}

	// flag overrides come last so they win over pgingest.yaml
	columns, err := ingest.ParseColumnOverrides(append(yamlCfg.ColumnOverrides(), loadFlags.columns...))
	if err != nil {
		return pgingest.LoadConfig{}, err
	}

	table := loadFlags.table
	if table == "" {
		table = defaultTableName(path)
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, loadFlags.timeout)
	if err != nil {
		return pgingest.LoadConfig{}, err
	}

	cfg := pgingest.LoadConfig{
		SourcePath:   path,
		Table:        table,
		Delimiter:    delimiter,
		NullSentinel: null,
		Inference:    pgingest.InferenceMode(infer),
		Columns:      columns,
		Truncate:     loadFlags.truncate,
		Force:        loadFlags.force,
		Timeout:      timeout,
		Verbose:      getVerboseFlag(cmd),
	}
	if err := cfg.Validate(); err != nil {
		return pgingest.LoadConfig{}, err
	}
	return cfg, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	cfg, err := buildLoadConfig(cmd, args[0], projectCfg)
	if err != nil {
		return err
	}

	connConfig, err := resolveConnection(loadFlags.conn, projectCfg)
	if err != nil {
		return err
	}

	logger, closer, err := newCommandLogger(cmd, projectCfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	logConnectionVerbose(logger, connConfig)

	ctx, cancel := commandContext(cfg.Timeout)
	defer cancel()

	svc := services.NewLoadService(db.NewConnector, newApprover(cfg.Force, cfg.Verbose), logger)
	result, err := svc.Load(ctx, connConfig, cfg)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", result.Table, result.Rows)
	return nil
}
