package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/services"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

var truncateCmd = &cobra.Command{
	Use:   "truncate <table>",
	Short: "Empty a table",
	Long: `Truncate deletes every row of a table and restarts its identity sequences.

You are asked to type the table name to confirm. --force replaces the prompt
with a short countdown for use in scripts.

Examples:
  pgingest truncate rewards
  pgingest truncate staging.rewards --force`,
	Args: RequireTableName,
	RunE: runTruncate,
}

type truncateFlagValues struct {
	conn    connectionFlags
	force   bool
	timeout time.Duration
}

var truncateFlags truncateFlagValues

func init() {
	rootCmd.AddCommand(truncateCmd)
	addConnectionFlags(truncateCmd, &truncateFlags.conn)

	truncateCmd.Flags().BoolVar(&truncateFlags.force, "force", false,
		"Skip the interactive prompt (countdown instead)")
	truncateCmd.Flags().DurationVar(&truncateFlags.timeout, "timeout", pgingest.DefaultTimeout,
		"Catastrophic failure protection timeout (default 3m)")
}

func runTruncate(cmd *cobra.Command, args []string) error {
	table := args[0]
	if err := pgingest.ValidateTableName(table); err != nil {
		return err
	}

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, truncateFlags.timeout)
	if err != nil {
		return err
	}
	connConfig, err := resolveConnection(truncateFlags.conn, projectCfg)
	if err != nil {
		return err
	}

	logger, closer, err := newCommandLogger(cmd, projectCfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	logConnectionVerbose(logger, connConfig)

	ctx, cancel := commandContext(timeout)
	defer cancel()

	svc := services.NewLoadService(db.NewConnector, newApprover(truncateFlags.force, getVerboseFlag(cmd)), logger)
	if err := svc.Truncate(ctx, connConfig, table); err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	return nil
}
