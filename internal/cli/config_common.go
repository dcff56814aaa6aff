package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/ui"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// loadProjectConfig loads .env into the environment and reads pgingest.yaml.
// Returns nil config if the file does not exist (not an error) unless the
// path was given explicitly.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	path := getStringFlag(cmd, "config")
	explicit := path != ""
	if !explicit {
		path = "."
	}

	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectCfg, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring pgingest.yaml if flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		return projectCfg.TimeoutDuration()
	}
	if flagTimeout < 0 {
		return 0, fmt.Errorf("timeout cannot be negative: %w", pgingest.ErrInvalidConfig)
	}
	return flagTimeout, nil
}

// newCommandLogger builds the stderr logger and attaches --log-file (or
// log_file from pgingest.yaml). The returned closer is never nil.
func newCommandLogger(cmd *cobra.Command, projectCfg *config.ProjectConfig, console io.Writer) (*logging.ConsoleLogger, io.Closer, error) {
	verbose := getVerboseFlag(cmd)
	logger := logging.NewWriterLogger(console, verbose)

	path := getStringFlag(cmd, "log-file")
	if path == "" && projectCfg != nil {
		path = projectCfg.LogFile
	}
	if path == "" {
		return logger, io.NopCloser(nil), nil
	}

	asJSON, _ := cmd.Flags().GetBool("log-json")
	closer, err := logger.AttachFile(path, asJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", pgingest.ErrInvalidConfig, err)
	}
	return logger, closer, nil
}

// commandContext bounds a run by timeout (zero means no bound) and cancels
// it on SIGINT or SIGTERM.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// newApprover picks the truncate confirmation: a countdown with --force,
// otherwise typing the table name.
func newApprover(force, verbose bool) pgingest.Approver {
	if force {
		return ui.NewForcedApprover(verbose)
	}
	return ui.NewInteractiveApprover(verbose)
}
