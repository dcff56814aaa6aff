package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/scrape"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// clearChanged also merges the root persistent flags so --verbose resolves
// when a command is used without Execute.
func clearChanged(cmd *cobra.Command) {
	cmd.InheritedFlags()
	cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
}

func resetLoadFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		loadFlags = loadFlagValues{
			delimiter: pgingest.DefaultDelimiter,
			null:      pgingest.DefaultNullSentinel,
			infer:     string(pgingest.InferConsensus),
			timeout:   pgingest.DefaultTimeout,
		}
		clearChanged(loadCmd)
	}
	reset()
	t.Cleanup(reset)
}

func resetScrapeFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		scrapeFlags = scrapeFlagValues{
			url:          pgingest.DefaultScrapeURL,
			tableClass:   pgingest.DefaultTableClass,
			table:        pgingest.DefaultBankTable,
			chunkSize:    pgingest.DefaultChunkSize,
			fetchTimeout: pgingest.DefaultFetchTimeout,
			userAgent:    scrape.DefaultUserAgent,
			output:       outputTable,
			timeout:      pgingest.DefaultTimeout,
		}
		clearChanged(scrapeCmd)
	}
	reset()
	t.Cleanup(reset)
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultTableName(t *testing.T) {
	tests := map[string]string{
		"rewards.csv":             "rewards",
		"data/Rewards 2024.csv":   "rewards_2024",
		"/tmp/export.tsv":         "export",
		"no_extension":            "no_extension",
		"archive.2024.backup.csv": "archive.2024.backup",
	}
	for in, want := range tests {
		assert.Equal(t, want, defaultTableName(in), in)
	}
}

func TestBuildLoadConfig_Defaults(t *testing.T) {
	resetLoadFlags(t)
	path := tempFile(t, "rewards.csv", "id\n1\n")

	cfg, err := buildLoadConfig(loadCmd, path, nil)
	require.NoError(t, err)

	assert.Equal(t, "rewards", cfg.Table)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, "", cfg.NullSentinel)
	assert.Equal(t, pgingest.InferConsensus, cfg.Inference)
	assert.Empty(t, cfg.Columns)
	assert.Equal(t, pgingest.DefaultTimeout, cfg.Timeout)
}

func TestBuildLoadConfig_YamlThenFlags(t *testing.T) {
	resetLoadFlags(t)
	path := tempFile(t, "rewards.csv", "id\n1\n")
	na := "NA"
	projectCfg := &config.ProjectConfig{
		Timeout: "45s",
		Loader: config.LoaderConfig{
			Delimiter: ";",
			Null:      &na,
			Infer:     "first-row",
			Columns:   map[string]string{"zip": "text", "amount": "real"},
		},
	}

	cfg, err := buildLoadConfig(loadCmd, path, projectCfg)
	require.NoError(t, err)
	assert.Equal(t, ";", cfg.Delimiter)
	assert.Equal(t, "NA", cfg.NullSentinel)
	assert.Equal(t, pgingest.InferFirstRow, cfg.Inference)
	assert.Equal(t, map[string]string{"zip": "text", "amount": "real"}, cfg.Columns)
	assert.Equal(t, 45*time.Second, cfg.Timeout)

	require.NoError(t, loadCmd.Flags().Set("delimiter", "tab"))
	require.NoError(t, loadCmd.Flags().Set("null", ""))
	require.NoError(t, loadCmd.Flags().Set("column", "zip:integer"))
	require.NoError(t, loadCmd.Flags().Set("timeout", "10s"))

	cfg, err = buildLoadConfig(loadCmd, path, projectCfg)
	require.NoError(t, err)
	assert.Equal(t, "\t", cfg.Delimiter)
	assert.Equal(t, "", cfg.NullSentinel, "explicit empty --null wins over yaml")
	assert.Equal(t, map[string]string{"zip": "integer", "amount": "real"}, cfg.Columns)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestBuildLoadConfig_Invalid(t *testing.T) {
	path := tempFile(t, "rewards.csv", "id\n1\n")

	tests := []struct {
		name  string
		setup func()
		path  string
	}{
		{"missing file", func() {}, filepath.Join(t.TempDir(), "missing.csv")},
		{"directory", func() {}, t.TempDir()},
		{"force without truncate", func() { loadFlags.force = true }, path},
		{"two character delimiter", func() { loadFlags.delimiter = ";;" }, path},
		{"unknown inference", func() { loadFlags.infer = "majority" }, path},
		{"malformed column override", func() { loadFlags.columns = []string{"zip"} }, path},
		{"bad table name", func() { loadFlags.table = "a.b.c" }, path},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLoadFlags(t)
			tt.setup()
			_, err := buildLoadConfig(loadCmd, tt.path, nil)
			assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
		})
	}
}

func TestBuildScrapeConfig_Defaults(t *testing.T) {
	resetScrapeFlags(t)

	cfg, err := buildScrapeConfig(scrapeCmd, &scrapeFlags, nil)
	require.NoError(t, err)
	assert.Equal(t, pgingest.DefaultScrapeURL, cfg.URL)
	assert.Equal(t, pgingest.DefaultTableClass, cfg.TableClass)
	assert.Equal(t, pgingest.DefaultBankTable, cfg.Table)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	require.Len(t, cfg.Rates, 3)
	assert.Equal(t, "INR", cfg.Rates[2].Code)
	assert.Equal(t, pgingest.DefaultChunkSize, cfg.ChunkSize)
	assert.False(t, cfg.Load)
}

func TestBuildScrapeConfig_YamlThenFlags(t *testing.T) {
	resetScrapeFlags(t)
	projectCfg := &config.ProjectConfig{
		Scraper: config.ScraperConfig{
			URL:          "https://mirror.example/banks",
			Table:        "finance.banks",
			BaseCurrency: "USD",
			Rates:        []config.RateConfig{{Code: "JPY", Factor: "151.2"}},
			ChunkSize:    50,
			FetchTimeout: "5s",
		},
	}

	cfg, err := buildScrapeConfig(scrapeCmd, &scrapeFlags, projectCfg)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example/banks", cfg.URL)
	assert.Equal(t, "finance.banks", cfg.Table)
	assert.Equal(t, pgingest.DefaultTableClass, cfg.TableClass)
	require.Len(t, cfg.Rates, 1)
	assert.True(t, cfg.Rates[0].Factor.Equal(decimal.RequireFromString("151.2")))
	assert.Equal(t, 50, cfg.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)

	require.NoError(t, scrapeCmd.Flags().Set("url", "http://localhost:8080/"))
	require.NoError(t, scrapeCmd.Flags().Set("chunk-size", "3"))

	cfg, err = buildScrapeConfig(scrapeCmd, &scrapeFlags, projectCfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", cfg.URL)
	assert.Equal(t, 3, cfg.ChunkSize)
}

func TestBuildScrapeConfig_Invalid(t *testing.T) {
	t.Run("truncate without load", func(t *testing.T) {
		resetScrapeFlags(t)
		scrapeFlags.truncate = true
		_, err := buildScrapeConfig(scrapeCmd, &scrapeFlags, nil)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})

	t.Run("bad rate factor", func(t *testing.T) {
		resetScrapeFlags(t)
		projectCfg := &config.ProjectConfig{Scraper: config.ScraperConfig{Rates: []config.RateConfig{{Code: "EUR", Factor: "abc"}}}}
		_, err := buildScrapeConfig(scrapeCmd, &scrapeFlags, projectCfg)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})

	t.Run("zero chunk size", func(t *testing.T) {
		resetScrapeFlags(t)
		scrapeFlags.chunkSize = 0
		_, err := buildScrapeConfig(scrapeCmd, &scrapeFlags, nil)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})
}

func TestResolveEffectiveTimeout(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		cmd.Flags().Duration("timeout", time.Minute, "")
		return cmd
	}

	d, err := resolveEffectiveTimeout(newCmd(), nil, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = resolveEffectiveTimeout(newCmd(), &config.ProjectConfig{Timeout: "90s"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("timeout", "2m"))
	d, err = resolveEffectiveTimeout(cmd, &config.ProjectConfig{Timeout: "90s"}, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	_, err = resolveEffectiveTimeout(newCmd(), &config.ProjectConfig{Timeout: "soon"}, time.Minute)
	assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
}

func TestNewCommandLogger_LogFile(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		cmd.Flags().Bool("verbose", false, "")
		cmd.Flags().String("log-file", "", "")
		cmd.Flags().Bool("log-json", false, "")
		return cmd
	}

	t.Run("flag", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pgingest.log")
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("log-file", path))

		var console bytes.Buffer
		logger, closer, err := newCommandLogger(cmd, nil, &console)
		require.NoError(t, err)
		logger.Verbose("hidden on console")
		logger.Info("scrape done")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "scrape done")
		assert.Contains(t, string(data), "hidden on console")
		assert.NotContains(t, console.String(), "hidden on console")
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "from-yaml.log")
		_, closer, err := newCommandLogger(newCmd(), &config.ProjectConfig{LogFile: path}, &bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, closer.Close())
		assert.FileExists(t, path)
	})

	t.Run("none", func(t *testing.T) {
		_, closer, err := newCommandLogger(newCmd(), nil, &bytes.Buffer{})
		require.NoError(t, err)
		assert.NoError(t, closer.Close())
	})

	t.Run("unwritable", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("log-file", filepath.Join(t.TempDir(), "missing", "dir", "x.log")))
		_, _, err := newCommandLogger(cmd, nil, &bytes.Buffer{})
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})
}

func TestResolveConnection(t *testing.T) {
	for _, v := range []string{connectionStringEnv, "DATABASE_URL", "PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGSSLMODE", "PGPASSWORD"} {
		t.Setenv(v, "")
	}

	t.Run("connection string env", func(t *testing.T) {
		t.Setenv(connectionStringEnv, "postgresql://loader@db.internal:6543/warehouse")
		cfg, err := resolveConnection(connectionFlags{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.Host)
		assert.Equal(t, 6543, cfg.Port)
		assert.Equal(t, "warehouse", cfg.Database)
	})

	t.Run("granular flags ignore connection string env", func(t *testing.T) {
		t.Setenv(connectionStringEnv, "postgresql://loader@db.internal:6543/warehouse")
		cfg, err := resolveConnection(connectionFlags{host: "localhost", database: "scratch"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, "scratch", cfg.Database)
	})

	t.Run("conflict", func(t *testing.T) {
		_, err := resolveConnection(connectionFlags{connection: "postgresql://a/b", host: "c"}, nil)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})

	t.Run("two cloud methods", func(t *testing.T) {
		_, err := resolveConnection(connectionFlags{aws: true, google: true}, nil)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})
}

func TestWriteSnapshot(t *testing.T) {
	snap := &scrape.Snapshot{
		BaseCurrency: "USD",
		Currencies:   []string{"EUR"},
		Rows: scrape.ConvertRows([]scrape.BankRow{
			{Rank: "1", Bank: "JPMorgan Chase", MarketCap: decimal.NewFromInt(100)},
		}, pgingest.DefaultRates()[:1]),
	}

	var csvOut bytes.Buffer
	require.NoError(t, writeSnapshot(&csvOut, snap, outputCSV))
	assert.Equal(t, "Rank,Bank,Market Cap (USD Billion),Market Cap (EUR Billion)\n1,JPMorgan Chase,100.00,93.00\n", csvOut.String())

	var tableOut bytes.Buffer
	require.NoError(t, writeSnapshot(&tableOut, snap, outputTable))
	out := tableOut.String()
	assert.Contains(t, out, "JPMorgan Chase")
	assert.Contains(t, out, "93.00")
	assert.Equal(t, 1, strings.Count(out, "Market Cap (EUR Billion)"))
}
