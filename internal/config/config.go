// Package config reads the optional pgingest.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "pgingest.yaml"

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// LoaderConfig holds defaults for the load command.
// Null is a pointer so an explicit empty sentinel can be told apart from "unset".
type LoaderConfig struct {
	Delimiter string            `yaml:"delimiter"`
	Null      *string           `yaml:"null"`
	Infer     string            `yaml:"infer"`
	Columns   map[string]string `yaml:"columns"`
}

// RateConfig is one conversion factor from the base currency.
// Factor is kept as text so it reaches decimal without a float round trip.
type RateConfig struct {
	Code   string `yaml:"code"`
	Factor string `yaml:"factor"`
}

type ScraperConfig struct {
	URL          string       `yaml:"url"`
	TableClass   string       `yaml:"table_class"`
	Table        string       `yaml:"table"`
	BaseCurrency string       `yaml:"base_currency"`
	Rates        []RateConfig `yaml:"rates"`
	ChunkSize    int          `yaml:"chunk_size"`
	FetchTimeout string       `yaml:"fetch_timeout"`
	UserAgent    string       `yaml:"user_agent"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Loader     LoaderConfig     `yaml:"loader"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	LogFile    string           `yaml:"log_file"`
	Timeout    string           `yaml:"timeout"`
}

// Load reads the config file at path. A directory path is joined with
// ConfigFileName.
func Load(path string) (*ProjectConfig, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pgingest.ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// TimeoutDuration parses Timeout. Zero means unset.
func (p *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", p.Timeout)
}

// FetchTimeoutDuration parses FetchTimeout. Zero means unset.
func (s *ScraperConfig) FetchTimeoutDuration() (time.Duration, error) {
	return parseDuration("scraper.fetch_timeout", s.FetchTimeout)
}

// RateTable converts the configured rates. A nil result means the
// built-in table applies.
func (s *ScraperConfig) RateTable() ([]pgingest.Rate, error) {
	if len(s.Rates) == 0 {
		return nil, nil
	}
	rates := make([]pgingest.Rate, 0, len(s.Rates))
	for _, r := range s.Rates {
		factor, err := decimal.NewFromString(r.Factor)
		if err != nil {
			return nil, fmt.Errorf("%w: rate %q: invalid factor %q", pgingest.ErrInvalidConfig, r.Code, r.Factor)
		}
		rates = append(rates, pgingest.Rate{Code: r.Code, Factor: factor})
	}
	return rates, nil
}

// ColumnOverrides returns the loader column overrides as "name:type" pairs
// in name order, the same shape the --column flag takes.
func (l *LoaderConfig) ColumnOverrides() []string {
	names := make([]string, 0, len(l.Columns))
	for name := range l.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, name+":"+l.Columns[name])
	}
	return out
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", pgingest.ErrInvalidConfig, field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", pgingest.ErrInvalidConfig, field)
	}
	return d, nil
}
