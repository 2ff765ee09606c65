package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config file names, searched in the working directory and then in $HOME
const (
	DefaultConfigFileYAML = ".clusterpulse.yaml"
	DefaultConfigFileYML  = ".clusterpulse.yml"
)

// FileConfig is the on-disk form of the analyze settings. Every field is
// optional; pointers distinguish an explicit zero from an absent key.
type FileConfig struct {
	Source string   `yaml:"source"`
	Inputs []string `yaml:"inputs"`

	ClickHouseURL   string `yaml:"clickhouse_url"`
	ClickHouseDSN   string `yaml:"clickhouse_dsn"`
	ClickHouseTable string `yaml:"clickhouse_table"`
	Timeout         string `yaml:"timeout"`
	QueryTimeout    string `yaml:"query_timeout"`
	Lookback        string `yaml:"lookback"`
	BatchSize       *int   `yaml:"batch_size"`
	RateLimit       *int   `yaml:"rate_limit"`

	KubeConfig   string `yaml:"kubeconfig"`
	Namespace    string `yaml:"namespace"`
	ConfigMap    string `yaml:"configmap"`
	ConfigMapKey string `yaml:"configmap_key"`

	ExcludeClusters []string `yaml:"exclude_clusters"`
	Format          string   `yaml:"format"`
	Output          string   `yaml:"output"`
	Baseline        string   `yaml:"baseline"`
	ForecastHorizon *int     `yaml:"forecast_horizon"`
	TopAnomalies    *int     `yaml:"top_anomalies"`
}

// ClickHouseEndpoint prefers clickhouse_dsn over the older clickhouse_url
func (fc *FileConfig) ClickHouseEndpoint() string {
	if fc == nil {
		return ""
	}
	return firstNonEmpty(fc.ClickHouseDSN, fc.ClickHouseURL)
}

// QueryTimeoutValue prefers timeout over query_timeout
func (fc *FileConfig) QueryTimeoutValue() string {
	if fc == nil {
		return ""
	}
	return firstNonEmpty(fc.Timeout, fc.QueryTimeout)
}

// Normalize trims every string and drops blank list items
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	for _, s := range []*string{
		&fc.Source, &fc.ClickHouseURL, &fc.ClickHouseDSN, &fc.ClickHouseTable,
		&fc.Timeout, &fc.QueryTimeout, &fc.Lookback, &fc.KubeConfig,
		&fc.Namespace, &fc.ConfigMap, &fc.ConfigMapKey, &fc.Format,
		&fc.Output, &fc.Baseline,
	} {
		*s = strings.TrimSpace(*s)
	}
	fc.Inputs = compact(fc.Inputs)
	fc.ExcludeClusters = compact(fc.ExcludeClusters)
}

// ApplyTo copies file values into cfg for every setting whose flag was not
// given on the command line. changed may be nil.
func (fc *FileConfig) ApplyTo(cfg *Config, changed func(flag string) bool) error {
	if fc == nil || cfg == nil {
		return nil
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	str := func(flag, value string, dst *string) {
		if value != "" && !changed(flag) {
			*dst = value
		}
	}
	num := func(flag string, value *int, dst *int) {
		if value != nil && !changed(flag) {
			*dst = *value
		}
	}
	list := func(flag string, values []string, dst *[]string) {
		if len(values) > 0 && !changed(flag) {
			*dst = slices.Clone(values)
		}
	}
	dur := func(flag, key, value string, dst *time.Duration) error {
		if value == "" || changed(flag) {
			return nil
		}
		d, err := ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("source", fc.Source, &cfg.Source)
	list("input", fc.Inputs, &cfg.Inputs)
	str("clickhouse-dsn", fc.ClickHouseEndpoint(), &cfg.ClickHouseDSN)
	str("clickhouse-table", fc.ClickHouseTable, &cfg.ClickHouseTable)
	num("batch-size", fc.BatchSize, &cfg.BatchSize)
	num("rate-limit", fc.RateLimit, &cfg.RateLimit)
	str("kubeconfig", fc.KubeConfig, &cfg.KubeConfig)
	str("namespace", fc.Namespace, &cfg.Namespace)
	str("configmap", fc.ConfigMap, &cfg.ConfigMapName)
	str("configmap-key", fc.ConfigMapKey, &cfg.ConfigMapKey)
	list("exclude-cluster", fc.ExcludeClusters, &cfg.ExcludeClusters)
	str("format", fc.Format, &cfg.Format)
	str("output", fc.Output, &cfg.OutputDir)
	str("baseline", fc.Baseline, &cfg.BaselinePath)
	num("horizon", fc.ForecastHorizon, &cfg.ForecastHorizon)
	num("top-anomalies", fc.TopAnomalies, &cfg.TopAnomalies)

	if err := dur("query-timeout", "timeout", fc.QueryTimeoutValue(), &cfg.QueryTimeout); err != nil {
		return err
	}
	if err := dur("lookback", "lookback", fc.Lookback, &cfg.LookbackPeriod); err != nil {
		return err
	}

	cfg.Normalize()
	return nil
}

// AutoLoadFile loads the first config file found in the working directory
// or the home directory. It returns a nil config when there is none.
func AutoLoadFile() (*FileConfig, string, error) {
	return LoadFirstExistingFile(candidatePaths())
}

func candidatePaths() []string {
	names := []string{DefaultConfigFileYAML, DefaultConfigFileYML}
	paths := slices.Clone(names)
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		for _, name := range names {
			paths = append(paths, filepath.Join(home, name))
		}
	}
	return paths
}

// LoadFirstExistingFile loads the first path that exists. Blank paths are
// skipped and a directory is an error.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		info, err := os.Stat(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			return nil, "", fmt.Errorf("failed to access config file %q: %w", p, err)
		case info.IsDir():
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", p)
		}

		fc, err := LoadFile(p)
		if err != nil {
			return nil, "", err
		}
		return fc, p, nil
	}
	return nil, "", nil
}

// LoadFile parses a YAML config file
func LoadFile(path string) (*FileConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	fc.Normalize()
	return &fc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
