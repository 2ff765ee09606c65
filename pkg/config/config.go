package config

import "time"

// Config holds all runtime configuration
type Config struct {
	// Source settings
	Source         string // "file", "clickhouse" or "configmap"
	Inputs         []string
	PartialImport  bool
	LookbackPeriod time.Duration

	// ClickHouse settings
	ClickHouseDSN   string
	ClickHouseTable string
	QueryTimeout    time.Duration
	BatchSize       int
	MaxRows         int
	RateLimit       int // pages per second, 0 disables

	// Kubernetes settings
	KubeConfig    string
	Namespace     string
	ConfigMapName string
	ConfigMapKey  string

	// Concurrency settings
	Concurrency int

	// Filter settings
	ClusterName     string
	State           string
	SearchTerm      string
	RangeType       string // "", "daily", "weekly" or "custom"
	StartDate       string
	EndDate         string
	ExcludeClusters []string

	// Output settings
	OutputDir      string
	Format         string
	IncludeRecords bool

	// Analysis settings
	ScoringAlgorithm string
	ForecastHorizon  int
	TopAnomalies     int

	// Baseline settings
	BaselinePath    string
	UpdateBaseline  bool
	FailOnAnomalies bool

	// Server settings
	ServerPort int

	// Operational flags
	DryRun bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source:           "file",
		LookbackPeriod:   30 * 24 * time.Hour, // 30 days
		ClickHouseTable:  "cluster_records",
		QueryTimeout:     5 * time.Minute,
		BatchSize:        10000,
		MaxRows:          1000000,
		RateLimit:        10,
		Namespace:        "default",
		ConfigMapName:    "cluster-records",
		ConfigMapKey:     "records.json",
		Concurrency:      4,
		ExcludeClusters:  []string{},
		OutputDir:        "./report",
		Format:           "json",
		ScoringAlgorithm: "penalty",
		ForecastHorizon:  7,
		TopAnomalies:     3,
		ServerPort:       8080,
		DryRun:           false,
	}
}
