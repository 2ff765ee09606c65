package collector

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

// Batch is one upload worth of raw entries. Each batch is imported
// atomically.
type Batch struct {
	Name    string
	Records []ingest.RawRecord
}

// Collector delivers raw cluster records from a source
type Collector interface {
	Collect(ctx context.Context) ([]Batch, error)
	Close() error
}

// New creates the collector for the file and clickhouse sources
func New(cfg *config.Config) (Collector, error) {
	switch cfg.Source {
	case "file", "":
		return NewFileSource(cfg.Inputs, os.Stdin, cfg.Concurrency), nil
	case "clickhouse":
		client, err := NewClickHouseClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create ClickHouse client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("invalid source %q: must be file or clickhouse", cfg.Source)
	}
}
