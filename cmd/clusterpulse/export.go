package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ppiankov/clusterpulse/internal/aggregate"
	"github.com/ppiankov/clusterpulse/internal/collector"
	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/internal/reporter"
	"github.com/spf13/cobra"
)

const (
	exportDaily   = "daily"
	exportRecords = "records"
)

type exportOptions struct {
	inputs  []string
	kind    string
	out     string
	partial bool
}

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export daily buckets or records as CSV",
		Long: `Import upload documents and write either the daily buckets or the
normalized records as CSV, without running the full analysis.`,
		Example: `  clusterpulse export --input records.json --kind daily
  clusterpulse export --input records.json --kind records --out records.csv`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.inputs) == 0 {
				return fmt.Errorf("--input is required")
			}
			switch opts.kind {
			case exportDaily, exportRecords:
				return nil
			default:
				return fmt.Errorf("invalid --kind value %q: must be daily or records", opts.kind)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVar(&opts.inputs, "input", nil, "Upload document to import, '-' for stdin (repeatable)")
	cmd.Flags().StringVar(&opts.kind, "kind", exportDaily, "What to export (daily, records)")
	cmd.Flags().StringVar(&opts.out, "out", "-", "Output file, '-' for stdout")
	cmd.Flags().BoolVar(&opts.partial, "partial", false, "Keep valid entries of a batch and report the invalid ones")

	return cmd
}

func runExport(ctx context.Context, opts exportOptions, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	src := collector.NewFileSource(opts.inputs, stdin, len(opts.inputs))
	batches, err := src.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect cluster records: %w", err)
	}

	sink := diag.SlogSink{}
	store := ingest.NewStore()
	if _, err := importBatches(store, batches, opts.partial, sink); err != nil {
		return err
	}

	var content string
	switch opts.kind {
	case exportRecords:
		content = reporter.RecordsCSV(store.Records())
	default:
		content = reporter.DailyCSV(aggregate.ByDay(store.Records(), sink))
	}

	if opts.out == "" || opts.out == "-" {
		if _, err := io.WriteString(stdout, content); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(opts.out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.out, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}
	slog.Debug("export written", slog.String("path", opts.out), slog.String("kind", opts.kind))
	return nil
}
