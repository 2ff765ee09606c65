package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/clusterpulse/internal/aggregate"
	"github.com/ppiankov/clusterpulse/internal/analyzer"
	"github.com/ppiankov/clusterpulse/internal/baseline"
	"github.com/ppiankov/clusterpulse/internal/collector"
	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/ppiankov/clusterpulse/internal/filter"
	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/internal/k8s"
	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/internal/reporter"
	"github.com/ppiankov/clusterpulse/pkg/config"
	"github.com/spf13/cobra"
)

const (
	sourceFile       = "file"
	sourceClickHouse = "clickhouse"
	sourceConfigMap  = "configmap"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	return newAnalyzeCmd(config.DefaultConfig())
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	// String variables for custom duration parsing
	var lookbackStr string
	var queryTimeoutStr string
	var configPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze cluster records and generate a report",
		Long: `Import cluster usage records, aggregate them into daily and weekly
KPIs, score cluster health, detect anomalies and forecast memory usage.`,
		Example: `  clusterpulse analyze --input records.json --format text
  clusterpulse analyze --input a.json --input b.json --range weekly
  clusterpulse analyze --source clickhouse --clickhouse-dsn clickhouse://localhost:9000/ops`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var err error

			if lookbackStr != "" {
				cfg.LookbackPeriod, err = config.ParseDuration(lookbackStr)
				if err != nil {
					return fmt.Errorf("invalid --lookback duration: %w", err)
				}
			}

			if queryTimeoutStr != "" {
				cfg.QueryTimeout, err = config.ParseDuration(queryTimeoutStr)
				if err != nil {
					return fmt.Errorf("invalid --query-timeout duration: %w", err)
				}
			}

			fileCfg, path, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			if fileCfg != nil {
				if err := fileCfg.ApplyTo(cfg, cmd.Flags().Changed); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				slog.Debug("config file loaded", slog.String("path", path))
			}
			cfg.Normalize()

			return validateAnalyzeConfig(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: .clusterpulse.yaml in cwd or $HOME)")

	// Source flags
	cmd.Flags().StringVar(&cfg.Source, "source", cfg.Source, "Record source (file, clickhouse, configmap)")
	cmd.Flags().StringArrayVar(&cfg.Inputs, "input", nil, "Upload document to import, '-' for stdin (repeatable)")
	cmd.Flags().BoolVar(&cfg.PartialImport, "partial", false, "Keep valid entries of a batch and report the invalid ones")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Number of inputs decoded in parallel")

	// ClickHouse flags
	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", "", "ClickHouse DSN")
	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-url", "", "Alias for --clickhouse-dsn")
	_ = cmd.Flags().MarkHidden("clickhouse-url")
	cmd.Flags().StringVar(&cfg.ClickHouseTable, "clickhouse-table", cfg.ClickHouseTable, "Table holding cluster records ([database.]table)")
	cmd.Flags().StringVar(&queryTimeoutStr, "query-timeout", "5m", "Total query timeout (e.g., 5m, 10m, 1h)")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows fetched per page")
	cmd.Flags().IntVar(&cfg.MaxRows, "max-rows", cfg.MaxRows, "Max rows fetched")
	cmd.Flags().IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Source requests per second (0 disables)")
	cmd.Flags().StringVar(&lookbackStr, "lookback", "30d", "Lookback period for the clickhouse source (e.g., 7d, 30d, 720h)")

	// Kubernetes flags
	cmd.Flags().StringVar(&cfg.KubeConfig, "kubeconfig", "", "Path to kubeconfig (default: in-cluster, then ~/.kube/config)")
	cmd.Flags().StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "Namespace of the records ConfigMap")
	cmd.Flags().StringVar(&cfg.ConfigMapName, "configmap", cfg.ConfigMapName, "ConfigMap holding the upload document")
	cmd.Flags().StringVar(&cfg.ConfigMapKey, "configmap-key", cfg.ConfigMapKey, "ConfigMap key holding the upload document")

	// Filter flags
	cmd.Flags().StringVar(&cfg.ClusterName, "cluster", "", "Exact cluster name ('all' disables)")
	cmd.Flags().StringVar(&cfg.State, "state", "", "Cluster state, case-insensitive ('all' disables)")
	cmd.Flags().StringVar(&cfg.SearchTerm, "search", "", "Substring of cluster name or id")
	cmd.Flags().StringVar(&cfg.RangeType, "range", "", "Date range (daily, weekly, custom)")
	cmd.Flags().StringVar(&cfg.StartDate, "start", "", "Range start day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cfg.EndDate, "end", "", "Range end day (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&cfg.ExcludeClusters, "exclude-cluster", nil, "Glob of cluster names to skip (repeatable)")

	// Analysis flags
	cmd.Flags().IntVar(&cfg.ForecastHorizon, "horizon", cfg.ForecastHorizon, "Forecast horizon in days")
	cmd.Flags().IntVar(&cfg.TopAnomalies, "top-anomalies", cfg.TopAnomalies, "Number of anomalies reported (at least 1)")

	// Output flags
	cmd.Flags().StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Output directory")
	cmd.Flags().StringVar(&cfg.Format, "format", cfg.Format, "Output format (json, text, csv)")
	cmd.Flags().BoolVar(&cfg.IncludeRecords, "include-records", false, "Include the filtered records in the report")

	// Baseline flags
	cmd.Flags().StringVar(&cfg.BaselinePath, "baseline", "", "Baseline file of known anomalies")
	cmd.Flags().BoolVar(&cfg.UpdateBaseline, "update-baseline", false, "Record current anomalies in the baseline")
	cmd.Flags().BoolVar(&cfg.FailOnAnomalies, "fail-on-anomalies", false, "Exit with code 6 when medium or high anomalies remain")

	// Operational flags
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Dry run mode (don't write output)")

	return cmd
}

func loadFileConfig(path string) (*config.FileConfig, string, error) {
	if strings.TrimSpace(path) != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		return fileCfg, path, nil
	}
	return config.AutoLoadFile()
}

func validateAnalyzeConfig(cfg *config.Config) error {
	if !reporter.ValidFormat(cfg.Format) {
		return fmt.Errorf("invalid --format value %q: must be json, text or csv", cfg.Format)
	}

	switch cfg.Source {
	case sourceFile:
		if len(cfg.Inputs) == 0 {
			return fmt.Errorf("--input is required for the file source")
		}
	case sourceClickHouse:
		if cfg.ClickHouseDSN == "" {
			return fmt.Errorf("--clickhouse-dsn is required for the clickhouse source")
		}
		if err := collector.ValidateTableName(cfg.ClickHouseTable); err != nil {
			return err
		}
	case sourceConfigMap:
	default:
		return fmt.Errorf("invalid --source value %q: must be file, clickhouse or configmap", cfg.Source)
	}

	if cfg.ForecastHorizon < 0 {
		return fmt.Errorf("invalid --horizon %d: must be >= 0", cfg.ForecastHorizon)
	}
	if cfg.TopAnomalies < 1 {
		return fmt.Errorf("invalid --top-anomalies %d: must be >= 1", cfg.TopAnomalies)
	}

	_, err := buildCriteria(cfg, time.Now())
	return err
}

// buildCriteria turns the filter flags into filter criteria. Without --range,
// --start and --end act as open-ended day bounds.
func buildCriteria(cfg *config.Config, now time.Time) (filter.Criteria, error) {
	criteria := filter.Criteria{
		ClusterName: cfg.ClusterName,
		State:       cfg.State,
		SearchTerm:  cfg.SearchTerm,
		Exclude:     cfg.IsClusterExcluded,
	}

	start, err := parseDay("--start", cfg.StartDate)
	if err != nil {
		return criteria, err
	}
	end, err := parseDay("--end", cfg.EndDate)
	if err != nil {
		return criteria, err
	}

	if strings.TrimSpace(cfg.RangeType) == "" {
		if !start.IsZero() {
			criteria.StartDate = &start
		}
		if !end.IsZero() {
			criteria.EndDate = &end
		}
		return criteria, nil
	}

	rangeType, err := filter.ParseRangeType(cfg.RangeType)
	if err != nil {
		return criteria, fmt.Errorf("invalid --range: %w", err)
	}
	criteria, err = filter.DateRange{Type: rangeType, StartDate: start, EndDate: end}.Criteria(criteria, now)
	if err != nil {
		return criteria, fmt.Errorf("invalid --range: %w", err)
	}
	return criteria, nil
}

func parseDay(flag, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(aggregate.DayLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", flag, value)
	}
	return day, nil
}

// newSource builds the collector for cfg.Source
func newSource(cfg *config.Config) (collector.Collector, error) {
	if cfg.Source != sourceConfigMap {
		return collector.New(cfg)
	}
	client, err := k8s.NewClient(cfg.KubeConfig)
	if err != nil {
		return nil, err
	}
	src, err := k8s.NewConfigMapSource(client, cfg)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// importBatches appends every batch to store. A failing batch stops the
// import; batches already appended stay.
func importBatches(store *ingest.Store, batches []collector.Batch, partial bool, sink diag.Sink) (int, error) {
	policy := ingest.AllOrNothing
	if partial {
		policy = ingest.Partial
	}

	rejected := 0
	for _, batch := range batches {
		result, err := store.ImportRaw(batch.Records, ingest.Options{Policy: policy, Sink: sink})
		if err != nil {
			return rejected, fmt.Errorf("failed to import %s: %w", batch.Name, err)
		}
		rejected += len(result.Rejected)
	}
	return rejected, nil
}

type analysisStats struct {
	batches  int
	total    int
	rejected int
}

// runAnalyze executes the analysis workflow
func runAnalyze(ctx context.Context, cfg *config.Config, progress io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if progress == nil {
		progress = io.Discard
	}
	startTime := time.Now()

	// 1. Collect
	src, err := newSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}
	defer src.Close()

	fmt.Fprintln(progress, "📥 Collecting cluster records...")
	batches, err := src.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect cluster records: %w", err)
	}

	// 2. Import
	importWarnings := diag.NewCollector()
	store := ingest.NewStore()
	rejected, err := importBatches(store, batches, cfg.PartialImport, diag.Tee(importWarnings, diag.SlogSink{}))
	if err != nil {
		return err
	}
	fmt.Fprintf(progress, "✓ Imported %d records from %d batches\n", store.Len(), store.BatchCount())

	// 3. Filter
	criteria, err := buildCriteria(cfg, startTime)
	if err != nil {
		return err
	}
	records := filter.Apply(store.Records(), criteria)

	// 4. Analyze
	fmt.Fprintln(progress, "🔍 Analyzing records...")
	bundle, err := analyzer.New(cfg, diag.SlogSink{}).Analyze(records)
	if err != nil {
		return fmt.Errorf("failed to analyze records: %w", err)
	}
	bundle.Warnings = append(importWarnings.Warnings(), bundle.Warnings...)
	fmt.Fprintf(progress, "✓ Analyzed %d days, %d anomalies\n", len(bundle.Daily), len(bundle.Anomalies))

	stats := analysisStats{batches: store.BatchCount(), total: store.Len(), rejected: rejected}
	report := buildReport(cfg, bundle, records, criteria, stats, startTime)

	// 5. Baseline
	if err := applyBaseline(cfg, report, progress); err != nil {
		return err
	}

	// 6. Write output
	if !cfg.DryRun {
		fmt.Fprintln(progress, "📝 Writing report...")
		if err := reporter.New(cfg).Generate(report); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		fmt.Fprintf(progress, "✓ Report written to: %s\n", cfg.OutputDir)
	} else {
		fmt.Fprintln(progress, "🏃 Dry run mode - skipping output")
	}

	fmt.Fprintf(progress, "✅ Analysis complete in %s\n", time.Since(startTime).Round(time.Millisecond))

	if cfg.FailOnAnomalies && !cfg.UpdateBaseline {
		if count := baseline.CountFindings(report); count > 0 {
			return &FindingsError{Count: count}
		}
	}
	return nil
}

// buildReport constructs the final report
func buildReport(
	cfg *config.Config,
	bundle *models.Bundle,
	records []models.ClusterRecord,
	criteria filter.Criteria,
	stats analysisStats,
	startTime time.Time,
) *models.Report {
	generatedAt := time.Now().UTC()

	horizon := cfg.ForecastHorizon
	if horizon <= 0 {
		horizon = analyzer.DefaultForecastHorizon
	}

	report := &models.Report{
		Tool:      "clusterpulse",
		Version:   version,
		Timestamp: generatedAt.Format(time.RFC3339),
		Metadata: models.Metadata{
			GeneratedAt:      generatedAt,
			Source:           sourceLabel(cfg),
			Batches:          stats.batches,
			TotalRecords:     stats.total,
			FilteredRecords:  len(records),
			RejectedRecords:  stats.rejected,
			ForecastHorizon:  horizon,
			AnalysisDuration: time.Since(startTime).Round(time.Millisecond).String(),
			Version:          version,
		},
		Bundle: *bundle,
	}
	if criteria.StartDate != nil {
		report.Metadata.RangeStart = criteria.StartDate.UTC().Format(aggregate.DayLayout)
	}
	if criteria.EndDate != nil {
		report.Metadata.RangeEnd = criteria.EndDate.UTC().Format(aggregate.DayLayout)
	}
	if cfg.IncludeRecords {
		report.Records = records
	}
	return report
}

// sourceLabel names the source without credentials
func sourceLabel(cfg *config.Config) string {
	switch cfg.Source {
	case sourceClickHouse:
		return "clickhouse:" + cfg.ClickHouseTable
	case sourceConfigMap:
		return fmt.Sprintf("configmap:%s/%s", cfg.Namespace, cfg.ConfigMapName)
	default:
		return "file:" + strings.Join(cfg.Inputs, ",")
	}
}

// applyBaseline records the current anomalies with --update-baseline and
// otherwise drops the ones already in the baseline file.
func applyBaseline(cfg *config.Config, report *models.Report, progress io.Writer) error {
	path := cfg.BaselinePath
	if path == "" && cfg.UpdateBaseline {
		path = baseline.DefaultPath
	}
	if path == "" {
		return nil
	}

	if cfg.UpdateBaseline {
		set := baseline.FromReport(report)
		if err := baseline.Save(path, set); err != nil {
			return fmt.Errorf("failed to update baseline: %w", err)
		}
		fmt.Fprintf(progress, "✓ Baseline updated: %s (%d anomalies)\n", path, len(set))
		return nil
	}

	known, err := baseline.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}
	suppressed, remaining := baseline.SuppressKnown(report, known)
	report.Metadata.SuppressedByBaseline = suppressed
	slog.Debug("baseline applied",
		slog.String("path", path),
		slog.Int("suppressed", suppressed),
		slog.Int("remaining", remaining),
	)
	return nil
}
