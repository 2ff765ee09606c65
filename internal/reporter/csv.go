package reporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/clusterpulse/internal/metrics"
	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

var dailyHeader = []string{
	"Date",
	"Avg Memory Usage %",
	"Avg YARN Memory Available %",
	"Avg Runtime Hours",
	"Avg Remaining Capacity GB",
	"Avg Unhealthy Nodes",
	"Cluster Count",
	"Clusters",
}

var recordsHeader = []string{
	"Cluster Name",
	"Cluster ID",
	"State",
	"Creation Date",
	"End Date",
	"Memory Usage %",
	"YARN Available %",
	"Runtime Hours",
	"Capacity Remaining GB",
}

// DailyCSV renders one row per bucket. No buckets yields the empty string,
// not a header-only document.
func DailyCSV(buckets []models.DailyBucket) string {
	if len(buckets) == 0 {
		return ""
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// bytes.Buffer writes cannot fail
	_ = w.Write(dailyHeader)
	for _, b := range buckets {
		_ = w.Write([]string{
			b.Day,
			fixed2(b.AvgMemoryUsagePercent),
			fixed2(b.AvgYarnAvailablePercent),
			fixed2(b.AvgRuntimeHours),
			fixed2(b.AvgRemainingCapacityGB),
			fixed2(b.AvgUnhealthyNodes),
			strconv.Itoa(b.ClusterCount),
			strings.Join(b.Clusters, ";"),
		})
	}
	w.Flush()
	return buf.String()
}

// RecordsCSV renders one row per record. Text fields are always quoted,
// YARN and capacity values are passed through unrounded.
func RecordsCSV(records []models.ClusterRecord) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.Join(recordsHeader, ","))
	b.WriteString("\n")
	for _, r := range records {
		fields := []string{
			quote(r.ClusterName),
			quote(r.ClusterID),
			quote(r.State),
			quote(formatTime(r.CreationTime)),
			quote(formatEnd(r.EndTime)),
			fixed2(metrics.MemoryUsagePercent(r.AllocatedMemoryMB, r.TotalMemoryMB)),
			raw(r.YarnAvailablePercent),
			fixed2(metrics.RuntimeHours(r.CreationTime, r.EndTime)),
			raw(r.RemainingCapacityGB),
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteCSV writes daily.csv and, when the report carries records, records.csv
func WriteCSV(report *models.Report, cfg *config.Config) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dailyPath := filepath.Join(cfg.OutputDir, "daily.csv")
	if err := os.WriteFile(dailyPath, []byte(DailyCSV(report.Daily)), 0644); err != nil {
		return fmt.Errorf("failed to write daily.csv: %w", err)
	}
	slog.Debug("report written", slog.String("path", dailyPath))

	if len(report.Records) == 0 {
		return nil
	}

	recordsPath := filepath.Join(cfg.OutputDir, "records.csv")
	if err := os.WriteFile(recordsPath, []byte(RecordsCSV(report.Records)), 0644); err != nil {
		return fmt.Errorf("failed to write records.csv: %w", err)
	}
	slog.Debug("report written", slog.String("path", recordsPath))

	return nil
}

func fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func raw(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatEnd(end *time.Time) string {
	if end == nil {
		return ""
	}
	return formatTime(*end)
}
