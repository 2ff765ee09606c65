package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"

	textMaxWarnings = 20
)

// writeText writes report.txt and echoes it to out
func writeText(report *models.Report, cfg *config.Config, out io.Writer) error {
	switch {
	case report == nil:
		return fmt.Errorf("report is nil")
	case cfg == nil:
		return fmt.Errorf("config is nil")
	case out == nil:
		return fmt.Errorf("writer is nil")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rendered := renderTextReport(report, isTerminal(out))
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "report.txt"), []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write report.txt: %w", err)
	}
	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("failed to write text report to output: %w", err)
	}
	return nil
}

type textSection struct {
	title  string
	render func(b *strings.Builder, r *models.Report)
}

var textSections = []textSection{
	{"ClusterPulse Report", renderHeader},
	{"Summary", renderSummary},
	{"Week Over Week", renderWeekOverWeek},
	{"Daily", renderDaily},
	{"Anomalies", renderAnomalies},
	{"Forecast", renderForecast},
	{"Recommendations", renderRecommendations},
}

func renderTextReport(report *models.Report, ansi bool) string {
	var b strings.Builder
	for i, s := range textSections {
		if i > 0 {
			b.WriteString("\n")
		}
		heading(&b, s.title, ansi)
		s.render(&b, report)
	}
	if len(report.Warnings) > 0 {
		b.WriteString("\n")
		heading(&b, "Warnings", ansi)
		renderWarnings(&b, report)
	}
	return b.String()
}

func heading(b *strings.Builder, title string, ansi bool) {
	if ansi {
		b.WriteString(ansiBold + title + ansiReset + "\n")
	} else {
		b.WriteString(title + "\n")
	}
	b.WriteString(strings.Repeat("-", len(title)) + "\n")
}

func renderHeader(b *strings.Builder, r *models.Report) {
	generated := strings.TrimSpace(r.Timestamp)
	if generated == "" && !r.Metadata.GeneratedAt.IsZero() {
		generated = r.Metadata.GeneratedAt.UTC().Format(time.RFC3339)
	}
	m := r.Metadata
	fmt.Fprintf(b, "Generated: %s\n", orUnknown(generated))
	fmt.Fprintf(b, "Source: %s\n", orUnknown(m.Source))
	fmt.Fprintf(b, "Records: %d total, %d after filters, %d rejected\n",
		m.TotalRecords, m.FilteredRecords, m.RejectedRecords)
	if m.RangeStart != "" || m.RangeEnd != "" {
		fmt.Fprintf(b, "Range: %s .. %s\n", orUnknown(m.RangeStart), orUnknown(m.RangeEnd))
	}
	if m.SuppressedByBaseline > 0 {
		fmt.Fprintf(b, "Suppressed by baseline: %d\n", m.SuppressedByBaseline)
	}
}

func renderSummary(b *strings.Builder, r *models.Report) {
	fmt.Fprintf(b, "Days: %d\n", len(r.Daily))
	fmt.Fprintf(b, "Calendar weeks: %d\n", len(r.Weekly))
	if len(r.Health) == 0 {
		b.WriteString("Weekly health: n/a\n")
		return
	}
	fmt.Fprintf(b, "Weekly health: %.1f (%s)\n", r.WeeklyHealth, orUnknown(r.HealthCategory))
}

func renderWeekOverWeek(b *strings.Builder, r *models.Report) {
	cur, prev, delta := r.CurrentWeek, r.PreviousWeek, r.Deltas
	rows := []struct {
		label           string
		current, before float64
		change          float64
	}{
		{"Memory usage %", cur.AvgMemoryUsagePercent, prev.AvgMemoryUsagePercent, delta.MemoryUsagePercent},
		{"YARN available %", cur.AvgYarnAvailablePercent, prev.AvgYarnAvailablePercent, delta.YarnAvailablePercent},
		{"Runtime hours", cur.AvgRuntimeHours, prev.AvgRuntimeHours, delta.RuntimeHours},
		{"Remaining capacity GB", cur.AvgRemainingCapacityGB, prev.AvgRemainingCapacityGB, delta.RemainingCapacityGB},
		{"Unhealthy nodes", cur.AvgUnhealthyNodes, prev.AvgUnhealthyNodes, delta.UnhealthyNodes},
		{"Clusters", float64(cur.ClusterCount), float64(prev.ClusterCount), delta.ClusterCount},
	}
	b.WriteString("METRIC                      CURRENT   PREVIOUS  DELTA %\n")
	b.WriteString(strings.Repeat("-", 55) + "\n")
	for _, row := range rows {
		fmt.Fprintf(b, "%-25s %9.2f %10.2f %+8.1f\n", row.label, row.current, row.before, row.change)
	}
}

func renderDaily(b *strings.Builder, r *models.Report) {
	if len(r.Daily) == 0 {
		b.WriteString("No daily data.\n")
		return
	}
	scores := make(map[string]float64, len(r.Health))
	for _, p := range r.Health {
		scores[p.Day] = p.Score
	}

	b.WriteString("DAY         USAGE%   YARN%  RUNTIME  CAPACITY  UNHEALTHY  CLUSTERS  HEALTH\n")
	b.WriteString(strings.Repeat("-", 75) + "\n")
	for _, d := range r.Daily {
		health := "n/a"
		if score, ok := scores[d.Day]; ok {
			health = fmt.Sprintf("%.1f", score)
		}
		fmt.Fprintf(b, "%-10s %7.2f %7.2f %8.2f %9.2f %10.2f %9d  %s\n",
			d.Day, d.AvgMemoryUsagePercent, d.AvgYarnAvailablePercent, d.AvgRuntimeHours,
			d.AvgRemainingCapacityGB, d.AvgUnhealthyNodes, d.ClusterCount, health)
	}
}

func renderAnomalies(b *strings.Builder, r *models.Report) {
	if len(r.Anomalies) == 0 {
		b.WriteString("No anomalies detected.\n")
		return
	}
	for _, a := range r.Anomalies {
		severity := strings.ToLower(strings.TrimSpace(a.Severity))
		fmt.Fprintf(b, "anomaly[%s]: %s %s=%.2f (z=%+.2f, mean=%.2f, sd=%.2f)\n",
			orUnknown(severity), orUnknown(a.Day), orUnknown(a.Metric),
			a.Value, a.ZScore, a.Mean, a.StdDev)
	}
}

func renderForecast(b *strings.Builder, r *models.Report) {
	if len(r.Forecast) == 0 {
		b.WriteString("No forecast available.\n")
		return
	}
	for _, p := range r.Forecast {
		fmt.Fprintf(b, "%s  %6.2f%%\n", orUnknown(p.Day), p.PredictedMemoryUsagePercent)
	}
}

func renderRecommendations(b *strings.Builder, r *models.Report) {
	if len(r.Recommendations) == 0 {
		b.WriteString("No recommendations.\n")
		return
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(b, "[%s] %s\n", orUnknown(rec.Severity), rec.Message)
	}
}

func renderWarnings(b *strings.Builder, r *models.Report) {
	shown := r.Warnings
	if len(shown) > textMaxWarnings {
		shown = shown[:textMaxWarnings]
	}
	for _, w := range shown {
		fmt.Fprintf(b, "%s: %s\n", w.Code, w.Message)
	}
	if hidden := len(r.Warnings) - len(shown); hidden > 0 {
		fmt.Fprintf(b, "... and %d more\n", hidden)
	}
}

// isTerminal reports whether out is a character device
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func orUnknown(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return "unknown"
}
