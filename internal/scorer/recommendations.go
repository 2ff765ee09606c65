package scorer

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// Recommendation severities
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// GenerateRecommendations turns the current week's KPIs and their deltas
// into operator hints, most severe first
func GenerateRecommendations(current models.WeeklyKPIs, deltas models.KPIDeltas) []models.Recommendation {
	// Initialize as empty slice instead of nil to avoid JSON null values
	recs := []models.Recommendation{}
	if current.Days == 0 {
		return recs
	}

	// Rule 1: memory pressure
	if usage := current.AvgMemoryUsagePercent; usage > UsageThreshold {
		severity := SeverityMedium
		if usage >= 95 {
			severity = SeverityHigh
		}
		recs = append(recs, models.Recommendation{
			Metric:   "memory_usage_percent",
			Severity: severity,
			Value:    usage,
			Message:  fmt.Sprintf("average memory usage %.1f%% exceeds %.0f%%; consider larger instance types or fewer concurrent jobs", usage, UsageThreshold),
		})
	}

	// Rule 2: YARN headroom
	if yarn := current.AvgYarnAvailablePercent; yarn < YarnThreshold {
		severity := SeverityMedium
		if yarn < 10 {
			severity = SeverityHigh
		}
		recs = append(recs, models.Recommendation{
			Metric:   "yarn_available_percent",
			Severity: severity,
			Value:    yarn,
			Message:  fmt.Sprintf("YARN memory available %.1f%% is below %.0f%%; scale out core nodes", yarn, YarnThreshold),
		})
	}

	// Rule 3: storage capacity
	if capacity := current.AvgRemainingCapacityGB; capacity < CapacityThresholdG {
		severity := SeverityLow
		if capacity < CapacityThresholdG/4 {
			severity = SeverityHigh
		} else if capacity < CapacityThresholdG/2 {
			severity = SeverityMedium
		}
		recs = append(recs, models.Recommendation{
			Metric:   "remaining_capacity_gb",
			Severity: severity,
			Value:    capacity,
			Message:  fmt.Sprintf("remaining capacity %.1f GB is below %.0f GB; grow HDFS or clean up intermediate data", capacity, CapacityThresholdG),
		})
	}

	// Rule 4: unhealthy nodes
	if unhealthy := current.AvgUnhealthyNodes; unhealthy > 0 {
		severity := SeverityLow
		if unhealthy >= 3 {
			severity = SeverityHigh
		} else if unhealthy >= 1 {
			severity = SeverityMedium
		}
		recs = append(recs, models.Recommendation{
			Metric:   "unhealthy_nodes",
			Severity: severity,
			Value:    unhealthy,
			Message:  fmt.Sprintf("%.1f unhealthy nodes per cluster on average; check node health and replace failing instances", unhealthy),
		})
	}

	// Rule 5: runtime growth week over week
	if deltas.RuntimeHours >= 50 && current.AvgRuntimeHours > 0 {
		recs = append(recs, models.Recommendation{
			Metric:   "runtime_hours",
			Severity: SeverityLow,
			Value:    deltas.RuntimeHours,
			Message:  fmt.Sprintf("average cluster runtime grew %.0f%% week over week; look for idle clusters that never terminate", deltas.RuntimeHours),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return severityRank(recs[i].Severity) > severityRank(recs[j].Severity)
	})

	slog.Debug("recommendations summary",
		slog.Int("total", len(recs)),
		slog.Int("days", current.Days),
	)

	return recs
}

func severityRank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
