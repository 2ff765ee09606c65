// Package aggregate buckets cluster records by day and derives weekly
// statistics from the day buckets.
//
// Day keys are UTC calendar dates ("2006-01-02") of each record's creation
// time. Two weekly policies exist side by side: WeeklyKPIs reduces a trailing
// window of seven day buckets, CalendarWeeks groups buckets into
// Sunday-anchored calendar weeks.
package aggregate

import (
	"sort"
	"time"

	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/ppiankov/clusterpulse/internal/metrics"
	"github.com/ppiankov/clusterpulse/internal/models"
)

// DayLayout is the day key format
const DayLayout = "2006-01-02"

// DayKey returns the UTC day key of t
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

type dayAccumulator struct {
	usage     []float64
	yarn      []float64
	runtime   []float64
	capacity  []float64
	unhealthy []float64
	names     []string
	seen      map[string]struct{}
}

// ByDay groups records by the UTC day of their creation time. Records whose
// creation time did not parse are skipped and reported to sink.
func ByDay(records []models.ClusterRecord, sink diag.Sink) []models.DailyBucket {
	days := make(map[string]*dayAccumulator)

	for i, r := range records {
		if !r.HasValidCreation() {
			diag.Warnf(sink, diag.CodeUndatedSkipped, i, r.ClusterID,
				"record %s skipped from daily grouping: creation time did not parse", r.ClusterID)
			continue
		}

		key := DayKey(r.CreationTime)
		acc, ok := days[key]
		if !ok {
			acc = &dayAccumulator{seen: make(map[string]struct{})}
			days[key] = acc
		}

		acc.usage = append(acc.usage, usagePercent(i, r, sink))
		acc.yarn = append(acc.yarn, r.YarnAvailablePercent)
		acc.runtime = append(acc.runtime, runtimeHours(i, r, sink))
		acc.capacity = append(acc.capacity, remainingCapacity(i, r, sink))
		acc.unhealthy = append(acc.unhealthy, unhealthyNodes(i, r, sink))

		if _, dup := acc.seen[r.ClusterName]; !dup {
			acc.seen[r.ClusterName] = struct{}{}
			acc.names = append(acc.names, r.ClusterName)
		}
	}

	buckets := make([]models.DailyBucket, 0, len(days))
	for key, acc := range days {
		buckets = append(buckets, models.DailyBucket{
			Day:                     key,
			AvgMemoryUsagePercent:   metrics.Average(acc.usage...),
			AvgYarnAvailablePercent: metrics.Average(acc.yarn...),
			AvgRuntimeHours:         metrics.Average(acc.runtime...),
			AvgRemainingCapacityGB:  metrics.Average(acc.capacity...),
			AvgUnhealthyNodes:       metrics.Average(acc.unhealthy...),
			ClusterCount:            len(acc.names),
			Clusters:                acc.names,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Day < buckets[j].Day
	})

	return buckets
}

func usagePercent(index int, r models.ClusterRecord, sink diag.Sink) float64 {
	if metrics.IsOverAllocated(r.AllocatedMemoryMB, r.TotalMemoryMB) {
		diag.Warnf(sink, diag.CodeOverAllocated, index, r.ClusterID,
			"cluster %s allocated %.0fMB of %.0fMB total, usage capped at 100%%",
			r.ClusterID, r.AllocatedMemoryMB, r.TotalMemoryMB)
	}
	return metrics.MemoryUsagePercent(r.AllocatedMemoryMB, r.TotalMemoryMB)
}

func runtimeHours(index int, r models.ClusterRecord, sink diag.Sink) float64 {
	if r.EndTime != nil {
		switch {
		case r.EndTime.IsZero():
			diag.Warnf(sink, diag.CodeInvalidEndTime, index, r.ClusterID,
				"cluster %s end time did not parse, runtime counted as 0", r.ClusterID)
		case r.EndTime.Before(r.CreationTime):
			diag.Warnf(sink, diag.CodeEndBeforeCreation, index, r.ClusterID,
				"cluster %s ended before it was created, runtime counted as 0", r.ClusterID)
		}
	}
	return metrics.RuntimeHours(r.CreationTime, r.EndTime)
}

func remainingCapacity(index int, r models.ClusterRecord, sink diag.Sink) float64 {
	if r.RemainingCapacityGB < 0 {
		diag.Warnf(sink, diag.CodeNegativeCapacity, index, r.ClusterID,
			"cluster %s reported negative remaining capacity %.2fGB, counted as 0", r.ClusterID, r.RemainingCapacityGB)
	}
	return metrics.NonNegative(r.RemainingCapacityGB)
}

func unhealthyNodes(index int, r models.ClusterRecord, sink diag.Sink) float64 {
	if r.UnhealthyNodeCount < 0 {
		diag.Warnf(sink, diag.CodeNegativeUnhealthy, index, r.ClusterID,
			"cluster %s reported %.0f unhealthy nodes, counted as 0", r.ClusterID, r.UnhealthyNodeCount)
	}
	return metrics.NonNegative(r.UnhealthyNodeCount)
}
