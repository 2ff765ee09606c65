package aggregate

import (
	"sort"
	"time"

	"github.com/ppiankov/clusterpulse/internal/metrics"
	"github.com/ppiankov/clusterpulse/internal/models"
)

// WindowDays is the length of a trailing KPI window
const WindowDays = 7

// WeeklyKPIs reduces the trailing window [offset*7, offset*7+7) of buckets
// ordered most recent first. Offset 0 is the latest seven buckets, offset 1
// the seven before them. The cluster count is the number of distinct names
// across the window, not the sum of the daily counts.
func WeeklyKPIs(buckets []models.DailyBucket, offset int) models.WeeklyKPIs {
	window := trailingWindow(buckets, offset)
	if len(window) == 0 {
		return models.WeeklyKPIs{}
	}

	usage := make([]float64, 0, len(window))
	yarn := make([]float64, 0, len(window))
	runtime := make([]float64, 0, len(window))
	capacity := make([]float64, 0, len(window))
	unhealthy := make([]float64, 0, len(window))
	names := make(map[string]struct{})

	for _, b := range window {
		usage = append(usage, b.AvgMemoryUsagePercent)
		yarn = append(yarn, b.AvgYarnAvailablePercent)
		runtime = append(runtime, b.AvgRuntimeHours)
		capacity = append(capacity, b.AvgRemainingCapacityGB)
		unhealthy = append(unhealthy, b.AvgUnhealthyNodes)
		for _, name := range b.Clusters {
			names[name] = struct{}{}
		}
	}

	return models.WeeklyKPIs{
		AvgMemoryUsagePercent:   metrics.Average(usage...),
		AvgYarnAvailablePercent: metrics.Average(yarn...),
		AvgRuntimeHours:         metrics.Average(runtime...),
		AvgRemainingCapacityGB:  metrics.Average(capacity...),
		AvgUnhealthyNodes:       metrics.Average(unhealthy...),
		ClusterCount:            len(names),
		Days:                    len(window),
	}
}

func trailingWindow(buckets []models.DailyBucket, offset int) []models.DailyBucket {
	return trailingWindowN(buckets, offset, WindowDays)
}

func trailingWindowN(buckets []models.DailyBucket, offset, n int) []models.DailyBucket {
	if offset < 0 || n <= 0 {
		return nil
	}
	sorted := make([]models.DailyBucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day > sorted[j].Day
	})

	start := offset * n
	if start >= len(sorted) {
		return nil
	}
	end := start + n
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end]
}

type weekAccumulator struct {
	start     time.Time
	usage     []float64
	yarn      []float64
	runtime   []float64
	capacity  []float64
	unhealthy []float64
	names     []string
	seen      map[string]struct{}
	days      int
}

// CalendarWeeks groups day buckets into calendar weeks starting on Sunday.
// Weeks are returned in ascending order. Buckets with malformed day keys are
// ignored.
func CalendarWeeks(buckets []models.DailyBucket) []models.WeeklyBucket {
	weeks := make(map[string]*weekAccumulator)

	for _, b := range buckets {
		day, err := time.Parse(DayLayout, b.Day)
		if err != nil {
			continue
		}
		start := WeekStart(day)
		key := start.Format(DayLayout)

		acc, ok := weeks[key]
		if !ok {
			acc = &weekAccumulator{start: start, seen: make(map[string]struct{})}
			weeks[key] = acc
		}
		acc.usage = append(acc.usage, b.AvgMemoryUsagePercent)
		acc.yarn = append(acc.yarn, b.AvgYarnAvailablePercent)
		acc.runtime = append(acc.runtime, b.AvgRuntimeHours)
		acc.capacity = append(acc.capacity, b.AvgRemainingCapacityGB)
		acc.unhealthy = append(acc.unhealthy, b.AvgUnhealthyNodes)
		acc.days++
		for _, name := range b.Clusters {
			if _, dup := acc.seen[name]; dup {
				continue
			}
			acc.seen[name] = struct{}{}
			acc.names = append(acc.names, name)
		}
	}

	result := make([]models.WeeklyBucket, 0, len(weeks))
	for key, acc := range weeks {
		result = append(result, models.WeeklyBucket{
			WeekStart:               key,
			WeekEnd:                 acc.start.AddDate(0, 0, 6).Format(DayLayout),
			AvgMemoryUsagePercent:   metrics.Average(acc.usage...),
			AvgYarnAvailablePercent: metrics.Average(acc.yarn...),
			AvgRuntimeHours:         metrics.Average(acc.runtime...),
			AvgRemainingCapacityGB:  metrics.Average(acc.capacity...),
			AvgUnhealthyNodes:       metrics.Average(acc.unhealthy...),
			ClusterCount:            len(acc.names),
			Clusters:                acc.names,
			Days:                    acc.days,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekStart < result[j].WeekStart
	})

	return result
}

// WeekStart returns the Sunday on or before day, at midnight UTC
func WeekStart(day time.Time) time.Time {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -int(d.Weekday()))
}
