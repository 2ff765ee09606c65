package analyzer

import (
	"log/slog"
	"math"
	"sort"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// DefaultTopAnomalies is the number of anomalies kept when no limit is given
const DefaultTopAnomalies = 3

// Tracked metric names
const (
	MetricMemoryUsage       = "memory_usage_percent"
	MetricYarnAvailable     = "yarn_available_percent"
	MetricRemainingCapacity = "remaining_capacity_gb"
	MetricUnhealthyNodes    = "unhealthy_nodes"
)

type trackedMetric struct {
	name  string
	value func(models.DailyBucket) float64
}

var trackedMetrics = []trackedMetric{
	{name: MetricMemoryUsage, value: func(b models.DailyBucket) float64 { return b.AvgMemoryUsagePercent }},
	{name: MetricYarnAvailable, value: func(b models.DailyBucket) float64 { return b.AvgYarnAvailablePercent }},
	{name: MetricRemainingCapacity, value: func(b models.DailyBucket) float64 { return b.AvgRemainingCapacityGB }},
	{name: MetricUnhealthyNodes, value: func(b models.DailyBucket) float64 { return b.AvgUnhealthyNodes }},
}

// DetectAnomalies z-scores every (day, metric) pair against the metric's
// population mean and standard deviation over all buckets, then returns the
// topN pairs by absolute z-score. Equal scores keep metric-major input order.
func DetectAnomalies(buckets []models.DailyBucket, topN int) []models.Anomaly {
	if topN <= 0 {
		topN = DefaultTopAnomalies
	}
	anomalies := make([]models.Anomaly, 0, len(buckets)*len(trackedMetrics))
	if len(buckets) == 0 {
		return anomalies
	}

	for _, m := range trackedMetrics {
		values := make([]float64, len(buckets))
		for i, b := range buckets {
			values[i] = m.value(b)
		}
		mean, stdDev := populationStats(values)

		for i, b := range buckets {
			z := (values[i] - mean) / stdDev
			anomalies = append(anomalies, models.Anomaly{
				Day:      b.Day,
				Metric:   m.name,
				Value:    values[i],
				ZScore:   z,
				Mean:     mean,
				StdDev:   stdDev,
				Severity: severity(z),
			})
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return math.Abs(anomalies[i].ZScore) > math.Abs(anomalies[j].ZScore)
	})
	if len(anomalies) > topN {
		anomalies = anomalies[:topN]
	}

	slog.Debug("detected anomalies", slog.Int("count", len(anomalies)), slog.Int("days", len(buckets)))

	return anomalies
}

// populationStats returns the mean and population standard deviation. A zero
// deviation is replaced by 1.
func populationStats(values []float64) (mean, stdDev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	stdDev = math.Sqrt(sumSq / float64(len(values)))
	if stdDev == 0 || math.IsNaN(stdDev) {
		stdDev = 1
	}
	return mean, stdDev
}

func severity(z float64) string {
	switch abs := math.Abs(z); {
	case abs >= 3:
		return "high"
	case abs >= 2:
		return "medium"
	default:
		return "low"
	}
}
