package analyzer

import (
	"fmt"
	"testing"
	"time"

	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/internal/scorer"
	"github.com/ppiankov/clusterpulse/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usageBuckets(values ...float64) []models.DailyBucket {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	buckets := make([]models.DailyBucket, 0, len(values))
	for i, v := range values {
		buckets = append(buckets, models.DailyBucket{
			Day:                     start.AddDate(0, 0, i).Format("2006-01-02"),
			AvgMemoryUsagePercent:   v,
			AvgYarnAvailablePercent: 50,
			AvgRemainingCapacityGB:  500,
		})
	}
	return buckets
}

func TestHealthScores(t *testing.T) {
	buckets := usageBuckets(0, 90, 100)
	buckets[0].AvgYarnAvailablePercent = 100

	points := HealthScores(buckets, &scorer.PenaltyScorer{})
	require.Len(t, points, 3)
	assert.Equal(t, "2026-03-01", points[0].Day)
	assert.InDelta(t, 100.0, points[0].Score, 1e-9)
	assert.Equal(t, scorer.CategoryHealthy, points[0].Category)
	assert.InDelta(t, 88.0, points[1].Score, 1e-9)
	assert.InDelta(t, 76.0, points[2].Score, 1e-9)
	assert.Equal(t, scorer.CategoryDegraded, points[2].Category)

	assert.Empty(t, HealthScores(nil, nil))
}

func TestWeeklyHealthUsesLatestSeven(t *testing.T) {
	var points []models.HealthScorePoint
	for i := 1; i <= 10; i++ {
		points = append(points, models.HealthScorePoint{
			Day:   fmt.Sprintf("2026-03-%02d", i),
			Score: float64(i * 10),
		})
	}
	// latest seven: 40..100
	assert.InDelta(t, 70.0, WeeklyHealth(points), 1e-9)
	assert.InDelta(t, 0.0, WeeklyHealth(nil), 1e-9)
	assert.Equal(t, "2026-03-01", points[0].Day, "input must not be reordered")
}

func TestDetectAnomaliesRanksByAbsoluteZ(t *testing.T) {
	buckets := usageBuckets(10, 10, 10, 40)

	anomalies := DetectAnomalies(buckets, 3)
	require.Len(t, anomalies, 3)

	assert.Equal(t, "2026-03-04", anomalies[0].Day)
	assert.Equal(t, MetricMemoryUsage, anomalies[0].Metric)
	assert.InDelta(t, 40.0, anomalies[0].Value, 1e-9)
	assert.InDelta(t, 17.5, anomalies[0].Mean, 1e-9)
	assert.InDelta(t, 1.7320508, anomalies[0].ZScore, 1e-6)
	assert.Equal(t, "low", anomalies[0].Severity)

	// equal |z| keeps input order
	assert.Equal(t, "2026-03-01", anomalies[1].Day)
	assert.Equal(t, "2026-03-02", anomalies[2].Day)
	assert.InDelta(t, -0.5773502, anomalies[1].ZScore, 1e-6)
}

func TestDetectAnomaliesConstantSeriesUsesUnitStdDev(t *testing.T) {
	buckets := usageBuckets(25, 25)

	anomalies := DetectAnomalies(buckets, 0)
	require.Len(t, anomalies, DefaultTopAnomalies)
	for _, a := range anomalies {
		assert.InDelta(t, 0.0, a.ZScore, 1e-12)
		assert.InDelta(t, 1.0, a.StdDev, 1e-12)
	}
	// metric-major pooling order
	assert.Equal(t, MetricMemoryUsage, anomalies[0].Metric)
	assert.Equal(t, "2026-03-01", anomalies[0].Day)
	assert.Equal(t, MetricMemoryUsage, anomalies[1].Metric)
	assert.Equal(t, "2026-03-02", anomalies[1].Day)
	assert.Equal(t, MetricYarnAvailable, anomalies[2].Metric)
}

func TestDetectAnomaliesSeverity(t *testing.T) {
	values := make([]float64, 11)
	values[10] = 100
	buckets := usageBuckets(values...)

	anomalies := DetectAnomalies(buckets, 1)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "2026-03-11", anomalies[0].Day)
	assert.Greater(t, anomalies[0].ZScore, 3.0)
	assert.Equal(t, "high", anomalies[0].Severity)

	assert.Equal(t, "medium", severity(-2.5))
	assert.Equal(t, "low", severity(1.99))
}

func TestDetectAnomaliesEmpty(t *testing.T) {
	anomalies := DetectAnomalies(nil, 3)
	assert.NotNil(t, anomalies)
	assert.Empty(t, anomalies)
}

func TestForecastLinearTrend(t *testing.T) {
	points := Forecast(usageBuckets(10, 20, 30), 9)
	require.Len(t, points, 9)

	want := []float64{40, 50, 60, 70, 80, 90, 100, 100, 100}
	for i, w := range want {
		assert.InDelta(t, w, points[i].PredictedMemoryUsagePercent, 1e-9, "point %d", i)
	}
	assert.Equal(t, "2026-03-04", points[0].Day)
	assert.Equal(t, "2026-03-12", points[8].Day)
}

func TestForecastClampsAtZero(t *testing.T) {
	points := Forecast(usageBuckets(30, 20, 10), 3)
	require.Len(t, points, 3)
	assert.InDelta(t, 0.0, points[0].PredictedMemoryUsagePercent, 1e-9)
	assert.InDelta(t, 0.0, points[2].PredictedMemoryUsagePercent, 1e-9)
}

func TestForecastSinglePointIsConstant(t *testing.T) {
	buckets := usageBuckets(42)
	buckets[0].Day = "2026-02-28"

	points := Forecast(buckets, 0)
	require.Len(t, points, DefaultForecastHorizon)
	for _, p := range points {
		assert.InDelta(t, 42.0, p.PredictedMemoryUsagePercent, 1e-9)
	}
	assert.Equal(t, "2026-03-01", points[0].Day)
}

func TestForecastEmpty(t *testing.T) {
	points := Forecast(nil, 7)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestFitLine(t *testing.T) {
	intercept, slope := fitLine(usageBuckets(5, 7, 9, 11))
	assert.InDelta(t, 3.0, intercept, 1e-9)
	assert.InDelta(t, 2.0, slope, 1e-9)
}

func record(name string, created time.Time, allocated, total float64) models.ClusterRecord {
	return models.ClusterRecord{
		ClusterName:          name,
		ClusterID:            "j-" + name,
		State:                "RUNNING",
		CreationTime:         created,
		AllocatedMemoryMB:    allocated,
		TotalMemoryMB:        total,
		YarnAvailablePercent: 60,
		RemainingCapacityGB:  400,
	}
}

func TestAnalyzeComposesBundle(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var records []models.ClusterRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(fmt.Sprintf("c%d", i%3), base.AddDate(0, 0, i), float64(100+i*50), 1000))
	}
	records = append(records, record("hot", base.AddDate(0, 0, 9), 2000, 1000))

	cfg := config.DefaultConfig()
	cfg.ForecastHorizon = 5
	sink := diag.NewCollector()

	bundle, err := New(cfg, sink).Analyze(records)
	require.NoError(t, err)

	assert.Len(t, bundle.Daily, 10)
	assert.Len(t, bundle.Weekly, 2)
	assert.Equal(t, 7, bundle.CurrentWeek.Days)
	assert.Equal(t, 3, bundle.PreviousWeek.Days)
	assert.Len(t, bundle.Health, 10)
	assert.Len(t, bundle.Anomalies, 3)
	assert.Len(t, bundle.Forecast, 5)
	assert.NotEmpty(t, bundle.HealthCategory)
	assert.NotNil(t, bundle.Recommendations)

	require.Len(t, bundle.Warnings, 1)
	assert.Equal(t, diag.CodeOverAllocated, bundle.Warnings[0].Code)
	assert.Equal(t, 10, bundle.Warnings[0].Index)
	assert.Equal(t, 1, sink.Len(), "warnings are forwarded to the caller's sink")
}

func TestAnalyzeEmpty(t *testing.T) {
	bundle, err := New(nil, nil).Analyze(nil)
	require.NoError(t, err)

	assert.Empty(t, bundle.Daily)
	assert.Equal(t, models.WeeklyKPIs{}, bundle.CurrentWeek)
	assert.Equal(t, models.KPIDeltas{}, bundle.Deltas)
	assert.Empty(t, bundle.Forecast)
	assert.Empty(t, bundle.Anomalies)
	assert.Empty(t, bundle.HealthCategory)
	assert.Empty(t, bundle.Warnings)
}

func TestAnalyzeRejectsNegativeSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ForecastHorizon = -1
	_, err := New(cfg, nil).Analyze(nil)
	assert.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.TopAnomalies = -1
	_, err = New(cfg, nil).Analyze(nil)
	assert.Error(t, err)
}
