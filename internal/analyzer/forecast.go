package analyzer

import (
	"time"

	"github.com/ppiankov/clusterpulse/internal/aggregate"
	"github.com/ppiankov/clusterpulse/internal/metrics"
	"github.com/ppiankov/clusterpulse/internal/models"
)

// DefaultForecastHorizon is the number of days forecast when no horizon is given
const DefaultForecastHorizon = 7

// Forecast fits usage% = a + b*x by ordinary least squares over the buckets,
// x being the 1-indexed position, and predicts the next horizon days. Each
// prediction is clamped to [0,100].
func Forecast(buckets []models.DailyBucket, horizon int) []models.ForecastPoint {
	if horizon <= 0 {
		horizon = DefaultForecastHorizon
	}
	points := make([]models.ForecastPoint, 0, horizon)
	if len(buckets) == 0 {
		return points
	}

	intercept, slope := fitLine(buckets)
	last, err := time.Parse(aggregate.DayLayout, buckets[len(buckets)-1].Day)
	n := len(buckets)

	for k := 1; k <= horizon; k++ {
		x := float64(n + k)
		p := models.ForecastPoint{
			PredictedMemoryUsagePercent: metrics.Clamp(intercept+slope*x, 0, 100),
		}
		if err == nil {
			p.Day = last.AddDate(0, 0, k).Format(aggregate.DayLayout)
		}
		points = append(points, p)
	}
	return points
}

// fitLine returns intercept and slope. With fewer than two points or a zero
// denominator the slope is 0 and the intercept is the mean.
func fitLine(buckets []models.DailyBucket) (intercept, slope float64) {
	n := float64(len(buckets))
	var sumX, sumY, sumXY, sumXX float64
	for i, b := range buckets {
		x := float64(i + 1)
		y := b.AvgMemoryUsagePercent
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	mean := sumY / n
	denominator := n*sumXX - sumX*sumX
	if len(buckets) < 2 || denominator == 0 {
		return mean, 0
	}

	slope = (n*sumXY - sumX*sumY) / denominator
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}
