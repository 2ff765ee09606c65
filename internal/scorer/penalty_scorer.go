package scorer

import (
	"math"

	"github.com/ppiankov/clusterpulse/internal/metrics"
	"github.com/ppiankov/clusterpulse/internal/models"
)

// Fixed thresholds and weights of the penalty formula.
const (
	UsageThreshold     = 80.0
	YarnThreshold      = 30.0
	CapacityThresholdG = 200.0

	usageWeight     = 1.2
	yarnWeight      = 1.5
	capacityWeight  = 0.1
	unhealthyWeight = 2.0
)

// PenaltyScorer scores a day as 100 minus weighted threshold penalties
type PenaltyScorer struct{}

// Score calculates a score for a daily bucket (0 - 100)
func (s *PenaltyScorer) Score(bucket models.DailyBucket) float64 {
	penalty := 0.0

	// Factor 1: memory pressure above 80%
	penalty += math.Max(0, bucket.AvgMemoryUsagePercent-UsageThreshold) * usageWeight

	// Factor 2: YARN memory available below 30%
	penalty += math.Max(0, YarnThreshold-bucket.AvgYarnAvailablePercent) * yarnWeight

	// Factor 3: remaining capacity below 200 GB
	penalty += math.Max(0, CapacityThresholdG-bucket.AvgRemainingCapacityGB) * capacityWeight

	// Factor 4: unhealthy nodes
	penalty += bucket.AvgUnhealthyNodes * unhealthyWeight

	return metrics.Clamp(100-penalty, 0, 100)
}

// Categorize returns a category based on the score
func (s *PenaltyScorer) Categorize(score float64) string {
	if score >= 80 {
		return CategoryHealthy
	} else if score >= 50 {
		return CategoryDegraded
	} else {
		return CategoryCritical
	}
}
