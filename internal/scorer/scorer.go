package scorer

import (
	"github.com/ppiankov/clusterpulse/internal/models"
)

// Health categories returned by Categorize
const (
	CategoryHealthy  = "healthy"
	CategoryDegraded = "degraded"
	CategoryCritical = "critical"
)

// Scorer interface for daily health scoring algorithms
type Scorer interface {
	Score(bucket models.DailyBucket) float64
	Categorize(score float64) string
}

// NewScorer creates a scorer based on the algorithm name
func NewScorer(algorithm string) Scorer {
	switch algorithm {
	case "penalty":
		return &PenaltyScorer{}
	default:
		return &PenaltyScorer{}
	}
}
