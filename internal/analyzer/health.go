package analyzer

import (
	"sort"

	"github.com/ppiankov/clusterpulse/internal/aggregate"
	"github.com/ppiankov/clusterpulse/internal/metrics"
	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/internal/scorer"
)

// HealthScores scores every daily bucket in input order
func HealthScores(buckets []models.DailyBucket, s scorer.Scorer) []models.HealthScorePoint {
	if s == nil {
		s = scorer.NewScorer("")
	}
	points := make([]models.HealthScorePoint, 0, len(buckets))
	for _, b := range buckets {
		score := s.Score(b)
		points = append(points, models.HealthScorePoint{
			Day:      b.Day,
			Score:    score,
			Category: s.Categorize(score),
		})
	}
	return points
}

// WeeklyHealth is the unweighted mean of the latest seven daily scores
func WeeklyHealth(points []models.HealthScorePoint) float64 {
	latest := make([]models.HealthScorePoint, len(points))
	copy(latest, points)
	sort.SliceStable(latest, func(i, j int) bool {
		return latest[i].Day > latest[j].Day
	})
	if len(latest) > aggregate.WindowDays {
		latest = latest[:aggregate.WindowDays]
	}

	scores := make([]float64, 0, len(latest))
	for _, p := range latest {
		scores = append(scores, p.Score)
	}
	return metrics.Average(scores...)
}
