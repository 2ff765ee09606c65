package analyzer

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/clusterpulse/internal/aggregate"
	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/internal/scorer"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

// Analyzer turns cluster records into the analytics bundle
type Analyzer struct {
	config *config.Config
	scorer scorer.Scorer
	sink   diag.Sink
}

// New creates a new analyzer instance. Warnings raised during aggregation
// go to sink as well as into the returned bundle.
func New(cfg *config.Config, sink diag.Sink) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Analyzer{
		config: cfg,
		scorer: scorer.NewScorer(cfg.ScoringAlgorithm),
		sink:   sink,
	}
}

// Analyze aggregates records and derives every analytic over the result
func (a *Analyzer) Analyze(records []models.ClusterRecord) (*models.Bundle, error) {
	if a.config.ForecastHorizon < 0 {
		return nil, fmt.Errorf("invalid forecast horizon %d: must be >= 0", a.config.ForecastHorizon)
	}
	if a.config.TopAnomalies < 0 {
		return nil, fmt.Errorf("invalid anomaly limit %d: must be >= 0", a.config.TopAnomalies)
	}

	slog.Debug("starting analysis", slog.Int("records", len(records)))

	collected := diag.NewCollector()
	sink := diag.Tee(collected, a.sink)

	// 1. Daily buckets
	daily := aggregate.ByDay(records, sink)

	// 2. Calendar weeks and trailing windows
	current := aggregate.WeeklyKPIs(daily, 0)
	previous := aggregate.WeeklyKPIs(daily, 1)
	deltas := aggregate.Deltas(current, previous)

	// 3. Health
	health := HealthScores(daily, a.scorer)
	bundle := &models.Bundle{
		Daily:        daily,
		Weekly:       aggregate.CalendarWeeks(daily),
		CurrentWeek:  current,
		PreviousWeek: previous,
		Deltas:       deltas,
		Health:       health,
	}
	if len(health) > 0 {
		bundle.WeeklyHealth = WeeklyHealth(health)
		bundle.HealthCategory = a.scorer.Categorize(bundle.WeeklyHealth)
	}

	// 4. Anomalies, forecast and recommendations
	bundle.Anomalies = DetectAnomalies(daily, a.config.TopAnomalies)
	bundle.Forecast = Forecast(daily, a.config.ForecastHorizon)
	bundle.Recommendations = scorer.GenerateRecommendations(current, deltas)

	bundle.Warnings = collected.Warnings()

	slog.Debug("analysis complete",
		slog.Int("days", len(daily)),
		slog.Int("weeks", len(bundle.Weekly)),
		slog.Int("anomalies", len(bundle.Anomalies)),
		slog.Int("warnings", len(bundle.Warnings)),
	)

	return bundle, nil
}
