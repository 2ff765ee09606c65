package models

import "time"

// Bundle is the complete analytics output for one record set
type Bundle struct {
	Daily           []DailyBucket      `json:"daily"`
	Weekly          []WeeklyBucket     `json:"weekly"`
	CurrentWeek     WeeklyKPIs         `json:"current_week"`
	PreviousWeek    WeeklyKPIs         `json:"previous_week"`
	Deltas          KPIDeltas          `json:"deltas"`
	Health          []HealthScorePoint `json:"health"`
	WeeklyHealth    float64            `json:"weekly_health"`
	HealthCategory  string             `json:"health_category"`
	Anomalies       []Anomaly          `json:"anomalies"`
	Forecast        []ForecastPoint    `json:"forecast"`
	Recommendations []Recommendation   `json:"recommendations"`
	Warnings        []Warning          `json:"warnings"`
}

// Report is the complete output structure
type Report struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version"`
	Timestamp string   `json:"timestamp"`
	Metadata  Metadata `json:"metadata"`
	Bundle
	Records []ClusterRecord `json:"records,omitempty"`
}

// Metadata contains report generation info
type Metadata struct {
	GeneratedAt          time.Time `json:"generated_at"`
	Source               string    `json:"source"`
	Batches              int       `json:"batches"`
	TotalRecords         int       `json:"total_records"`
	FilteredRecords      int       `json:"filtered_records"`
	RejectedRecords      int       `json:"rejected_records"`
	RangeStart           string    `json:"range_start,omitempty"`
	RangeEnd             string    `json:"range_end,omitempty"`
	ForecastHorizon      int       `json:"forecast_horizon"`
	SuppressedByBaseline int       `json:"suppressed_by_baseline"`
	AnalysisDuration     string    `json:"analysis_duration"`
	Version              string    `json:"version"`
}
