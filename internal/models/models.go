package models

import "time"

// ClusterRecord is one validated observation of an ephemeral compute cluster
type ClusterRecord struct {
	// ID is the synthetic import identity ("imported-<unixMillis>-<index>"),
	// distinct from the data's own ClusterID.
	ID      string `json:"id"`
	BatchID string `json:"batch_id"`

	ClusterName string `json:"cluster_name"`
	ClusterID   string `json:"cluster_id"`
	State       string `json:"state"`

	// CreationTime is zero when the source timestamp could not be parsed.
	CreationTime time.Time `json:"creation_time"`
	// EndTime is nil when absent. A present but unparseable end time is
	// stored as a pointer to the zero time.
	EndTime *time.Time `json:"end_time,omitempty"`

	RemainingCapacityGB  float64 `json:"remaining_capacity_gb"`
	YarnAvailablePercent float64 `json:"yarn_available_percent"`
	AllocatedMemoryMB    float64 `json:"allocated_memory_mb"`
	TotalMemoryMB        float64 `json:"total_memory_mb"`
	UnhealthyNodeCount   float64 `json:"unhealthy_node_count"`
}

// HasValidCreation reports whether the creation timestamp parsed
func (r ClusterRecord) HasValidCreation() bool {
	return !r.CreationTime.IsZero()
}

// HasValidEnd reports whether an end timestamp is present and parsed
func (r ClusterRecord) HasValidEnd() bool {
	return r.EndTime != nil && !r.EndTime.IsZero()
}

// DailyBucket holds the mean statistics of every record created on one UTC day
type DailyBucket struct {
	Day                     string   `json:"day"` // "2006-01-02"
	AvgMemoryUsagePercent   float64  `json:"avg_memory_usage_percent"`
	AvgYarnAvailablePercent float64  `json:"avg_yarn_available_percent"`
	AvgRuntimeHours         float64  `json:"avg_runtime_hours"`
	AvgRemainingCapacityGB  float64  `json:"avg_remaining_capacity_gb"`
	AvgUnhealthyNodes       float64  `json:"avg_unhealthy_nodes"`
	ClusterCount            int      `json:"cluster_count"`
	Clusters                []string `json:"clusters"`
}

// WeeklyKPIs is the reduction of a trailing seven-bucket window
type WeeklyKPIs struct {
	AvgMemoryUsagePercent   float64 `json:"avg_memory_usage_percent"`
	AvgYarnAvailablePercent float64 `json:"avg_yarn_available_percent"`
	AvgRuntimeHours         float64 `json:"avg_runtime_hours"`
	AvgRemainingCapacityGB  float64 `json:"avg_remaining_capacity_gb"`
	AvgUnhealthyNodes       float64 `json:"avg_unhealthy_nodes"`
	ClusterCount            int     `json:"cluster_count"`
	Days                    int     `json:"days"`
}

// KPIDeltas are the percentage changes between two WeeklyKPIs
type KPIDeltas struct {
	MemoryUsagePercent   float64 `json:"memory_usage_percent"`
	YarnAvailablePercent float64 `json:"yarn_available_percent"`
	RuntimeHours         float64 `json:"runtime_hours"`
	RemainingCapacityGB  float64 `json:"remaining_capacity_gb"`
	UnhealthyNodes       float64 `json:"unhealthy_nodes"`
	ClusterCount         float64 `json:"cluster_count"`
}

// WeeklyBucket groups daily buckets into one Sunday-anchored calendar week
type WeeklyBucket struct {
	WeekStart               string   `json:"week_start"`
	WeekEnd                 string   `json:"week_end"`
	AvgMemoryUsagePercent   float64  `json:"avg_memory_usage_percent"`
	AvgYarnAvailablePercent float64  `json:"avg_yarn_available_percent"`
	AvgRuntimeHours         float64  `json:"avg_runtime_hours"`
	AvgRemainingCapacityGB  float64  `json:"avg_remaining_capacity_gb"`
	AvgUnhealthyNodes       float64  `json:"avg_unhealthy_nodes"`
	ClusterCount            int      `json:"cluster_count"`
	Clusters                []string `json:"clusters"`
	Days                    int      `json:"days"`
}

// HealthScorePoint is the health score of a single day
type HealthScorePoint struct {
	Day      string  `json:"day"`
	Score    float64 `json:"score"`
	Category string  `json:"category"` // "healthy", "degraded", "critical"
}

// Anomaly is a (day, metric) pair that stands out from the metric's history
type Anomaly struct {
	Day      string  `json:"day"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	ZScore   float64 `json:"z_score"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Severity string  `json:"severity"` // "low", "medium", "high"
}

// ForecastPoint is a predicted memory usage for a future day
type ForecastPoint struct {
	Day                         string  `json:"day"`
	PredictedMemoryUsagePercent float64 `json:"predicted_memory_usage_percent"`
}

// Warning is a recovered computation-time or ingestion-time condition
type Warning struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ClusterID string `json:"cluster_id,omitempty"`
	Index     int    `json:"index"` // -1 when not tied to an input position
}

// Recommendation is an operator hint derived from the current week's KPIs
type Recommendation struct {
	Metric   string  `json:"metric"`
	Severity string  `json:"severity"`
	Value    float64 `json:"value"`
	Message  string  `json:"message"`
}
