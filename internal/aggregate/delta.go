package aggregate

import (
	"math"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// Delta is the percentage change from previous to current. A zero previous
// value yields 0 when current is also zero and 100 otherwise.
func Delta(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / math.Abs(previous) * 100
}

// Deltas applies Delta to every KPI
func Deltas(current, previous models.WeeklyKPIs) models.KPIDeltas {
	return models.KPIDeltas{
		MemoryUsagePercent:   Delta(current.AvgMemoryUsagePercent, previous.AvgMemoryUsagePercent),
		YarnAvailablePercent: Delta(current.AvgYarnAvailablePercent, previous.AvgYarnAvailablePercent),
		RuntimeHours:         Delta(current.AvgRuntimeHours, previous.AvgRuntimeHours),
		RemainingCapacityGB:  Delta(current.AvgRemainingCapacityGB, previous.AvgRemainingCapacityGB),
		UnhealthyNodes:       Delta(current.AvgUnhealthyNodes, previous.AvgUnhealthyNodes),
		ClusterCount:         Delta(float64(current.ClusterCount), float64(previous.ClusterCount)),
	}
}
