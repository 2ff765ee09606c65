package filter

import (
	"strings"
	"time"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// Criteria narrows a record set. Zero-valued fields do not filter.
type Criteria struct {
	// ClusterName matches exactly. "all" disables it.
	ClusterName string
	// State matches case-insensitively. "all" disables it.
	State string
	// SearchTerm matches case-insensitive substrings of name or id.
	SearchTerm string
	// StartDate and EndDate bound an inclusive day range. Either may be nil.
	StartDate *time.Time
	EndDate   *time.Time
	// Exclude drops records whose cluster name it reports as excluded.
	Exclude func(clusterName string) bool
}

// Apply returns the records matching every supplied criterion
func Apply(records []models.ClusterRecord, c Criteria) []models.ClusterRecord {
	nameFilter := normalizeChoice(c.ClusterName)
	stateFilter := normalizeChoice(c.State)
	search := strings.ToLower(strings.TrimSpace(c.SearchTerm))

	var lower, upper time.Time
	dateFilter := c.StartDate != nil || c.EndDate != nil
	if c.StartDate != nil {
		lower = StartOfDay(*c.StartDate)
	}
	if c.EndDate != nil {
		upper = EndOfDay(*c.EndDate)
	}

	out := make([]models.ClusterRecord, 0, len(records))
	for _, r := range records {
		if c.Exclude != nil && c.Exclude(r.ClusterName) {
			continue
		}
		if nameFilter != "" && r.ClusterName != nameFilter {
			continue
		}
		if stateFilter != "" && !strings.EqualFold(r.State, stateFilter) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.ClusterName), search) &&
			!strings.Contains(strings.ToLower(r.ClusterID), search) {
			continue
		}
		if dateFilter && !overlapsRange(r, lower, upper) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// overlapsRange matches when the creation time or the end time falls inside
// [lower, upper]. A zero bound is open.
func overlapsRange(r models.ClusterRecord, lower, upper time.Time) bool {
	if r.HasValidCreation() && within(r.CreationTime, lower, upper) {
		return true
	}
	if r.HasValidEnd() && within(*r.EndTime, lower, upper) {
		return true
	}
	return false
}

func within(t, lower, upper time.Time) bool {
	if !lower.IsZero() && t.Before(lower) {
		return false
	}
	if !upper.IsZero() && t.After(upper) {
		return false
	}
	return true
}

func normalizeChoice(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, "all") {
		return ""
	}
	return trimmed
}

// StartOfDay returns midnight UTC of t's UTC day
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of t's UTC day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
