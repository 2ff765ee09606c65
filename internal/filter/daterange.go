package filter

import (
	"fmt"
	"strings"
	"time"
)

// RangeType selects how a DateRange resolves
type RangeType string

const (
	RangeDaily  RangeType = "daily"
	RangeWeekly RangeType = "weekly"
	RangeCustom RangeType = "custom"
)

// DateRange is the date-range parameter object handed in by the
// presentation layer
type DateRange struct {
	Type      RangeType
	StartDate time.Time
	EndDate   time.Time
}

// ParseRangeType parses "daily", "weekly" or "custom"
func ParseRangeType(value string) (RangeType, error) {
	switch RangeType(strings.ToLower(strings.TrimSpace(value))) {
	case RangeDaily:
		return RangeDaily, nil
	case RangeWeekly:
		return RangeWeekly, nil
	case RangeCustom:
		return RangeCustom, nil
	default:
		return "", fmt.Errorf("invalid range type %q: must be daily, weekly or custom", value)
	}
}

// Resolve returns the inclusive start and end days of the range. Daily is
// the UTC day containing now, weekly the seven UTC days ending with it.
func (r DateRange) Resolve(now time.Time) (start, end time.Time, err error) {
	switch r.Type {
	case RangeDaily:
		return StartOfDay(now), EndOfDay(now), nil
	case RangeWeekly:
		return StartOfDay(now).AddDate(0, 0, -6), EndOfDay(now), nil
	case RangeCustom:
		if r.StartDate.IsZero() || r.EndDate.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("custom range requires both start and end dates")
		}
		start, end = StartOfDay(r.StartDate), EndOfDay(r.EndDate)
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("custom range start %s must be before end %s",
				start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid range type %q", r.Type)
	}
}

// Criteria returns c with the resolved range applied
func (r DateRange) Criteria(c Criteria, now time.Time) (Criteria, error) {
	start, end, err := r.Resolve(now)
	if err != nil {
		return c, err
	}
	c.StartDate = &start
	c.EndDate = &end
	return c, nil
}
