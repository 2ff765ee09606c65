package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([smhdw])$`)

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses durations such as "30d", "2w", "168h" or "5m". Values
// without a single day or week unit fall back to time.ParseDuration.
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	matches := durationPattern.FindStringSubmatch(trimmed)
	if matches == nil {
		d, err := time.ParseDuration(trimmed)
		if err != nil {
			return 0, err
		}
		if d < 0 {
			return 0, fmt.Errorf("duration %q must not be negative", s)
		}
		return d, nil
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}
	return time.Duration(value) * durationUnits[matches[2]], nil
}
