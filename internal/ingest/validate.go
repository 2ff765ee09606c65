package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/ppiankov/clusterpulse/internal/models"
)

// Policy decides what happens to a batch containing invalid entries
type Policy int

const (
	// AllOrNothing rejects the whole batch on the first invalid entry
	AllOrNothing Policy = iota
	// Partial keeps the valid entries and reports the invalid ones
	Partial
)

// Options configures Normalize
type Options struct {
	Policy Policy
	// Now stamps the synthetic identities. Defaults to time.Now.
	Now func() time.Time
	// Sink receives timestamp parse warnings. May be nil.
	Sink diag.Sink
}

// Result is the outcome of normalizing one batch
type Result struct {
	BatchID  string
	Records  []models.ClusterRecord
	Rejected []*ValidationError
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601-like timestamp
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", trimmed)
}

// Normalize validates raw entries and converts them into canonical records
func Normalize(raws []RawRecord, opts Options) (Result, error) {
	if len(raws) == 0 {
		return Result{}, ErrEmptyUpload
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	ingestedAt := now()

	result := Result{
		BatchID:  uuid.NewString(),
		Records:  make([]models.ClusterRecord, 0, len(raws)),
		Rejected: make([]*ValidationError, 0),
	}

	for i, raw := range raws {
		verr := raw.invalid
		if verr == nil {
			verr = checkRequired(i, raw)
		}
		if verr != nil {
			if opts.Policy == AllOrNothing {
				return Result{}, verr
			}
			result.Rejected = append(result.Rejected, verr)
			diag.Warnf(opts.Sink, diag.CodeRejectedRecord, i, stringValue(raw.ClusterID), "%s", verr.Error())
			continue
		}

		record := models.ClusterRecord{
			ID:                   fmt.Sprintf("imported-%d-%d", ingestedAt.UnixMilli(), i),
			BatchID:              result.BatchID,
			ClusterName:          strings.TrimSpace(*raw.ClusterName),
			ClusterID:            strings.TrimSpace(*raw.ClusterID),
			State:                strings.TrimSpace(*raw.State),
			RemainingCapacityGB:  floatValue(raw.MinCapacityRemainingGB),
			YarnAvailablePercent: floatValue(raw.MinYARNMemoryAvailablePercentage),
			AllocatedMemoryMB:    floatValue(raw.MaxMemoryAllocatedMB),
			TotalMemoryMB:        floatValue(raw.MaxMemoryTotalMB),
			UnhealthyNodeCount:   floatValue(raw.MaxMRUnhealthyNodes),
		}

		creation, err := ParseTimestamp(stringValue(raw.CreationDateTime))
		if err != nil {
			diag.Warnf(opts.Sink, diag.CodeInvalidCreationTime, i, record.ClusterID,
				"creation time of %s: %v", record.ClusterID, err)
		} else {
			record.CreationTime = creation
		}

		if raw.EndDateTime != nil && strings.TrimSpace(*raw.EndDateTime) != "" {
			end, err := ParseTimestamp(*raw.EndDateTime)
			if err != nil {
				diag.Warnf(opts.Sink, diag.CodeInvalidEndTime, i, record.ClusterID,
					"end time of %s: %v", record.ClusterID, err)
			}
			record.EndTime = &end
		}

		result.Records = append(result.Records, record)
	}

	return result, nil
}

func checkRequired(index int, raw RawRecord) *ValidationError {
	required := []struct {
		field string
		value *string
	}{
		{"ClusterName", raw.ClusterName},
		{"ClusterId", raw.ClusterID},
		{"State", raw.State},
	}
	for _, r := range required {
		if r.value == nil {
			return &ValidationError{Index: index, Field: r.field, Reason: "is required"}
		}
		if strings.TrimSpace(*r.value) == "" {
			return &ValidationError{Index: index, Field: r.field, Reason: "must not be empty"}
		}
	}
	return nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatValue(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
