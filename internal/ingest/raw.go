package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// RawRecord is one entry of an upload document, before validation.
// Pointer fields distinguish absent/null values from zero values.
type RawRecord struct {
	ClusterName                      *string  `json:"ClusterName"`
	ClusterID                        *string  `json:"ClusterId"`
	CreationDateTime                 *string  `json:"CreationDateTime"`
	EndDateTime                      *string  `json:"EndDateTime"`
	MinCapacityRemainingGB           *float64 `json:"MinCapacityRemainingGB"`
	MinYARNMemoryAvailablePercentage *float64 `json:"MinYARNMemoryAvailablePercentage"`
	MaxMemoryAllocatedMB             *float64 `json:"MaxMemoryAllocatedMB"`
	MaxMemoryTotalMB                 *float64 `json:"MaxMemoryTotalMB"`
	MaxMRUnhealthyNodes              *float64 `json:"MaxMRUnhealthyNodes"`
	State                            *string  `json:"State"`

	// invalid is set by Decode for entries that are not objects or carry a
	// field of the wrong JSON type. Normalize applies the batch policy to it.
	invalid *ValidationError
}

// Err reports why Decode could not read the entry, or nil
func (r RawRecord) Err() error {
	if r.invalid == nil {
		return nil
	}
	return r.invalid
}

var (
	// ErrEmptyUpload is returned for blank documents and empty arrays
	ErrEmptyUpload = errors.New("upload is empty")
	// ErrInvalidFormat is returned when the document is not a JSON object or array of objects
	ErrInvalidFormat = errors.New("invalid upload format")
)

// ValidationError identifies the entry that failed validation
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid record at index %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid record at index %d: field %s %s", e.Index, e.Field, e.Reason)
}

var utf8BOM = []byte("\xEF\xBB\xBF")

// Decode parses an upload document holding either a single object or an
// array of objects. Syntax errors are reported as ErrInvalidFormat. An entry
// that is not an object or whose fields carry the wrong JSON type is still
// returned, with the *ValidationError available from its Err method.
func Decode(data []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 {
		return nil, ErrEmptyUpload
	}

	var entries []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if len(entries) == 0 {
			return nil, ErrEmptyUpload
		}
	case '{':
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("%w: malformed JSON object", ErrInvalidFormat)
		}
		entries = []json.RawMessage{json.RawMessage(trimmed)}
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array", ErrInvalidFormat)
	}

	raws := make([]RawRecord, len(entries))
	for i, entry := range entries {
		raws[i] = decodeEntry(i, entry)
	}
	return raws, nil
}

// decodeEntry matches keys with exact casing. encoding/json alone would also
// accept "clusterName" or "CLUSTERNAME".
func decodeEntry(index int, entry json.RawMessage) RawRecord {
	var raw RawRecord
	entry = bytes.TrimSpace(entry)
	if len(entry) == 0 || entry[0] != '{' {
		return RawRecord{invalid: &ValidationError{Index: index, Reason: "is not a JSON object"}}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return RawRecord{invalid: &ValidationError{Index: index, Reason: err.Error()}}
	}

	targets := []struct {
		key  string
		dest any
	}{
		{"ClusterName", &raw.ClusterName},
		{"ClusterId", &raw.ClusterID},
		{"CreationDateTime", &raw.CreationDateTime},
		{"EndDateTime", &raw.EndDateTime},
		{"MinCapacityRemainingGB", &raw.MinCapacityRemainingGB},
		{"MinYARNMemoryAvailablePercentage", &raw.MinYARNMemoryAvailablePercentage},
		{"MaxMemoryAllocatedMB", &raw.MaxMemoryAllocatedMB},
		{"MaxMemoryTotalMB", &raw.MaxMemoryTotalMB},
		{"MaxMRUnhealthyNodes", &raw.MaxMRUnhealthyNodes},
		{"State", &raw.State},
	}
	for _, target := range targets {
		value, ok := fields[target.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, target.dest); err != nil {
			reason := err.Error()
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				reason = fmt.Sprintf("has type %s, expected %s", typeErr.Value, typeErr.Type)
			}
			raw.invalid = &ValidationError{Index: index, Field: target.key, Reason: reason}
			return raw
		}
	}
	return raw
}
