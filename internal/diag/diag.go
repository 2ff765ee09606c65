// Package diag carries recoverable warnings out of the processing core.
//
// Core functions never log. They report data-quality conditions to a Sink
// passed in by the caller, which decides whether to keep, log or drop them.
package diag

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// Warning codes
const (
	CodeInvalidCreationTime = "invalid_creation_time"
	CodeInvalidEndTime      = "invalid_end_time"
	CodeEndBeforeCreation   = "end_before_creation"
	CodeOverAllocated       = "allocated_exceeds_total"
	CodeNegativeCapacity    = "negative_capacity"
	CodeNegativeUnhealthy   = "negative_unhealthy_nodes"
	CodeRejectedRecord      = "rejected_record"

	// CodeUndatedSkipped is raised by grouping, whose indexes are positions
	// in the analyzed record set rather than in the upload.
	CodeUndatedSkipped = "undated_record_skipped"
)

// Sink receives warnings
type Sink interface {
	Warn(w models.Warning)
}

// Warnf builds a warning and hands it to sink. A nil sink drops it.
func Warnf(sink Sink, code string, index int, clusterID string, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Warn(models.Warning{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		ClusterID: clusterID,
		Index:     index,
	})
}

// Collector keeps every warning in arrival order
type Collector struct {
	mu       sync.Mutex
	warnings []models.Warning
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{warnings: make([]models.Warning, 0)}
}

// Warn appends w
func (c *Collector) Warn(w models.Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Warnings returns a copy of the collected warnings
func (c *Collector) Warnings() []models.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Len returns the number of collected warnings
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}

// SlogSink forwards warnings to a slog logger at Warn level
type SlogSink struct {
	Logger *slog.Logger
}

// Warn logs w
func (s SlogSink) Warn(w models.Warning) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{slog.String("code", w.Code)}
	if w.ClusterID != "" {
		attrs = append(attrs, slog.String("cluster_id", w.ClusterID))
	}
	if w.Index >= 0 {
		attrs = append(attrs, slog.Int("index", w.Index))
	}
	logger.Warn(w.Message, attrs...)
}

type tee []Sink

func (t tee) Warn(w models.Warning) {
	for _, s := range t {
		if s != nil {
			s.Warn(w)
		}
	}
}

// Tee fans a warning out to every non-nil sink
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}
