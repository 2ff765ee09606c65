package diag

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnfNilSinkIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Warnf(nil, CodeInvalidEndTime, 0, "j-1", "bad end %q", "x")
	})
}

func TestCollectorKeepsOrder(t *testing.T) {
	c := NewCollector()
	Warnf(c, CodeInvalidCreationTime, 0, "j-1", "first")
	Warnf(c, CodeOverAllocated, 1, "j-2", "second %d", 2)

	warnings := c.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "first", warnings[0].Message)
	assert.Equal(t, "second 2", warnings[1].Message)
	assert.Equal(t, CodeOverAllocated, warnings[1].Code)
	assert.Equal(t, 2, c.Len())

	warnings[0].Message = "mutated"
	assert.Equal(t, "first", c.Warnings()[0].Message)
}

func TestSlogSinkAndTee(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c := NewCollector()

	sink := Tee(SlogSink{Logger: logger}, c, nil)
	sink.Warn(models.Warning{Code: CodeNegativeCapacity, Message: "negative capacity", ClusterID: "j-9", Index: 3})

	assert.Equal(t, 1, c.Len())
	out := buf.String()
	assert.Contains(t, out, "negative capacity")
	assert.Contains(t, out, "code=negative_capacity")
	assert.Contains(t, out, "cluster_id=j-9")
	assert.Contains(t, out, "index=3")
}
