package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/clusterpulse/internal/models"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

// Supported output formats
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// Reporter interface for generating reports
type Reporter interface {
	Generate(report *models.Report) error
}

type reporter struct {
	config *config.Config
	stdout io.Writer
}

// Option customises a reporter
type Option func(*reporter)

// WithStdout redirects the console copy of the text report
func WithStdout(w io.Writer) Option {
	return func(r *reporter) { r.stdout = w }
}

// New returns a reporter for cfg.Format writing into cfg.OutputDir
func New(cfg *config.Config, opts ...Option) Reporter {
	r := &reporter{config: cfg, stdout: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate writes the report in the configured format
func (r *reporter) Generate(report *models.Report) error {
	switch r.config.Format {
	case FormatJSON, "":
		return WriteJSON(report, r.config)
	case FormatText:
		return writeText(report, r.config, r.stdout)
	case FormatCSV:
		return WriteCSV(report, r.config)
	default:
		return fmt.Errorf("invalid format %q: must be json, text or csv", r.config.Format)
	}
}

// ValidFormat reports whether format is supported
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatText, FormatCSV:
		return true
	default:
		return false
	}
}
