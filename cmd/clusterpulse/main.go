package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
)

// Process exit codes. 4 is unused.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitNetwork    = 5
	ExitFindings   = 6
)

// FindingsError indicates the analysis completed but anomalies remain.
type FindingsError struct {
	Count int
}

func (e *FindingsError) Error() string {
	return fmt.Sprintf("%d anomalies detected", e.Count)
}

func main() {
	logging.Init(false)

	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	var fe *FindingsError
	if errors.As(err, &fe) {
		slog.Info("anomalies detected", slog.Int("count", fe.Count))
	} else {
		slog.Error("command failed", slog.String("error", err.Error()))
	}
	os.Exit(classifyError(err))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clusterpulse",
		Short: "Cluster usage analytics",
		Long: `ClusterPulse turns exported cluster usage records into daily and
weekly KPIs, health scores, anomalies and a short memory usage forecast.

Records come from JSON uploads, a ClickHouse table or a Kubernetes
ConfigMap. Reports are written as JSON, text or CSV.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewAnalyzeCmd())
	root.AddCommand(NewExportCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewVersionCmd())
	return root
}

// Message fragments checked in order when the error carries no typed cause
var exitMarkers = []struct {
	code    int
	markers []string
}{
	{ExitNotFound, []string{"not a directory", "does not exist", "not found", "no such file"}},
	{ExitNetwork, []string{"dial", "connection refused", "i/o timeout", "network is unreachable"}},
	{ExitInvalidArg, []string{"required", "invalid", "must be", "expected"}},
}

// classifyError maps a command error to a process exit code
func classifyError(err error) int {
	var (
		fe   *FindingsError
		verr *ingest.ValidationError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &fe):
		return ExitFindings
	case errors.Is(err, fs.ErrNotExist):
		return ExitNotFound
	case errors.As(err, &verr),
		errors.Is(err, ingest.ErrEmptyUpload),
		errors.Is(err, ingest.ErrInvalidFormat):
		return ExitInvalidArg
	}

	msg := strings.ToLower(err.Error())
	for _, group := range exitMarkers {
		for _, marker := range group.markers {
			if strings.Contains(msg, marker) {
				return group.code
			}
		}
	}
	return ExitInternal
}
