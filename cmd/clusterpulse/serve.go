package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/ppiankov/clusterpulse/pkg/config"
	"github.com/spf13/cobra"
)

// reportFiles are the files written by the json, text and csv formats
var reportFiles = []string{"report.json", "report.txt", "daily.csv"}

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	dir, port := defaults.OutputDir, defaults.ServerPort

	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Serve a report directory",
		Long: `Start a local HTTP server for a generated report directory.
Files are served at http://localhost:PORT/, the JSON report at /api/report
and a health check at /healthz.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				dir = args[0]
			}

			return runServe(cmd.Context(), dir, port)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", dir, "Directory to serve")
	cmd.Flags().IntVar(&port, "port", port, "Port to serve on")

	return cmd
}

func validateReportDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory not found: %s", dir)
		}
		return fmt.Errorf("failed to access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	for _, name := range reportFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("report not found in %s\nRun 'clusterpulse analyze' first to generate a report", dir)
}

func newServeRouter(dir string) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/report", handleReport(dir)).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(dir)))

	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleReport(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(filepath.Join(dir, "report.json"))
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "report.json not found", http.StatusNotFound)
				return
			}
			slog.Error("failed to read report", slog.String("error", err.Error()))
			http.Error(w, "failed to read report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

// runServe starts the HTTP server and stops it on SIGINT or SIGTERM
func runServe(ctx context.Context, dir string, port int) error {
	if err := validateReportDir(dir); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newServeRouter(dir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	url := "http://localhost:" + strconv.Itoa(port)
	fmt.Fprintf(os.Stderr, "Serving %s at %s (Ctrl+C to stop)\n", dir, url)
	slog.Debug("report server started",
		slog.String("url", url),
		slog.String("dir", dir),
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}
