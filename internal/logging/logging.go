package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level maps the --verbose flag to a handler level
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// New returns a text logger writing to w
func New(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(verbose)}))
}

// Init installs the default slog logger on stderr. Warnings and errors only
// unless verbose, which enables debug output.
func Init(verbose bool) {
	slog.SetDefault(New(os.Stderr, verbose))
}
