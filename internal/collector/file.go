package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// StdinInput names standard input in an input list
const StdinInput = "-"

// FileSource reads upload documents from files or stdin
type FileSource struct {
	paths       []string
	stdin       io.Reader
	concurrency int
}

// NewFileSource creates a file source. Paths equal to "-" read stdin.
func NewFileSource(paths []string, stdin io.Reader, concurrency int) *FileSource {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &FileSource{paths: paths, stdin: stdin, concurrency: concurrency}
}

// Collect decodes every input concurrently. Batches come back in input
// order; the first failing input in that order is reported.
func (s *FileSource) Collect(ctx context.Context) ([]Batch, error) {
	if len(s.paths) == 0 {
		return nil, fmt.Errorf("at least one --input is required for the file source")
	}
	stdinUses := 0
	for _, path := range s.paths {
		if path == StdinInput {
			stdinUses++
		}
	}
	if stdinUses > 1 {
		return nil, fmt.Errorf("invalid inputs: stdin may be given only once")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workers := s.concurrency
	if workers > len(s.paths) {
		workers = len(s.paths)
	}
	pool := NewWorkerPool(workers)
	pool.Start(ctx)

	go func() {
		for i, path := range s.paths {
			if !pool.Submit(decodeJob{index: i, name: path, load: s.loader(path)}) {
				break
			}
		}
		pool.Stop()
	}()

	batches := make([]Batch, len(s.paths))
	errs := make([]error, len(s.paths))
	received := 0
	for res := range pool.Results() {
		batches[res.index] = res.batch
		errs[res.index] = res.err
		received++
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if received < len(s.paths) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("decoded %d of %d inputs", received, len(s.paths))
	}

	slog.Debug("inputs decoded", slog.Int("inputs", len(batches)))
	return batches, nil
}

// Close is a no-op for file sources
func (s *FileSource) Close() error {
	return nil
}

func (s *FileSource) loader(path string) func() ([]byte, error) {
	if path == StdinInput {
		return func() ([]byte, error) {
			if s.stdin == nil {
				return nil, fmt.Errorf("stdin is not available")
			}
			data, err := io.ReadAll(s.stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			return data, nil
		}
	}
	return func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input %s: %w", path, err)
		}
		return data, nil
	}
}
