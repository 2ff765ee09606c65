package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

const entryJSON = `{"ClusterName": "%s", "ClusterId": "j-%s", "State": "RUNNING", "CreationDateTime": "2026-03-01T10:00:00Z"}`

func entry(name string) string {
	return fmt.Sprintf(entryJSON, name, name)
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestFileSourceCollectKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		paths = append(paths, writeInput(t, dir, name+".json", "["+entry(name)+","+entry(name+"2")+"]"))
	}

	batches, err := NewFileSource(paths, nil, 3).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(batches) != len(paths) {
		t.Fatalf("expected %d batches, got %d", len(paths), len(batches))
	}
	for i, b := range batches {
		if b.Name != paths[i] {
			t.Fatalf("batch %d: expected %s, got %s", i, paths[i], b.Name)
		}
		if len(b.Records) != 2 {
			t.Fatalf("batch %d: expected 2 records, got %d", i, len(b.Records))
		}
	}
}

func TestFileSourceReadsStdin(t *testing.T) {
	batches, err := NewFileSource([]string{StdinInput}, strings.NewReader(entry("x")), 2).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Records) != 1 {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	if got := *batches[0].Records[0].ClusterName; got != "x" {
		t.Fatalf("expected cluster x, got %s", got)
	}
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "good.json", entry("a"))
	empty := writeInput(t, dir, "empty.json", "[]")
	broken := writeInput(t, dir, "broken.json", `{"ClusterName": `)

	cases := []struct {
		name    string
		paths   []string
		wantErr error
		wantMsg string
	}{
		{name: "no_inputs", paths: nil, wantMsg: "at least one --input"},
		{name: "stdin_twice", paths: []string{StdinInput, StdinInput}, wantMsg: "stdin may be given only once"},
		{name: "missing_file", paths: []string{good, filepath.Join(dir, "nope.json")}, wantMsg: "failed to read input"},
		{name: "empty_upload", paths: []string{good, empty}, wantErr: ingest.ErrEmptyUpload},
		{name: "first_failure_wins", paths: []string{broken, empty}, wantErr: ingest.ErrInvalidFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFileSource(tc.paths, strings.NewReader(""), 2).Collect(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q in %v", tc.wantMsg, err)
			}
		})
	}
}

func TestFileSourceCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "a.json", entry("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFileSource([]string{path, path, path}, nil, 1).Collect(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start(context.Background())

	go func() {
		pool.Submit(decodeJob{index: 0, name: "boom", load: func() ([]byte, error) { panic("bad loader") }})
		pool.Submit(decodeJob{index: 1, name: "ok", load: func() ([]byte, error) { return []byte(entry("a")), nil }})
		pool.Stop()
	}()

	results := map[int]decodeResult{}
	for res := range pool.Results() {
		results[res.index] = res
	}
	if results[0].err == nil || !strings.Contains(results[0].err.Error(), "panic") {
		t.Fatalf("expected panic error, got %v", results[0].err)
	}
	if results[1].err != nil || len(results[1].batch.Records) != 1 {
		t.Fatalf("expected decoded batch, got %+v", results[1])
	}
}

func TestWorkerPoolStopWithoutStart(t *testing.T) {
	pool := NewWorkerPool(0)
	pool.Stop()
	if pool.size != 1 {
		t.Fatalf("expected worker count to default to 1, got %d", pool.size)
	}
}

func TestNewCollectorSources(t *testing.T) {
	cfg := config.DefaultConfig()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("file source: %v", err)
	}
	if _, ok := c.(*FileSource); !ok {
		t.Fatalf("expected *FileSource, got %T", c)
	}

	cfg.Source = "s3"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected invalid source error")
	}
}
