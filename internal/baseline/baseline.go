package baseline

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// DefaultPath is used when --update-baseline runs without --baseline
const DefaultPath = ".clusterpulse-baseline.json"

const fileVersion = 1

// Entry is one accepted anomaly. Metric and day are kept next to the
// fingerprint so the file stays readable in review.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	Metric      string `json:"metric"`
	Day         string `json:"day"`
}

// File is the persisted baseline document
type File struct {
	Version   int     `json:"version"`
	Anomalies []Entry `json:"anomalies"`
}

// Set holds accepted anomalies keyed by fingerprint
type Set map[string]Entry

// FromReport builds a set from every anomaly in the report
func FromReport(report *models.Report) Set {
	set := Set{}
	if report == nil {
		return set
	}
	for _, anomaly := range report.Anomalies {
		set.Add(anomaly)
	}
	return set
}

// Add records an anomaly
func (s Set) Add(anomaly models.Anomaly) {
	fp := Fingerprint(anomaly)
	s[fp] = Entry{Fingerprint: fp, Metric: anomaly.Metric, Day: anomaly.Day}
}

// Has reports whether the anomaly is already accepted
func (s Set) Has(anomaly models.Anomaly) bool {
	_, ok := s[Fingerprint(anomaly)]
	return ok
}

// Entries returns the set ordered by day, then metric
func (s Set) Entries() []Entry {
	entries := make([]Entry, 0, len(s))
	for _, e := range s {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.Day, b.Day),
			cmp.Compare(a.Metric, b.Metric),
			cmp.Compare(a.Fingerprint, b.Fingerprint),
		)
	})
	return entries
}

// Load reads a baseline file. A missing file is an empty baseline.
func Load(path string) (Set, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("baseline path is empty")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse baseline file %s: %w", path, err)
	}
	if file.Version > fileVersion {
		return nil, fmt.Errorf("unsupported baseline version: %d", file.Version)
	}

	set := make(Set, len(file.Anomalies))
	for _, e := range file.Anomalies {
		switch {
		case e.Metric != "" && e.Day != "":
			// hand-edited entries may omit or mistype the hash
			set.Add(models.Anomaly{Metric: e.Metric, Day: e.Day})
		case e.Fingerprint != "":
			set[e.Fingerprint] = e
		}
	}
	return set, nil
}

// Save writes the set, creating parent directories as needed
func Save(path string, set Set) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("baseline path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(File{Version: fileVersion, Anomalies: set.Entries()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write baseline file: %w", err)
	}
	return nil
}

// CountFindings returns the number of medium and high severity anomalies.
// Low severity rows only pad the top-N list.
func CountFindings(report *models.Report) int {
	if report == nil {
		return 0
	}
	n := 0
	for _, anomaly := range report.Anomalies {
		if anomaly.Severity != "low" {
			n++
		}
	}
	return n
}

// SuppressKnown drops accepted anomalies from the report and returns how
// many were dropped and how many findings remain.
func SuppressKnown(report *models.Report, known Set) (suppressed, remaining int) {
	if report == nil || len(known) == 0 {
		return 0, CountFindings(report)
	}
	before := len(report.Anomalies)
	report.Anomalies = slices.DeleteFunc(report.Anomalies, known.Has)
	return before - len(report.Anomalies), CountFindings(report)
}

// Fingerprint identifies an anomaly by metric and day. Value, z-score and
// severity may drift between runs without changing it.
func Fingerprint(anomaly models.Anomaly) string {
	sum := sha256.Sum256([]byte("anomaly\x1f" + anomaly.Metric + "\x1f" + anomaly.Day))
	return hex.EncodeToString(sum[:])
}
