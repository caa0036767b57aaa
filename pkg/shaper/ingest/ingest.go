// Package ingest reads labelled samples and unlabelled cells from files.
// Supported formats are JSON lines, CSV/TSV and HTML tables.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// Load reads samples from path, picking the format from its extension.
// Skipped records are reported to log; nil means slog.Default().
func Load(path string, log *slog.Logger) ([]shape.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var samples []shape.Sample
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson", ".json":
		samples, err = ReadJSONL(f, path, log)
	case ".csv":
		samples, err = ReadCSV(f, ',', log)
	case ".tsv":
		samples, err = ReadCSV(f, '\t', log)
	case ".html", ".htm":
		samples, err = ReadHTMLTable(f, log)
	default:
		return nil, fmt.Errorf("%s: unsupported extension %q: %w", path, ext, internalerr.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no valid samples found in %s: %w", path, internalerr.ErrEmptyTrainingSet)
	}
	return samples, nil
}

func logger(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// keep drops samples without a label, logging each one.
func keep(log *slog.Logger, samples []shape.Sample, where func(i int) string) []shape.Sample {
	out := samples[:0]
	for i, s := range samples {
		if s.Label == "" {
			logger(log).Warn("skipping sample without label", "at", where(i))
			continue
		}
		out = append(out, s)
	}
	return out
}
