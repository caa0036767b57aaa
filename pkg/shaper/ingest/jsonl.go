package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// record is one JSON line. Exports of labelling sessions carry a labels
// list instead of a single label; the first entry wins.
type record struct {
	Text   *string  `json:"text"`
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
}

// ReadJSONL reads one {"text": ..., "label": ...} object per line.
// Malformed lines are skipped with a warning; name is used in log lines.
func ReadJSONL(r io.Reader, name string, log *slog.Logger) ([]shape.Sample, error) {
	log = logger(log)

	var (
		samples []shape.Sample
		lines   []int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Warn("skipping malformed JSON", "file", name, "line", lineNum, "err", err)
			continue
		}
		if rec.Text == nil {
			log.Warn("skipping record without text", "file", name, "line", lineNum)
			continue
		}
		label := rec.Label
		if label == "" && len(rec.Labels) > 0 {
			label = rec.Labels[0]
		}
		samples = append(samples, shape.Sample{Text: *rec.Text, Label: label})
		lines = append(lines, lineNum)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return keep(log, samples, func(i int) string { return fmt.Sprintf("%s:%d", name, lines[i]) }), nil
}
