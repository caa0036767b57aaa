package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// ReadCSV reads text,label rows. A first row of exactly "text","label"
// (any case) is treated as a header. Extra columns are ignored.
func ReadCSV(r io.Reader, comma rune, log *slog.Logger) ([]shape.Sample, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	var (
		samples []shape.Sample
		rows    []int
	)
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if row == 1 && isHeader(fields) {
			continue
		}
		if len(fields) < 2 {
			continue
		}
		samples = append(samples, shape.Sample{Text: fields[0], Label: strings.TrimSpace(fields[1])})
		rows = append(rows, row)
	}

	return keep(log, samples, func(i int) string { return fmt.Sprintf("row %d", rows[i]) }), nil
}

func isHeader(fields []string) bool {
	return len(fields) >= 2 &&
		strings.EqualFold(strings.TrimSpace(fields[0]), "text") &&
		strings.EqualFold(strings.TrimSpace(fields[1]), "label")
}
