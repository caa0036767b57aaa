package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadCells reads unlabelled cells for bulk classification: every field of
// a CSV/TSV file, every cell of the first HTML table, or one cell per line
// of anything else.
func ReadCells(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSVCells(f, ',')
	case ".tsv":
		return readCSVCells(f, '\t')
	case ".html", ".htm":
		rows, err := readTable(f)
		if err != nil {
			return nil, err
		}
		var cells []string
		for _, row := range rows {
			if row.header {
				continue
			}
			cells = append(cells, row.cells...)
		}
		return cells, nil
	default:
		return ReadLines(f)
	}
}

// ReadLines returns each line of r without its line ending. Empty lines
// are kept: an empty cell is still a cell.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		out = append(out, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	return out, scanner.Err()
}

func readCSVCells(r io.Reader, comma rune) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	var cells []string
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return cells, nil
		}
		if err != nil {
			return nil, err
		}
		cells = append(cells, fields...)
	}
}
