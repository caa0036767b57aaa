package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// tableRow is one <tr> of a table.
type tableRow struct {
	cells  []string
	header bool // every cell is a <th>
}

// ReadHTMLTable reads samples from the first <table> of an HTML document.
// The first cell of each row is the text and the second the label; header
// rows are skipped.
func ReadHTMLTable(r io.Reader, log *slog.Logger) ([]shape.Sample, error) {
	rows, err := readTable(r)
	if err != nil {
		return nil, err
	}

	var (
		samples []shape.Sample
		index   []int
	)
	for i, row := range rows {
		if row.header || len(row.cells) < 2 {
			continue
		}
		samples = append(samples, shape.Sample{Text: row.cells[0], Label: strings.TrimSpace(row.cells[1])})
		index = append(index, i+1)
	}
	return keep(log, samples, func(i int) string { return fmt.Sprintf("table row %d", index[i]) }), nil
}

func readTable(r io.Reader) ([]tableRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	table := find(doc, "table")
	if table == nil {
		return nil, nil
	}

	var rows []tableRow
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" && n != table {
			return // nested tables are not part of this one
		}
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, readRow(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows, nil
}

func readRow(tr *html.Node) tableRow {
	row := tableRow{header: true}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		if c.Data == "td" {
			row.header = false
		}
		row.cells = append(row.cells, textOf(c))
	}
	if len(row.cells) == 0 {
		row.header = false
	}
	return row
}

// textOf returns the concatenated text below n with surrounding space
// trimmed.
func textOf(n *html.Node) string {
	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(n)
	return strings.TrimSpace(buf.String())
}

func find(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, tag); found != nil {
			return found
		}
	}
	return nil
}
