// Package statement reads bank-statement exports for preview and for the
// bulk extraction prompt.
package statement

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PreviewRows is the number of data rows shown before processing.
const PreviewRows = 5

var ErrEmpty = errors.New("statement has no rows")

var utf8BOM = []byte("\xef\xbb\xbf")

// Table is a parsed statement: a header row and the data rows under it.
// Short rows are padded so every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Parse reads a delimited statement. The delimiter is sniffed from the
// header line (comma, semicolon or tab). Blank lines are skipped and rows of
// uneven width are tolerated.
func Parse(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Table{}, fmt.Errorf("read statement: %w", err)
	}
	if bytes.HasPrefix(head, utf8BOM) {
		head = head[len(utf8BOM):]
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return Table{}, fmt.Errorf("read statement: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse statement: %w", err)
	}

	var t Table
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = trimAll(rec)
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Header) == 0 || len(t.Rows) == 0 {
		return Table{}, ErrEmpty
	}

	width := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(t.Header) < width {
		t.Header = append(t.Header, fmt.Sprintf("Column %d", len(t.Header)+1))
	}
	for i, row := range t.Rows {
		for len(row) < width {
			row = append(row, "")
		}
		t.Rows[i] = trimAll(row)
	}
	return t, nil
}

// Head returns a table with at most n data rows.
func (t Table) Head(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Header: t.Header, Rows: t.Rows[:n]}
}

// Text serialises the whole table as comma-separated text, header first.
func (t Table) Text() string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(t.Header)
	_ = w.WriteAll(t.Rows)
	return b.String()
}

// Len is the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, f := range rec {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
