// Package tabular reads uploaded CSV and XLSX files into an in-memory table
// and writes augmented tables back in the format they arrived in.
package tabular

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies the on-disk representation of a table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Dialect records how a delimited file was written so it can be reproduced.
type Dialect struct {
	Delimiter rune   `json:"delimiter"`
	CRLF      bool   `json:"crlf"`
	Encoding  string `json:"encoding,omitempty"` // WHATWG label; empty = UTF-8
	BOM       bool   `json:"bom,omitempty"`
	Sheet     string `json:"sheet,omitempty"` // xlsx only
}

// Row maps a header field to its raw cell value. Missing fields read as empty.
type Row map[string]string

// Get returns the value for field, or "" when the row has none.
func (r Row) Get(field string) string {
	return r[field]
}

// Table is a header plus the rows keyed by it.
type Table struct {
	Header  []string
	Rows    []Row
	Format  Format
	Dialect Dialect
}

// ReadOptions configures Read.
type ReadOptions struct {
	// Encoding names the input charset (e.g. "windows-1252"). Empty means
	// UTF-8 with an optional byte order mark.
	Encoding string
	// Sheet selects an xlsx sheet by name; empty means the first sheet.
	Sheet string
}

// HasField reports whether field appears in the header.
func (t *Table) HasField(field string) bool {
	for _, h := range t.Header {
		if h == field {
			return true
		}
	}
	return false
}

// Column returns the value of field for every row, in row order.
func (t *Table) Column(field string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Get(field)
	}
	return out
}

// FormatFor picks the table format from a file name.
func FormatFor(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Read parses r as a table. name is only used to choose the format.
// Blank lines or sheet rows between data rows become empty Rows so every row
// keeps its position; blank rows after the last data row are dropped.
func Read(r io.Reader, name string, opts ReadOptions) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: read %s", name)
	}

	var t *Table
	switch FormatFor(name) {
	case FormatXLSX:
		t, err = readXLSX(data, opts)
	default:
		t, err = readDelimited(data, opts)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: parse %s", name)
	}
	return t, nil
}

// ReadFile opens and parses the file at path.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open file")
	}
	defer f.Close() //nolint:errcheck

	return Read(f, filepath.Base(path), opts)
}

// Write serializes the table in its original format and dialect.
func (t *Table) Write(w io.Writer) error {
	switch t.Format {
	case FormatXLSX:
		return writeXLSX(w, t)
	default:
		return writeDelimited(w, t)
	}
}

// Bytes serializes the table into memory.
func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the table to path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "tabular: create output file")
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "tabular: close output file")
}

// ContentType returns the MIME type used when offering the table for download.
func (t *Table) ContentType() string {
	if t.Format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// OutputFilename inserts suffix before the extension of name:
// "grants.csv" becomes "grants-geo.csv" for suffix "-geo".
func OutputFilename(name, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

func rowsFromRecords(header []string, records [][]string) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(header))
		for i, field := range header {
			if i < len(rec) {
				row[field] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func recordFromRow(header []string, row Row) []string {
	rec := make([]string, len(header))
	for i, field := range header {
		rec[i] = row.Get(field)
	}
	return rec
}
