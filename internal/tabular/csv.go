package tabular

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters are tried in order; ties go to the earlier entry.
var candidateDelimiters = []rune{',', '\t', ';', '|'}

func readDelimited(data []byte, opts ReadOptions) (*Table, error) {
	d := Dialect{Encoding: opts.Encoding}

	if bytes.HasPrefix(data, utf8BOM) {
		d.BOM = true
		data = data[len(utf8BOM):]
	}
	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unsupported encoding %q", opts.Encoding)
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: decode %s", opts.Encoding)
		}
		data = decoded
	}

	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
		d.CRLF = i > 0 && data[i-1] == '\r'
	}
	d.Delimiter = DetectDelimiter(firstLine)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = d.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: file is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	// encoding/csv skips empty lines. Interior blank lines are put back as
	// empty records so row positions survive a round trip; trailing ones are
	// dropped.
	var records [][]string
	offset := reader.InputOffset()
	lastLine := bytes.Count(data[:offset], []byte{'\n'})
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		line, _ := reader.FieldPos(0)
		for blank := line - lastLine - 1; blank > 0; blank-- {
			records = append(records, nil)
		}
		records = append(records, rec)

		next := reader.InputOffset()
		lastLine += bytes.Count(data[offset:next], []byte{'\n'})
		offset = next
	}

	return &Table{
		Header:  header,
		Rows:    rowsFromRecords(header, records),
		Format:  FormatCSV,
		Dialect: d,
	}, nil
}

// DetectDelimiter returns the candidate delimiter occurring most often
// outside quotes in line, or ',' when none occurs.
func DetectDelimiter(line []byte) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, c := range string(line) {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[c]++
		}
	}

	best, bestCount := ',', 0
	for _, c := range candidateDelimiters {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func writeDelimited(w io.Writer, t *Table) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if t.Dialect.Delimiter != 0 {
		cw.Comma = t.Dialect.Delimiter
	}
	cw.UseCRLF = t.Dialect.CRLF

	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(recordFromRow(t.Header, row)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}

	out := buf.Bytes()
	if t.Dialect.Encoding != "" {
		enc, err := htmlindex.Get(t.Dialect.Encoding)
		if err != nil {
			return eris.Wrapf(err, "csv: unsupported encoding %q", t.Dialect.Encoding)
		}
		out, err = encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes(out)
		if err != nil {
			return eris.Wrapf(err, "csv: encode %s", t.Dialect.Encoding)
		}
	}

	if t.Dialect.BOM {
		out = append(append([]byte{}, utf8BOM...), out...)
	}

	_, err := w.Write(out)
	return eris.Wrap(err, "csv: write output")
}
