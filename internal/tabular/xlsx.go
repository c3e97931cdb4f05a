package tabular

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const defaultSheetName = "Sheet1"

func readXLSX(data []byte, opts ReadOptions) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	// Rows before the header and after the last value are dropped; blank rows
	// in between are kept so row positions match the sheet.
	var records [][]string
	last := -1
	for _, row := range sheet.Rows {
		var cells []string
		blank := true
		if row != nil {
			cells = make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
				if cells[j] != "" {
					blank = false
				}
			}
		}
		if blank {
			if len(records) > 0 {
				records = append(records, nil)
			}
			continue
		}
		records = append(records, cells)
		last = len(records) - 1
	}
	if last < 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}
	records = records[:last+1]

	header := records[0]
	return &Table{
		Header:  header,
		Rows:    rowsFromRecords(header, records[1:]),
		Format:  FormatXLSX,
		Dialect: Dialect{Sheet: sheet.Name},
	}, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func writeXLSX(w io.Writer, t *Table) error {
	name := t.Dialect.Sheet
	if name == "" {
		name = defaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	appendRow(sheet, t.Header)
	for _, row := range t.Rows {
		appendRow(sheet, recordFromRow(t.Header, row))
	}

	return eris.Wrap(f.Write(w), "xlsx: write")
}

func appendRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
