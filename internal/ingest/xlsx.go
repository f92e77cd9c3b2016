package ingest

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSXFile decodes the first sheet of a workbook into T. The first row
// is the header, as in the CSV layout.
func readXLSXFile[T any](path string) ([]T, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", path)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		if err := w.Write(cells); err != nil {
			return nil, eris.Wrap(err, "ingest: buffer xlsx row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "ingest: buffer xlsx")
	}

	rows, err := decodeCSV[T](&buf)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: %s", path)
	}
	return rows, nil
}
