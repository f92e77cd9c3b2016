package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// decodeCSV decodes every row of r into T. Header names are matched after
// trimming, lower-casing and replacing spaces with underscores; unknown
// columns are ignored.
func decodeCSV[T any](r io.Reader) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: csv decoder")
	}

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode csv line %d", len(out)+2)
		}
		out = append(out, v)
	}
	return out, nil
}

func readCSVFile[T any](path string) ([]T, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	rows, err := decodeCSV[T](f)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: %s", path)
	}
	return rows, nil
}
