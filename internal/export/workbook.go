// Package export writes reconciliation output to analyst formats: an XLSX
// workbook of reporting views, a Parquet table of merged monuments and a
// point shapefile for GIS tools.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/store"
)

// maxSheetName is the Excel limit on worksheet names.
const maxSheetName = 31

// Reporter is the read side of the store used by Workbook.
type Reporter interface {
	QueryView(ctx context.Context, name string) (*store.Table, error)
	Quality(ctx context.Context) (*store.QualityReport, error)
}

// Workbook writes one sheet per view plus a quality sheet to path.
func Workbook(ctx context.Context, r Reporter, path string, views []string) error {
	f := xlsx.NewFile()

	for _, name := range views {
		tbl, err := r.QueryView(ctx, name)
		if err != nil {
			return eris.Wrapf(err, "export: query view %s", name)
		}
		if err := addTable(f, tbl); err != nil {
			return err
		}
	}

	report, err := r.Quality(ctx)
	if err != nil {
		return eris.Wrap(err, "export: quality report")
	}
	if err := addTable(f, qualityTable(report)); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	zap.L().Info("export: workbook written",
		zap.String("path", path),
		zap.Int("sheets", len(f.Sheets)),
	)
	return nil
}

func addTable(f *xlsx.File, tbl *store.Table) error {
	name := tbl.Name
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, col := range tbl.Columns {
		header.AddCell().SetString(col)
	}
	for _, vals := range tbl.Rows {
		row := sheet.AddRow()
		for _, v := range vals {
			setCell(row.AddCell(), v)
		}
	}
	return nil
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
		c.SetString("")
	case string:
		c.SetString(x)
	case []byte:
		c.SetString(string(x))
	case int:
		c.SetInt(x)
	case int32:
		c.SetInt64(int64(x))
	case int64:
		c.SetInt64(x)
	case float32:
		c.SetFloat(float64(x))
	case float64:
		c.SetFloat(x)
	case bool:
		c.SetBool(x)
	case time.Time:
		c.SetDateTime(x)
	default:
		c.SetString(fmt.Sprint(x))
	}
}

// qualityTable flattens the completeness and orphan checks into one sheet.
func qualityTable(r *store.QualityReport) *store.Table {
	t := &store.Table{
		Name:    "quality",
		Columns: []string{"check", "subject", "value", "status"},
	}
	for _, c := range r.Completeness {
		t.Rows = append(t.Rows, []any{"completeness", c.Column, c.Percent, "INFO"})
	}
	for _, o := range r.Orphans {
		t.Rows = append(t.Rows, []any{"orphans", o.Table + "." + o.Column, o.Orphans, passFail(o.Pass)})
	}
	for _, m := range r.Metrics {
		if m.AvgRating != nil {
			t.Rows = append(t.Rows, []any{"avg_rating", string(m.Source), *m.AvgRating, "INFO"})
		}
	}
	t.Rows = append(t.Rows, []any{"overall", "monuments", r.Monuments, passFail(r.Passed())})
	return t
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
