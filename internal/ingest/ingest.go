// Package ingest loads base records and candidate records from CSV, JSON
// and XLSX files.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/model"
)

// Format is a supported input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
}

// LoadBaseRecords reads primary-source records from path.
func LoadBaseRecords(ctx context.Context, path string) ([]model.BaseRecord, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var records []model.BaseRecord
	switch format {
	case FormatJSON:
		records, err = readJSONFile[model.BaseRecord](ctx, path)
	case FormatCSV:
		var rows []baseRow
		if rows, err = readCSVFile[baseRow](path); err == nil {
			records = baseRecords(rows)
		}
	case FormatXLSX:
		var rows []baseRow
		if rows, err = readXLSXFile[baseRow](path); err == nil {
			records = baseRecords(rows)
		}
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return nil, eris.Errorf("ingest: %s: record %d has no id", path, i+1)
		}
		if seen[r.ID] {
			return nil, eris.Errorf("ingest: %s: duplicate id %q", path, r.ID)
		}
		seen[r.ID] = true
	}
	zap.L().Info("ingest: loaded base records", zap.String("path", path), zap.Int("count", len(records)))
	return records, nil
}

// LoadCandidates reads candidate records for one source from path. Every
// candidate is stamped with src; rows without a base id or source id are
// rejected.
func LoadCandidates(ctx context.Context, path string, src model.Source) ([]model.CandidateRecord, error) {
	if !src.Valid() {
		return nil, eris.Errorf("ingest: unknown source %q", src)
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var cands []model.CandidateRecord
	switch format {
	case FormatJSON:
		cands, err = readJSONFile[model.CandidateRecord](ctx, path)
	case FormatCSV:
		var rows []candidateRow
		if rows, err = readCSVFile[candidateRow](path); err == nil {
			cands = candidateRecords(rows)
		}
	case FormatXLSX:
		var rows []candidateRow
		if rows, err = readXLSXFile[candidateRow](path); err == nil {
			cands = candidateRecords(rows)
		}
	}
	if err != nil {
		return nil, err
	}

	for i := range cands {
		cands[i].Source = src
		if cands[i].BaseID == "" || cands[i].SourceID == "" {
			return nil, eris.Errorf("ingest: %s: candidate %d needs base_id and source_id", path, i+1)
		}
	}
	zap.L().Info("ingest: loaded candidates",
		zap.String("path", path),
		zap.String("source", string(src)),
		zap.Int("count", len(cands)),
	)
	return cands, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	return f, nil
}
