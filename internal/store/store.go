// Package store persists monuments, their provider satellites, field
// provenance and adjudication verdicts.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
)

// ErrUnknownRecord is returned when a satellite row references a monument
// id that is not stored.
var ErrUnknownRecord = eris.New("store: unknown base record")

// ErrUnknownView is returned by QueryView for names outside ViewNames.
var ErrUnknownView = eris.New("store: unknown view")

// Store defines the persistence interface for the reconciliation pipeline.
type Store interface {
	// Monuments
	LoadBaseRecords(ctx context.Context) ([]model.BaseRecord, error)
	SaveMergedRecords(ctx context.Context, records []model.BaseRecord) error

	// Satellites
	RecordProvenance(ctx context.Context, runID string, changes []model.FieldChange) error
	SaveProviderPlaces(ctx context.Context, runID string, decisions []model.MatchDecision) error

	// Adjudication cache
	GetVerdict(ctx context.Context, key model.DecisionKey) (*model.Verdict, error)
	PutVerdict(ctx context.Context, key model.DecisionKey, v model.Verdict) error

	// Reporting
	QueryView(ctx context.Context, name string) (*Table, error)
	Quality(ctx context.Context) (*QualityReport, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Table is a generic tabular query result.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// distinctRecordIDs returns the referenced monument ids in first-seen order.
func distinctRecordIDs[T any](items []T, id func(T) string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		k := id(it)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
