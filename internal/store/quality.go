package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
)

// ColumnCompleteness is the share of monuments with a non-empty column.
type ColumnCompleteness struct {
	Column  string  `json:"column"`
	Filled  int64   `json:"filled"`
	Total   int64   `json:"total"`
	Percent float64 `json:"percent"`
}

// OrphanCheck counts satellite rows whose parent row does not exist.
type OrphanCheck struct {
	Table   string `json:"table"`
	Column  string `json:"column"`
	Parent  string `json:"parent"`
	Orphans int64  `json:"orphans"`
	Pass    bool   `json:"pass"`
}

// MetricSummary describes the rating distribution reported by one provider.
type MetricSummary struct {
	Source    model.Source `json:"source"`
	Records   int64        `json:"records"`
	MinRating *float64     `json:"min_rating,omitempty"`
	AvgRating *float64     `json:"avg_rating,omitempty"`
	MaxRating *float64     `json:"max_rating,omitempty"`
}

// QualityReport is the result of a database audit.
type QualityReport struct {
	Monuments    int64                `json:"monuments"`
	Completeness []ColumnCompleteness `json:"completeness"`
	Orphans      []OrphanCheck        `json:"orphans"`
	Metrics      []MetricSummary      `json:"metrics"`
}

// Passed reports whether every referential integrity check passed.
func (r QualityReport) Passed() bool {
	for _, o := range r.Orphans {
		if !o.Pass {
			return false
		}
	}
	return true
}

var completenessColumns = []string{
	"name", "url", "latitude", "longitude", "address", "city", "category",
	"description", "website", "opening_hours", "phone", "encyclopedia_url", "map_url",
	"price_level", "ticket_price", "visiting_services",
}

// foreignKey joins a satellite table t to its parent p; key is a parent
// column that is never null on an existing row.
type foreignKey struct {
	table, column string
	parent, key   string
	on            string
}

var foreignKeys = []foreignKey{
	{"provider_metrics", "monument_id", "monuments", "id", "t.monument_id = p.id"},
	{"provider_places", "monument_id", "monuments", "id", "t.monument_id = p.id"},
	{"field_provenance", "monument_id", "monuments", "id", "t.monument_id = p.id"},
	{"adjudications", "record_id", "monuments", "id", "t.record_id = p.id"},
	{"provider_reviews", "monument_id", "monuments", "id", "t.monument_id = p.id"},
	{"provider_reviews", "source_id", "provider_places", "source_id", "t.source = p.source AND t.source_id = p.source_id"},
}

// rowFunc runs a single-row query and scans it into dest.
type rowFunc func(ctx context.Context, query string, dest ...any) error

func buildQualityReport(ctx context.Context, queryRow rowFunc) (*QualityReport, error) {
	report := &QualityReport{}

	sums := make([]string, len(completenessColumns))
	for i, c := range completenessColumns {
		sums[i] = fmt.Sprintf("COALESCE(SUM(CASE WHEN %s IS NOT NULL AND CAST(%s AS TEXT) <> '' THEN 1 ELSE 0 END), 0)", c, c)
	}
	filled := make([]int64, len(completenessColumns))
	dest := []any{&report.Monuments}
	for i := range filled {
		dest = append(dest, &filled[i])
	}
	q := "SELECT COUNT(*), " + strings.Join(sums, ", ") + " FROM monuments"
	if err := queryRow(ctx, q, dest...); err != nil {
		return nil, eris.Wrap(err, "store: completeness")
	}
	for i, c := range completenessColumns {
		cc := ColumnCompleteness{Column: c, Filled: filled[i], Total: report.Monuments}
		if cc.Total > 0 {
			cc.Percent = float64(cc.Filled) * 100 / float64(cc.Total)
		}
		report.Completeness = append(report.Completeness, cc)
	}

	for _, fk := range foreignKeys {
		check := OrphanCheck{Table: fk.table, Column: fk.column, Parent: fk.parent}
		q := fmt.Sprintf(
			"SELECT COUNT(*) FROM %s t LEFT JOIN %s p ON %s WHERE p.%s IS NULL",
			fk.table, fk.parent, fk.on, fk.key,
		)
		if err := queryRow(ctx, q, &check.Orphans); err != nil {
			return nil, eris.Wrapf(err, "store: orphan check %s", fk.table)
		}
		check.Pass = check.Orphans == 0
		report.Orphans = append(report.Orphans, check)
	}

	for _, src := range model.ExternalSources {
		ms := MetricSummary{Source: src}
		q := fmt.Sprintf(
			"SELECT COUNT(*), MIN(rating), AVG(rating), MAX(rating) FROM provider_metrics WHERE source = '%s'",
			src,
		)
		if err := queryRow(ctx, q, &ms.Records, &ms.MinRating, &ms.AvgRating, &ms.MaxRating); err != nil {
			return nil, eris.Wrapf(err, "store: metric summary %s", src)
		}
		report.Metrics = append(report.Metrics, ms)
	}
	return report, nil
}
