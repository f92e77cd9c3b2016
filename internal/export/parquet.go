package export

import (
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/model"
)

// MonumentRow is the flat Parquet layout of a merged monument. Provider
// metrics are kept in per-source columns and never combined.
type MonumentRow struct {
	ID               string   `parquet:"id"`
	Name             string   `parquet:"name"`
	Aliases          string   `parquet:"aliases"`
	URL              string   `parquet:"url"`
	Latitude         *float64 `parquet:"latitude,optional"`
	Longitude        *float64 `parquet:"longitude,optional"`
	Address          string   `parquet:"address"`
	City             string   `parquet:"city"`
	Region           string   `parquet:"region"`
	Category         string   `parquet:"category"`
	Description      string   `parquet:"description"`
	Website          string   `parquet:"website"`
	OpeningHours     string   `parquet:"opening_hours"`
	Phone            string   `parquet:"phone"`
	EncyclopediaURL  string   `parquet:"encyclopedia_url"`
	MapURL           string   `parquet:"map_url"`
	PriceLevel       string   `parquet:"price_level"`
	TicketPrice      string   `parquet:"ticket_price"`
	PriceConditions  string   `parquet:"price_conditions"`
	PaymentMethods   string   `parquet:"payment_methods"`
	VisitingServices string   `parquet:"visiting_services"`
	MapRating        *float64 `parquet:"map_rating,optional"`
	MapVotes         *int64   `parquet:"map_votes,optional"`
	POICheckins      *int64   `parquet:"poi_checkins,optional"`
	POILikes         *int64   `parquet:"poi_likes,optional"`
	POIRating        *float64 `parquet:"poi_rating,optional"`
}

// NewMonumentRow flattens a base record.
func NewMonumentRow(r model.BaseRecord) MonumentRow {
	row := MonumentRow{
		ID:              r.ID,
		Name:            r.Name,
		Aliases:         strings.Join(r.Aliases, "|"),
		URL:             r.URL,
		Address:         r.Address,
		City:            r.City,
		Region:          r.Region,
		Category:        r.Category,
		Description:     r.Description,
		Website:         r.Website,
		OpeningHours:    r.OpeningHours,
		Phone:           r.Phone,
		EncyclopediaURL: r.EncyclopediaURL,
		MapURL:          r.MapURL,

		PriceLevel:       r.PriceLevel,
		TicketPrice:      r.TicketPrice,
		PriceConditions:  r.PriceConditions,
		PaymentMethods:   r.PaymentMethods,
		VisitingServices: r.VisitingServices,
	}
	if r.Coordinates != nil {
		lat, lon := r.Coordinates.Lat, r.Coordinates.Lon
		row.Latitude, row.Longitude = &lat, &lon
	}
	if m, ok := r.Metrics[model.SourceMapProvider]; ok {
		row.MapRating = m.Rating
		row.MapVotes = widen(m.Votes)
	}
	if m, ok := r.Metrics[model.SourcePointsOfInterest]; ok {
		row.POIRating = m.Rating
		row.POICheckins = widen(m.Checkins)
		row.POILikes = widen(m.Likes)
	}
	return row
}

func widen(v *int) *int64 {
	if v == nil {
		return nil
	}
	w := int64(*v)
	return &w
}

// Parquet writes records to path as a single Parquet file.
func Parquet(path string, records []model.BaseRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows := make([]MonumentRow, len(records))
	for i, r := range records {
		rows[i] = NewMonumentRow(r)
	}

	w := parquet.NewGenericWriter[MonumentRow](f)
	if _, err := w.Write(rows); err != nil {
		return eris.Wrapf(err, "export: write parquet rows to %s", path)
	}
	if err := w.Close(); err != nil {
		return eris.Wrapf(err, "export: close parquet writer %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}

	zap.L().Info("export: parquet written", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}
