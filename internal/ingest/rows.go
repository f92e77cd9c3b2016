package ingest

import (
	"strings"

	"github.com/sells-group/monument-cli/internal/model"
)

// baseRow is the flat tabular layout of a primary-source record. Aliases
// are separated by '|'.
type baseRow struct {
	ID           string   `csv:"id"`
	Name         string   `csv:"name"`
	Aliases      string   `csv:"aliases,omitempty"`
	URL          string   `csv:"url,omitempty"`
	Lat          *float64 `csv:"lat,omitempty"`
	Lon          *float64 `csv:"lon,omitempty"`
	Address      string   `csv:"address,omitempty"`
	City         string   `csv:"city,omitempty"`
	Region       string   `csv:"region,omitempty"`
	Category     string   `csv:"category,omitempty"`
	Description  string   `csv:"description,omitempty"`
	Website      string   `csv:"website,omitempty"`
	OpeningHours string   `csv:"opening_hours,omitempty"`
	Phone        string   `csv:"phone,omitempty"`

	PriceLevel       string `csv:"price_level,omitempty"`
	TicketPrice      string `csv:"ticket_price,omitempty"`
	PriceConditions  string `csv:"price_conditions,omitempty"`
	PaymentMethods   string `csv:"payment_methods,omitempty"`
	VisitingServices string `csv:"visiting_services,omitempty"`
}

// candidateRow is the flat tabular layout of a candidate record.
type candidateRow struct {
	BaseID       string   `csv:"base_id"`
	SourceID     string   `csv:"source_id"`
	Name         string   `csv:"name"`
	Lat          *float64 `csv:"lat,omitempty"`
	Lon          *float64 `csv:"lon,omitempty"`
	URL          string   `csv:"url,omitempty"`
	Website      string   `csv:"website,omitempty"`
	Description  string   `csv:"description,omitempty"`
	Category     string   `csv:"category,omitempty"`
	Address      string   `csv:"address,omitempty"`
	City         string   `csv:"city,omitempty"`
	OpeningHours string   `csv:"opening_hours,omitempty"`
	Phone        string   `csv:"phone,omitempty"`
	Rating       *float64 `csv:"rating,omitempty"`
	Votes        *int     `csv:"votes,omitempty"`
	Checkins     *int     `csv:"checkins,omitempty"`
	Likes        *int     `csv:"likes,omitempty"`
	Redirected   bool     `csv:"redirected,omitempty"`
	Query        string   `csv:"query,omitempty"`

	PriceLevel       string `csv:"price_level,omitempty"`
	TicketPrice      string `csv:"ticket_price,omitempty"`
	PriceConditions  string `csv:"price_conditions,omitempty"`
	PaymentMethods   string `csv:"payment_methods,omitempty"`
	VisitingServices string `csv:"visiting_services,omitempty"`
}

func coords(lat, lon *float64) *model.Coordinates {
	if lat == nil || lon == nil {
		return nil
	}
	return &model.Coordinates{Lat: *lat, Lon: *lon}
}

func splitAliases(s string) []string {
	var out []string
	for _, a := range strings.Split(s, "|") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func baseRecords(rows []baseRow) []model.BaseRecord {
	out := make([]model.BaseRecord, len(rows))
	for i, r := range rows {
		out[i] = model.BaseRecord{
			ID:           strings.TrimSpace(r.ID),
			Name:         strings.TrimSpace(r.Name),
			Aliases:      splitAliases(r.Aliases),
			URL:          r.URL,
			Coordinates:  coords(r.Lat, r.Lon),
			Address:      r.Address,
			City:         r.City,
			Region:       r.Region,
			Category:     r.Category,
			Description:  r.Description,
			Website:      r.Website,
			OpeningHours: r.OpeningHours,
			Phone:        r.Phone,

			PriceLevel:       r.PriceLevel,
			TicketPrice:      r.TicketPrice,
			PriceConditions:  r.PriceConditions,
			PaymentMethods:   r.PaymentMethods,
			VisitingServices: r.VisitingServices,
		}
	}
	return out
}

func candidateRecords(rows []candidateRow) []model.CandidateRecord {
	out := make([]model.CandidateRecord, len(rows))
	for i, r := range rows {
		c := model.CandidateRecord{
			BaseID:       strings.TrimSpace(r.BaseID),
			SourceID:     strings.TrimSpace(r.SourceID),
			Name:         strings.TrimSpace(r.Name),
			Coordinates:  coords(r.Lat, r.Lon),
			URL:          r.URL,
			Website:      r.Website,
			Description:  r.Description,
			Category:     r.Category,
			Address:      r.Address,
			City:         r.City,
			OpeningHours: r.OpeningHours,
			Phone:        r.Phone,
			Redirected:   r.Redirected,
			Query:        r.Query,

			PriceLevel:       r.PriceLevel,
			TicketPrice:      r.TicketPrice,
			PriceConditions:  r.PriceConditions,
			PaymentMethods:   r.PaymentMethods,
			VisitingServices: r.VisitingServices,
		}
		m := model.ProviderMetrics{Rating: r.Rating, Votes: r.Votes, Checkins: r.Checkins, Likes: r.Likes}
		if !m.Empty() {
			c.Metrics = &m
		}
		out[i] = c
	}
	return out
}
