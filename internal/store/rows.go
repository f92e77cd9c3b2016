package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
)

var monumentColumns = []string{
	"id", "name", "aliases", "url", "latitude", "longitude", "address", "city",
	"region", "category", "description", "website", "opening_hours", "phone",
	"encyclopedia_url", "map_url", "price_level", "ticket_price", "price_conditions",
	"payment_methods", "visiting_services", "provenance",
}

var metricColumns = []string{"monument_id", "source", "rating", "votes", "checkins", "likes"}

var placeColumns = []string{
	"source", "source_id", "monument_id", "name", "url", "latitude", "longitude",
	"distance_m", "similarity", "domain_equivalent", "tier", "reason", "run_id",
}

var reviewColumns = []string{
	"source", "source_id", "monument_id", "author", "rating", "text", "language",
	"polarity", "review_time", "run_id",
}

var provenanceColumns = []string{
	"run_id", "monument_id", "field", "source", "tier", "candidate_id", "old_value", "new_value",
}

func monumentValues(r model.BaseRecord) ([]any, error) {
	aliases, err := json.Marshal(nonNilStrings(r.Aliases))
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal aliases %s", r.ID)
	}
	prov := r.Provenance
	if prov == nil {
		prov = map[model.Field]model.Provenance{}
	}
	provJSON, err := json.Marshal(prov)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal provenance %s", r.ID)
	}
	lat, lon := latLon(r.Coordinates)
	return []any{
		r.ID, r.Name, aliases, r.URL, lat, lon, r.Address, r.City,
		r.Region, r.Category, r.Description, r.Website, r.OpeningHours, r.Phone,
		r.EncyclopediaURL, r.MapURL, r.PriceLevel, r.TicketPrice, r.PriceConditions,
		r.PaymentMethods, r.VisitingServices, provJSON,
	}, nil
}

// monumentRow is the scan target for one monuments row.
type monumentRow struct {
	rec        model.BaseRecord
	aliases    []byte
	provenance []byte
	lat, lon   *float64
}

func (m *monumentRow) dest() []any {
	r := &m.rec
	return []any{
		&r.ID, &r.Name, &m.aliases, &r.URL, &m.lat, &m.lon, &r.Address, &r.City,
		&r.Region, &r.Category, &r.Description, &r.Website, &r.OpeningHours, &r.Phone,
		&r.EncyclopediaURL, &r.MapURL, &r.PriceLevel, &r.TicketPrice, &r.PriceConditions,
		&r.PaymentMethods, &r.VisitingServices, &m.provenance,
	}
}

func (m *monumentRow) record() (model.BaseRecord, error) {
	r := m.rec
	if len(m.aliases) > 0 {
		if err := json.Unmarshal(m.aliases, &r.Aliases); err != nil {
			return r, eris.Wrapf(err, "store: decode aliases %s", r.ID)
		}
		if len(r.Aliases) == 0 {
			r.Aliases = nil
		}
	}
	if len(m.provenance) > 0 {
		if err := json.Unmarshal(m.provenance, &r.Provenance); err != nil {
			return r, eris.Wrapf(err, "store: decode provenance %s", r.ID)
		}
		if len(r.Provenance) == 0 {
			r.Provenance = nil
		}
	}
	if m.lat != nil && m.lon != nil {
		r.Coordinates = &model.Coordinates{Lat: *m.lat, Lon: *m.lon}
	}
	return r, nil
}

func metricRows(r model.BaseRecord) [][]any {
	var rows [][]any
	for _, src := range model.ExternalSources {
		mt, ok := r.Metrics[src]
		if !ok || mt.Empty() {
			continue
		}
		rows = append(rows, []any{r.ID, string(src), mt.Rating, mt.Votes, mt.Checkins, mt.Likes})
	}
	return rows
}

func placeValues(runID string, d model.MatchDecision) []any {
	c := d.Candidate
	lat, lon := latLon(c.Coordinates)
	return []any{
		string(d.Source), c.SourceID, d.RecordID, c.Name, c.URL, lat, lon,
		d.DistanceM, d.Similarity, d.DomainEquivalent, string(d.Tier), string(d.Reason), runID,
	}
}

// reviewRows flattens the reviews carried by an accepted candidate.
func reviewRows(runID string, d model.MatchDecision) [][]any {
	c := d.Candidate
	rows := make([][]any, len(c.Reviews))
	for i, rv := range c.Reviews {
		rows[i] = []any{
			string(d.Source), c.SourceID, d.RecordID, rv.Author, rv.Rating, rv.Text,
			rv.Language, rv.Polarity, rv.Time, runID,
		}
	}
	return rows
}

func provenanceValues(runID string, c model.FieldChange) []any {
	return []any{
		runID, c.RecordID, string(c.Field), string(c.Source), string(c.Tier),
		c.CandidateID, c.Old, c.New,
	}
}

// acceptedPlaces keeps decisions whose candidate should be persisted.
func acceptedPlaces(decisions []model.MatchDecision) []model.MatchDecision {
	out := make([]model.MatchDecision, 0, len(decisions))
	for _, d := range decisions {
		if d.Accepted() {
			out = append(out, d)
		}
	}
	return out
}

func latLon(c *model.Coordinates) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	lat, lon := c.Lat, c.Lon
	return &lat, &lon
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
