package model

// Source identifies where a record or field value came from.
type Source string

const (
	SourcePrimary          Source = "primary"
	SourceMapProvider      Source = "map_provider"
	SourceEncyclopedia     Source = "encyclopedia"
	SourcePointsOfInterest Source = "points_of_interest"
)

// ExternalSources lists the enrichment sources in processing order.
var ExternalSources = []Source{SourceMapProvider, SourceEncyclopedia, SourcePointsOfInterest}

// Valid reports whether s is one of the known external sources.
func (s Source) Valid() bool {
	switch s {
	case SourceMapProvider, SourceEncyclopedia, SourcePointsOfInterest:
		return true
	}
	return false
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" csv:"lat" yaml:"lat"`
	Lon float64 `json:"lon" csv:"lon" yaml:"lon"`
}

// ProviderMetrics holds the popularity numbers reported by one provider.
// Scales differ between providers, so they are never combined.
type ProviderMetrics struct {
	Rating   *float64 `json:"rating,omitempty"`
	Votes    *int     `json:"votes,omitempty"`
	Checkins *int     `json:"checkins,omitempty"`
	Likes    *int     `json:"likes,omitempty"`
}

// Empty reports whether no metric is set.
func (m ProviderMetrics) Empty() bool {
	return m.Rating == nil && m.Votes == nil && m.Checkins == nil && m.Likes == nil
}

// BaseRecord is the canonical monument entity loaded from the primary source.
type BaseRecord struct {
	ID              string                     `json:"id"`
	Name            string                     `json:"name"`
	Aliases         []string                   `json:"aliases,omitempty"`
	URL             string                     `json:"url"`
	Coordinates     *Coordinates               `json:"coordinates,omitempty"`
	Address         string                     `json:"address,omitempty"`
	City            string                     `json:"city,omitempty"`
	Region          string                     `json:"region,omitempty"`
	Category        string                     `json:"category,omitempty"`
	Description     string                     `json:"description,omitempty"`
	Website         string                     `json:"website,omitempty"`
	OpeningHours    string                     `json:"opening_hours,omitempty"`
	Phone           string                     `json:"phone,omitempty"`
	EncyclopediaURL string                     `json:"encyclopedia_url,omitempty"`
	MapURL          string                     `json:"map_url,omitempty"`

	PriceLevel       string `json:"price_level,omitempty"`
	TicketPrice      string `json:"ticket_price,omitempty"`
	PriceConditions  string `json:"price_conditions,omitempty"`
	PaymentMethods   string `json:"payment_methods,omitempty"`
	VisitingServices string `json:"visiting_services,omitempty"`

	Metrics         map[Source]ProviderMetrics `json:"metrics,omitempty"`
	Provenance      map[Field]Provenance       `json:"provenance,omitempty"`
}

// Clone returns a deep copy of the record.
func (r BaseRecord) Clone() BaseRecord {
	out := r
	if r.Aliases != nil {
		out.Aliases = append([]string(nil), r.Aliases...)
	}
	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}
	if r.Metrics != nil {
		out.Metrics = make(map[Source]ProviderMetrics, len(r.Metrics))
		for k, v := range r.Metrics {
			out.Metrics[k] = v
		}
	}
	if r.Provenance != nil {
		out.Provenance = make(map[Field]Provenance, len(r.Provenance))
		for k, v := range r.Provenance {
			out.Provenance[k] = v
		}
	}
	return out
}

// Review is one visitor review attached to a provider place.
type Review struct {
	Author   string   `json:"author,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Text     string   `json:"text"`
	Language string   `json:"language,omitempty"`
	// Polarity is the sentiment score some providers attach, in [-1, 1].
	Polarity *float64 `json:"polarity,omitempty"`
	Time     string   `json:"time,omitempty"`
}

// Names returns the record name followed by its aliases.
func (r BaseRecord) Names() []string {
	names := make([]string, 0, 1+len(r.Aliases))
	names = append(names, r.Name)
	return append(names, r.Aliases...)
}
