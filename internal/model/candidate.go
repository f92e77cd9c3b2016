package model

// CandidateRecord is one observation from an external source that may refer
// to a base record. Candidates are immutable once fetched.
type CandidateRecord struct {
	Source       Source           `json:"source"`
	SourceID     string           `json:"source_id"`
	BaseID       string           `json:"base_id,omitempty"`
	Name         string           `json:"name"`
	Coordinates  *Coordinates     `json:"coordinates,omitempty"`
	URL          string           `json:"url,omitempty"`
	Website      string           `json:"website,omitempty"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	Address      string           `json:"address,omitempty"`
	City         string           `json:"city,omitempty"`
	OpeningHours string           `json:"opening_hours,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Metrics      *ProviderMetrics `json:"metrics,omitempty"`

	PriceLevel       string   `json:"price_level,omitempty"`
	TicketPrice      string   `json:"ticket_price,omitempty"`
	PriceConditions  string   `json:"price_conditions,omitempty"`
	PaymentMethods   string   `json:"payment_methods,omitempty"`
	VisitingServices string   `json:"visiting_services,omitempty"`
	Reviews          []Review `json:"reviews,omitempty"`

	// Encyclopedia only.
	Redirected bool   `json:"redirected,omitempty"`
	Query      string `json:"query,omitempty"`
}

// ReferenceURL is the website when known, else the page URL.
func (c CandidateRecord) ReferenceURL() string {
	if c.Website != "" {
		return c.Website
	}
	return c.URL
}
