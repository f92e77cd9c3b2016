package model

// Field names a mergeable base record attribute.
type Field string

const (
	FieldCategory         Field = "category"
	FieldDescription      Field = "description"
	FieldWebsite          Field = "website"
	FieldOpeningHours     Field = "opening_hours"
	FieldPhone            Field = "phone"
	FieldEncyclopediaURL  Field = "encyclopedia_url"
	FieldMapURL           Field = "map_url"
	FieldCoordinates      Field = "coordinates"
	FieldCity             Field = "city"
	FieldAddress          Field = "address"
	FieldPriceLevel       Field = "price_level"
	FieldTicketPrice      Field = "ticket_price"
	FieldPriceConditions  Field = "price_conditions"
	FieldPaymentMethods   Field = "payment_methods"
	FieldVisitingServices Field = "visiting_services"
)

// MetricsField returns the provenance key for a source's metrics slot.
func MetricsField(src Source) Field {
	return Field("metrics." + string(src))
}

// Provenance records which source last set a field and at what tier.
type Provenance struct {
	Source      Source `json:"source"`
	Tier        Tier   `json:"tier,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
}

// FieldChange is one applied merge.
type FieldChange struct {
	RecordID    string `json:"record_id"`
	Field       Field  `json:"field"`
	Source      Source `json:"source"`
	Tier        Tier   `json:"tier"`
	CandidateID string `json:"candidate_id"`
	Old         string `json:"old"`
	New         string `json:"new"`
}
