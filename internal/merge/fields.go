package merge

import (
	"strconv"

	"github.com/sells-group/monument-cli/internal/model"
)

// accessor reads and writes one text field on both record kinds.
type accessor struct {
	get  func(*model.BaseRecord) string
	set  func(*model.BaseRecord, string)
	cand func(*model.CandidateRecord) string
}

var accessors = map[model.Field]accessor{
	model.FieldCategory: {
		get:  func(r *model.BaseRecord) string { return r.Category },
		set:  func(r *model.BaseRecord, v string) { r.Category = v },
		cand: func(c *model.CandidateRecord) string { return c.Category },
	},
	model.FieldDescription: {
		get:  func(r *model.BaseRecord) string { return r.Description },
		set:  func(r *model.BaseRecord, v string) { r.Description = v },
		cand: func(c *model.CandidateRecord) string { return c.Description },
	},
	model.FieldWebsite: {
		get:  func(r *model.BaseRecord) string { return r.Website },
		set:  func(r *model.BaseRecord, v string) { r.Website = v },
		cand: func(c *model.CandidateRecord) string { return c.Website },
	},
	model.FieldOpeningHours: {
		get:  func(r *model.BaseRecord) string { return r.OpeningHours },
		set:  func(r *model.BaseRecord, v string) { r.OpeningHours = v },
		cand: func(c *model.CandidateRecord) string { return c.OpeningHours },
	},
	model.FieldPhone: {
		get:  func(r *model.BaseRecord) string { return r.Phone },
		set:  func(r *model.BaseRecord, v string) { r.Phone = v },
		cand: func(c *model.CandidateRecord) string { return c.Phone },
	},
	model.FieldEncyclopediaURL: {
		get: func(r *model.BaseRecord) string { return r.EncyclopediaURL },
		set: func(r *model.BaseRecord, v string) { r.EncyclopediaURL = v },
		cand: func(c *model.CandidateRecord) string {
			if c.Source == model.SourceEncyclopedia {
				return c.URL
			}
			return ""
		},
	},
	model.FieldMapURL: {
		get: func(r *model.BaseRecord) string { return r.MapURL },
		set: func(r *model.BaseRecord, v string) { r.MapURL = v },
		cand: func(c *model.CandidateRecord) string {
			if c.Source == model.SourceMapProvider {
				return c.URL
			}
			return ""
		},
	},
	model.FieldCity: {
		get:  func(r *model.BaseRecord) string { return r.City },
		set:  func(r *model.BaseRecord, v string) { r.City = v },
		cand: func(c *model.CandidateRecord) string { return c.City },
	},
	model.FieldAddress: {
		get:  func(r *model.BaseRecord) string { return r.Address },
		set:  func(r *model.BaseRecord, v string) { r.Address = v },
		cand: func(c *model.CandidateRecord) string { return c.Address },
	},
	model.FieldPriceLevel: {
		get:  func(r *model.BaseRecord) string { return r.PriceLevel },
		set:  func(r *model.BaseRecord, v string) { r.PriceLevel = v },
		cand: func(c *model.CandidateRecord) string { return c.PriceLevel },
	},
	model.FieldTicketPrice: {
		get:  func(r *model.BaseRecord) string { return r.TicketPrice },
		set:  func(r *model.BaseRecord, v string) { r.TicketPrice = v },
		cand: func(c *model.CandidateRecord) string { return c.TicketPrice },
	},
	model.FieldPriceConditions: {
		get:  func(r *model.BaseRecord) string { return r.PriceConditions },
		set:  func(r *model.BaseRecord, v string) { r.PriceConditions = v },
		cand: func(c *model.CandidateRecord) string { return c.PriceConditions },
	},
	model.FieldPaymentMethods: {
		get:  func(r *model.BaseRecord) string { return r.PaymentMethods },
		set:  func(r *model.BaseRecord, v string) { r.PaymentMethods = v },
		cand: func(c *model.CandidateRecord) string { return c.PaymentMethods },
	},
	model.FieldVisitingServices: {
		get:  func(r *model.BaseRecord) string { return r.VisitingServices },
		set:  func(r *model.BaseRecord, v string) { r.VisitingServices = v },
		cand: func(c *model.CandidateRecord) string { return c.VisitingServices },
	},
}

// formatCoords renders coordinates for the change log; nil is "".
func formatCoords(c *model.Coordinates) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
