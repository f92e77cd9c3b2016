package geo

import "github.com/sells-group/monument-cli/internal/model"

// Default distance thresholds (meters).
const (
	DefaultHighM             = 100.0
	DefaultMediumM           = 500.0
	EncyclopediaToleranceM   = 2000.0
	defaultEncyclopediaHighM = 100.0
)

// Thresholds are the distance cutoffs for one source.
type Thresholds struct {
	HighM   float64 `yaml:"high_m" mapstructure:"high_m"`
	MediumM float64 `yaml:"medium_m" mapstructure:"medium_m"`
}

// Classification is a tier plus the reason it was assigned.
type Classification struct {
	Tier   model.Tier
	Reason model.Reason
}

// Classify maps a distance to a tier:
//   - high: meters < HighM
//   - medium: meters < MediumM
//   - low: otherwise, or when the distance is unavailable
func (t Thresholds) Classify(meters *float64) Classification {
	if meters == nil {
		return Classification{Tier: model.TierLow, Reason: model.ReasonMissingCoordinates}
	}
	switch {
	case *meters < t.HighM:
		return Classification{Tier: model.TierHigh, Reason: model.ReasonWithinDistance}
	case *meters < t.MediumM:
		return Classification{Tier: model.TierMedium, Reason: model.ReasonWithinDistance}
	default:
		return Classification{Tier: model.TierLow, Reason: model.ReasonBelowThreshold}
	}
}

// SourceThresholds holds thresholds per external source.
type SourceThresholds map[model.Source]Thresholds

// DefaultSourceThresholds returns street-accurate thresholds for the map and
// points-of-interest providers, and the wider tolerance for the encyclopedia.
func DefaultSourceThresholds() SourceThresholds {
	return SourceThresholds{
		model.SourceMapProvider:      {HighM: DefaultHighM, MediumM: DefaultMediumM},
		model.SourcePointsOfInterest: {HighM: DefaultHighM, MediumM: DefaultMediumM},
		model.SourceEncyclopedia:     {HighM: defaultEncyclopediaHighM, MediumM: EncyclopediaToleranceM},
	}
}

// For returns the thresholds for src, falling back to the map-provider defaults.
func (s SourceThresholds) For(src model.Source) Thresholds {
	if t, ok := s[src]; ok {
		return t
	}
	return Thresholds{HighM: DefaultHighM, MediumM: DefaultMediumM}
}
