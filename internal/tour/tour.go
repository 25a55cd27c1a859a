// Package tour turns free-form travel document text into structured tour records.
//
// The parser is a single line-oriented pass: header lines switch the active
// section, content lines are routed to the active section's bucket, and every
// field left unset afterwards resolves to a documented fallback. Parse never
// fails; malformed input degrades to fallback values.
package tour

// Fallback values used when a document does not provide a field.
const (
	FallbackTitle       = "Untitled Tour"
	FallbackDescription = "No description available"
	FallbackHighlight   = "No highlights available"
	FallbackListItem    = "Not specified"
	FallbackItinerary   = "No itinerary available"
)

// ParsedTour is the structured record produced from one document.
type ParsedTour struct {
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description"`
	Summary       string         `json:"summary"`
	Duration      int            `json:"duration"`
	Price         float64        `json:"price"`
	PriceDiscount *float64       `json:"price_discount,omitempty"`
	Highlights    []string       `json:"highlights"`
	Includes      []string       `json:"includes"`
	Excludes      []string       `json:"excludes"`
	Itinerary     []ItineraryDay `json:"itinerary"`
	PricingTiers  []PricingTier  `json:"pricing_tiers,omitempty"`
}

// ItineraryDay is one numbered day of a multi-day tour.
type ItineraryDay struct {
	DayNumber   int    `json:"day_number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PricingTier is a "category: amount" line found in a pricing section.
type PricingTier struct {
	Category string  `json:"category"`
	PaxRange string  `json:"pax_range,omitempty"`
	Price    float64 `json:"price"`
}
