package scraper

// Sentinel values for fields that could not be determined. Downstream
// consumers rely on every field being populated, never empty or null.
const (
	NameUnavailable     = "Store Name Not Available"
	AddressUnavailable  = "Address not available"
	RatingNotApplicable = "N/A"
)

// ListingRecord is the unit of extracted knowledge about a place.
// It is immutable after construction; a re-fetch produces a new record.
type ListingRecord struct {
	SourceURL string `json:"url"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Rating    string `json:"rating"`
}

// Informative reports whether the record carries at least a real name.
// A technically successful fetch that learned nothing is treated as a
// failure for fallback purposes.
func (r ListingRecord) Informative() bool {
	return r.Name != NameUnavailable
}

// Degraded reports whether every field is a sentinel.
func (r ListingRecord) Degraded() bool {
	return r.Name == NameUnavailable &&
		r.Address == AddressUnavailable &&
		r.Rating == RatingNotApplicable
}
