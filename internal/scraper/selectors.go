package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// TextValidator accepts or rejects trimmed text extracted by a candidate
type TextValidator func(text string) bool

// SelectorCandidate is a declarative extraction rule: a CSS selector, an
// optional validation predicate, and implicit priority by list position.
// The target site changes markup over time, so candidates are data, not
// control flow; updating them never touches the traversal algorithm.
type SelectorCandidate struct {
	Selector string
	// ScanAll makes the candidate consider every matching element in
	// document order instead of only the first.
	ScanAll  bool
	Validate TextValidator
}

// FieldSpec binds a field to its ordered candidate list and sentinel
type FieldSpec struct {
	Name       string
	Sentinel   string
	Candidates []SelectorCandidate
}

var ratingShape = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ValidName rejects empty text, text shorter than 3 characters, and page
// furniture ("Google Maps", "Search") that indicates the candidate hit
// navigation chrome rather than the listing title.
func ValidName(text string) bool {
	if len(text) < 3 {
		return false
	}
	if strings.Contains(text, "Google Maps") || strings.Contains(text, "Search") {
		return false
	}
	return true
}

// ValidAddress rejects text shorter than 6 characters, which guards
// against matching icon-only or empty containers.
func ValidAddress(text string) bool {
	return len(text) >= 6
}

// ValidRating accepts only a strict decimal-number shape whose value lies
// in [0, 5]. Review counts ("127") and compound strings fail here and the
// next candidate is tried.
func ValidRating(text string) bool {
	if !ratingShape.MatchString(text) {
		return false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return false
	}
	return v >= 0 && v <= 5
}

func nameCandidates() []SelectorCandidate {
	selectors := []string{
		"h1.DUwDvf",
		`h1[data-attrid="title"]`,
		".x3AX1-LfntMc-header-title-title",
		"h1.qrShPb",
		`[data-attrid="title"] h1`,
		"h1.SPZz6b",
		"h1",
		".qrShPb span",
		`[data-value="title"]`,
		".fontHeadlineSmall",
		".fontHeadlineLarge",
	}
	candidates := make([]SelectorCandidate, 0, len(selectors))
	for _, s := range selectors {
		candidates = append(candidates, SelectorCandidate{
			Selector: s,
			ScanAll:  true,
			Validate: ValidName,
		})
	}
	return candidates
}

func addressCandidates() []SelectorCandidate {
	selectors := []string{
		`button[data-item-id="address"] div.Io6YTe`,
		`button[data-item-id="address"] .Io6YTe`,
		`[data-item-id="address"] .fontBodyMedium`,
		`[data-item-id="address"]`,
		".Io6YTe",
		`[data-attrid*="address"] .LrzXr`,
		".LrzXr",
		".rogA2c .fontBodyMedium",
		`[data-value="address"]`,
		".CsEnBe",
		".fontBodyMedium",
	}
	candidates := make([]SelectorCandidate, 0, len(selectors))
	for _, s := range selectors {
		candidates = append(candidates, SelectorCandidate{
			Selector: s,
			Validate: ValidAddress,
		})
	}
	return candidates
}

func ratingCandidates() []SelectorCandidate {
	selectors := []string{
		`div.F7nice span[aria-hidden="true"]`,
		".F7nice span",
		"span.yi40Hd.YrbPuc",
		".MW4etd",
		`[data-attrid*="rating"] span`,
		".Aq14fc .yi40Hd",
		".jANrlb .fontDisplayLarge",
		".ceNzKf",
	}
	candidates := make([]SelectorCandidate, 0, len(selectors))
	for _, s := range selectors {
		candidates = append(candidates, SelectorCandidate{
			Selector: s,
			Validate: ValidRating,
		})
	}
	return candidates
}

// DefaultFieldSpecs returns the field specifications matching the target
// site's current markup variants
func DefaultFieldSpecs() []FieldSpec {
	return []FieldSpec{
		{Name: "name", Sentinel: NameUnavailable, Candidates: nameCandidates()},
		{Name: "address", Sentinel: AddressUnavailable, Candidates: addressCandidates()},
		{Name: "rating", Sentinel: RatingNotApplicable, Candidates: ratingCandidates()},
	}
}
