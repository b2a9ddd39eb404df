package scraper

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sfhs/storefront/logger"
)

// FieldExtractor produces name, address and rating independently, each via
// its own ordered candidate list. Extraction is read-only: a page where DOM
// access partially fails yields sentinels for the affected fields, never a
// hard error.
type FieldExtractor struct {
	specs []FieldSpec
	log   *logger.Logger
}

// NewFieldExtractor creates an extractor with the given field specs
func NewFieldExtractor(specs []FieldSpec) *FieldExtractor {
	return &FieldExtractor{
		specs: specs,
		log:   logger.ForScraper(),
	}
}

// ExtractFromReader parses HTML and extracts a record for the source URL.
// A parse failure is treated as a fully unmatched page.
func (e *FieldExtractor) ExtractFromReader(body io.Reader, sourceURL string) ListingRecord {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		e.log.Debug().Err(err).Str("url", sourceURL).Msg("HTML parse failed, returning sentinel record")
		return ListingRecord{
			SourceURL: sourceURL,
			Name:      NameUnavailable,
			Address:   AddressUnavailable,
			Rating:    RatingNotApplicable,
		}
	}
	return e.Extract(doc, sourceURL)
}

// Extract runs every field's candidate list against the document
func (e *FieldExtractor) Extract(doc *goquery.Document, sourceURL string) ListingRecord {
	record := ListingRecord{SourceURL: sourceURL}
	for _, spec := range e.specs {
		value, matched := e.extractField(doc, spec)
		if matched != "" {
			e.log.Debug().
				Str("field", spec.Name).
				Str("selector", matched).
				Str("value", value).
				Msg("Field extracted")
		}
		switch spec.Name {
		case "name":
			record.Name = value
		case "address":
			record.Address = value
		case "rating":
			record.Rating = value
		}
	}
	return record
}

// extractField iterates the candidate list in priority order and returns
// the first accepted match plus the matching selector for diagnostics. A
// full miss returns the field's sentinel.
func (e *FieldExtractor) extractField(doc *goquery.Document, spec FieldSpec) (string, string) {
	for _, candidate := range spec.Candidates {
		selection := doc.Find(candidate.Selector)
		if selection.Length() == 0 {
			continue
		}

		var accepted string
		scan := func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return true
			}
			if candidate.Validate != nil && !candidate.Validate(text) {
				return true
			}
			accepted = text
			return false
		}

		if candidate.ScanAll {
			selection.EachWithBreak(scan)
		} else {
			scan(0, selection.First())
		}

		if accepted != "" {
			return accepted, candidate.Selector
		}
	}
	return spec.Sentinel, ""
}
