package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"sfhs/storefront/logger"
	apperrors "sfhs/storefront/pkg/errors"
)

// Resolver orchestrates the fallback chain: cache check, then each
// strategy in fixed priority order, then a URL-derived degraded record.
// Strategies run sequentially, never in parallel; concurrent sessions
// against the same target multiply detection risk. Callers always receive
// a complete record; ordinary failures are absorbed into sentinels.
type Resolver struct {
	cache      *ListingCache
	strategies []Strategy
	log        *logger.Logger
}

// NewResolver creates a resolver over an explicit cache instance and an
// ordered strategy list
func NewResolver(cache *ListingCache, strategies []Strategy) *Resolver {
	return &Resolver{
		cache:      cache,
		strategies: strategies,
		log:        logger.ForScraper(),
	}
}

// Resolve returns listing details for a URL. It errors only for invalid
// input; network errors, missing content and malformed pages all degrade
// to sentinel values. A degraded result is cached like any other so a
// permanently unreachable URL does not retry the network on every call.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (ListingRecord, error) {
	if strings.TrimSpace(rawURL) == "" {
		return ListingRecord{}, apperrors.NewValidation("resolver", "url must not be empty")
	}

	if record, ok := r.cache.Get(rawURL); ok {
		r.log.Debug().Str("url", rawURL).Msg("Cache hit")
		return record, nil
	}

	for _, strategy := range r.strategies {
		record, err := strategy.Fetch(ctx, rawURL)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("strategy", strategy.Name()).
				Str("url", rawURL).
				Msg("Strategy failed, advancing fallback chain")
			continue
		}
		if !record.Informative() {
			// A successful fetch that learned nothing is a failure
			// for fallback purposes.
			r.log.Debug().
				Str("strategy", strategy.Name()).
				Str("url", rawURL).
				Msg("Strategy returned uninformative record, advancing")
			continue
		}

		r.cache.Put(rawURL, *record)
		r.log.Info().
			Str("strategy", strategy.Name()).
			Str("url", rawURL).
			Str("name", record.Name).
			Msg("Listing resolved")
		return *record, nil
	}

	record := fallbackFromURL(rawURL)
	r.cache.Put(rawURL, record)
	r.log.Warn().
		Str("url", rawURL).
		Str("name", record.Name).
		Msg("All strategies failed, returning URL-derived record")
	return record, nil
}

// ClearCache empties the cache and returns the prior entry count
func (r *Resolver) ClearCache() int {
	return r.cache.Clear()
}

// CacheSnapshot returns a read-only copy of the cache for diagnostics
func (r *Resolver) CacheSnapshot() map[string]ListingRecord {
	return r.cache.Snapshot()
}

var placeSegment = regexp.MustCompile(`place/([^/@]+)`)

// fallbackFromURL derives a name from the URL text itself. A
// "place/<segment>" token is percent-decoded and '+' becomes space; a URL
// without one falls back to its host; an unparsable URL falls through to
// the sentinel name. Address and rating are always sentinels here.
func fallbackFromURL(rawURL string) ListingRecord {
	record := ListingRecord{
		SourceURL: rawURL,
		Name:      NameUnavailable,
		Address:   AddressUnavailable,
		Rating:    RatingNotApplicable,
	}

	if m := placeSegment.FindStringSubmatch(rawURL); m != nil {
		segment := m[1]
		if decoded, err := url.PathUnescape(segment); err == nil {
			segment = decoded
		}
		if name := strings.TrimSpace(strings.ReplaceAll(segment, "+", " ")); name != "" {
			record.Name = name
		}
		return record
	}

	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		record.Name = parsed.Host
	}
	return record
}
