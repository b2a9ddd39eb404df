package scraper

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"sfhs/storefront/helpers"
	"sfhs/storefront/logger"
	apperrors "sfhs/storefront/pkg/errors"
)

// Strategy is one end-to-end recipe for attempting extraction: launch a
// session, navigate, wait for content, extract, close. All failures are
// recoverable and converted to errors at this boundary; none escape to the
// orchestrator as panics.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (*ListingRecord, error)
}

// contentSelector is the union of selectors whose visibility indicates the
// listing panel has rendered.
const contentSelector = `h1, [data-item-id], .DUwDvf, .qrShPb`

// StrategyConfig parameterizes one browser strategy variant. The chain
// variants differ only in these knobs, never in traversal logic.
type StrategyConfig struct {
	Label               string
	NavTimeout          time.Duration
	SettleDelay         time.Duration
	PreNavDelayMax      time.Duration
	Stealth             StealthLevel
	ContentWaitAttempts int
	ContentWaitTimeout  time.Duration
	PointerSim          bool
	Headless            bool
}

// BrowserStrategy drives a stealth browser session according to its config
type BrowserStrategy struct {
	cfg       StrategyConfig
	extractor *FieldExtractor
	log       *logger.Logger
}

// NewBrowserStrategy creates a strategy from a config
func NewBrowserStrategy(cfg StrategyConfig, extractor *FieldExtractor) *BrowserStrategy {
	return &BrowserStrategy{
		cfg:       cfg,
		extractor: extractor,
		log:       logger.ForStrategy(cfg.Label),
	}
}

// Name returns the variant label
func (s *BrowserStrategy) Name() string {
	return s.cfg.Label
}

// Fetch runs the full recipe against a single URL. Session resources are
// released on every exit path.
func (s *BrowserStrategy) Fetch(ctx context.Context, url string) (*ListingRecord, error) {
	if s.cfg.PreNavDelayMax > 0 {
		// Human-like pause before navigating.
		delay := time.Duration(rand.Int63n(int64(s.cfg.PreNavDelayMax)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, apperrors.NewNavigation(s.cfg.Label, "cancelled before navigation", ctx.Err())
		}
	}

	sess, err := newSession(ctx, sessionConfig{
		Headless:   s.cfg.Headless,
		Stealth:    s.cfg.Stealth,
		PointerSim: s.cfg.PointerSim,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Navigate(url, s.cfg.NavTimeout); err != nil {
		return nil, err
	}

	sess.Settle(s.cfg.SettleDelay)

	if s.cfg.ContentWaitAttempts > 0 {
		sess.WaitForContent(contentSelector, s.cfg.ContentWaitAttempts, s.cfg.ContentWaitTimeout)
	}

	html, err := sess.CaptureHTML(10 * time.Second)
	if err != nil {
		return nil, err
	}

	record := s.extractor.ExtractFromReader(strings.NewReader(html), url)
	s.log.Debug().
		Str("url", url).
		Str("name", record.Name).
		Str("rating", record.Rating).
		Msg("Extraction attempt finished")
	return &record, nil
}

// StaticStrategy fetches the page with a plain HTTP GET and randomized
// browser headers. The target renders most content client-side, so this
// rarely succeeds on its own, but it is nearly free and occasionally the
// server-rendered shell carries the listing title.
type StaticStrategy struct {
	extractor *FieldExtractor
	log       *logger.Logger
}

// NewStaticStrategy creates the HTTP-only strategy
func NewStaticStrategy(extractor *FieldExtractor) *StaticStrategy {
	return &StaticStrategy{
		extractor: extractor,
		log:       logger.ForStrategy("static"),
	}
}

// Name identifies the strategy in logs
func (s *StaticStrategy) Name() string {
	return "static"
}

// Fetch retrieves and extracts without a browser
func (s *StaticStrategy) Fetch(ctx context.Context, url string) (*ListingRecord, error) {
	select {
	case <-ctx.Done():
		return nil, apperrors.NewNavigation("static", "cancelled", ctx.Err())
	default:
	}

	body, err := helpers.FetchWithRandomHeaders(url)
	if err != nil {
		return nil, apperrors.NewNavigation("static", "fetch failed", err)
	}

	record := s.extractor.ExtractFromReader(body, url)
	return &record, nil
}

// DefaultStrategies returns the fallback chain in priority order, fastest
// and cheapest first. The stealth variant is the most expensive and the
// most likely to get past active defenses; the static variant is a last
// probe before giving up on the network entirely.
func DefaultStrategies(headless, disablePointerSim bool) []Strategy {
	extractor := NewFieldExtractor(DefaultFieldSpecs())
	return []Strategy{
		NewBrowserStrategy(StrategyConfig{
			Label:       "fast",
			NavTimeout:  18 * time.Second,
			SettleDelay: 4 * time.Second,
			Stealth:     StealthMinimal,
			Headless:    headless,
		}, extractor),
		NewBrowserStrategy(StrategyConfig{
			Label:               "balanced",
			NavTimeout:          22 * time.Second,
			SettleDelay:         3 * time.Second,
			Stealth:             StealthPartial,
			ContentWaitAttempts: 1,
			ContentWaitTimeout:  5 * time.Second,
			Headless:            headless,
		}, extractor),
		NewBrowserStrategy(StrategyConfig{
			Label:               "stealth",
			NavTimeout:          28 * time.Second,
			SettleDelay:         3 * time.Second,
			PreNavDelayMax:      1500 * time.Millisecond,
			Stealth:             StealthFull,
			ContentWaitAttempts: 3,
			ContentWaitTimeout:  3 * time.Second,
			PointerSim:          !disablePointerSim,
			Headless:            headless,
		}, extractor),
		NewStaticStrategy(extractor),
	}
}
