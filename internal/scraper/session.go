package scraper

import (
	"context"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"sfhs/storefront/logger"
	apperrors "sfhs/storefront/pkg/errors"
)

// sessionConfig carries per-session overrides for the stealth builder
type sessionConfig struct {
	Headless   bool
	Stealth    StealthLevel
	PointerSim bool
}

// session wraps a single exclusive browser context. All resources are
// released through Close on every exit path; a strategy must defer it
// immediately after a successful build.
type session struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *logger.Logger
}

// newSession launches a headless browser and applies the configured
// stealth layers. Launch failure is a hard error surfaced to the caller;
// every stealth step after launch is best-effort and never fails the
// session.
func newSession(parent context.Context, cfg sessionConfig) (*session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocatorOptions(cfg.Headless)...)

	browserCtx, cancelCtx := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	s := &session{
		ctx:         browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		log:         logger.ForScraper(),
	}

	// Starting the browser is the only hard failure point.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, apperrors.NewLaunch("session", "failed to start browser", err)
	}

	s.applyStealth(cfg)
	return s, nil
}

// applyStealth injects environment overrides before any page content
// loads. Failures here leave the session usable but less disguised.
func (s *session) applyStealth(cfg sessionConfig) {
	if err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthInitScript).Do(ctx)
		return err
	})); err != nil {
		s.log.Debug().Err(err).Msg("Stealth script injection failed, continuing unmodified")
	}

	if cfg.Stealth >= StealthPartial {
		if err := chromedp.Run(s.ctx,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers(navigationHeaders)),
		); err != nil {
			s.log.Debug().Err(err).Msg("Header override failed, continuing unmodified")
		}
	}

	if cfg.Stealth >= StealthFull && cfg.PointerSim {
		if err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(pointerSimScript).Do(ctx)
			return err
		})); err != nil {
			s.log.Debug().Err(err).Msg("Pointer simulation injection failed, continuing unmodified")
		}
	}
}

// Navigate loads the URL within the timeout. A non-success response
// status, a timeout, or a network error is a recoverable navigation
// failure. Timeout expiry is the only cancellation mechanism, and it is
// always paired with resource release via Close.
func (s *session) Navigate(url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		return apperrors.NewNavigation("session", "navigation failed", err)
	}
	if resp != nil && resp.Status >= http.StatusBadRequest {
		return apperrors.NewNavigation("session", "page returned error status", nil)
	}
	return nil
}

// Settle waits a fixed delay for dynamic content
func (s *session) Settle(delay time.Duration) {
	if delay <= 0 {
		return
	}
	_ = chromedp.Run(s.ctx, chromedp.Sleep(delay))
}

// WaitForContent makes bounded attempts to observe a content-bearing
// selector. The wait is advisory: exhausting the budget is not a failure,
// extraction proceeds against whatever DOM exists.
func (s *session) WaitForContent(selector string, attempts int, perAttempt time.Duration) bool {
	for i := 0; i < attempts; i++ {
		waitCtx, cancel := context.WithTimeout(s.ctx, perAttempt)
		err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
		cancel()
		if err == nil {
			return true
		}
		s.Settle(time.Second)
	}
	s.log.Debug().Str("selector", selector).Msg("Content selector never became visible, extracting anyway")
	return false
}

// CaptureHTML returns the current outer HTML of the page
func (s *session) CaptureHTML(timeout time.Duration) (string, error) {
	captureCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(captureCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", apperrors.NewExtraction("session", "failed to capture page HTML", err)
	}
	return html, nil
}

// Close releases the browser process and all contexts. Safe to call more
// than once; release failures are observed, never re-raised.
func (s *session) Close() {
	if s.cancelCtx != nil {
		s.cancelCtx()
		s.cancelCtx = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
}
