package scraper

import (
	"fmt"
	"math/rand"

	"github.com/chromedp/chromedp"
)

// StealthLevel controls how much evasion a session applies
type StealthLevel int

const (
	// StealthMinimal hides only the automation flag
	StealthMinimal StealthLevel = iota
	// StealthPartial adds the navigation header set
	StealthPartial
	// StealthFull adds fabricated navigator properties and synthetic
	// pointer movement
	StealthFull
)

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// navigationHeaders mirrors the headers a real desktop browser sends on a
// top-level navigation.
var navigationHeaders = map[string]interface{}{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Encoding":           "gzip, deflate, br",
	"Accept-Language":           "en-US,en;q=0.9",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

// allocatorOptions returns the Chrome launch flag set. Sandboxing and GPU
// are unnecessary in a server context; background throttling would starve
// the page while we wait for content; AutomationControlled is the primary
// headless tell.
func allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("user-data-dir", fmt.Sprintf("/tmp/storefront-chrome-%d", rand.Int63())),
		chromedp.UserAgent(desktopUserAgent),
		chromedp.WindowSize(1366, 768),
	)
}

// stealthInitScript runs in the page before any of its own scripts. It
// hides the automation flag, fabricates a plausible plugin and mimeType
// list, fabricates navigator identity properties, and overrides
// permissions.query while still honoring legitimate "notifications"
// queries. Every step is wrapped so a failing override degrades silently.
const stealthInitScript = `(() => {
	try {
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
		delete Object.getPrototypeOf(navigator).webdriver;
	} catch (e) {}

	try {
		Object.defineProperty(navigator, 'plugins', {
			get: () => [{
				0: { type: 'application/x-google-chrome-pdf', suffixes: 'pdf', description: 'Portable Document Format' },
				description: 'Portable Document Format',
				filename: 'internal-pdf-viewer',
				length: 1,
				name: 'Chrome PDF Plugin'
			}]
		});
		Object.defineProperty(navigator, 'mimeTypes', {
			get: () => [{ type: 'application/pdf', suffixes: 'pdf', description: '' }]
		});
	} catch (e) {}

	try {
		Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
		Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
		Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
		Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
	} catch (e) {}

	try {
		if (!window.chrome) { window.chrome = {}; }
		window.chrome.runtime = { onConnect: undefined, onMessage: undefined };
	} catch (e) {}

	try {
		const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
		if (originalQuery) {
			window.navigator.permissions.query = (params) =>
				params.name === 'notifications'
					? Promise.resolve({ state: 'default' })
					: originalQuery(params);
		}
	} catch (e) {}
})();`

// pointerSimScript dispatches low-frequency synthetic mousemove events for
// a bounded 10 second window after load, defeating movement-absence
// heuristics. It runs entirely inside the page and never blocks
// extraction.
const pointerSimScript = `(() => {
	try {
		let x = Math.random() * window.innerWidth;
		let y = Math.random() * window.innerHeight;
		const move = setInterval(() => {
			x = Math.max(0, Math.min(window.innerWidth, x + (Math.random() - 0.5) * 50));
			y = Math.max(0, Math.min(window.innerHeight, y + (Math.random() - 0.5) * 50));
			document.dispatchEvent(new MouseEvent('mousemove', { clientX: x, clientY: y }));
		}, 1000 + Math.random() * 2000);
		setTimeout(() => clearInterval(move), 10000);
	} catch (e) {}
})();`
