package browser

import (
	"math/rand"

	"github.com/chromedp/chromedp"
)

// Viewport is a plausible desktop screen size. Picked at random per session
// so runs don't share a fingerprint.
type Viewport struct {
	Width  int
	Height int
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1440, 900},
	{1536, 864},
	{1680, 1050},
	{2560, 1440},
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func pickViewport(r *rand.Rand) Viewport {
	return viewports[r.Intn(len(viewports))]
}

func pickUserAgent(r *rand.Rand) string {
	return userAgents[r.Intn(len(userAgents))]
}

// stealthScript runs on every new document before page scripts do. It hides
// the usual automation tells: navigator.webdriver, the empty plugin list,
// the missing window.chrome object.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined,
});

Object.defineProperty(navigator, 'plugins', {
	get: () => [1, 2, 3, 4, 5],
});

Object.defineProperty(navigator, 'languages', {
	get: () => ['en-US', 'en'],
});

Object.defineProperty(navigator, 'hardwareConcurrency', {
	get: () => 8,
});

window.chrome = {
	runtime: {},
	loadTimes: function() {},
	csi: function() {},
};

const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: originalQuery(parameters)
);
`

// allocatorOptions builds the Chrome launch flags for a fresh instance.
func allocatorOptions(headless bool, userAgent string, vp Viewport) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.WindowSize(vp.Width, vp.Height),
		chromedp.UserAgent(userAgent),
	)
}
