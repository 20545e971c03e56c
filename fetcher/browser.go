package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"hdb-resale/models"
	"hdb-resale/utils"
)

// fetchScript runs fetch() inside the page; relative paths resolve against
// the page URL.
const fetchScript = `(async function(path) {
	const res = await fetch(path, { cache: "no-store" });
	return { ok: res.ok, status: res.status, body: await res.text() };
})(%s)`

// BrowserFetcher loads resources through headless Chrome.
type BrowserFetcher struct {
	pageURL   string
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
}

// NewBrowserFetcher creates a BrowserFetcher that opens pageURL and fetches
// from there.
func NewBrowserFetcher(pageURL, chromeBin string, timeout time.Duration, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{pageURL: pageURL, chromeBin: chromeBin, timeout: timeout, logger: logger}
}

type browserResult struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Fetch starts a browser, navigates to the page URL and evaluates fetch(path).
func (b *BrowserFetcher) Fetch(ctx context.Context, path string) (*models.FetchResult, error) {
	chromeBin := b.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	b.logger.Debug("[browser] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	if b.timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()
	}

	arg, err := json.Marshal(path)
	if err != nil {
		return nil, fmt.Errorf("fetcher: encode path: %w", err)
	}

	var res browserResult
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(b.pageURL),
		chromedp.Evaluate(fmt.Sprintf(fetchScript, arg), &res,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetcher: browser fetch %s: %w", path, err)
	}

	b.logger.Debug("[browser] %s → %d (%d bytes)", path, res.Status, len(res.Body))
	return &models.FetchResult{OK: res.OK, Status: res.Status, Body: res.Body}, nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
