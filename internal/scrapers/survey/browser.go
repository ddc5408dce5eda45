package survey

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	// ExecPath is the chrome binary, empty means auto-detect.
	ExecPath       string
	UserAgent      string
	AcceptLanguage string
	// Visible runs chrome with a window, which some sites require.
	Visible bool
}

type chromeSession struct {
	ctx            context.Context
	cancel         context.CancelFunc
	acceptLanguage string
}

// ChromeLauncher returns a Launcher that starts a fresh chrome process per
// session through chromedp.
func ChromeLauncher(opts ChromeOptions) Launcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}

	return func(ctx context.Context) (BrowserSession, error) {
		allocOpts := []chromedp.ExecAllocatorOption{
			chromedp.NoDefaultBrowserCheck,
			chromedp.NoFirstRun,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("exclude-switches", "enable-automation"),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(opts.UserAgent),
			chromedp.WindowSize(1280, 900),
		}
		if !opts.Visible {
			allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
		}
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		cancel := func() {
			browserCancel()
			allocCancel()
		}

		// starts the browser process so launch failures surface here
		err := chromedp.Run(browserCtx)
		if err != nil {
			cancel()
			return nil, err
		}

		return &chromeSession{
			ctx:            browserCtx,
			cancel:         cancel,
			acceptLanguage: opts.AcceptLanguage,
		}, nil
	}
}

// FormAction loads pageUrl and reads the action of the form matching
// selector. Loading, rendering and reading all share the wait deadline.
func (s *chromeSession) FormAction(ctx context.Context, pageUrl, selector string, wait time.Duration) (string, bool, error) {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	waitCtx, cancelWait := context.WithTimeout(s.ctx, wait)
	defer cancelWait()

	var action string
	var ok bool
	err := chromedp.Run(
		waitCtx,
		network.SetExtraHTTPHeaders(network.Headers(map[string]any{
			"Accept-Language": s.acceptLanguage,
		})),
		chromedp.Navigate(pageUrl),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.AttributeValue(selector, "action", &action, &ok, chromedp.ByQuery),
	)
	if err != nil {
		return "", false, err
	}
	return action, ok, nil
}

// Close shuts the browser down gracefully and then releases the allocator,
// which kills the chrome process if it is still around.
func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	return err
}
