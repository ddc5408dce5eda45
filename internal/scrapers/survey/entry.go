package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"surveyrunner/internal/components/assert"
	"surveyrunner/internal/components/telemetry"
	"surveyrunner/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_entry_resolve_http    = "entry.resolve-http"
	report_entry_resolve_browser = "entry.resolve-browser"
	report_entry_fallback        = "entry.fallback"
)

const (
	entryFormSelector = "#surveyEntryForm"
	// how much of a page body is kept in errors for diagnosis
	diagnosticBodyLength = 500
)

// Strategy selects how the entry point is resolved.
type Strategy string

const (
	// StrategyHttp reads the entry form straight out of the landing page.
	StrategyHttp Strategy = "http"
	// StrategyBrowser renders the landing page in a headless browser first.
	StrategyBrowser Strategy = "browser"
	// StrategyAuto tries StrategyHttp and falls back to StrategyBrowser when
	// the entry form is not in the raw page.
	StrategyAuto Strategy = "auto"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyHttp:
		return StrategyHttp, nil
	case StrategyBrowser:
		return StrategyBrowser, nil
	case StrategyAuto, "":
		return StrategyAuto, nil
	}
	return "", fmt.Errorf("unknown entry strategy %q (expected http, browser or auto)", s)
}

// Resolver finds the entry point, the per-session query string every later
// request is made against.
type Resolver interface {
	Resolve(ctx context.Context, baseUrl string) (string, error)
}

func entryPointFromAction(action string, ok bool) (string, error) {
	if !ok || strings.TrimSpace(action) == "" {
		return "", ErrEntryPointMissing
	}
	return StripIndexPrefix(strings.TrimSpace(action)), nil
}

// HttpResolver is the plain fetch strategy.
type HttpResolver struct {
	transport Transport
	tel       telemetry.API
}

func NewHttpResolver(transport Transport, tel telemetry.API) HttpResolver {
	assert.NotNil(transport)
	assert.NotNil(tel)
	return HttpResolver{transport: transport, tel: tel}
}

func (r HttpResolver) Resolve(ctx context.Context, baseUrl string) (string, error) {
	body, err := r.transport.Get(ctx, baseUrl)
	if err != nil {
		return "", fmt.Errorf("fetch landing page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		r.tel.ReportBroken(report_entry_resolve_http, fmt.Errorf("parse: %w", err), baseUrl)
		return "", fmt.Errorf("parse landing page: %w", err)
	}

	form := doc.Find(entryFormSelector).First()
	if form.Length() == 0 {
		r.tel.ReportWarning(report_entry_resolve_http, "entry form not found", baseUrl)
		return "", fmt.Errorf(
			"%w, page body: %s",
			ErrEntryFormNotFound,
			htmlutil.Truncate(body, diagnosticBodyLength),
		)
	}

	entry, err := entryPointFromAction(form.Attr("action"))
	if err != nil {
		r.tel.ReportBroken(report_entry_resolve_http, err, baseUrl)
		return "", err
	}
	return entry, nil
}

// BrowserSession is one running headless browser.
type BrowserSession interface {
	// FormAction navigates to pageUrl, waits at most `wait` for selector to
	// show up in the rendered DOM, then reads its action attribute. A wait
	// that runs out is reported as context.DeadlineExceeded.
	FormAction(ctx context.Context, pageUrl, selector string, wait time.Duration) (action string, ok bool, err error)
	Close() error
}

// Launcher starts a browser session, the caller owns closing it.
type Launcher func(ctx context.Context) (BrowserSession, error)

// BrowserResolver is the headless render strategy, for landing pages that
// only build the entry form with script.
type BrowserResolver struct {
	launch  Launcher
	timeout time.Duration
	tel     telemetry.API
}

func NewBrowserResolver(launch Launcher, timeout time.Duration, tel telemetry.API) BrowserResolver {
	assert.NotNil(launch)
	assert.NotNil(tel)
	assert.Positive(timeout)
	return BrowserResolver{launch: launch, timeout: timeout, tel: tel}
}

func (r BrowserResolver) Resolve(ctx context.Context, baseUrl string) (string, error) {
	session, err := r.launch(ctx)
	if err != nil {
		r.tel.ReportBroken(report_entry_resolve_browser, fmt.Errorf("launch: %w", err))
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		closeErr := session.Close()
		if closeErr != nil {
			r.tel.ReportWarning(report_entry_resolve_browser, fmt.Errorf("close: %w", closeErr))
		}
	}()

	action, ok, err := session.FormAction(ctx, baseUrl, entryFormSelector, r.timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %s", ErrRenderTimeout, r.timeout)
		}
		r.tel.ReportBroken(report_entry_resolve_browser, err, baseUrl)
		return "", fmt.Errorf("render landing page: %w", err)
	}

	return entryPointFromAction(action, ok)
}

// FallbackResolver tries primary and only when its page had no entry form
// asks fallback.
type FallbackResolver struct {
	primary  Resolver
	fallback Resolver
	tel      telemetry.API
}

func NewFallbackResolver(primary, fallback Resolver, tel telemetry.API) FallbackResolver {
	assert.NotNil(primary)
	assert.NotNil(fallback)
	assert.NotNil(tel)
	return FallbackResolver{primary: primary, fallback: fallback, tel: tel}
}

func (r FallbackResolver) Resolve(ctx context.Context, baseUrl string) (string, error) {
	entry, err := r.primary.Resolve(ctx, baseUrl)
	if err == nil || !errors.Is(err, ErrEntryFormNotFound) {
		return entry, err
	}
	r.tel.ReportDebug(report_entry_fallback, baseUrl)
	return r.fallback.Resolve(ctx, baseUrl)
}

// NewResolver builds the resolver for a strategy. launch may be nil when
// the strategy is StrategyHttp.
func NewResolver(
	strategy Strategy,
	transport Transport,
	launch Launcher,
	renderTimeout time.Duration,
	tel telemetry.API,
) (Resolver, error) {
	tel = telemetry.NewScopedAPI("survey", tel)

	switch strategy {
	case StrategyHttp:
		return NewHttpResolver(transport, tel), nil
	case StrategyBrowser:
		if launch == nil {
			return nil, fmt.Errorf("strategy %q needs a browser launcher", strategy)
		}
		return NewBrowserResolver(launch, renderTimeout, tel), nil
	case StrategyAuto:
		if launch == nil {
			return NewHttpResolver(transport, tel), nil
		}
		return NewFallbackResolver(
			NewHttpResolver(transport, tel),
			NewBrowserResolver(launch, renderTimeout, tel),
			tel,
		), nil
	}
	return nil, fmt.Errorf("unknown entry strategy %q", strategy)
}
