package survey

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"surveyrunner/internal/components/assert"
	"surveyrunner/internal/components/telemetry"
	libtelemetry "surveyrunner/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_transport_get  = "transport.get"
	report_transport_post = "transport.post-form"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-GB,en;q=0.9"
)

// Transport is the only way the engine talks to the survey site. Bodies are
// returned as raw text.
type Transport interface {
	Get(ctx context.Context, url string) (string, error)
	PostForm(ctx context.Context, url string, form url.Values) (string, error)
}

type TransportOptions struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	// RequestsPerSecond caps the request rate on top of the engine's own
	// pacing, 0 disables the limiter.
	RequestsPerSecond float64
	// Output, if set, receives the full text of every exchange.
	Output telemetry.MessageOutput
}

// HttpTransport is a Transport that behaves like a single browser tab: one
// cookie jar, browser headers, redirects followed.
type HttpTransport struct {
	http *resty.Client
	tel  telemetry.API
}

func NewHttpTransport(opts TransportOptions, tel telemetry.API) (*HttpTransport, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("transport", tel)

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept-language", opts.AcceptLanguage)
	httpClient.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)
	libtelemetry.TraceResty(httpClient, "surveyrunner/scrapers/survey/transport")

	return &HttpTransport{http: httpClient, tel: tel}, nil
}

func (t *HttpTransport) Get(ctx context.Context, link string) (string, error) {
	res, err := t.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		t.tel.ReportBroken(report_transport_get, fmt.Errorf("fetch: %w", err), link)
		return "", fmt.Errorf("GET %s: %w", link, err)
	}
	if res.IsError() {
		t.tel.ReportWarning(report_transport_get, res.Status(), link)
		return "", fmt.Errorf("GET %s: unexpected status %s", link, res.Status())
	}
	return res.String(), nil
}

func (t *HttpTransport) PostForm(ctx context.Context, link string, form url.Values) (string, error) {
	res, err := t.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(link)
	if err != nil {
		t.tel.ReportBroken(report_transport_post, fmt.Errorf("fetch: %w", err), link)
		return "", fmt.Errorf("POST %s: %w", link, err)
	}
	if res.IsError() {
		t.tel.ReportWarning(report_transport_post, res.Status(), link)
		return "", fmt.Errorf("POST %s: unexpected status %s", link, res.Status())
	}
	return res.String(), nil
}
