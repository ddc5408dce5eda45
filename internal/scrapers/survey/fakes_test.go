package survey

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"surveyrunner/internal/components/chrono"
	"surveyrunner/internal/components/telemetry"

	_ "embed"
)

//go:embed testdata/landing_page.html
var landingPage string

//go:embed testdata/landing_page_script.html
var landingPageScript string

//go:embed testdata/question_page.html
var questionPageFixture string

//go:embed testdata/block_page.html
var blockPage string

//go:embed testdata/error_page.html
var errorPage string

const testBaseUrl = "https://survey.example.com"

type request struct {
	method string
	url    string
	form   url.Values
}

// scriptedTransport plays back a fixed survey. Question page n (1-indexed)
// is the response to the code submission when n is 1 and the response to
// question submission n-1 after that.
type scriptedTransport struct {
	mu sync.Mutex

	landing   string
	indexBody string
	page      func(n int) string

	requests      []request
	questionPosts int
}

func newScriptedTransport(page func(n int) string) *scriptedTransport {
	return &scriptedTransport{
		landing:   landingPage,
		indexBody: "<html><body><form></form></body></html>",
		page:      page,
	}
}

func (s *scriptedTransport) Get(ctx context.Context, link string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request{method: "GET", url: link})
	return s.landing, nil
}

func (s *scriptedTransport) PostForm(ctx context.Context, link string, form url.Values) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request{method: "POST", url: link, form: form})

	switch {
	case strings.Contains(link, "/Index.aspx?"):
		return s.indexBody, nil
	case form.Has("CN1"):
		return s.page(1), nil
	default:
		s.questionPosts++
		return s.page(s.questionPosts + 1), nil
	}
}

func (s *scriptedTransport) questionRequests() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []request
	for _, r := range s.requests {
		if r.method == "POST" && strings.Contains(r.url, "/Survey.aspx?") && !r.form.Has("CN1") {
			out = append(out, r)
		}
	}
	return out
}

func (s *scriptedTransport) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func questionPage(ionf string) string {
	return fmt.Sprintf(`<html><body>
<form id="surveyForm" method="post">
	<input type="hidden" id="IoNF" name="IoNF" value="%s">
	<input type="hidden" id="PostedFNS" name="PostedFNS" value="fns-%s">
	<input type="radio" name="R000002" value="5">
	<input type="radio" name="R000002" value="4">
	<input type="text" name="S000070">
	<textarea name="S000099"></textarea>
</form>
</body></html>`, ionf, ionf)
}

// sentinelOn returns a page script whose page n carries the sentinel.
func sentinelOn(n int) func(int) string {
	return func(i int) string {
		if i == n {
			return questionPage(DefaultSentinel)
		}
		return questionPage(fmt.Sprint(100 + i))
	}
}

type staticCatalog map[string]Site

func (c staticCatalog) Lookup(version string) (Site, error) {
	site, ok := c[version]
	if !ok {
		return Site{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return site, nil
}

func testSite() Site {
	return Site{
		Version:       "burgers",
		BaseUrl:       testBaseUrl,
		EntryStrategy: StrategyHttp,
		Sentinel:      DefaultSentinel,
		Price:         Price{Pound: "1", Pence: "99"},
		Policy: NewPolicy(map[string]string{
			"R000002": "3",
			"S000070": EmailPlaceholder,
		}, ""),
	}
}

type recordingReporter struct {
	messages []string
}

func (r *recordingReporter) Progress(message string) {
	r.messages = append(r.messages, message)
}

type runnerFixture struct {
	runner    *Runner
	transport *scriptedTransport
	clock     *chrono.FakeImpl
	tel       *telemetry.RecordingAPI
	reporter  *recordingReporter
}

func newRunnerFixture(t testing.TB, transport *scriptedTransport) runnerFixture {
	t.Helper()

	clock := chrono.NewFakeImpl(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	tel := &telemetry.RecordingAPI{}
	reporter := &recordingReporter{}
	opts := DefaultOptions()

	runner := NewRunner(RunnerOptions{
		Catalog:   staticCatalog{"burgers": testSite()},
		Transport: transport,
		Resolvers: func(strategy Strategy) (Resolver, error) {
			return NewResolver(strategy, transport, nil, opts.RenderTimeout, tel)
		},
		Clock:    clock,
		Tel:      tel,
		Reporter: reporter,
		Options:  opts,
	})

	return runnerFixture{
		runner:    runner,
		transport: transport,
		clock:     clock,
		tel:       tel,
		reporter:  reporter,
	}
}
