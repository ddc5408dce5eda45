package survey

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"surveyrunner/internal/components/assert"
	"surveyrunner/internal/components/chrono"
	"surveyrunner/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("surveyrunner/scrapers/survey")

const (
	report_engine_run    = "engine.run"
	report_engine_answer = "engine.answer"
)

type Options struct {
	// SettleDelay is waited before each bootstrap request.
	SettleDelay time.Duration
	// QuestionDelay is waited between question submissions.
	QuestionDelay time.Duration
	// RenderTimeout bounds how long the headless browser waits for the
	// entry form.
	RenderTimeout time.Duration
	// MaxIterations is how many question pages are submitted before giving up.
	MaxIterations int
}

func DefaultOptions() Options {
	return Options{
		SettleDelay:   500 * time.Millisecond,
		QuestionDelay: 250 * time.Millisecond,
		RenderTimeout: 10 * time.Second,
		MaxIterations: 24,
	}
}

// Input is what a user supplies for one run.
type Input struct {
	Version     string
	ReceiptCode string
	Email       string
}

// Result describes a run, on failure it describes how far the run got.
type Result struct {
	Version    string
	Email      string
	EntryPoint string
	// Iterations is the number of question pages submitted.
	Iterations int
}

func SuccessMessage(email string) string {
	return fmt.Sprintf("Code generated and emailed to %s.", email)
}

// Session is the state threaded through one run, it is never persisted.
type Session struct {
	EntryPoint       string
	LastResponseBody string
	Tokens           Tokens
}

// Reporter receives human readable progress, one message per step.
type Reporter interface {
	Progress(message string)
}

// ResolverFactory builds the entry point resolver for a site's strategy.
type ResolverFactory func(strategy Strategy) (Resolver, error)

type RunnerOptions struct {
	Catalog   Catalog
	Transport Transport
	Resolvers ResolverFactory
	Clock     chrono.API
	Tel       telemetry.API
	// Reporter may be nil.
	Reporter Reporter
	Options  Options
	// Strategy, if set, replaces the site's configured entry strategy.
	Strategy Strategy
}

// Runner performs survey runs. It keeps no state between runs.
type Runner struct {
	catalog   Catalog
	transport Transport
	resolvers ResolverFactory
	clock     chrono.API
	tel       telemetry.API
	reporter  Reporter
	opts      Options
	strategy  Strategy
}

func NewRunner(o RunnerOptions) *Runner {
	assert.NotNil(o.Catalog)
	assert.NotNil(o.Transport)
	assert.NotNil(o.Resolvers)
	assert.NotNil(o.Clock)
	assert.NotNil(o.Tel)
	assert.Positive(o.Options.MaxIterations)

	return &Runner{
		catalog:   o.Catalog,
		transport: o.Transport,
		resolvers: o.Resolvers,
		clock:     o.Clock,
		tel:       telemetry.NewScopedAPI("survey", o.Tel),
		reporter:  o.Reporter,
		opts:      o.Options,
		strategy:  o.Strategy,
	}
}

func (r *Runner) progress(message string) {
	if r.reporter != nil {
		r.reporter.Progress(message)
	}
}

// Run completes one survey. The receipt code and version are validated
// before anything touches the network.
func (r *Runner) Run(ctx context.Context, in Input) (Result, error) {
	ctx, span := tracer.Start(ctx, "runner:Run")
	defer span.End()
	span.SetAttributes(attribute.String("survey.version", in.Version))

	result := Result{Version: in.Version, Email: in.Email}

	fail := func(err error) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	code, err := ParseReceiptCode(in.ReceiptCode)
	if err != nil {
		return fail(err)
	}
	site, err := r.catalog.Lookup(in.Version)
	if err != nil {
		return fail(err)
	}

	strategy := site.EntryStrategy
	if r.strategy != "" {
		strategy = r.strategy
	}
	resolver, err := r.resolvers(strategy)
	if err != nil {
		return fail(err)
	}

	r.progress("Starting Process...")

	entry, err := r.resolveEntryPoint(ctx, resolver, site.BaseUrl)
	if err != nil {
		return fail(err)
	}
	result.EntryPoint = entry
	session := &Session{EntryPoint: entry}

	err = r.bootstrap(ctx, site, session, code)
	if err != nil {
		return fail(err)
	}

	result.Iterations, err = r.answer(ctx, site, session, in.Email)
	r.tel.ReportCount(report_engine_run, int64(result.Iterations))
	if err != nil {
		return fail(err)
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (r *Runner) resolveEntryPoint(ctx context.Context, resolver Resolver, baseUrl string) (string, error) {
	ctx, span := tracer.Start(ctx, "runner:resolveEntryPoint")
	defer span.End()

	r.progress("Finding survey entry point...")
	entry, err := resolver.Resolve(ctx, baseUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to resolve entry point")
		return "", err
	}
	span.SetAttributes(attribute.String("survey.entry_point", entry))
	return entry, nil
}

// answer submits question pages until the page submitted carried the
// sentinel. It returns the number of pages submitted.
func (r *Runner) answer(ctx context.Context, site Site, session *Session, email string) (int, error) {
	surveyUrl := SurveyUrl(site.BaseUrl, session.EntryPoint)

	for n := 1; ; n++ {
		err := ctx.Err()
		if err != nil {
			return n - 1, err
		}

		finished, err := r.answerPage(ctx, n, surveyUrl, site, session, email)
		if err != nil {
			return n - 1, err
		}
		if finished {
			return n, nil
		}
		if n >= r.opts.MaxIterations {
			r.tel.ReportWarning(report_engine_answer, "iteration ceiling reached", n)
			return n, fmt.Errorf("%w after %d pages", ErrTimedOut, n)
		}

		r.clock.Sleep(r.opts.QuestionDelay)
	}
}

// answerPage submits the page in session.LastResponseBody. It reports
// finished when the tokens read off that page, before submitting, carried
// the sentinel.
func (r *Runner) answerPage(ctx context.Context, n int, surveyUrl string, site Site, session *Session, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "runner:answerPage")
	defer span.End()
	span.SetAttributes(attribute.Int("survey.iteration", n))

	r.progress(fmt.Sprintf("Answering questions (%d)...", n))

	doc, err := parsePage(session.LastResponseBody)
	if err != nil {
		r.tel.ReportBroken(report_engine_answer, err, n)
		return false, err
	}
	tokens, err := readTokens(doc)
	if err != nil {
		r.tel.ReportBroken(report_engine_answer, err, n)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	session.Tokens = tokens

	questions := collectQuestions(doc)
	form := url.Values{}
	for _, q := range questions {
		form.Set(q.Name, site.Policy.Resolve(q.Name, email))
	}
	form.Set(fieldSessionToken, tokens.Session)
	form.Set(fieldPostbackToken, tokens.Postback)

	r.tel.ReportDebug(report_engine_answer, n, len(questions))

	body, err := r.transport.PostForm(ctx, surveyUrl, form)
	if err != nil {
		return false, fmt.Errorf("submit page %d: %w", n, err)
	}
	session.LastResponseBody = body

	return tokens.Session == site.Sentinel, nil
}
