package survey

import (
	"context"
	"fmt"
	"net/url"
)

const report_engine_bootstrap = "engine.bootstrap"

type bootstrapStep struct {
	progress string
	page     string
	form     url.Values
}

func bootstrapSteps(site Site, code ReceiptCode) []bootstrapStep {
	return []bootstrapStep{
		{
			progress: "Continuing past the landing page...",
			page:     indexPage,
			form: url.Values{
				"JavascriptEnabled": {"1"},
				"FIP":               {"True"},
				"P":                 {"1"},
				"NextButton":        {"Continue"},
			},
		},
		{
			progress: "Selecting receipt entry...",
			page:     indexPage,
			form: url.Values{
				"JavascriptEnabled": {"1"},
				"FIP":               {"True"},
				"P":                 {"2"},
				"Receipt":           {"1"},
				"NextButton":        {"Next"},
			},
		},
		{
			progress: "Submitting receipt code...",
			page:     surveyPage,
			form: url.Values{
				"JavascriptEnabled": {"1"},
				"FIP":               {"True"},
				"CN1":               {code.CN1},
				"CN2":               {code.CN2},
				"CN3":               {code.CN3},
				"Pound":             {site.Price.Pound},
				"Pence":             {site.Price.Pence},
				"NextButton":        {"Start"},
			},
		},
	}
}

// bootstrap walks the landing, receipt selection and code submission pages.
// On success session.LastResponseBody holds the first question page.
func (r *Runner) bootstrap(ctx context.Context, site Site, session *Session, code ReceiptCode) error {
	ctx, span := tracer.Start(ctx, "runner:bootstrap")
	defer span.End()

	for i, step := range bootstrapSteps(site, code) {
		r.clock.Sleep(r.opts.SettleDelay)
		r.progress(step.progress)

		body, err := r.transport.PostForm(ctx, pageUrl(site.BaseUrl, step.page, session.EntryPoint), step.form)
		if err != nil {
			return fmt.Errorf("bootstrap step %d: %w", i+1, err)
		}
		session.LastResponseBody = body

		doc, err := parsePage(body)
		if err != nil {
			r.tel.ReportBroken(report_engine_bootstrap, err, i+1)
			return fmt.Errorf("bootstrap step %d: %w", i+1, err)
		}
		reason, rejected := rejection(doc)
		if rejected {
			r.tel.ReportWarning(report_engine_bootstrap, "rejected", i+1, reason)
			if reason == "" {
				return ErrCodeRejected
			}
			return fmt.Errorf("%w: %s", ErrCodeRejected, reason)
		}
	}

	return nil
}
