package survey

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"surveyrunner/internal/components/chrono"
	"surveyrunner/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testEmail = "someone@example.com"

func TestRunFinishesOnSentinel(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(3))
	f := newRunnerFixture(t, transport)

	result, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1234-5678-9012",
		Email:       testEmail,
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Iterations)
	require.Equal(t, "ABC123", result.EntryPoint)
	require.Len(t, transport.questionRequests(), 3)

	require.Equal(t, []time.Duration{
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		250 * time.Millisecond,
		250 * time.Millisecond,
	}, f.clock.Sleeps())

	require.Contains(t, f.reporter.messages, "Starting Process...")
	require.Contains(t, f.reporter.messages, "Answering questions (3)...")
	require.NotContains(t, f.reporter.messages, "Answering questions (4)...")
}

func TestRunTimesOut(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(-1))
	f := newRunnerFixture(t, transport)

	result, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1234-5678-9012",
		Email:       testEmail,
	})
	require.ErrorIs(t, err, ErrTimedOut)
	require.Equal(t, 24, result.Iterations)
	require.Len(t, transport.questionRequests(), 24)
}

func TestRunSentinelOnFirstPage(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(1))
	f := newRunnerFixture(t, transport)

	result, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Iterations)
	require.Len(t, transport.questionRequests(), 1)
}

func TestRunSentinelOnLastAllowedPage(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(24))
	f := newRunnerFixture(t, transport)

	result, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.NoError(t, err)
	require.Equal(t, 24, result.Iterations)
}

func TestRunSubmitsResolvedAnswers(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(2))
	f := newRunnerFixture(t, transport)

	_, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1234-5678-9012",
		Email:       testEmail,
	})
	require.NoError(t, err)

	posted := transport.questionRequests()
	require.Len(t, posted, 2)

	expected := url.Values{
		"IoNF":      {"101"},
		"PostedFNS": {"fns-101"},
		"R000002":   {"3"},
		"S000070":   {testEmail},
		"S000099":   {""},
	}
	if diff := cmp.Diff(expected, posted[0].form); diff != "" {
		t.Fatalf("first submission mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, testBaseUrl+"/Survey.aspx?ABC123", posted[0].url)

	// the tokens of the page being answered are echoed, not the next page's
	require.Equal(t, DefaultSentinel, posted[1].form.Get("IoNF"))
}

func TestRunBootstrapRequests(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(1))
	f := newRunnerFixture(t, transport)

	_, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1234-5678-9012",
		Email:       testEmail,
	})
	require.NoError(t, err)

	requests := transport.requests
	require.GreaterOrEqual(t, len(requests), 4)

	require.Equal(t, "GET", requests[0].method)
	require.Equal(t, testBaseUrl, requests[0].url)

	require.Equal(t, testBaseUrl+"/Index.aspx?ABC123", requests[1].url)
	require.Equal(t, "1", requests[1].form.Get("P"))
	require.Equal(t, "Continue", requests[1].form.Get("NextButton"))

	require.Equal(t, testBaseUrl+"/Index.aspx?ABC123", requests[2].url)
	require.Equal(t, "2", requests[2].form.Get("P"))
	require.Equal(t, "1", requests[2].form.Get("Receipt"))

	require.Equal(t, testBaseUrl+"/Survey.aspx?ABC123", requests[3].url)
	require.Equal(t, "1234", requests[3].form.Get("CN1"))
	require.Equal(t, "5678", requests[3].form.Get("CN2"))
	require.Equal(t, "9012", requests[3].form.Get("CN3"))
	require.Equal(t, "1", requests[3].form.Get("Pound"))
	require.Equal(t, "99", requests[3].form.Get("Pence"))
	require.Equal(t, "Start", requests[3].form.Get("NextButton"))
}

func TestRunCodeRejected(t *testing.T) {
	cases := []struct {
		name       string
		setup      func(s *scriptedTransport)
		wantReason string
	}{
		{
			name: "block page during bootstrap",
			setup: func(s *scriptedTransport) {
				s.indexBody = blockPage
			},
			wantReason: "Sorry, we are unable to continue the survey at this time.",
		},
		{
			name: "error after code submission",
			setup: func(s *scriptedTransport) {
				s.page = func(int) string { return errorPage }
			},
			wantReason: "The code you entered has expired.",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			transport := newScriptedTransport(sentinelOn(1))
			test.setup(transport)
			f := newRunnerFixture(t, transport)

			result, err := f.runner.Run(context.Background(), Input{
				Version:     "burgers",
				ReceiptCode: "1234-5678-9012",
				Email:       testEmail,
			})
			require.ErrorIs(t, err, ErrCodeRejected)
			require.Contains(t, err.Error(), test.wantReason)
			require.Equal(t, 0, result.Iterations)
			require.Empty(t, transport.questionRequests())
		})
	}
}

func TestRunInvalidReceiptCodeMakesNoRequests(t *testing.T) {
	for _, code := range []string{"", "12345678", "1234-5678", "1234--9012", "-5678-9012", "1234-5678-", "1-2-3-4"} {
		transport := newScriptedTransport(sentinelOn(1))
		f := newRunnerFixture(t, transport)

		_, err := f.runner.Run(context.Background(), Input{
			Version:     "burgers",
			ReceiptCode: code,
			Email:       testEmail,
		})
		require.ErrorIs(t, err, ErrInvalidReceiptCode, code)
		require.Equal(t, 0, transport.requestCount(), code)
		require.Empty(t, f.reporter.messages, code)
	}
}

func TestRunUnsupportedVersionMakesNoRequests(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(1))
	f := newRunnerFixture(t, transport)

	_, err := f.runner.Run(context.Background(), Input{
		Version:     "tacos",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	require.Equal(t, 0, transport.requestCount())
}

func TestRunMissingTokensIsStructureError(t *testing.T) {
	transport := newScriptedTransport(func(n int) string {
		if n == 2 {
			return `<html><body><form><input type="text" name="R000001"></form></body></html>`
		}
		return questionPage("100")
	})
	f := newRunnerFixture(t, transport)

	result, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.ErrorIs(t, err, ErrStructureError)
	require.Equal(t, 1, result.Iterations)
	require.Len(t, transport.questionRequests(), 1)
	require.NotEmpty(t, f.tel.Reports(telemetry.KindBroken))
}

func TestRunEmptyTokenIsStructureError(t *testing.T) {
	transport := newScriptedTransport(func(n int) string {
		return `<html><body>
<input type="hidden" id="IoNF" value="5">
<input type="hidden" id="PostedFNS" value="">
</body></html>`
	})
	f := newRunnerFixture(t, transport)

	_, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.ErrorIs(t, err, ErrStructureError)
	require.Empty(t, transport.questionRequests())
}

func TestRunEntryFormMissing(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(1))
	transport.landing = landingPageScript
	f := newRunnerFixture(t, transport)

	_, err := f.runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.ErrorIs(t, err, ErrEntryFormNotFound)
	require.Equal(t, 1, transport.requestCount())
}

func TestRunStrategyOverride(t *testing.T) {
	transport := newScriptedTransport(sentinelOn(1))
	var asked []Strategy

	runner := NewRunner(RunnerOptions{
		Catalog:   staticCatalog{"burgers": testSite()},
		Transport: transport,
		Resolvers: func(strategy Strategy) (Resolver, error) {
			asked = append(asked, strategy)
			return nil, errors.New("no resolver")
		},
		Clock:    chrono.NewFakeImpl(time.Now()),
		Tel:      &telemetry.RecordingAPI{},
		Options:  DefaultOptions(),
		Strategy: StrategyBrowser,
	})

	_, err := runner.Run(context.Background(), Input{
		Version:     "burgers",
		ReceiptCode: "1-2-3",
		Email:       testEmail,
	})
	require.Error(t, err)
	require.Equal(t, []Strategy{StrategyBrowser}, asked)
	require.Equal(t, 0, transport.requestCount())
}

func TestSuccessMessage(t *testing.T) {
	require.Equal(t, "Code generated and emailed to a@b.co.", SuccessMessage("a@b.co"))
}
