package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"surveyrunner/internal/catalog"
	"surveyrunner/internal/components/chrono"
	"surveyrunner/internal/components/telemetry"
	"surveyrunner/internal/history"
	"surveyrunner/internal/scrapers/survey"
	libtelemetry "surveyrunner/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type runFlags struct {
	version     string
	code        string
	email       string
	strategy    string
	catalogPath string
	dumpHttp    string
	db          string
	noHistory   bool
	chromePath  string
	visible     bool
}

var runOpts runFlags

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&runOpts.version, "version", "", "The survey version to run, see the versions command.")
	flags.StringVar(&runOpts.code, "code", "", "The receipt code, three parts separated by hyphens.")
	flags.StringVar(&runOpts.email, "email", "", "The address the reward code is emailed to.")
	flags.StringVar(&runOpts.strategy, "strategy", "", "Override how the entry point is found: http, browser or auto.")
	flags.StringVar(&runOpts.catalogPath, "catalog", "", "A json5 catalog laid over the built in one.")
	flags.StringVar(&runOpts.dumpHttp, "dump-http", "", "Write every http exchange to this directory.")
	flags.StringVar(&runOpts.db, "db", defaultDbPath(), "The run history database.")
	flags.BoolVar(&runOpts.noHistory, "no-history", false, "Do not record this run.")
	flags.StringVar(&runOpts.chromePath, "chrome", "", "Path to the chrome binary used by the browser strategy.")
	flags.BoolVar(&runOpts.visible, "visible", false, "Show the browser window used by the browser strategy.")
	runCmd.MarkFlagRequired("version")
	runCmd.MarkFlagRequired("code")
	runCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --version <version> --code <A-B-C> --email <address>",
	Short: "Completes one survey and has the code emailed to you.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tracing, err := libtelemetry.SetupFromEnv(ctx, "surveyrunner")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		defer func() {
			stats := libtelemetry.RecordPerfStats(context.Background())
			slog.Debug(
				"perf stats",
				"cpu", stats.CpuPercent,
				"allocated_mb", stats.AllocatedMb,
				"goroutines", stats.Goroutines,
			)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			err := tracing.Shutdown(shutdownCtx)
			if err != nil {
				slog.Warn("failed to flush telemetry", "err", err)
			}
		}()

		return execute(ctx, runOpts, cmd.OutOrStdout())
	},
}

// terminalError has already been shown to the user.
type terminalError struct {
	err error
}

func (e terminalError) Error() string {
	return e.err.Error()
}

func (e terminalError) Unwrap() error {
	return e.err
}

type lineReporter struct {
	out io.Writer
}

func (r lineReporter) Progress(message string) {
	fmt.Fprintln(r.out, text.Colors{text.FgHiBlack}.Sprint(message))
}

func newRunner(flags runFlags, cat catalog.Catalog, out io.Writer, tel telemetry.API) (*survey.Runner, error) {
	var override survey.Strategy
	if flags.strategy != "" {
		strategy, err := survey.ParseStrategy(flags.strategy)
		if err != nil {
			return nil, err
		}
		override = strategy
	}

	transportOpts := survey.TransportOptions{}
	if flags.dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(flags.dumpHttp)
		if err != nil {
			return nil, fmt.Errorf("create http dump dir: %w", err)
		}
		transportOpts.Output = output
	}
	transport, err := survey.NewHttpTransport(transportOpts, tel)
	if err != nil {
		return nil, err
	}

	opts := survey.DefaultOptions()
	launch := survey.ChromeLauncher(survey.ChromeOptions{
		ExecPath: flags.chromePath,
		Visible:  flags.visible,
	})

	return survey.NewRunner(survey.RunnerOptions{
		Catalog:   cat,
		Transport: transport,
		Resolvers: func(strategy survey.Strategy) (survey.Resolver, error) {
			return survey.NewResolver(strategy, transport, launch, opts.RenderTimeout, tel)
		},
		Clock:    chrono.NewStandardImpl(),
		Tel:      tel,
		Reporter: lineReporter{out: out},
		Options:  opts,
		Strategy: override,
	}), nil
}

func execute(ctx context.Context, flags runFlags, out io.Writer) error {
	tel := telemetry.SlogAPI{}

	cat, err := catalog.Load(flags.catalogPath)
	if err != nil {
		return err
	}
	runner, err := newRunner(flags, cat, out, tel)
	if err != nil {
		return err
	}

	started := time.Now()
	result, runErr := runner.Run(ctx, survey.Input{
		Version:     flags.version,
		ReceiptCode: flags.code,
		Email:       flags.email,
	})
	finished := time.Now()

	message := survey.SuccessMessage(flags.email)
	if runErr != nil {
		message = runErr.Error()
		fmt.Fprintln(out, text.Colors{text.FgRed, text.Bold}.Sprint(message))
	} else {
		fmt.Fprintln(out, text.Colors{text.FgGreen, text.Bold}.Sprint(message))
	}

	if !flags.noHistory {
		recordRun(flags, history.Run{
			StartedAt:  started,
			FinishedAt: finished,
			Version:    result.Version,
			Email:      flags.email,
			Strategy:   flags.strategy,
			Outcome:    history.OutcomeOf(runErr),
			Message:    message,
			Iterations: result.Iterations,
		})
	}

	if runErr != nil {
		return terminalError{err: runErr}
	}
	return nil
}

// recordRun never fails the run, the survey has already happened.
func recordRun(flags runFlags, run history.Run) {
	if run.Strategy == "" {
		run.Strategy = "default"
	}

	store, err := history.Open(flags.db)
	if err != nil {
		slog.Warn("failed to open run history", "db", flags.db, "err", err)
		return
	}
	defer store.Close()

	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	_, err = store.Record(ctx, run)
	if err != nil {
		slog.Warn("failed to record run", "db", flags.db, "err", err)
	}
}

func isTerminal(err error) bool {
	var terminal terminalError
	return errors.As(err, &terminal)
}
