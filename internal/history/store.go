package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"surveyrunner/internal/scrapers/survey"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeInvalidCode Outcome = "invalid_code"
	OutcomeUnsupported Outcome = "unsupported_version"
	OutcomeEntryPoint  Outcome = "entry_point"
	OutcomeRejected    Outcome = "rejected"
	OutcomeStructure   Outcome = "structure"
	OutcomeTimedOut    Outcome = "timed_out"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeFailed      Outcome = "failed"
)

// OutcomeOf classifies the error returned by survey.Runner.Run.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, survey.ErrInvalidReceiptCode):
		return OutcomeInvalidCode
	case errors.Is(err, survey.ErrUnsupportedVersion):
		return OutcomeUnsupported
	case errors.Is(err, survey.ErrEntryFormNotFound),
		errors.Is(err, survey.ErrEntryPointMissing),
		errors.Is(err, survey.ErrRenderTimeout):
		return OutcomeEntryPoint
	case errors.Is(err, survey.ErrCodeRejected):
		return OutcomeRejected
	case errors.Is(err, survey.ErrStructureError):
		return OutcomeStructure
	case errors.Is(err, survey.ErrTimedOut):
		return OutcomeTimedOut
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	}
	return OutcomeFailed
}

// Run is one recorded invocation. receipt codes are never stored.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Version    string
	Email      string
	Strategy   string
	Outcome    Outcome
	Message    string
	Iterations int
}

type Store struct {
	db *sql.DB
}

func wrapOpen(err error) error {
	return fmt.Errorf("open history: %w", err)
}

// Open opens (creating if needed) the sqlite database at path, ":memory:"
// gives a store that lives as long as the process.
func Open(path string) (Store, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return Store{}, wrapOpen(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, wrapOpen(err)
	}
	// sqlite does not handle concurrent writers well, and an in memory
	// database only exists on one connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}

	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) Record(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`insert into run (
			started_at, finished_at, version, email,
			strategy, outcome, message, iterations
		) values (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Version,
		run.Email,
		run.Strategy,
		string(run.Outcome),
		run.Message,
		run.Iterations,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent runs first, limit <= 0 returns every run.
func (s Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select
			id, started_at, finished_at, version, email,
			strategy, outcome, message, iterations
		from run
		order by started_at desc, id desc
		limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt int64
		var outcome string
		err = rows.Scan(
			&run.ID,
			&startedAt,
			&finishedAt,
			&run.Version,
			&run.Email,
			&run.Strategy,
			&outcome,
			&run.Message,
			&run.Iterations,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.FinishedAt = time.UnixMilli(finishedAt)
		run.Outcome = Outcome(outcome)
		out = append(out, run)
	}
	return out, rows.Err()
}
