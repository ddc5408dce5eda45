package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"surveyrunner/internal/catalog"
	"surveyrunner/internal/history"
	"surveyrunner/internal/scrapers/survey"

	"github.com/stretchr/testify/require"
)

func TestRenderVersions(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	renderVersions(&out, cat)

	rendered := out.String()
	require.Contains(t, rendered, "mcdonalds")
	require.Contains(t, rendered, "https://www.mcdfoodforthoughts.com")
	require.Contains(t, rendered, "tacobell")
	require.Contains(t, rendered, "burgerking")
	require.Contains(t, rendered, "╭")
}

func TestRenderHistory(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

	var out bytes.Buffer
	renderHistory(&out, []history.Run{{
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
		Version:    "mcdonalds",
		Email:      "a@b.c",
		Strategy:   "auto",
		Outcome:    history.OutcomeSuccess,
		Message:    survey.SuccessMessage("a@b.c"),
		Iterations: 14,
	}})

	rendered := out.String()
	require.Contains(t, rendered, "2024-05-01 12:00:00")
	require.Contains(t, rendered, "success")
	require.Contains(t, rendered, "12s")
	require.Contains(t, rendered, "14")
}

func TestExecuteInvalidCodeIsRecorded(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	var out bytes.Buffer
	err := execute(context.Background(), runFlags{
		version: "mcdonalds",
		code:    "12345-6789",
		email:   "a@b.c",
		db:      db,
	}, &out)
	require.ErrorIs(t, err, survey.ErrInvalidReceiptCode)
	require.True(t, isTerminal(err))
	require.Contains(t, out.String(), survey.ErrInvalidReceiptCode.Error())

	store, err := history.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, history.OutcomeInvalidCode, runs[0].Outcome)
	require.Equal(t, "default", runs[0].Strategy)
	require.Equal(t, 0, runs[0].Iterations)
}

func TestExecuteUnsupportedVersionWithoutHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	var out bytes.Buffer
	err := execute(context.Background(), runFlags{
		version:   "tacobell",
		code:      "1-2-3",
		email:     "a@b.c",
		db:        db,
		noHistory: true,
	}, &out)
	require.ErrorIs(t, err, survey.ErrUnsupportedVersion)
	require.NoFileExists(t, db)
}

func TestExecuteBadStrategy(t *testing.T) {
	var out bytes.Buffer
	err := execute(context.Background(), runFlags{
		version:   "mcdonalds",
		code:      "1-2-3",
		email:     "a@b.c",
		strategy:  "carrier-pigeon",
		noHistory: true,
	}, &out)
	require.Error(t, err)
	require.False(t, isTerminal(err))
}
