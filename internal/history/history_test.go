package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/quickapply/internal/jobs"
)

func TestRecordAndAppliedURLs(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "run-1", &jobs.Listing{URL: "a", Title: "A", Company: "X", Outcome: jobs.OutcomeApplied}))
	require.NoError(t, store.Record(ctx, "run-1", &jobs.Listing{URL: "b", Title: "B", Company: "Y", Outcome: jobs.OutcomeFailed}))

	urls, err := store.AppliedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, urls)

	require.NoError(t, store.Record(ctx, "run-2", &jobs.Listing{URL: "b", Title: "B", Company: "Y", Outcome: jobs.OutcomeApplied}))

	urls, err = store.AppliedURLs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, urls)
}

func TestRecordKeepsAppliedOutcome(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "run-1", &jobs.Listing{URL: "u1", Title: "Go Dev", Outcome: jobs.OutcomeApplied}))
	require.NoError(t, store.Record(ctx, "run-2", &jobs.Listing{URL: "u1", Title: "Go Developer", Outcome: jobs.OutcomeFailed}))

	urls, err := store.AppliedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, urls)

	var title, runID string
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT title, run_id FROM applications WHERE url = ?`, "u1").Scan(&title, &runID))
	assert.Equal(t, "Go Developer", title)
	assert.Equal(t, "run-2", runID)
}

func TestOpenMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	urls, err := store.AppliedURLs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, urls)
}
