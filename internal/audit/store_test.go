package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/records"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func action(failureID string, outcome records.CorrectionOutcome, at time.Time) records.CorrectionAction {
	return records.CorrectionAction{
		ID:           uuid.NewString(),
		FailureID:    failureID,
		TargetSystem: records.SystemAxisCare,
		TargetField:  records.FieldDuration,
		NewValue:     "30",
		AppliedAt:    at,
		Outcome:      outcome,
		AuditNote:    "test",
	}
}

func TestRecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, action("f-1", records.OutcomeFailed, base)))
	require.NoError(t, s.Record(ctx, action("f-1", records.OutcomeApplied, base.Add(time.Minute))))
	require.NoError(t, s.Record(ctx, action("f-2", records.OutcomeRejected, base.Add(2*time.Minute))))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "f-2", all[0].FailureID, "newest first")

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	history, err := s.ListByFailure(ctx, "f-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, records.OutcomeFailed, history[0].Outcome, "oldest first")
	assert.Equal(t, records.OutcomeApplied, history[1].Outcome)
	assert.Equal(t, base, history[0].AppliedAt)
}

func TestAtMostOneApplied(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, action("f-1", records.OutcomeApplied, base)))

	err := s.Record(ctx, action("f-1", records.OutcomeApplied, base.Add(time.Minute)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyCorrected))

	// Non-applied attempts are still recordable after an APPLIED one.
	require.NoError(t, s.Record(ctx, action("f-1", records.OutcomeFailed, base.Add(2*time.Minute))))
}

func TestAppliedExists(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	ok, err := s.AppliedExists(ctx, "f-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Record(ctx, action("f-1", records.OutcomeFailed, base)))
	ok, err = s.AppliedExists(ctx, "f-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Record(ctx, action("f-1", records.OutcomeApplied, base.Add(time.Minute))))
	ok, err = s.AppliedExists(ctx, "f-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), action("f-1", records.OutcomeApplied, time.Now())))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
