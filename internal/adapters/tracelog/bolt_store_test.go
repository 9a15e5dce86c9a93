package tracelog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func trace(attemptID string, at time.Time) *domain.TraceRecord {
	return &domain.TraceRecord{
		AttemptID:    attemptID,
		RetailerCode: "R01001",
		Gateway:      domain.GatewayEV,
		Operation:    "recharge",
		State:        string(domain.StateDone),
		Entries:      []string{"balance: no balance in message"},
		CreatedAt:    at,
	}
}

func TestStore_WriteAndGet(t *testing.T) {
	s := openStore(t)
	rec := trace("a-1", time.Time{})

	require.NoError(t, s.WriteTrace(context.Background(), rec))
	require.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.AttemptID)
	assert.Equal(t, []string{"balance: no balance in message"}, got.Entries)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	for i, id := range []string{"a-1", "a-2", "a-3"} {
		require.NoError(t, s.WriteTrace(context.Background(), trace(id, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-3", all[0].AttemptID)
	assert.Equal(t, "a-1", all[2].AttemptID)

	two, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestStore_ListByAttempt(t *testing.T) {
	s := openStore(t)
	now := time.Now().UTC()
	require.NoError(t, s.WriteTrace(context.Background(), trace("a-1", now)))
	require.NoError(t, s.WriteTrace(context.Background(), trace("a-2", now)))
	require.NoError(t, s.WriteTrace(context.Background(), trace("a-1", now.Add(time.Second))))

	got, err := s.ListByAttempt("a-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	none, err := s.ListByAttempt("nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Prune(t *testing.T) {
	s := openStore(t)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.WriteTrace(context.Background(), trace("old", old)))
	require.NoError(t, s.WriteTrace(context.Background(), trace("recent", recent)))

	removed, err := s.Prune(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "recent", left[0].AttemptID)
}

func TestStore_WriteTraceCanceled(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.WriteTrace(ctx, trace("a-1", time.Time{})), context.Canceled)
}
