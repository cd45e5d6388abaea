package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

func TestMemoryStoreSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, session.New(id, now)))
	}
	require.Len(t, store.sessions, 3)

	now = now.Add(2 * time.Hour)
	require.NoError(t, store.Create(ctx, session.New("d", now)))

	assert.Len(t, store.sessions, 1)
	assert.Contains(t, store.sessions, "d")
}
