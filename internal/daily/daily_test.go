package daily

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/concentration/internal/db"
)

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2026, 3, 2, 5, 0, 0, 0, loc)
	assert.Equal(t, "2026-03-01", DateKey(ts))
}

func TestSeed(t *testing.T) {
	day := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	later := day.Add(10 * time.Hour)
	next := day.Add(24 * time.Hour)

	assert.Equal(t, Seed(day, "salt"), Seed(later, "salt"), "same day, same seed")
	assert.NotEqual(t, Seed(day, "salt"), Seed(next, "salt"))
	assert.NotEqual(t, Seed(day, "salt"), Seed(day, "pepper"))
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(filepath.Join(t.TempDir(), "daily.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(ctx, sqlDB))
	st := NewStore(sqlDB)

	played, err := st.AlreadyPlayed(ctx, "a", "2026-10-19")
	require.NoError(t, err)
	assert.False(t, played)

	results := []Result{
		{UserID: "a", Date: "2026-10-19", Pairs: 8, Flips: 30, ElapsedMs: 5000},
		{UserID: "b", Date: "2026-10-19", Pairs: 8, Flips: 22, ElapsedMs: 9000},
		{UserID: "c", Date: "2026-10-19", Pairs: 8, Flips: 22, ElapsedMs: 7000},
		{UserID: "d", Date: "2026-10-18", Pairs: 8, Flips: 16, ElapsedMs: 1000},
	}
	for _, r := range results {
		require.NoError(t, st.InsertResult(ctx, r))
	}
	// Duplicate for the same day is ignored.
	require.NoError(t, st.InsertResult(ctx, Result{UserID: "a", Date: "2026-10-19", Pairs: 8, Flips: 16, ElapsedMs: 1}))

	played, err = st.AlreadyPlayed(ctx, "a", "2026-10-19")
	require.NoError(t, err)
	assert.True(t, played)

	top, err := st.Leaderboard(ctx, "2026-10-19", 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].UserID)
	assert.Equal(t, "b", top[1].UserID)
	assert.Equal(t, "a", top[2].UserID)
	assert.Equal(t, 30, top[2].Flips)

	top, err = st.Leaderboard(ctx, "2026-10-19", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
