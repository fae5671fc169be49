package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/concentration/internal/db"
	"github.com/robalobadob/concentration/internal/game"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), sqlDB))
	return sqlDB
}

func insertUser(t *testing.T, sqlDB *sql.DB, id string) {
	t.Helper()
	_, err := sqlDB.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, "user_"+id, "x", time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, err)
}

// winGame plays g to completion by choosing each pair back to back.
func winGame(t *testing.T, g *game.Game) {
	t.Helper()
	pos := make(map[int][]int)
	for i, c := range g.Cards {
		pos[c.ID] = append(pos[c.ID], i)
	}
	for _, idx := range pos {
		for _, i := range idx {
			_, err := g.ChooseCard(i)
			require.NoError(t, err)
		}
	}
	require.True(t, g.Finished)
}

func TestRecords_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	rec := NewRecords(sqlDB)
	insertUser(t, sqlDB, "u1")
	owner := Owner{UserID: "u1"}

	g, err := game.New(2, 1)
	require.NoError(t, err)
	require.NoError(t, rec.InsertGame(ctx, owner, g))
	require.NoError(t, rec.BumpPlayed(ctx, "u1"))

	_, err = g.ChooseCard(0)
	require.NoError(t, err)
	require.NoError(t, rec.UpdateProgress(ctx, owner, g.View()))

	rows, err := rec.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, g.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].Flips)
	assert.Equal(t, "playing", rows[0].Status)

	winGame(t, g)
	require.NoError(t, rec.FinishGame(ctx, owner, g.View()))

	rows, err = rec.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "won", rows[0].Status)
	assert.Equal(t, 2, rows[0].Score)
	assert.NotEmpty(t, rows[0].FinishedAt)

	var played, completed, best int
	require.NoError(t, sqlDB.QueryRow(
		`SELECT games_played, games_completed, best_flips FROM users WHERE id='u1'`,
	).Scan(&played, &completed, &best))
	assert.Equal(t, 1, played)
	assert.Equal(t, 1, completed)
	assert.Equal(t, g.Flips, best)
}

func TestRecords_RestartGame(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	rec := NewRecords(sqlDB)
	owner := Owner{AnonID: "anon"}

	g, err := game.New(3, 4)
	require.NoError(t, err)
	require.NoError(t, rec.InsertGame(ctx, owner, g))
	_, _ = g.ChooseCard(0)
	require.NoError(t, rec.UpdateProgress(ctx, owner, g.View()))

	g.Reset()
	require.NoError(t, rec.RestartGame(ctx, owner, g.View()))

	var flips int
	require.NoError(t, sqlDB.QueryRow(`SELECT flips FROM games WHERE id=?`, g.ID).Scan(&flips))
	assert.Equal(t, 0, flips)
}

func TestRecords_ClaimAnonymous(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	rec := NewRecords(sqlDB)
	insertUser(t, sqlDB, "u2")

	for i := 0; i < 3; i++ {
		g, err := game.New(2, uint64(i))
		require.NoError(t, err)
		require.NoError(t, rec.InsertGame(ctx, Owner{AnonID: "anon-1"}, g))
	}
	rows, err := rec.ListByUser(ctx, "u2", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, rec.ClaimAnonymous(ctx, "anon-1", "u2"))
	rows, err = rec.ListByUser(ctx, "u2", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.NoError(t, rec.ClaimAnonymous(ctx, "", "u2"))
}
