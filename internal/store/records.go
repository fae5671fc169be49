// internal/store/records.go
//
// SQL-backed game history. Live play happens against the in-memory Store;
// Records keeps one row per game for history and per-user stats.
// Writes here are best effort from the HTTP layer: a failure is logged and
// the game carries on.

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/concentration/internal/game"
)

// Owner identifies who a game belongs to: a signed-in user or an anonymous
// browser. Exactly one field is set.
type Owner struct {
	UserID string
	AnonID string
}

// clause returns the WHERE fragment and its argument for this owner.
func (o Owner) clause() (string, any) {
	if o.UserID != "" {
		return `user_id=?`, o.UserID
	}
	return `anonymous_id=?`, o.AnonID
}

// GameRow is one row of game history.
type GameRow struct {
	ID         string `json:"id"`
	Pairs      int    `json:"pairs"`
	Status     string `json:"status"`
	Flips      int    `json:"flips"`
	Score      int    `json:"score"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Records persists game history rows.
type Records struct{ db *sql.DB }

func NewRecords(db *sql.DB) *Records { return &Records{db: db} }

// InsertGame records the start of a game for owner.
func (r *Records) InsertGame(ctx context.Context, o Owner, g *game.Game) error {
	var userID, anonID any
	if o.UserID != "" {
		userID = o.UserID
	} else {
		anonID = o.AnonID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO games (id, user_id, anonymous_id, pairs, status, started_at)
		VALUES (?,?,?,?,?,?)`,
		g.ID, userID, anonID, g.Pairs, string(game.StatusPlaying), g.StartedAt.Format(time.RFC3339))
	return err
}

// UpdateProgress stores the current counters of a game.
func (r *Records) UpdateProgress(ctx context.Context, o Owner, v game.View) error {
	where, arg := o.clause()
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET flips=?, score=?, status=? WHERE id=? AND `+where,
		v.Flips, v.Score, string(v.Status), v.ID, arg)
	return err
}

// RestartGame zeroes the counters of a game that was reset.
func (r *Records) RestartGame(ctx context.Context, o Owner, v game.View) error {
	where, arg := o.clause()
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET flips=0, score=0, status=?, started_at=?, finished_at=NULL WHERE id=? AND `+where,
		string(v.Status), v.StartedAt.Format(time.RFC3339), v.ID, arg)
	return err
}

// FinishGame marks a won game and, for signed-in owners, bumps the user's
// stats in the same transaction.
func (r *Records) FinishGame(ctx context.Context, o Owner, v game.View) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	where, arg := o.clause()
	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET flips=?, score=?, status=?, finished_at=? WHERE id=? AND `+where,
		v.Flips, v.Score, string(v.Status), time.Now().UTC().Format(time.RFC3339), v.ID, arg); err != nil {
		return err
	}
	if o.UserID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET
				games_completed = games_completed + 1,
				best_flips = CASE WHEN best_flips IS NULL OR ? < best_flips THEN ? ELSE best_flips END
			WHERE id=?`, v.Flips, v.Flips, o.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// BumpPlayed counts a started game against a user.
func (r *Records) BumpPlayed(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET games_played = games_played + 1 WHERE id=?`, userID)
	return err
}

// ListByUser returns a user's most recent games, newest first.
func (r *Records) ListByUser(ctx context.Context, userID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pairs, status, flips, score, started_at, COALESCE(finished_at,'')
		FROM games WHERE user_id=? ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		var gr GameRow
		if err := rows.Scan(&gr.ID, &gr.Pairs, &gr.Status, &gr.Flips, &gr.Score, &gr.StartedAt, &gr.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}

// ClaimAnonymous transfers an anonymous browser's games to a user account.
func (r *Records) ClaimAnonymous(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}
