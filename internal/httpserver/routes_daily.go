// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start a daily game (creates or reuses session)
//   - POST /daily/choose      → select a card in today's daily game
//   - GET  /daily/leaderboard → top 20 results for today (or a given date)
//
// Everyone gets the same deal on a given day (seeded from date + salt).
// Each player can record one result per day (enforced by DB + in-memory session).
// Sessions live in memory during play; the result is persisted on a win.
// A mismatched pair turns face down after MismatchDelay or at the next
// selection, whichever comes first.

package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	pairs    int
	now      func() time.Time
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions and their games
}

// dailySession holds transient in-memory state for an in-progress daily game.
type dailySession struct {
	UserID string
	Date   string
	Game   *game.Game
	Start  time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		pairs:    s.cfg.DailyPairs,
		now:      time.Now,
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/choose", dd.handleChoose)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// userID returns the authenticated user ID if logged in, otherwise the
// anonymous cookie ID.
func (d *dailyServer) userID(w http.ResponseWriter, r *http.Request) string {
	if me := userFrom(r.Context()); me != nil {
		return me.ID
	}
	return d.srv.ensureAnonID(w, r)
}

// -----------------------------------------------------------------------------
// /daily/new

type dailyNewRes struct {
	GameID string     `json:"gameId"`
	Date   string     `json:"date"`
	Played bool       `json:"played"`
	Game   *game.View `json:"game,omitempty"`
}

// handleNew creates or reuses today's session.
// If the player already has a result for today, Played=true and no game.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.userID(w, r)
	now := d.now()
	date := daily.DateKey(now)

	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err != nil {
		log.Warn().Err(err).Msg("daily: already played check")
	} else if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(date)

	sess, ok := d.sessions[key]
	if !ok {
		g, err := game.New(d.pairs, daily.Seed(now, d.salt))
		if err != nil {
			gameError(w, err)
			return
		}
		sess = &dailySession{UserID: uid, Date: date, Game: g, Start: now}
		d.sessions[key] = sess
	}
	v := sess.Game.View()
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.Game.ID, Date: date, Game: &v})
}

// pruneLocked drops sessions from previous days; d.mu must be held.
func (d *dailyServer) pruneLocked(today string) {
	for k, s := range d.sessions {
		if s.Date != today {
			delete(d.sessions, k)
		}
	}
}

// -----------------------------------------------------------------------------
// /daily/choose

type dailyChooseRes struct {
	Outcome game.Outcome `json:"outcome,omitempty"`
	State   string       `json:"state"` // in_progress | won | locked
	Game    game.View    `json:"game"`
}

// handleChoose applies a selection to today's session and records a win.
func (d *dailyServer) handleChoose(w http.ResponseWriter, r *http.Request) {
	uid := d.userID(w, r)

	var req chooseReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	date := daily.DateKey(d.now())
	key := uid + "|" + date

	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok || sess.Game.ID != req.GameID {
		d.mu.Unlock()
		writeError(w, http.StatusConflict, "no_session")
		return
	}
	if sess.Game.Finished {
		v := sess.Game.View()
		d.mu.Unlock()
		writeJSON(w, http.StatusOK, dailyChooseRes{State: "locked", Game: v})
		return
	}
	outcome, err := sess.Game.ChooseCard(*req.Index)
	v := sess.Game.View()
	turn := turnOf(sess.Game)
	d.mu.Unlock()
	if err != nil {
		gameError(w, err)
		return
	}
	if outcome == game.OutcomeMismatched {
		d.scheduleConceal(key, sess, turn)
	}

	if v.Status != game.StatusWon {
		writeJSON(w, http.StatusOK, dailyChooseRes{Outcome: outcome, State: "in_progress", Game: v})
		return
	}

	elapsed := int(d.now().Sub(sess.Start).Milliseconds())
	if err := d.store.InsertResult(r.Context(), daily.Result{
		UserID: uid, Date: date, Pairs: v.Pairs, Flips: v.Flips, ElapsedMs: elapsed,
	}); err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("daily: insert result")
	}
	writeJSON(w, http.StatusOK, dailyChooseRes{Outcome: outcome, State: "won", Game: v})
}

// scheduleConceal turns a daily mismatch face down after the configured delay,
// unless the session was replaced or the player already moved on.
func (d *dailyServer) scheduleConceal(key string, sess *dailySession, turn concealTurn) {
	delay := d.srv.cfg.MismatchDelay
	if delay <= 0 {
		return
	}
	time.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.sessions[key] != sess || turnOf(sess.Game) != turn {
			return
		}
		sess.Game.ConcealMismatch()
	})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily: leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
