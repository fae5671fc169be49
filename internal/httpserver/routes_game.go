// internal/httpserver/routes_game.go
//
// Game endpoints:
//   - POST /game/new     → deal a new game
//   - GET  /game/{id}    → current snapshot
//   - POST /game/choose  → select a card
//   - POST /game/reset   → redeal, zeroing counters
//   - GET  /game/{id}/ws → websocket stream of snapshots

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/store"
)

// errStale aborts a delayed conceal that no longer applies.
var errStale = errors.New("stale conceal")

type newGameReq struct {
	Pairs int `json:"pairs" validate:"omitempty,min=1,max=32"`
}
type newGameRes struct {
	GameID string    `json:"gameId"`
	Game   game.View `json:"game"`
}

// handleNewGame deals a game, stores it, and writes an owner history row.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	pairs := req.Pairs
	if pairs == 0 {
		pairs = s.cfg.DefaultPairs
	}

	g, err := game.New(pairs, game.RandomSeed())
	if err != nil {
		gameError(w, err)
		return
	}
	view := g.View()
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	owner := s.owner(w, r)
	if err := s.records.InsertGame(r.Context(), owner, g); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
	if owner.UserID != "" {
		if err := s.records.BumpPlayed(r.Context(), owner.UserID); err != nil {
			log.Warn().Err(err).Str("user", owner.UserID).Msg("bump games played")
		}
	}

	writeJSON(w, http.StatusOK, newGameRes{GameID: g.ID, Game: view})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		gameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type chooseReq struct {
	GameID string `json:"gameId" validate:"required"`
	Index  *int   `json:"index" validate:"required"`
}
type chooseRes struct {
	Outcome game.Outcome `json:"outcome"`
	Game    game.View    `json:"game"`
}

// handleChoose selects a card, persists progress and notifies subscribers.
func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	var req chooseReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	var outcome game.Outcome
	var turn concealTurn
	view, err := s.store.Update(r.Context(), req.GameID, func(g *game.Game) error {
		var err error
		if outcome, err = g.ChooseCard(*req.Index); err != nil {
			return err
		}
		turn = turnOf(g)
		s.hub.Broadcast(g.ID, g.View())
		return nil
	})
	if err != nil {
		gameError(w, err)
		return
	}

	owner := s.owner(w, r)
	if view.Status == game.StatusWon {
		if err := s.records.FinishGame(r.Context(), owner, view); err != nil {
			log.Warn().Err(err).Str("gameId", view.ID).Msg("finish game")
		}
		log.Info().Str("gameId", view.ID).Int("flips", view.Flips).Msg("game won")
	} else if err := s.records.UpdateProgress(r.Context(), owner, view); err != nil {
		log.Warn().Err(err).Str("gameId", view.ID).Msg("update progress")
	}

	if outcome == game.OutcomeMismatched {
		s.scheduleConceal(view.ID, turn)
	}
	writeJSON(w, http.StatusOK, chooseRes{Outcome: outcome, Game: view})
}

// concealTurn pins a pending mismatch to the deal and selection that
// produced it.
type concealTurn struct {
	deals int
	flips int
}

func turnOf(g *game.Game) concealTurn { return concealTurn{deals: g.Deals, flips: g.Flips} }

// scheduleConceal turns a mismatched pair face down after the configured
// delay. It is skipped if the game moved on in the meantime (another
// selection or a reset). A zero delay leaves the pair up until the next
// selection.
func (s *Server) scheduleConceal(gameID string, turn concealTurn) {
	if s.cfg.MismatchDelay <= 0 {
		return
	}
	time.AfterFunc(s.cfg.MismatchDelay, func() {
		_, err := s.store.Update(context.Background(), gameID, func(g *game.Game) error {
			if turnOf(g) != turn || !g.ConcealMismatch() {
				return errStale
			}
			s.hub.Broadcast(g.ID, g.View())
			return nil
		})
		if err != nil && !errors.Is(err, errStale) {
			log.Warn().Err(err).Str("gameId", gameID).Msg("conceal mismatch")
		}
	})
}

type resetReq struct {
	GameID string `json:"gameId" validate:"required"`
}

// handleReset redeals the game with the same number of pairs.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	view, err := s.store.Update(r.Context(), req.GameID, func(g *game.Game) error {
		g.Reset()
		s.hub.Broadcast(g.ID, g.View())
		return nil
	})
	if err != nil {
		gameError(w, err)
		return
	}
	if err := s.records.RestartGame(r.Context(), s.owner(w, r), view); err != nil {
		log.Warn().Err(err).Str("gameId", view.ID).Msg("restart game row")
	}
	writeJSON(w, http.StatusOK, view)
}

// handleWS subscribes the caller to a game's state stream.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := s.store.View(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		gameError(w, err)
		return
	}
	s.hub.Serve(w, r, id, v)
}
