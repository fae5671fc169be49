// internal/httpserver/server.go
//
// HTTP server wiring for the Concentration backend.
// Responsibilities:
//   - Router + middleware (request IDs, panic recovery, access logs, CORS, timeouts).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): new, get, choose, reset, and a websocket
//     stream of state changes per game.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Live games are held in the in-memory store; the games table keeps a
//     best-effort history row per game.
//   - A mismatched pair is turned face down by a timer after MismatchDelay and
//     the new state is pushed to websocket subscribers.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/auth"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/live"
	"github.com/robalobadob/concentration/internal/store"
)

// Server bundles router, live game store and persistence.
type Server struct {
	r       *chi.Mux
	cfg     *config.Config
	store   store.Store
	records *store.Records
	users   *auth.Users
	tokens  *auth.Tokens
	hub     *live.Hub
	db      *sql.DB
}

var validate = validator.New()

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, st store.Store, db *sql.DB) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		records: store.NewRecords(db),
		users:   auth.NewUsers(db),
		tokens:  auth.NewTokens(cfg.JWTSecret, time.Duration(cfg.JWTExpiresDays)*24*time.Hour),
		hub:     live.NewHub(cfg.ClientOrigin),
		db:      db,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(s.cors)

	// Websocket stream lives outside the timeout/JSON group.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "concentration-go",
				"endpoints": []string{"/health", "POST /game/new", "GET /game/{id}", "POST /game/choose",
					"POST /game/reset", "GET /game/{id}/ws", "/daily/*", "/auth/*"},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := s.db.PingContext(r.Context()); err != nil {
				log.Error().Err(err).Msg("health: db ping")
				writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})

		// Game endpoints: guests can play.
		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth())
			r.Post("/game/new", s.handleNewGame)
			r.Post("/game/choose", s.handleChoose)
			r.Post("/game/reset", s.handleReset)
			r.Get("/game/{id}", s.handleGetGame)
		})

		s.mountDaily(r.With(s.withOptionalAuth()))
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("took", d).
		Str("reqId", chimw.GetReqID(r.Context())).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decode reads a JSON body into v and validates it. An empty body is
// treated as an empty object.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return validate.Struct(v)
}

// gameError maps engine and store errors onto HTTP responses.
func gameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index_out_of_range")
	case errors.Is(err, game.ErrInvalidPairs):
		writeError(w, http.StatusBadRequest, "invalid_pairs")
	case errors.Is(err, game.ErrCardMatched):
		writeError(w, http.StatusConflict, "card_matched")
	case errors.Is(err, game.ErrCardFaceUp):
		writeError(w, http.StatusConflict, "card_face_up")
	case errors.Is(err, game.ErrGameFinished):
		writeError(w, http.StatusConflict, "game_finished")
	default:
		log.Error().Err(err).Msg("game operation")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}
