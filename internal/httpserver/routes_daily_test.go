package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/game"
)

func dailyChoose(t *testing.T, s *Server, id string, index int, anon *http.Cookie) dailyChooseRes {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/daily/choose", map[string]any{"gameId": id, "index": index}, anon)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[dailyChooseRes](t, rec)
}

func TestDaily_PlayOncePerDay(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/daily/new", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	anon := cookieNamed(rec, anonCookieName)
	require.NotNil(t, anon)
	first := decodeBody[dailyNewRes](t, rec)
	require.False(t, first.Played)
	require.NotNil(t, first.Game)
	assert.Equal(t, 4, first.Game.Pairs)
	assert.Equal(t, daily.DateKey(time.Now()), first.Date)

	// A second call resumes the same session.
	rec = do(t, s, http.MethodPost, "/daily/new", nil, anon)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.GameID, decodeBody[dailyNewRes](t, rec).GameID)

	// Another player is not in this session.
	rec = do(t, s, http.MethodPost, "/daily/choose", map[string]any{"gameId": first.GameID, "index": 0})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_session")

	// Same seed, same layout.
	ref, err := game.New(4, daily.Seed(time.Now(), "test_salt"))
	require.NoError(t, err)
	pos := make(map[int][]int)
	for i, c := range ref.Cards {
		pos[c.ID] = append(pos[c.ID], i)
	}

	var last dailyChooseRes
	for id := 0; id < 4; id++ {
		dailyChoose(t, s, first.GameID, pos[id][0], anon)
		last = dailyChoose(t, s, first.GameID, pos[id][1], anon)
		assert.Equal(t, game.OutcomeMatched, last.Outcome)
	}
	assert.Equal(t, "won", last.State)
	assert.Equal(t, 8, last.Game.Flips)

	res := dailyChoose(t, s, first.GameID, 0, anon)
	assert.Equal(t, "locked", res.State)

	rec = do(t, s, http.MethodGet, "/daily/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lb := decodeBody[lbRes](t, rec)
	require.Len(t, lb.Top, 1)
	assert.Equal(t, anon.Value, lb.Top[0].UserID)
	assert.Equal(t, 8, lb.Top[0].Flips)

	rec = do(t, s, http.MethodPost, "/daily/new", nil, anon)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decodeBody[dailyNewRes](t, rec)
	assert.True(t, again.Played)
	assert.Nil(t, again.Game)
}

func TestDaily_MismatchConcealedAfterDelay(t *testing.T) {
	cfg := testConfig()
	cfg.MismatchDelay = 20 * time.Millisecond
	s := newTestServer(t, cfg)

	rec := do(t, s, http.MethodPost, "/daily/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	anon := cookieNamed(rec, anonCookieName)
	require.NotNil(t, anon)
	id := decodeBody[dailyNewRes](t, rec).GameID

	ref, err := game.New(4, daily.Seed(time.Now(), "test_salt"))
	require.NoError(t, err)
	pos := make(map[int][]int)
	for i, c := range ref.Cards {
		pos[c.ID] = append(pos[c.ID], i)
	}
	a, b := pos[0][0], pos[1][0]

	dailyChoose(t, s, id, a, anon)
	res := dailyChoose(t, s, id, b, anon)
	require.Equal(t, game.OutcomeMismatched, res.Outcome)
	assert.True(t, res.Game.Cards[a].FaceUp)
	assert.True(t, res.Game.Cards[b].FaceUp)

	assert.Eventually(t, func() bool {
		r := httptest.NewRequest(http.MethodPost, "/daily/new", nil)
		r.AddCookie(anon)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, r)
		var v dailyNewRes
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil || v.Game == nil {
			return false
		}
		return !v.Game.Cards[a].FaceUp && !v.Game.Cards[b].FaceUp
	}, time.Second, 5*time.Millisecond)
}

func TestDaily_Leaderboard(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/daily/leaderboard?date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lb := decodeBody[lbRes](t, rec)
	assert.Equal(t, "2024-01-15", lb.Date)
	assert.Empty(t, lb.Top)

	rec = do(t, s, http.MethodGet, "/daily/leaderboard?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
