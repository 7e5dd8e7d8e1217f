package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"PickupStatsApi/internal/auth"
	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/gamehub"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/lifecycle"
	"PickupStatsApi/internal/metrics"

	"github.com/google/uuid"
	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ari = uuid.MustParse("0a000000-0000-0000-0000-000000000001")
	bo  = uuid.MustParse("0b000000-0000-0000-0000-000000000002")
)

type memGames struct {
	mu    sync.Mutex
	games map[uuid.UUID]data.Game
}

func (m *memGames) Insert(_ context.Context, game *data.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	game.ID = uuid.New()
	game.Version = 1
	m.games[game.ID] = *game
	return nil
}

func (m *memGames) Get(_ context.Context, id uuid.UUID) (*data.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	g.Events = slices.Clone(g.Events)
	return &g, nil
}

func (m *memGames) Save(_ context.Context, game *data.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.games[game.ID].Version != game.Version {
		return data.ErrEditConflict
	}
	game.Version++
	stored := *game
	stored.Events = slices.Clone(game.Events)
	m.games[game.ID] = stored
	return nil
}

func (m *memGames) UpdateSettings(_ context.Context, game *data.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.games[game.ID]
	if stored.Version != game.Version || stored.Status != data.StatusInProgress {
		return data.ErrEditConflict
	}
	stored.GameType = game.GameType
	stored.ScoreToWin = game.ScoreToWin
	stored.Version++
	game.Version = stored.Version
	m.games[game.ID] = stored
	return nil
}

func (m *memGames) RecentForPlayer(_ context.Context, playerID uuid.UUID, limit int) ([]*data.Game, error) {
	return nil, nil
}

type memPlayers map[uuid.UUID]string

func (m memPlayers) GetMany(_ context.Context, ids []uuid.UUID) ([]*data.Player, error) {
	var out []*data.Player
	for _, id := range ids {
		if name, ok := m[id]; ok {
			out = append(out, &data.Player{ID: id, Name: name})
		}
	}
	return out, nil
}

func (m memPlayers) Missing(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := m[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m memPlayers) Search(_ context.Context, term string, limit int) ([]*data.Player, error) {
	var out []*data.Player
	for id, name := range m {
		if strings.Contains(strings.ToLower(name), strings.ToLower(term)) {
			out = append(out, &data.Player{ID: id, Name: name})
		}
	}
	return out, nil
}

type noCareer struct{}

func (noCareer) Apply(context.Context, *data.Game) error { return nil }

func newTestApplication(t *testing.T) *application {
	t.Helper()

	app := &application{
		logger: jsonlog.Discard(),
		hubs:   gamehub.NewHubModel(jsonlog.Discard()),
		tokens: auth.NewProvider("test-secret", clock.New()),
		prom:   metrics.NewPrometheus("test"),
	}
	app.config.env = "testing"
	app.config.version = "test"
	app.config.jwt.ttl = time.Hour

	app.games = lifecycle.New(lifecycle.Deps{
		Games:   &memGames{games: map[uuid.UUID]data.Game{}},
		Players: memPlayers{ari: "Ari", bo: "Bo"},
		Career:  noCareer{},
		Logger:  jsonlog.Discard(),
		Metrics: app.prom,
	})

	return app
}

func tokenFor(t *testing.T, app *application, role string) string {
	t.Helper()
	token, _, err := app.tokens.Issue(uuid.New(), role, time.Hour)
	require.NoError(t, err)
	return token
}

type testResponse struct {
	status int
	header http.Header
	body   map[string]any
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) testResponse {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	res := testResponse{status: rr.Code, header: rr.Header()}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res.body))
	}
	return res
}

func TestHealthCheck(t *testing.T) {
	app := newTestApplication(t)

	res := do(t, app.routes(), http.MethodGet, "/v1/healthcheck", "", nil)

	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "available", res.body["status"])
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()
	body := map[string]any{"game_type": "1v1", "team_a": []string{ari.String()},
		"team_b": []string{bo.String()}}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "Anonymous", status: http.StatusUnauthorized},
		{name: "Malformed Token", token: "not-a-jwt", status: http.StatusUnauthorized},
		{name: "Regular User", token: tokenFor(t, app, data.RoleUser), status: http.StatusForbidden},
		{name: "Admin", token: tokenFor(t, app, data.RoleAdmin), status: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, routes, http.MethodPost, "/v1/games", tt.token, body)
			assert.Equal(t, tt.status, res.status)
		})
	}
}

func TestGameFlow(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()
	admin := tokenFor(t, app, data.RoleAdmin)

	res := do(t, routes, http.MethodPost, "/v1/games", admin, map[string]any{
		"game_type": "1v1",
		"team_a":    []string{ari.String()},
		"team_b":    []string{bo.String()},
	})
	require.Equal(t, http.StatusCreated, res.status)
	game := res.body["game"].(map[string]any)
	id := game["id"].(string)
	assert.Equal(t, "/v1/games/"+id, res.header.Get("Location"))
	assert.Equal(t, "in_progress", game["status"])

	res = do(t, routes, http.MethodPost, "/v1/games/"+id+"/events", admin, map[string]any{
		"type":      "shot",
		"player_id": ari.String(),
		"made":      true,
		"points":    3,
		"location":  map[string]any{"x": 10, "y": 20},
	})
	require.Equal(t, http.StatusCreated, res.status)
	score := res.body["final_score"].(map[string]any)
	assert.EqualValues(t, 3, score["team_a"])

	res = do(t, routes, http.MethodPost, "/v1/games/"+id+"/events", admin, map[string]any{
		"type":      "steal",
		"player_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)

	res = do(t, routes, http.MethodGet, "/v1/games/"+id, "", nil)
	require.Equal(t, http.StatusOK, res.status)
	roster := res.body["game"].(map[string]any)["roster"].([]any)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ari", roster[0].(map[string]any)["name"])

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id+"/finish", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	finished := res.body["game"].(map[string]any)
	assert.Equal(t, "finished", finished["status"])
	assert.Equal(t, "team_a", finished["winner"])

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id+"/cancel", admin, nil)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "finished", res.body["error"].(map[string]any)["status"])
}

func TestUpdateGameSettings(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()
	admin := tokenFor(t, app, data.RoleAdmin)

	res := do(t, routes, http.MethodPost, "/v1/games", admin, map[string]any{
		"game_type": "1v1",
		"team_a":    []string{ari.String()},
		"team_b":    []string{bo.String()},
	})
	require.Equal(t, http.StatusCreated, res.status)
	id := res.body["game"].(map[string]any)["id"].(string)

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id, "", map[string]any{"score_to_win": 11})
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id, admin, map[string]any{
		"score_to_win": 11,
		"version":      1,
	})
	require.Equal(t, http.StatusOK, res.status)
	game := res.body["game"].(map[string]any)
	assert.EqualValues(t, 11, game["score_to_win"])
	assert.EqualValues(t, 2, game["version"])

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id, admin, map[string]any{
		"score_to_win": 15,
		"version":      1,
	})
	assert.Equal(t, http.StatusConflict, res.status)

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id, admin, map[string]any{"score_to_win": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id, admin, `{"team_a": []}`)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id+"/finish", admin, nil)
	require.Equal(t, http.StatusOK, res.status)

	res = do(t, routes, http.MethodPatch, "/v1/games/"+id, admin, map[string]any{"score_to_win": 15})
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "finished", res.body["error"].(map[string]any)["status"])
}

func TestCreateGameErrors(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()
	admin := tokenFor(t, app, data.RoleAdmin)
	stranger := uuid.New()

	t.Run("Unknown Player", func(t *testing.T) {
		res := do(t, routes, http.MethodPost, "/v1/games", admin, map[string]any{
			"game_type": "1v1",
			"team_a":    []string{ari.String()},
			"team_b":    []string{stranger.String()},
		})
		require.Equal(t, http.StatusNotFound, res.status)
		missing := res.body["error"].(map[string]any)["missing_ids"].([]any)
		assert.Equal(t, []any{stranger.String()}, missing)
	})

	t.Run("Missing Fields", func(t *testing.T) {
		res := do(t, routes, http.MethodPost, "/v1/games", admin, map[string]any{
			"game_type": "1v1",
		})
		require.Equal(t, http.StatusUnprocessableEntity, res.status)
		assert.Contains(t, res.body["error"], "fields")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		res := do(t, routes, http.MethodPost, "/v1/games", admin, `{"game_type": `)
		assert.Equal(t, http.StatusBadRequest, res.status)
	})

	t.Run("Unknown Key", func(t *testing.T) {
		res := do(t, routes, http.MethodPost, "/v1/games", admin, `{"score": 3}`)
		assert.Equal(t, http.StatusBadRequest, res.status)
	})
}

func TestGetGameNotFound(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()

	res := do(t, routes, http.MethodGet, "/v1/games/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = do(t, routes, http.MethodGet, "/v1/games/not-an-id", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestSearchPlayers(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()

	res := do(t, routes, http.MethodGet, "/v1/players?search=ar", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	players := res.body["players"].([]any)
	require.Len(t, players, 1)
	assert.Equal(t, "Ari", players[0].(map[string]any)["name"])

	res = do(t, routes, http.MethodGet, "/v1/players?search=%20", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApplication(t)
	routes := app.routes()

	do(t, routes, http.MethodGet, "/v1/healthcheck", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	rr := httptest.NewRecorder()
	routes.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `test_http_requests_total{method="GET",route="/v1/healthcheck",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	app := newTestApplication(t)
	app.config.limiter.enabled = true
	app.config.limiter.rps = 1
	app.config.limiter.burst = 1
	routes := app.routes()

	first := do(t, routes, http.MethodGet, "/v1/healthcheck", "", nil)
	second := do(t, routes, http.MethodGet, "/v1/healthcheck", "", nil)

	assert.Equal(t, http.StatusOK, first.status)
	assert.Equal(t, http.StatusTooManyRequests, second.status)
}
