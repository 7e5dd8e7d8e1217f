// Package lifecycle drives a game from creation through its terminal status. It is the only
// component that mutates stored games.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/ledger"
	"PickupStatsApi/internal/metrics"
	"PickupStatsApi/internal/stats"
	"PickupStatsApi/internal/validator"

	"github.com/google/uuid"
	"github.com/itbasis/go-clock"
)

const (
	SearchLimit      = 20
	RecentGamesLimit = 10
)

type GameStore interface {
	Insert(ctx context.Context, game *data.Game) error
	Get(ctx context.Context, id uuid.UUID) (*data.Game, error)
	Save(ctx context.Context, game *data.Game) error
	UpdateSettings(ctx context.Context, game *data.Game) error
	RecentForPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*data.Game, error)
}

type PlayerDirectory interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*data.Player, error)
	Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	Search(ctx context.Context, term string, limit int) ([]*data.Player, error)
}

type CareerApplier interface {
	Apply(ctx context.Context, game *data.Game) error
}

// Notifier is told about every persisted change to a game.
type Notifier interface {
	Notify(ctx context.Context, game *data.Game) error
}

type Deps struct {
	Games   GameStore
	Players PlayerDirectory
	Career  CareerApplier
	// Notifiers run after every successful save, in the background.
	Notifiers []Notifier
	Clock     clock.Clock
	Logger    *jsonlog.Logger
	Metrics   metrics.Recorder
	// Background runs fn after the request returns. Defaults to running it inline.
	Background func(fn func())
}

type Controller struct {
	games      GameStore
	players    PlayerDirectory
	career     CareerApplier
	notifiers  []Notifier
	clock      clock.Clock
	logger     *jsonlog.Logger
	metrics    metrics.Recorder
	background func(fn func())

	lanesMu sync.Mutex
	lanes   map[uuid.UUID]*lane
}

func New(deps Deps) *Controller {
	c := &Controller{
		games:      deps.Games,
		players:    deps.Players,
		career:     deps.Career,
		notifiers:  deps.Notifiers,
		clock:      deps.Clock,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		background: deps.Background,
		lanes:      make(map[uuid.UUID]*lane),
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = jsonlog.Discard()
	}
	if c.metrics == nil {
		c.metrics = metrics.Noop{}
	}
	if c.background == nil {
		c.background = func(fn func()) { fn() }
	}
	return c
}

type CreateInput struct {
	GameType   string     `json:"game_type"`
	TeamA      []string   `json:"team_a"`
	TeamB      []string   `json:"team_b"`
	ScoreToWin *int       `json:"score_to_win"`
	CreatedBy  *uuid.UUID `json:"-"`
}

// EventInput is an event as submitted by a scorekeeper. Team may be left empty and is then
// taken from the roster. The timestamp is always assigned by the server.
type EventInput struct {
	Type         stats.EventType   `json:"type"`
	PlayerID     string            `json:"player_id"`
	Team         stats.Team        `json:"team"`
	Location     *stats.Location   `json:"location"`
	Made         bool              `json:"made"`
	Points       int               `json:"points"`
	ReboundType  stats.ReboundType `json:"rebound_type"`
	TurnoverType string            `json:"turnover_type"`
}

// SettingsInput changes a live game's settings. Version, when given, must match the stored game.
type SettingsInput struct {
	GameType   *string `json:"game_type"`
	ScoreToWin *int    `json:"score_to_win"`
	Version    *int64  `json:"version"`
}

// RosterEntry is a rostered player resolved to display fields.
type RosterEntry struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	InstagramHandle string     `json:"instagram_handle,omitempty"`
	Team            stats.Team `json:"team"`
}

type GameView struct {
	*data.Game
	Roster []RosterEntry `json:"roster"`
}

// Create validates the teams, checks that every player exists and stores a new in-progress
// game. Nothing is stored when any check fails.
func (c *Controller) Create(ctx context.Context, input CreateInput) (*data.Game, error) {
	if input.GameType == "" || len(input.TeamA) == 0 || len(input.TeamB) == 0 {
		return nil, &ValidationError{Errors: map[string]string{
			"fields": "missing fields: game_type, team_a and team_b are required",
		}}
	}

	v := validator.New()
	teamA := parseIDs(v, "team_a", input.TeamA)
	teamB := parseIDs(v, "team_b", input.TeamB)
	if !v.Valid() {
		return nil, validationFrom(v)
	}

	game := data.NewGame(data.GameType(input.GameType), teamA, teamB, input.ScoreToWin,
		input.CreatedBy)
	data.ValidateGame(v, game)
	if !v.Valid() {
		return nil, validationFrom(v)
	}

	missing, err := c.players.Missing(ctx, game.AllPlayerIDs)
	if err != nil {
		return nil, fmt.Errorf("look up players: %w", err)
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Resource: "players", Missing: missing}
	}

	if err := c.games.Insert(ctx, game); err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}

	c.logger.PrintInfo("game created", map[string]string{
		"game_id":   game.ID.String(),
		"game_type": string(game.GameType),
		"players":   fmt.Sprint(len(game.AllPlayerIDs)),
	})

	// Nobody else knows the id yet, so this never waits.
	l, err := c.acquire(context.WithoutCancel(ctx), game.ID)
	if err != nil {
		return nil, err
	}
	c.notify(l, game)
	c.release(game.ID, l)

	return game, nil
}

func parseIDs(v *validator.Validator, key string, raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			v.AddError(key, fmt.Sprintf("invalid player id %q", s))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// AddEvent appends one event to an in-progress game and saves it.
func (c *Controller) AddEvent(ctx context.Context, gameID uuid.UUID, input EventInput) (*data.Game, error) {
	playerID, err := uuid.Parse(strings.TrimSpace(input.PlayerID))
	if err != nil {
		return nil, newValidationError("player_id", "must be a valid player id")
	}

	l, err := c.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer c.release(gameID, l)

	game, err := c.games.Get(ctx, gameID)
	if err != nil {
		return nil, storeError("get", gameID, err)
	}

	event := stats.Event{
		Type:         input.Type,
		PlayerID:     playerID,
		Team:         input.Team,
		Location:     input.Location,
		Made:         input.Made,
		Points:       input.Points,
		ReboundType:  input.ReboundType,
		TurnoverType: input.TurnoverType,
	}
	if err := ledger.Append(game, event, c.clock.Now()); err != nil {
		return nil, eventError(game, err)
	}

	if err := c.games.Save(ctx, game); err != nil {
		return nil, storeError("save", gameID, err)
	}

	c.metrics.EventRecorded(string(event.Type))
	c.notify(l, game)

	return game, nil
}

// Finalize closes the game as finished, decides the winner from the final score and folds it
// into every player's career in the background.
func (c *Controller) Finalize(ctx context.Context, gameID uuid.UUID) (*data.Game, error) {
	return c.close(ctx, gameID, data.StatusFinished)
}

// Cancel closes the game without a decision. Stats accumulated so far still count toward
// careers, wins and losses do not.
func (c *Controller) Cancel(ctx context.Context, gameID uuid.UUID) (*data.Game, error) {
	return c.close(ctx, gameID, data.StatusCanceled)
}

// UpdateSettings changes game_type or score_to_win of an in-progress game. Teams, events,
// score, status and summary cannot be edited.
func (c *Controller) UpdateSettings(ctx context.Context, gameID uuid.UUID, input SettingsInput) (*data.Game, error) {
	if input.GameType == nil && input.ScoreToWin == nil {
		return nil, newValidationError("fields", "game_type or score_to_win must be provided")
	}

	l, err := c.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer c.release(gameID, l)

	game, err := c.games.Get(ctx, gameID)
	if err != nil {
		return nil, storeError("get", gameID, err)
	}
	if input.Version != nil && *input.Version != game.Version {
		return nil, &ConflictError{GameID: gameID}
	}
	if game.Status != data.StatusInProgress {
		return nil, &InvalidStateError{Status: game.Status}
	}

	if input.GameType != nil {
		game.GameType = data.GameType(*input.GameType)
	}
	if input.ScoreToWin != nil {
		game.ScoreToWin = input.ScoreToWin
	}

	v := validator.New()
	if data.ValidateGame(v, game); !v.Valid() {
		return nil, validationFrom(v)
	}

	if err := c.games.UpdateSettings(ctx, game); err != nil {
		return nil, storeError("update", gameID, err)
	}

	c.logger.PrintInfo("game settings updated", map[string]string{
		"game_id":   game.ID.String(),
		"game_type": string(game.GameType),
		"version":   fmt.Sprint(game.Version),
	})
	c.notify(l, game)

	return game, nil
}

func (c *Controller) close(ctx context.Context, gameID uuid.UUID, status data.GameStatus) (*data.Game, error) {
	l, err := c.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer c.release(gameID, l)

	game, err := c.games.Get(ctx, gameID)
	if err != nil {
		return nil, storeError("get", gameID, err)
	}
	if game.Status != data.StatusInProgress {
		return nil, &InvalidStateError{Status: game.Status}
	}

	game.Summary = stats.ComputeBoxScores(game.AllPlayerIDs, game.Events)
	game.Winner = nil
	if status == data.StatusFinished {
		game.Winner = stats.ResolveOutcome(game.FinalScore)
	}
	game.Status = status

	if err := c.games.Save(ctx, game); err != nil {
		return nil, storeError("save", gameID, err)
	}

	c.metrics.GameClosed(string(status))
	c.logger.PrintInfo("game closed", map[string]string{
		"game_id": game.ID.String(),
		"status":  string(status),
		"score":   fmt.Sprintf("%d-%d", game.FinalScore.TeamA, game.FinalScore.TeamB),
	})

	closed := *game
	c.background(func() {
		// Failures are logged per player by the accumulator.
		_ = c.career.Apply(context.Background(), &closed)
	})
	c.notify(l, game)

	return game, nil
}

// Get returns the game with its roster resolved to names. In-progress games carry a box score
// computed from the ledger so far, which is not stored.
func (c *Controller) Get(ctx context.Context, gameID uuid.UUID) (*GameView, error) {
	game, err := c.games.Get(ctx, gameID)
	if err != nil {
		return nil, storeError("get", gameID, err)
	}
	withLiveSummary(game)

	players, err := c.players.GetMany(ctx, game.AllPlayerIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve roster for game %s: %w", gameID, err)
	}
	byID := make(map[uuid.UUID]*data.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	view := &GameView{Game: game, Roster: make([]RosterEntry, 0, len(game.AllPlayerIDs))}
	for _, id := range game.AllPlayerIDs {
		side, _ := game.SideOf(id)
		entry := RosterEntry{ID: id, Team: side}
		if p, ok := byID[id]; ok {
			entry.Name = p.Name
			entry.InstagramHandle = p.InstagramHandle
		}
		view.Roster = append(view.Roster, entry)
	}

	return view, nil
}

func (c *Controller) SearchPlayers(ctx context.Context, term string) ([]*data.Player, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, newValidationError("search", "must be provided")
	}

	players, err := c.players.Search(ctx, term, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	return players, nil
}

func (c *Controller) RecentGames(ctx context.Context, playerID uuid.UUID) ([]*data.Game, error) {
	games, err := c.games.RecentForPlayer(ctx, playerID, RecentGamesLimit)
	if err != nil {
		return nil, fmt.Errorf("recent games for player %s: %w", playerID, err)
	}
	return games, nil
}

func withLiveSummary(game *data.Game) {
	if game.Status == data.StatusInProgress {
		game.Summary = stats.ComputeBoxScores(game.AllPlayerIDs, game.Events)
	}
}
