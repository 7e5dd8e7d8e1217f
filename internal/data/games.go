package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PickupStatsApi/internal/stats"
	"PickupStatsApi/internal/validator"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type GameStatus string

const (
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
	StatusCanceled   GameStatus = "canceled"
)

func (s GameStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCanceled
}

type GameType string

const (
	GameType1v1 GameType = "1v1"
	GameType2v2 GameType = "2v2"
	GameType3v3 GameType = "3v3"
	GameType5v5 GameType = "5v5"
)

const (
	MinScoreToWin = 1
	MaxScoreToWin = 200
)

type Teams struct {
	TeamA []uuid.UUID `json:"team_a"`
	TeamB []uuid.UUID `json:"team_b"`
}

type Game struct {
	ID           uuid.UUID     `json:"id"`
	CreatedBy    *uuid.UUID    `json:"created_by,omitempty"`
	GameType     GameType      `json:"game_type"`
	AllPlayerIDs []uuid.UUID   `json:"all_player_ids"`
	Teams        Teams         `json:"teams"`
	Status       GameStatus    `json:"status"`
	ScoreToWin   *int          `json:"score_to_win,omitempty"`
	FinalScore   stats.Score   `json:"final_score"`
	Winner       *stats.Team   `json:"winner"`
	Events       []stats.Event `json:"events"`
	Summary      stats.Summary `json:"game_stats_summary"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewGame builds an in-progress game. The roster is team_a followed by team_b with
// duplicates dropped.
func NewGame(gameType GameType, teamA, teamB []uuid.UUID, scoreToWin *int, createdBy *uuid.UUID) *Game {
	seen := make(map[uuid.UUID]bool, len(teamA)+len(teamB))
	roster := make([]uuid.UUID, 0, len(teamA)+len(teamB))
	for _, id := range append(append([]uuid.UUID{}, teamA...), teamB...) {
		if !seen[id] {
			seen[id] = true
			roster = append(roster, id)
		}
	}

	return &Game{
		CreatedBy:    createdBy,
		GameType:     gameType,
		AllPlayerIDs: roster,
		Teams:        Teams{TeamA: teamA, TeamB: teamB},
		Status:       StatusInProgress,
		ScoreToWin:   scoreToWin,
		Events:       []stats.Event{},
		Summary:      stats.Summary{},
	}
}

// SideOf reports which team the player is on.
func (g *Game) SideOf(playerID uuid.UUID) (stats.Team, bool) {
	for _, id := range g.Teams.TeamA {
		if id == playerID {
			return stats.TeamA, true
		}
	}
	for _, id := range g.Teams.TeamB {
		if id == playerID {
			return stats.TeamB, true
		}
	}
	return "", false
}

func ValidateGame(v *validator.Validator, game *Game) {
	v.Check(game.GameType != "", "game_type", "must be provided")
	v.Check(validator.PermittedValue(game.GameType, GameType1v1, GameType2v2, GameType3v3,
		GameType5v5), "game_type", "must be one of 1v1, 2v2, 3v3 or 5v5")

	v.Check(len(game.Teams.TeamA) > 0, "team_a", "must be provided")
	v.Check(len(game.Teams.TeamB) > 0, "team_b", "must be provided")
	v.Check(validator.Unique(game.Teams.TeamA), "team_a", "must not contain duplicate players")
	v.Check(validator.Unique(game.Teams.TeamB), "team_b", "must not contain duplicate players")

	for _, id := range game.Teams.TeamA {
		for _, other := range game.Teams.TeamB {
			if id == other {
				v.AddError("teams", fmt.Sprintf("player %s cannot be on both teams", id))
			}
		}
	}

	if game.ScoreToWin != nil {
		v.Check(*game.ScoreToWin >= MinScoreToWin && *game.ScoreToWin <= MaxScoreToWin,
			"score_to_win", fmt.Sprintf("must be between %d and %d", MinScoreToWin, MaxScoreToWin))
	}
}

type GameModel struct {
	db *sql.DB
}

const gameColumns = `
	id, created_by, game_type, all_player_ids, team_a, team_b, status, score_to_win,
	team_a_score, team_b_score, winner, events, game_stats_summary, version, created_at,
	updated_at`

func scanGame(row rowScanner) (*Game, error) {
	var (
		game                    Game
		createdBy               uuid.NullUUID
		roster, teamA, teamB    []string
		scoreToWin              sql.NullInt32
		winner                  sql.NullString
		eventsJSON, summaryJSON []byte
	)

	err := row.Scan(
		&game.ID, &createdBy, &game.GameType, pq.Array(&roster), pq.Array(&teamA),
		pq.Array(&teamB), &game.Status, &scoreToWin, &game.FinalScore.TeamA,
		&game.FinalScore.TeamB, &winner, &eventsJSON, &summaryJSON, &game.Version,
		&game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		game.CreatedBy = &createdBy.UUID
	}
	if scoreToWin.Valid {
		target := int(scoreToWin.Int32)
		game.ScoreToWin = &target
	}
	if winner.Valid {
		team := stats.Team(winner.String)
		game.Winner = &team
	}

	if game.AllPlayerIDs, err = parseUUIDs(roster); err != nil {
		return nil, err
	}
	if game.Teams.TeamA, err = parseUUIDs(teamA); err != nil {
		return nil, err
	}
	if game.Teams.TeamB, err = parseUUIDs(teamB); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventsJSON, &game.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if err := json.Unmarshal(summaryJSON, &game.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	return &game, nil
}

func (m *GameModel) Insert(ctx context.Context, game *Game) error {
	stmt := `
		INSERT INTO games (created_by, game_type, all_player_ids, team_a, team_b, status,
			score_to_win, events, game_stats_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at`

	eventsJSON, summaryJSON, err := encodeLedger(game)
	if err != nil {
		return err
	}

	args := []any{
		uuid.NullUUID{UUID: derefUUID(game.CreatedBy), Valid: game.CreatedBy != nil},
		game.GameType,
		pq.Array(uuidStrings(game.AllPlayerIDs)),
		pq.Array(uuidStrings(game.Teams.TeamA)),
		pq.Array(uuidStrings(game.Teams.TeamB)),
		game.Status,
		game.ScoreToWin,
		eventsJSON,
		summaryJSON,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return m.db.QueryRowContext(ctx, stmt, args...).Scan(&game.ID, &game.Version,
		&game.CreatedAt, &game.UpdatedAt)
}

func (m *GameModel) Get(ctx context.Context, id uuid.UUID) (*Game, error) {
	stmt := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	game, err := scanGame(m.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return game, nil
}

// Save writes the mutable state of the game if nobody else saved it since it was read.
// A stale version yields ErrEditConflict and leaves the stored row untouched.
// UpdateSettings writes game_type and score_to_win only. The ledger, score and status are
// left as stored.
func (m *GameModel) UpdateSettings(ctx context.Context, game *Game) error {
	stmt := `
		UPDATE games
		SET game_type = $1, score_to_win = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4 AND status = $5
		RETURNING version, updated_at`

	var scoreToWin sql.NullInt32
	if game.ScoreToWin != nil {
		scoreToWin = sql.NullInt32{Int32: int32(*game.ScoreToWin), Valid: true}
	}

	args := []any{game.GameType, scoreToWin, game.ID, game.Version, StatusInProgress}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.db.QueryRowContext(ctx, stmt, args...).Scan(&game.Version, &game.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}

	return nil
}

func (m *GameModel) Save(ctx context.Context, game *Game) error {
	stmt := `
		UPDATE games
		SET status = $1, team_a_score = $2, team_b_score = $3, winner = $4, events = $5,
			game_stats_summary = $6, version = version + 1, updated_at = now()
		WHERE id = $7 AND version = $8
		RETURNING version, updated_at`

	eventsJSON, summaryJSON, err := encodeLedger(game)
	if err != nil {
		return err
	}

	var winner sql.NullString
	if game.Winner != nil {
		winner = sql.NullString{String: string(*game.Winner), Valid: true}
	}

	args := []any{
		game.Status,
		game.FinalScore.TeamA,
		game.FinalScore.TeamB,
		winner,
		eventsJSON,
		summaryJSON,
		game.ID,
		game.Version,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err = m.db.QueryRowContext(ctx, stmt, args...).Scan(&game.Version, &game.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}

	return nil
}

// RecentForPlayer returns up to limit games referencing the player, newest first.
func (m *GameModel) RecentForPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*Game, error) {
	stmt := `SELECT ` + gameColumns + `
		FROM games
		WHERE $1 = ANY(all_player_ids)
		ORDER BY created_at DESC, id
		LIMIT $2`

	return m.list(ctx, stmt, playerID, limit)
}

// TerminalForPlayer returns every finished or canceled game referencing the player, oldest
// first.
func (m *GameModel) TerminalForPlayer(ctx context.Context, playerID uuid.UUID) ([]*Game, error) {
	stmt := `SELECT ` + gameColumns + `
		FROM games
		WHERE $1 = ANY(all_player_ids) AND status IN ('finished', 'canceled')
		ORDER BY created_at, id`

	return m.list(ctx, stmt, playerID)
}

func (m *GameModel) list(ctx context.Context, stmt string, args ...any) ([]*Game, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []*Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

func encodeLedger(game *Game) (events, summary []byte, err error) {
	if game.Events == nil {
		game.Events = []stats.Event{}
	}
	if game.Summary == nil {
		game.Summary = stats.Summary{}
	}

	events, err = json.Marshal(game.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("encode events: %w", err)
	}
	summary, err = json.Marshal(game.Summary)
	if err != nil {
		return nil, nil, fmt.Errorf("encode summary: %w", err)
	}

	return events, summary, nil
}
