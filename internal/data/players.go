package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"PickupStatsApi/internal/validator"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Position string

const (
	PositionGuard   Position = "Guard"
	PositionForward Position = "Forward"
	PositionCenter  Position = "Center"
	PositionUnknown Position = "Unknown"
)

// OverallStats is a player's career record. Counters are only ever incremented, by the career
// accumulator. ResetCareer clears them ahead of a rebuild.
type OverallStats struct {
	GamesPlayed        int `json:"games_played"`
	Wins               int `json:"wins"`
	Losses             int `json:"losses"`
	TotalPoints        int `json:"total_points"`
	TotalFga           int `json:"total_fga"`
	TotalFgm           int `json:"total_fgm"`
	Total3pa           int `json:"total_3pa"`
	Total3pm           int `json:"total_3pm"`
	Total2pa           int `json:"total_2pa"`
	Total2pm           int `json:"total_2pm"`
	TotalFta           int `json:"total_fta"`
	TotalFtm           int `json:"total_ftm"`
	TotalRebounds      int `json:"total_rebounds"`
	TotalOreb          int `json:"total_oreb"`
	TotalDreb          int `json:"total_dreb"`
	TotalAssists       int `json:"total_assists"`
	TotalTurnovers     int `json:"total_turnovers"`
	TotalSteals        int `json:"total_steals"`
	TotalBlocks        int `json:"total_blocks"`
	TotalFouls         int `json:"total_fouls"`
	TotalDoubleDoubles int `json:"total_double_doubles"`
	TotalTripleDoubles int `json:"total_triple_doubles"`
}

// Shot is one entry of a player's shot chart. X and Y are nil when the shot was recorded
// without a location.
type Shot struct {
	X         *float64  `json:"x,omitempty"`
	Y         *float64  `json:"y,omitempty"`
	Made      bool      `json:"made"`
	Points    int       `json:"points"`
	GameID    uuid.UUID `json:"game_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CareerDelta is what a single game adds to one player's career record.
type CareerDelta struct {
	Stats OverallStats
	Shots []Shot
}

type Player struct {
	ID              uuid.UUID    `json:"id"`
	CreatedBy       *uuid.UUID   `json:"created_by,omitempty"`
	Name            string       `json:"name"`
	InstagramHandle string       `json:"instagram_handle,omitempty"`
	ProfileImageURL string       `json:"profile_image_url,omitempty"`
	Bio             string       `json:"bio,omitempty"`
	Position        Position     `json:"position"`
	HeightInches    *int         `json:"height_inches,omitempty"`
	WeightLbs       *int         `json:"weight_lbs,omitempty"`
	DateOfBirth     *time.Time   `json:"date_of_birth,omitempty"`
	City            string       `json:"city,omitempty"`
	State           string       `json:"state,omitempty"`
	OverallStats    OverallStats `json:"overall_stats"`
	ShotHistory     []Shot       `json:"shot_history,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	Version         int32        `json:"-"`
}

// CareerDivergence is a player whose games_played disagrees with the terminal games that
// reference them.
type CareerDivergence struct {
	PlayerID      uuid.UUID `json:"player_id"`
	Name          string    `json:"name"`
	GamesPlayed   int       `json:"games_played"`
	TerminalGames int       `json:"terminal_games"`
}

type PlayerModel struct {
	db *sql.DB
}

const playerColumns = `
	id, created_by, name, instagram_handle, profile_image_url, bio, position, height_inches,
	weight_lbs, date_of_birth, city, state, games_played, wins, losses, total_points,
	total_fga, total_fgm, total_3pa, total_3pm, total_2pa, total_2pm, total_fta, total_ftm,
	total_rebounds, total_oreb, total_dreb, total_assists, total_turnovers, total_steals,
	total_blocks, total_fouls, total_double_doubles, total_triple_doubles, created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*Player, error) {
	var (
		player             Player
		handle, image, bio sql.NullString
		city, state        sql.NullString
		height, weight     sql.NullInt32
		dateOfBirth        sql.NullTime
		createdBy          uuid.NullUUID
	)
	s := &player.OverallStats

	err := row.Scan(
		&player.ID, &createdBy, &player.Name, &handle, &image, &bio, &player.Position,
		&height, &weight, &dateOfBirth, &city, &state,
		&s.GamesPlayed, &s.Wins, &s.Losses, &s.TotalPoints, &s.TotalFga, &s.TotalFgm,
		&s.Total3pa, &s.Total3pm, &s.Total2pa, &s.Total2pm, &s.TotalFta, &s.TotalFtm,
		&s.TotalRebounds, &s.TotalOreb, &s.TotalDreb, &s.TotalAssists, &s.TotalTurnovers,
		&s.TotalSteals, &s.TotalBlocks, &s.TotalFouls, &s.TotalDoubleDoubles,
		&s.TotalTripleDoubles, &player.CreatedAt, &player.Version,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		player.CreatedBy = &createdBy.UUID
	}
	player.InstagramHandle = handle.String
	player.ProfileImageURL = image.String
	player.Bio = bio.String
	player.City = city.String
	player.State = state.String
	if height.Valid {
		h := int(height.Int32)
		player.HeightInches = &h
	}
	if weight.Valid {
		w := int(weight.Int32)
		player.WeightLbs = &w
	}
	if dateOfBirth.Valid {
		player.DateOfBirth = &dateOfBirth.Time
	}

	return &player, nil
}

func (m *PlayerModel) Insert(ctx context.Context, player *Player) error {
	stmt := `
		INSERT INTO players (created_by, name, instagram_handle, profile_image_url, bio,
			position, height_inches, weight_lbs, date_of_birth, city, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, version`

	if player.Position == "" {
		player.Position = PositionUnknown
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return m.db.QueryRowContext(ctx, stmt, player.profileArgs()...).Scan(&player.ID,
		&player.CreatedAt, &player.Version)
}

func (p *Player) profileArgs() []any {
	return []any{
		uuid.NullUUID{UUID: derefUUID(p.CreatedBy), Valid: p.CreatedBy != nil},
		p.Name,
		nullString(p.InstagramHandle),
		nullString(p.ProfileImageURL),
		nullString(p.Bio),
		p.Position,
		p.HeightInches,
		p.WeightLbs,
		p.DateOfBirth,
		nullString(p.City),
		nullString(p.State),
	}
}

// Get returns the player with their shot chart in recorded order.
func (m *PlayerModel) Get(ctx context.Context, id uuid.UUID) (*Player, error) {
	stmt := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	player, err := scanPlayer(m.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	player.ShotHistory, err = m.shots(ctx, id)
	if err != nil {
		return nil, err
	}

	return player, nil
}

func (m *PlayerModel) shots(ctx context.Context, playerID uuid.UUID) ([]Shot, error) {
	stmt := `
		SELECT x, y, made, points, game_id, shot_at
		FROM player_shots
		WHERE player_id = $1
		ORDER BY seq`

	rows, err := m.db.QueryContext(ctx, stmt, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shots := []Shot{}
	for rows.Next() {
		var s Shot
		if err := rows.Scan(&s.X, &s.Y, &s.Made, &s.Points, &s.GameID, &s.Timestamp); err != nil {
			return nil, err
		}
		shots = append(shots, s)
	}

	return shots, rows.Err()
}

// GetMany returns the players among ids that exist, without shot charts.
func (m *PlayerModel) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Player, error) {
	stmt := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1::uuid[])`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, stmt, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []*Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}

	return players, rows.Err()
}

// Missing returns the ids, in input order, that do not belong to any player.
func (m *PlayerModel) Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	players, err := m.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]bool, len(players))
	for _, p := range players {
		found[p.ID] = true
	}

	missing := []uuid.UUID{}
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}

	return missing, nil
}

// Search matches term as a case-insensitive substring of the name or the Instagram handle.
func (m *PlayerModel) Search(ctx context.Context, term string, limit int) ([]*Player, error) {
	stmt := `SELECT ` + playerColumns + `
		FROM players
		WHERE name ILIKE $1 OR instagram_handle ILIKE $1
		ORDER BY name, id
		LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, stmt, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []*Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}

	return players, rows.Err()
}

// Update writes the profile fields only. Career counters and the shot chart are never
// touched here.
func (m *PlayerModel) Update(ctx context.Context, player *Player) error {
	stmt := `
		UPDATE players
		SET name = $1, instagram_handle = $2, profile_image_url = $3, bio = $4, position = $5,
			height_inches = $6, weight_lbs = $7, date_of_birth = $8, city = $9, state = $10,
			version = version + 1
		WHERE id = $11 AND version = $12
		RETURNING version`

	args := append(player.profileArgs()[1:], player.ID, player.Version)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.db.QueryRowContext(ctx, stmt, args...).Scan(&player.Version)
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

func (m *PlayerModel) Delete(ctx context.Context, id uuid.UUID) error {
	stmt := `DELETE FROM players WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// ApplyCareer adds delta to the player's counters and appends its shots in one transaction.
func (m *PlayerModel) ApplyCareer(ctx context.Context, playerID uuid.UUID, delta CareerDelta) error {
	stmt := `
		UPDATE players
		SET games_played = games_played + $2, wins = wins + $3, losses = losses + $4,
			total_points = total_points + $5, total_fga = total_fga + $6,
			total_fgm = total_fgm + $7, total_3pa = total_3pa + $8, total_3pm = total_3pm + $9,
			total_2pa = total_2pa + $10, total_2pm = total_2pm + $11,
			total_fta = total_fta + $12, total_ftm = total_ftm + $13,
			total_rebounds = total_rebounds + $14, total_oreb = total_oreb + $15,
			total_dreb = total_dreb + $16, total_assists = total_assists + $17,
			total_turnovers = total_turnovers + $18, total_steals = total_steals + $19,
			total_blocks = total_blocks + $20, total_fouls = total_fouls + $21,
			total_double_doubles = total_double_doubles + $22,
			total_triple_doubles = total_triple_doubles + $23
		WHERE id = $1`

	s := delta.Stats
	args := []any{
		playerID, s.GamesPlayed, s.Wins, s.Losses, s.TotalPoints, s.TotalFga, s.TotalFgm,
		s.Total3pa, s.Total3pm, s.Total2pa, s.Total2pm, s.TotalFta, s.TotalFtm,
		s.TotalRebounds, s.TotalOreb, s.TotalDreb, s.TotalAssists, s.TotalTurnovers,
		s.TotalSteals, s.TotalBlocks, s.TotalFouls, s.TotalDoubleDoubles, s.TotalTripleDoubles,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	shotStmt := `
		INSERT INTO player_shots (player_id, x, y, made, points, game_id, shot_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, shot := range delta.Shots {
		_, err := tx.ExecContext(ctx, shotStmt, playerID, shot.X, shot.Y, shot.Made, shot.Points,
			shot.GameID, shot.Timestamp)
		if err != nil {
			return fmt.Errorf("insert shot: %w", err)
		}
	}

	return tx.Commit()
}

// ResetCareer zeroes the counters and clears the shot chart so the record can be rebuilt.
func (m *PlayerModel) ResetCareer(ctx context.Context, playerID uuid.UUID) error {
	stmt := `
		UPDATE players
		SET games_played = 0, wins = 0, losses = 0, total_points = 0, total_fga = 0,
			total_fgm = 0, total_3pa = 0, total_3pm = 0, total_2pa = 0, total_2pm = 0,
			total_fta = 0, total_ftm = 0, total_rebounds = 0, total_oreb = 0, total_dreb = 0,
			total_assists = 0, total_turnovers = 0, total_steals = 0, total_blocks = 0,
			total_fouls = 0, total_double_doubles = 0, total_triple_doubles = 0
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, stmt, playerID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM player_shots WHERE player_id = $1`,
		playerID); err != nil {
		return err
	}

	return tx.Commit()
}

// CareerDivergences lists players whose games_played differs from the number of finished or
// canceled games that reference them.
func (m *PlayerModel) CareerDivergences(ctx context.Context) ([]CareerDivergence, error) {
	stmt := `
		SELECT p.id, p.name, p.games_played, count(g.id)
		FROM players p
		LEFT JOIN games g
			ON p.id = ANY(g.all_player_ids) AND g.status IN ('finished', 'canceled')
		GROUP BY p.id, p.name, p.games_played
		HAVING p.games_played <> count(g.id)
		ORDER BY p.name, p.id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	divergences := []CareerDivergence{}
	for rows.Next() {
		var d CareerDivergence
		if err := rows.Scan(&d.PlayerID, &d.Name, &d.GamesPlayed, &d.TerminalGames); err != nil {
			return nil, err
		}
		divergences = append(divergences, d)
	}

	return divergences, rows.Err()
}

func ValidatePlayer(v *validator.Validator, player *Player) {
	v.Check(strings.TrimSpace(player.Name) != "", "name", "must be provided")
	v.Check(len(player.Name) <= 100, "name", "must be 100 characters or less")

	v.Check(len(player.InstagramHandle) <= 30, "instagram_handle", "must be 30 characters or less")
	v.Check(len(player.Bio) <= 500, "bio", "must be 500 characters or less")

	v.Check(validator.PermittedValue(player.Position, PositionGuard, PositionForward,
		PositionCenter, PositionUnknown), "position",
		"must be one of Guard, Forward, Center or Unknown")

	if player.HeightInches != nil {
		v.Check(*player.HeightInches > 0 && *player.HeightInches < 120, "height_inches",
			"must be between 1 and 119")
	}
	if player.WeightLbs != nil {
		v.Check(*player.WeightLbs > 0 && *player.WeightLbs < 1000, "weight_lbs",
			"must be between 1 and 999")
	}
	if player.DateOfBirth != nil {
		v.Check(player.DateOfBirth.Before(time.Now()), "date_of_birth", "must be in the past")
	}
}
