package data

import (
	"testing"

	"PickupStatsApi/internal/assert"
	"PickupStatsApi/internal/stats"
	"PickupStatsApi/internal/validator"

	"github.com/google/uuid"
)

var (
	idA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	idB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	idC = uuid.MustParse("cccccccc-0000-0000-0000-000000000003")
)

func intPtr(i int) *int {
	return &i
}

func TestValidateGame(t *testing.T) {
	tests := []struct {
		name    string
		game    *Game
		wantKey string
	}{
		{
			name: "Valid",
			game: NewGame(GameType2v2, []uuid.UUID{idA}, []uuid.UUID{idB, idC}, intPtr(21), nil),
		},
		{
			name:    "Missing Game Type",
			game:    NewGame("", []uuid.UUID{idA}, []uuid.UUID{idB}, nil, nil),
			wantKey: "game_type",
		},
		{
			name:    "Unknown Game Type",
			game:    NewGame("4v4", []uuid.UUID{idA}, []uuid.UUID{idB}, nil, nil),
			wantKey: "game_type",
		},
		{
			name:    "Empty Team",
			game:    NewGame(GameType1v1, []uuid.UUID{idA}, nil, nil, nil),
			wantKey: "team_b",
		},
		{
			name:    "Player On Both Teams",
			game:    NewGame(GameType2v2, []uuid.UUID{idA, idB}, []uuid.UUID{idB, idC}, nil, nil),
			wantKey: "teams",
		},
		{
			name:    "Duplicate Within Team",
			game:    NewGame(GameType2v2, []uuid.UUID{idA, idA}, []uuid.UUID{idB}, nil, nil),
			wantKey: "team_a",
		},
		{
			name:    "Score To Win Too High",
			game:    NewGame(GameType1v1, []uuid.UUID{idA}, []uuid.UUID{idB}, intPtr(201), nil),
			wantKey: "score_to_win",
		},
		{
			name:    "Score To Win Zero",
			game:    NewGame(GameType1v1, []uuid.UUID{idA}, []uuid.UUID{idB}, intPtr(0), nil),
			wantKey: "score_to_win",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validator.New()
			ValidateGame(v, tt.game)

			if tt.wantKey == "" {
				assert.True(t, v.Valid(), "expected game to be valid")
				return
			}
			_, ok := v.Errors[tt.wantKey]
			assert.True(t, ok, "expected an error for "+tt.wantKey)
		})
	}
}

func TestNewGameRoster(t *testing.T) {
	game := NewGame(GameType2v2, []uuid.UUID{idA, idB}, []uuid.UUID{idC}, nil, nil)

	assert.SliceEqual(t, game.AllPlayerIDs, []uuid.UUID{idA, idB, idC})
	assert.Equal(t, game.Status, StatusInProgress)
	assert.Equal(t, len(game.Events), 0)

	side, ok := game.SideOf(idC)
	assert.True(t, ok, "idC should be rostered")
	assert.Equal(t, side, stats.TeamB)

	_, ok = game.SideOf(uuid.New())
	assert.Equal(t, ok, false)
}

func TestGameStatusIsTerminal(t *testing.T) {
	assert.Equal(t, StatusInProgress.IsTerminal(), false)
	assert.Equal(t, StatusFinished.IsTerminal(), true)
	assert.Equal(t, StatusCanceled.IsTerminal(), true)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, escapeLike(`50%_off\`), `50\%\_off\\`)
	assert.Equal(t, escapeLike("plain"), "plain")
}

func TestModelValidationErrFrom(t *testing.T) {
	v := validator.New()
	ValidateGame(v, NewGame("", []uuid.UUID{idA}, []uuid.UUID{idB}, intPtr(500), nil))

	err := ModelValidationErrFrom(v)
	assert.Equal(t, len(err.Errors), 2)
	assert.StringContains(t, err.Error(), "game_type ")
	assert.StringContains(t, err.Error(), "score_to_win ")

	v.AddError("extra", "added later")
	_, copied := err.Errors["extra"]
	assert.Equal(t, copied, false)
}
