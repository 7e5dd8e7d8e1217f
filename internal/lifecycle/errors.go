package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/ledger"
	"PickupStatsApi/internal/stats"
	"PickupStatsApi/internal/validator"

	"github.com/google/uuid"
)

// ValidationError reports malformed or inconsistent input, keyed by field.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for k, v := range e.Errors {
		fields = append(fields, k+": "+v)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, "; ")
}

func newValidationError(key, message string) *ValidationError {
	return &ValidationError{Errors: map[string]string{key: message}}
}

func validationFrom(v *validator.Validator) *ValidationError {
	return &ValidationError{Errors: v.Errors}
}

// NotFoundError reports a missing game or missing players. Missing lists the unknown ids.
type NotFoundError struct {
	Resource string
	Missing  []uuid.UUID
}

func (e *NotFoundError) Error() string {
	if len(e.Missing) == 0 {
		return e.Resource + " not found"
	}
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, strings.Join(ids, ", "))
}

// InvalidStateError is returned when an operation needs an in-progress game.
type InvalidStateError struct {
	Status data.GameStatus
}

func (e *InvalidStateError) Error() string {
	return "game already " + string(e.Status)
}

// ConflictError means the game changed between read and save.
type ConflictError struct {
	GameID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("game %s was modified concurrently, please retry", e.GameID)
}

// storeError translates data layer sentinels into the lifecycle taxonomy.
func storeError(op string, gameID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		return &NotFoundError{Resource: "game"}
	case errors.Is(err, data.ErrEditConflict):
		return &ConflictError{GameID: gameID}
	default:
		return fmt.Errorf("%s game %s: %w", op, gameID, err)
	}
}

// eventError maps a rejected append onto a field-level validation error or a state error.
func eventError(game *data.Game, err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotInProgress):
		return &InvalidStateError{Status: game.Status}
	case errors.Is(err, ledger.ErrPlayerNotInRoster), errors.Is(err, stats.ErrMissingPlayer):
		return newValidationError("player_id", err.Error())
	case errors.Is(err, ledger.ErrTeamMismatch), errors.Is(err, stats.ErrInvalidTeam):
		return newValidationError("team", err.Error())
	case errors.Is(err, stats.ErrUnknownEventType):
		return newValidationError("type", err.Error())
	case errors.Is(err, stats.ErrInvalidShotPoints), errors.Is(err, stats.ErrInvalidFreeThrow):
		return newValidationError("points", err.Error())
	case errors.Is(err, stats.ErrInvalidReboundType):
		return newValidationError("rebound_type", err.Error())
	default:
		return newValidationError("event", err.Error())
	}
}
