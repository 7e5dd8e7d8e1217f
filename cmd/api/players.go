package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/validator"
)

func (app *application) InsertPlayer(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name            string        `json:"name"`
		InstagramHandle string        `json:"instagram_handle"`
		ProfileImageURL string        `json:"profile_image_url"`
		Bio             string        `json:"bio"`
		Position        data.Position `json:"position"`
		HeightInches    *int          `json:"height_inches"`
		WeightLbs       *int          `json:"weight_lbs"`
		DateOfBirth     *time.Time    `json:"date_of_birth"`
		City            string        `json:"city"`
		State           string        `json:"state"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUser(r).ID
	player := &data.Player{
		CreatedBy:       &userID,
		Name:            input.Name,
		InstagramHandle: input.InstagramHandle,
		ProfileImageURL: input.ProfileImageURL,
		Bio:             input.Bio,
		Position:        input.Position,
		HeightInches:    input.HeightInches,
		WeightLbs:       input.WeightLbs,
		DateOfBirth:     input.DateOfBirth,
		City:            input.City,
		State:           input.State,
	}
	if player.Position == "" {
		player.Position = data.PositionUnknown
	}

	v := validator.New()
	if data.ValidatePlayer(v, player); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Players.Insert(r.Context(), player)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/players/%s", player.ID))
	err = app.writeJSON(w, http.StatusCreated, envelope{"player": player}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	player, err := app.models.Players.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"player": player}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	term := app.readString(r.URL.Query(), "search", "")

	players, err := app.games.SearchPlayers(r.Context(), term)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"players": players}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetPlayerGames(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	games, err := app.games.RecentGames(r.Context(), id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"games": games}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// UpdatePlayer patches profile fields only. Career stats, shot history and the creator are not
// accepted in the body at all.
func (app *application) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	player, err := app.models.Players.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	var input struct {
		Name            *string        `json:"name"`
		InstagramHandle *string        `json:"instagram_handle"`
		ProfileImageURL *string        `json:"profile_image_url"`
		Bio             *string        `json:"bio"`
		Position        *data.Position `json:"position"`
		HeightInches    *int           `json:"height_inches"`
		WeightLbs       *int           `json:"weight_lbs"`
		DateOfBirth     *time.Time     `json:"date_of_birth"`
		City            *string        `json:"city"`
		State           *string        `json:"state"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Name != nil {
		player.Name = *input.Name
	}
	if input.InstagramHandle != nil {
		player.InstagramHandle = *input.InstagramHandle
	}
	if input.ProfileImageURL != nil {
		player.ProfileImageURL = *input.ProfileImageURL
	}
	if input.Bio != nil {
		player.Bio = *input.Bio
	}
	if input.Position != nil {
		player.Position = *input.Position
	}
	if input.HeightInches != nil {
		player.HeightInches = input.HeightInches
	}
	if input.WeightLbs != nil {
		player.WeightLbs = input.WeightLbs
	}
	if input.DateOfBirth != nil {
		player.DateOfBirth = input.DateOfBirth
	}
	if input.City != nil {
		player.City = *input.City
	}
	if input.State != nil {
		player.State = *input.State
	}

	v := validator.New()
	if data.ValidatePlayer(v, player); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Players.Update(r.Context(), player)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"player": player}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.models.Players.Delete(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{
		"message": fmt.Sprintf("player (%s) successfully deleted", id)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
