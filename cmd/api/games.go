package main

import (
	"fmt"
	"net/http"
	"slices"

	"PickupStatsApi/internal/lifecycle"

	"github.com/gorilla/websocket"
)

func (app *application) InsertGame(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.CreateInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUser(r).ID
	input.CreatedBy = &userID

	game, err := app.games.Create(r.Context(), input)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/games/%s", game.ID))
	err = app.writeJSON(w, http.StatusCreated, envelope{"game": game}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) AddGameEvent(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input lifecycle.EventInput

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	game, err := app.games.AddEvent(r.Context(), id, input)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{
		"event":       game.Events[len(game.Events)-1],
		"final_score": game.FinalScore,
		"version":     game.Version,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) UpdateGame(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input lifecycle.SettingsInput

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	game, err := app.games.UpdateSettings(r.Context(), id, input)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"game": game}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) FinishGame(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	game, err := app.games.Finalize(r.Context(), id)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"game": game}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) CancelGame(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	game, err := app.games.Cancel(r.Context(), id)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"game": game}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	game, err := app.games.Get(r.Context(), id)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"game": game}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) WatchGame(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	view, err := app.games.Get(r.Context(), id)
	if err != nil {
		app.gameErrorResponse(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkWatchOrigin,
	}

	// Upgrade writes its own error response on failure.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.logError(r, err)
		return
	}

	err = app.hubs.Watch(view.Game, conn)
	if err != nil {
		app.logError(r, err)
		conn.Close()
	}
}

// checkWatchOrigin admits same-origin clients, trusted origins and, outside production with
// no trusted origins configured, anyone.
func (app *application) checkWatchOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(app.config.cors.trustedOrigins, origin) {
		return true
	}
	return len(app.config.cors.trustedOrigins) == 0 && app.config.env != "production"
}
