package data

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrEditConflict   = errors.New("edit conflict")
)

// queryTimeout bounds every statement issued by the models.
const queryTimeout = 3 * time.Second

type Models struct {
	Users   UserModel
	Players PlayerModel
	Games   GameModel
}

func NewModels(initDb *sql.DB) Models {
	return Models{
		Users:   UserModel{db: initDb},
		Players: PlayerModel{db: initDb},
		Games:   GameModel{db: initDb},
	}
}
