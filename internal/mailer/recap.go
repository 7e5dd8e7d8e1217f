package mailer

import (
	"context"
	"errors"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
)

const recapTemplate = "game_recap.tmpl"

type Sender interface {
	Send(recipient, templateFile string, data any) error
}

type PlayerNames interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*data.Player, error)
}

type RecapLine struct {
	Name string
	Team string
	Box  stats.BoxScore
}

type Recap struct {
	Game        *data.Game
	WinnerLabel string
	Lines       []RecapLine
}

// RecapNotifier mails a box score to a fixed list of recipients when a game finishes.
type RecapNotifier struct {
	sender     Sender
	players    PlayerNames
	recipients []string
}

func NewRecapNotifier(sender Sender, players PlayerNames, recipients []string) *RecapNotifier {
	return &RecapNotifier{sender: sender, players: players, recipients: recipients}
}

func teamLabel(t stats.Team) string {
	if t == stats.TeamA {
		return "Team A"
	}
	return "Team B"
}

func (n *RecapNotifier) Notify(ctx context.Context, game *data.Game) error {
	if game.Status != data.StatusFinished || len(n.recipients) == 0 {
		return nil
	}

	recap, err := n.buildRecap(ctx, game)
	if err != nil {
		return err
	}

	var errs []error
	for _, recipient := range n.recipients {
		if err := n.sender.Send(recipient, recapTemplate, recap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *RecapNotifier) buildRecap(ctx context.Context, game *data.Game) (*Recap, error) {
	players, err := n.players.GetMany(ctx, game.AllPlayerIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	recap := &Recap{Game: game}
	if game.Winner != nil {
		recap.WinnerLabel = teamLabel(*game.Winner)
	}

	for _, id := range game.AllPlayerIDs {
		side, _ := game.SideOf(id)
		name, ok := names[id]
		if !ok {
			name = id.String()
		}
		recap.Lines = append(recap.Lines, RecapLine{
			Name: name,
			Team: teamLabel(side),
			Box:  game.Summary[id],
		})
	}

	return recap, nil
}
