package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	recipient string
	template  string
	data      any
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(recipient, templateFile string, data any) error {
	f.sent = append(f.sent, sent{recipient, templateFile, data})
	return f.err
}

type fakeNames map[uuid.UUID]string

func (f fakeNames) GetMany(_ context.Context, ids []uuid.UUID) ([]*data.Player, error) {
	var out []*data.Player
	for _, id := range ids {
		if name, ok := f[id]; ok {
			out = append(out, &data.Player{ID: id, Name: name})
		}
	}
	return out, nil
}

func finishedGame() (*data.Game, uuid.UUID, uuid.UUID) {
	a, b := uuid.New(), uuid.New()
	g := data.NewGame(data.GameType1v1, []uuid.UUID{a}, []uuid.UUID{b}, nil, nil)
	g.ID = uuid.New()
	g.Status = data.StatusFinished
	g.FinalScore = stats.Score{TeamA: 21, TeamB: 15}
	g.Winner = stats.ResolveOutcome(g.FinalScore)
	g.Summary = stats.Summary{
		a: {Pts: 21, Fga: 14, Fgm: 9, ThreePa: 4, ThreePm: 3, Reb: 10, IsDoubleDouble: true},
		b: {Pts: 15, Fga: 12, Fgm: 7, Fta: 2, Ftm: 1},
	}
	return g, a, b
}

func TestRecapSentOnlyForFinishedGames(t *testing.T) {
	g, a, _ := finishedGame()
	sender := &fakeSender{}
	n := NewRecapNotifier(sender, fakeNames{a: "Ari"}, []string{"coach@example.com", "league@example.com"})

	canceled := *g
	canceled.Status = data.StatusCanceled
	require.NoError(t, n.Notify(context.Background(), &canceled))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Notify(context.Background(), g))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "league@example.com", sender.sent[1].recipient)
	assert.Equal(t, recapTemplate, sender.sent[0].template)

	recap := sender.sent[0].data.(*Recap)
	assert.Equal(t, "Team A", recap.WinnerLabel)
	require.Len(t, recap.Lines, 2)
	assert.Equal(t, "Ari", recap.Lines[0].Name)
	assert.Equal(t, "Team B", recap.Lines[1].Team)
}

func TestRecapSendFailuresJoined(t *testing.T) {
	g, _, _ := finishedGame()
	boom := errors.New("smtp down")
	n := NewRecapNotifier(&fakeSender{err: boom}, fakeNames{}, []string{"coach@example.com"})

	assert.ErrorIs(t, n.Notify(context.Background(), g), boom)
}

func TestRenderRecap(t *testing.T) {
	g, a, b := finishedGame()
	n := NewRecapNotifier(&fakeSender{}, fakeNames{a: "Ari", b: "Bo"}, nil)
	recap, err := n.buildRecap(context.Background(), g)
	require.NoError(t, err)

	r, err := render(recapTemplate, recap)
	require.NoError(t, err)

	assert.Equal(t, "Final: Team A 21 - Team B 15", strings.TrimSpace(r.subject))
	assert.Contains(t, r.plainBody, "Winner: Team A")
	assert.Contains(t, r.plainBody, "Ari (Team A): 21 pts, 10 reb, 0 ast, FG 9/14 (64.3%), 3P 3/4 (75.0%), FT -")
	assert.Contains(t, r.plainBody, "(double-double)")
	assert.Contains(t, r.htmlBody, "<td>Bo</td>")
}
