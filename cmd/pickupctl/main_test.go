package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/reconcile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	report *reconcile.Report
	err    error
	repair bool
}

func (s *stubJob) Run(_ context.Context, repair bool) (*reconcile.Report, error) {
	s.repair = repair
	return s.report, s.err
}

func TestRunReconcilePrintsReport(t *testing.T) {
	id := uuid.New()
	job := &stubJob{report: &reconcile.Report{
		Divergences: []data.CareerDivergence{{PlayerID: id, Name: "Avery", GamesPlayed: 1, TerminalGames: 2}},
		Repaired:    []uuid.UUID{id},
		Failed:      map[uuid.UUID]string{},
	}}

	var out bytes.Buffer
	require.NoError(t, runReconcile(context.Background(), &out, job, true))
	assert.True(t, job.repair)

	var printed reconcile.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, []uuid.UUID{id}, printed.Repaired)
	require.Len(t, printed.Divergences, 1)
	assert.Equal(t, "Avery", printed.Divergences[0].Name)
}

func TestRunReconcileFailures(t *testing.T) {
	var out bytes.Buffer

	failing := &stubJob{report: &reconcile.Report{
		Failed: map[uuid.UUID]string{uuid.New(): "boom"},
	}}
	assert.EqualError(t, runReconcile(context.Background(), &out, failing, true),
		"1 career rebuilds failed")

	broken := &stubJob{err: errors.New("db down")}
	assert.EqualError(t, runReconcile(context.Background(), &out, broken, false), "db down")
}

func TestNewAdmin(t *testing.T) {
	user, err := newAdmin("Ops", "ops@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, data.RoleAdmin, user.Role)
	ok, err := user.Password.Matches("correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = newAdmin("Ops", "not-an-email", "short")
	var verr data.ModelValidationErr
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "email")
	assert.Contains(t, verr.Errors, "password")
}

func TestCommandsRegistered(t *testing.T) {
	app := newApp(&bytes.Buffer{}, jsonlog.Discard())

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"reconcile", "create-admin"}, names)
}
