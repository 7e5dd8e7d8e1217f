package stats

import "github.com/google/uuid"

// Summary maps each rostered player to their box score for one game.
type Summary map[uuid.UUID]BoxScore

// ComputeBoxScores folds the ledger, in order, into a box score for every roster id. Players
// without events get an all-zero line. Events for players outside the roster are skipped.
// The result depends only on the arguments.
func ComputeBoxScores(roster []uuid.UUID, events []Event) Summary {
	lines := make(map[uuid.UUID]*BoxScore, len(roster))
	for _, id := range roster {
		lines[id] = &BoxScore{}
	}

	for _, e := range events {
		line, ok := lines[e.PlayerID]
		if !ok {
			continue
		}
		line.apply(e)
	}

	summary := make(Summary, len(lines))
	for id, line := range lines {
		line.classify()
		summary[id] = *line
	}

	return summary
}
