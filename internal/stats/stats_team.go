package stats

type Team string

const (
	TeamA Team = "team_a"
	TeamB Team = "team_b"
)

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Score holds the running totals of both teams.
type Score struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

func (s *Score) Add(team Team, points int) {
	switch team {
	case TeamA:
		s.TeamA += points
	case TeamB:
		s.TeamB += points
	}
}

// ResolveOutcome returns the team with the strictly greater score, or nil on a tie.
func ResolveOutcome(s Score) *Team {
	var winner Team
	switch {
	case s.TeamA > s.TeamB:
		winner = TeamA
	case s.TeamB > s.TeamA:
		winner = TeamB
	default:
		return nil
	}
	return &winner
}

// Attribution returns the win and loss increments for a player on side. Only finished games
// with a winner count; ties and canceled games give neither.
func Attribution(finished bool, winner *Team, side Team) (win, loss int) {
	if !finished || winner == nil {
		return 0, 0
	}
	if *winner == side {
		return 1, 0
	}
	return 0, 1
}
