package engine

import (
	"errors"
	"fmt"
	"sort"
)

// TeamPolicy is how a table of a given size splits into teams.
type TeamPolicy struct {
	Teams             int
	RequiredSequences int
}

// Two-team tables play to two sequences, three-team tables to one.
var teamPolicies = map[int]TeamPolicy{
	2:  {Teams: 2, RequiredSequences: 2},
	3:  {Teams: 3, RequiredSequences: 1},
	4:  {Teams: 2, RequiredSequences: 2},
	6:  {Teams: 3, RequiredSequences: 1},
	8:  {Teams: 2, RequiredSequences: 2},
	9:  {Teams: 3, RequiredSequences: 1},
	10: {Teams: 2, RequiredSequences: 2},
	11: {Teams: 3, RequiredSequences: 1},
	12: {Teams: 3, RequiredSequences: 1},
}

var ErrUnsupportedPlayerCount = errors.New("unsupported player count")

// PolicyFor returns the team policy for playerCount.
func PolicyFor(playerCount int) (TeamPolicy, error) {
	p, ok := teamPolicies[playerCount]
	if !ok {
		return TeamPolicy{}, fmt.Errorf("%w: %d", ErrUnsupportedPlayerCount, playerCount)
	}
	return p, nil
}

// SupportedPlayerCounts lists the table sizes with a team policy, ascending.
func SupportedPlayerCounts() []int {
	out := make([]int, 0, len(teamPolicies))
	for n := range teamPolicies {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// TeamName returns the id of the i-th team (0-based).
func TeamName(i int) TeamID { return TeamID(fmt.Sprintf("team%d", i+1)) }

// assignTeams seats player i on team i mod Teams, so turn order alternates
// between teams.
func assignTeams(players []Player, p TeamPolicy) []Team {
	teams := make([]Team, p.Teams)
	for i := range teams {
		teams[i].ID = TeamName(i)
	}
	for i := range players {
		t := i % p.Teams
		players[i].Team = teams[t].ID
		teams[t].PlayerIDs = append(teams[t].PlayerIDs, players[i].ID)
	}
	return teams
}
