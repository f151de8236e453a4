package model

import "github.com/secmon-lab/slashcmd/pkg/domain/types"

// Team is a tenant grouping of users on the chat platform.
// Teams are fetched on demand and never stored on their own.
type Team struct {
	ID          types.TeamID `json:"id" firestore:"id"`
	DisplayName string       `json:"display_name" firestore:"display_name"`
	Name        string       `json:"name" firestore:"name"`
}

// Label returns the human readable team name
func (t *Team) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}

// TeamSet is the ordered result of one team fetch
type TeamSet []*Team

// NewTeamSet builds a TeamSet keeping the first occurrence of each ID
func NewTeamSet(teams ...*Team) TeamSet {
	seen := make(map[types.TeamID]bool, len(teams))
	set := make(TeamSet, 0, len(teams))
	for _, team := range teams {
		if team == nil || seen[team.ID] {
			continue
		}
		seen[team.ID] = true
		set = append(set, team)
	}
	return set
}

// Find returns the team with the ID, or nil
func (s TeamSet) Find(id types.TeamID) *Team {
	for _, team := range s {
		if team.ID == id {
			return team
		}
	}
	return nil
}

// Len returns the number of teams
func (s TeamSet) Len() int {
	return len(s)
}
