package usecase

import (
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

const (
	// TeamFieldID is the DOM id shared by the select and its hidden twin
	TeamFieldID = "mattermost_team_id"
	// TeamFieldName is the form field carrying the selected team
	TeamFieldName = "team_id"

	// TeamPlaceholder is the label of the non-selectable first option
	TeamPlaceholder = "Select team..."
)

// Messages shown for each resolution
const (
	MessageNoTeamsTitle  = "You aren’t a member of any team on the Mattermost instance"
	MessageNoTeamsBody   = "Slash commands can only be added to a team you are a member of. Ask a team admin for an invite or"
	MessageJoinTeamLink  = "join a team"
	MessageSingleTitle   = "The team where the slash commands will be used in"
	MessageSingleBody    = "This is the only available team."
	MessageMultipleTitle = "Select the team where the slash commands will be used in"
	MessageMultipleBody  = "The list shows all available teams."
)

// TeamResolver turns fetched teams into a selection state and its presentation
type TeamResolver struct {
	selectTeamURL string
}

// NewTeamResolver creates a TeamResolver. selectTeamURL is the platform page
// where users join a team, linked when no team is available.
func NewTeamResolver(selectTeamURL string) *TeamResolver {
	return &TeamResolver{selectTeamURL: selectTeamURL}
}

// Resolve classifies teams by count. Teams keep the order of the fetch.
func (r *TeamResolver) Resolve(teams model.TeamSet) *model.Resolution {
	switch teams.Len() {
	case 0:
		return &model.Resolution{
			State:   model.ResolutionState{Kind: types.ResolutionNoTeams},
			Title:   MessageNoTeamsTitle,
			Message: MessageNoTeamsBody,
			JoinLink: &model.Link{
				Text: MessageJoinTeamLink,
				Href: r.selectTeamURL,
			},
		}

	case 1:
		team := teams[0]
		return &model.Resolution{
			State:   model.ResolutionState{Kind: types.ResolutionSingleTeam, Team: team},
			Title:   MessageSingleTitle,
			Message: MessageSingleBody,
			Choice: &model.TeamChoice{
				FieldID:   TeamFieldID,
				FieldName: TeamFieldName,
				Disabled:  true,
				Options: []*model.TeamOption{
					{Value: team.ID, Label: team.Label(), Selected: true},
				},
				// The disabled select is not submitted, the hidden field is
				Hidden: &model.HiddenField{
					ID:    TeamFieldID,
					Name:  TeamFieldName,
					Value: team.ID.String(),
				},
			},
		}

	default:
		options := make([]*model.TeamOption, 0, teams.Len()+1)
		options = append(options, &model.TeamOption{
			Label:       TeamPlaceholder,
			Selected:    true,
			Placeholder: true,
		})
		for _, team := range teams {
			options = append(options, &model.TeamOption{Value: team.ID, Label: team.Label()})
		}

		return &model.Resolution{
			State:   model.ResolutionState{Kind: types.ResolutionMultipleTeams, Teams: teams},
			Title:   MessageMultipleTitle,
			Message: MessageMultipleBody,
			Choice: &model.TeamChoice{
				FieldID:   TeamFieldID,
				FieldName: TeamFieldName,
				Required:  true,
				Options:   options,
			},
		}
	}
}

// Select records the user's pick on a multiple teams resolution. It returns
// a validation error when the pick is the placeholder or not a fetched team.
func (r *TeamResolver) Select(resolution *model.Resolution, teamID types.TeamID) (*model.Team, error) {
	state := &resolution.State
	switch state.Kind {
	case types.ResolutionNoTeams:
		return nil, model.NewValidationError(TeamFieldName, "No team is available to add the slash commands to")

	case types.ResolutionSingleTeam:
		if teamID != state.Team.ID {
			return nil, model.NewValidationError(TeamFieldName, "The selected team is not available")
		}
		return state.Team, nil

	default:
		if teamID == "" {
			return nil, model.NewValidationError(TeamFieldName, "Select a team")
		}
		team := state.Teams.Find(teamID)
		if team == nil {
			return nil, model.NewValidationError(TeamFieldName, "The selected team is not available")
		}
		state.Selection = team
		for _, opt := range resolution.Choice.Options {
			opt.Selected = opt.Value == teamID && !opt.Placeholder
		}
		return team, nil
	}
}
