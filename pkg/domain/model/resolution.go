package model

import "github.com/secmon-lab/slashcmd/pkg/domain/types"

// ResolutionState is the decision derived from the number of fetched teams
type ResolutionState struct {
	Kind types.ResolutionKind `json:"kind"`

	// Team is set only for ResolutionSingleTeam
	Team *Team `json:"team,omitempty"`

	// Teams and Selection are set only for ResolutionMultipleTeams.
	// Selection stays nil until the user picks a team.
	Teams     TeamSet `json:"teams,omitempty"`
	Selection *Team   `json:"selection,omitempty"`
}

// Resolution is a ResolutionState plus everything a UI layer needs to render it
type Resolution struct {
	State ResolutionState `json:"state"`

	Title    string `json:"title"`
	Message  string `json:"message"`
	JoinLink *Link  `json:"join_link,omitempty"`

	// Choice is nil when there is nothing to submit (no teams)
	Choice *TeamChoice `json:"choice,omitempty"`
}

// Link is a hyperlink shown next to a message
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// TeamChoice describes the team selection form fields.
//
// A disabled select is not submitted by browsers, so the single team case
// carries its value a second time in Hidden.
type TeamChoice struct {
	FieldID   string        `json:"field_id"`
	FieldName string        `json:"field_name"`
	Disabled  bool          `json:"disabled"`
	Required  bool          `json:"required"`
	Options   []*TeamOption `json:"options"`
	Hidden    *HiddenField  `json:"hidden,omitempty"`
}

// TeamOption is one entry of the team select
type TeamOption struct {
	Value       types.TeamID `json:"value"`
	Label       string       `json:"label"`
	Selected    bool         `json:"selected"`
	Placeholder bool         `json:"placeholder"`
}

// HiddenField is an always submitted form value
type HiddenField struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SelectedOption returns the option marked as selected, or nil
func (c *TeamChoice) SelectedOption() *TeamOption {
	for _, opt := range c.Options {
		if opt.Selected {
			return opt
		}
	}
	return nil
}

// SubmittedValue returns the team ID a browser would submit for the form as rendered
func (c *TeamChoice) SubmittedValue() types.TeamID {
	if c.Hidden != nil {
		return types.TeamID(c.Hidden.Value)
	}
	if c.Disabled {
		return ""
	}
	if opt := c.SelectedOption(); opt != nil && !opt.Placeholder {
		return opt.Value
	}
	return ""
}
