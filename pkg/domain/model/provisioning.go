package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// AttemptTTL is how long a resolved attempt waits for the team confirmation
const AttemptTTL = 30 * time.Minute

// Credentials authenticate calls to the chat platform on behalf of the user
type Credentials struct {
	AccessToken string
}

// IsEmpty reports whether no credential is set
func (c Credentials) IsEmpty() bool {
	return c.AccessToken == ""
}

// ProvisioningAttempt is one run of the provisioning flow
type ProvisioningAttempt struct {
	ID        types.AttemptID         `json:"id" firestore:"id"`
	ProjectID types.ProjectID         `json:"project_id" firestore:"project_id"`
	Phase     types.ProvisioningPhase `json:"phase" firestore:"phase"`
	Teams     TeamSet                 `json:"teams" firestore:"teams"`
	Failure   string                  `json:"failure,omitempty" firestore:"failure"`
	CreatedAt time.Time               `json:"created_at" firestore:"created_at"`
	ExpiresAt time.Time               `json:"expires_at" firestore:"expires_at"`

	// Resolution is derived from Teams and is not persisted
	Resolution *Resolution `json:"resolution,omitempty" firestore:"-"`
}

// NewProvisioningAttempt creates an attempt in PhaseIdle
func NewProvisioningAttempt(projectID types.ProjectID) (*ProvisioningAttempt, error) {
	id, err := types.NewAttemptID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &ProvisioningAttempt{
		ID:        id,
		ProjectID: projectID,
		Phase:     types.PhaseIdle,
		CreatedAt: now,
		ExpiresAt: now.Add(AttemptTTL),
	}, nil
}

// IsExpired checks if the attempt has expired
func (a *ProvisioningAttempt) IsExpired() bool {
	return time.Now().After(a.ExpiresAt)
}

// TransitionTo moves the attempt to next if the phase table allows it
func (a *ProvisioningAttempt) TransitionTo(next types.ProvisioningPhase) error {
	if !a.Phase.CanTransitionTo(next) {
		return goerr.New("invalid phase transition",
			goerr.V("attempt_id", a.ID),
			goerr.V("from", a.Phase),
			goerr.V("to", next),
		)
	}
	a.Phase = next
	return nil
}

// ProvisioningResult is the terminal outcome of a confirmation.
// It is consumed once by the presentation layer.
type ProvisioningResult struct {
	Registered bool               `json:"registered"`
	Team       *Team              `json:"team,omitempty"`
	Command    *RegisteredCommand `json:"command,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Registered creates a successful result
func Registered(team *Team, cmd *RegisteredCommand) *ProvisioningResult {
	return &ProvisioningResult{Registered: true, Team: team, Command: cmd}
}

// Failed creates a failed result carrying the message to show
func Failed(message string) *ProvisioningResult {
	return &ProvisioningResult{Message: message}
}

// SlashCommand is a command to register on the chat platform
type SlashCommand struct {
	Trigger          string
	URL              string
	DisplayName      string
	Description      string
	Username         string
	IconURL          string
	AutoComplete     bool
	AutoCompleteDesc string
	AutoCompleteHint string
}

// RegisteredCommand is the chat platform's view of a registered command
type RegisteredCommand struct {
	ID      types.CommandID
	TeamID  types.TeamID
	Trigger string
	Token   string
}
