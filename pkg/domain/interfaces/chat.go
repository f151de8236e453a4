package interfaces

//go:generate moq -out mocks/chat_mock.go -pkg mocks . ChatPlatformClient

import (
	"context"

	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// ChatPlatformClient performs the outbound calls to the chat platform.
// Every failure is returned as *model.UpstreamError and is never retried.
type ChatPlatformClient interface {
	// ListTeams lists the teams the credentials' user is a member of
	ListTeams(ctx context.Context, creds model.Credentials) (model.TeamSet, error)

	// RegisterCommand registers a slash command in the team
	RegisterCommand(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error)
}
