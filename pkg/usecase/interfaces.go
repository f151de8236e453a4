package usecase

import (
	"context"

	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// TokenUseCase defines the interface for verification token operations
type TokenUseCase interface {
	// GetIntegration returns the project's integration, creating it on first access
	GetIntegration(ctx context.Context, projectID types.ProjectID) (*model.IntegrationConfig, error)

	// GetOrCreateToken returns the stored token or generates and stores a new one
	GetOrCreateToken(ctx context.Context, projectID types.ProjectID) (string, error)

	// SetToken overwrites the stored token
	SetToken(ctx context.Context, projectID types.ProjectID, token string) error

	// VerifyToken checks a token presented by the chat platform
	VerifyToken(ctx context.Context, projectID types.ProjectID, token string) error

	// TriggerURL returns the URL the chat platform calls for the project
	TriggerURL(projectID types.ProjectID) string
}

// ProvisioningUseCase defines the interface for the provisioning flow
type ProvisioningUseCase interface {
	// Enabled reports whether the integration can be provisioned at all
	Enabled() bool

	// Open fetches the user's teams and resolves the selection state
	Open(ctx context.Context, projectID types.ProjectID) (*model.ProvisioningAttempt, error)

	// Attempt reloads an open attempt with its resolution, e.g. to show the form again
	Attempt(ctx context.Context, projectID types.ProjectID, attemptID types.AttemptID) (*model.ProvisioningAttempt, error)

	// Confirm registers the command in the selected team
	Confirm(ctx context.Context, req *ConfirmRequest) (*model.ProvisioningResult, error)
}
