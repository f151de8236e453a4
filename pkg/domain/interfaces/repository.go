package interfaces

import (
	"context"

	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Integration operations
	GetIntegration(ctx context.Context, projectID types.ProjectID) (*model.IntegrationConfig, error)
	PutIntegration(ctx context.Context, cfg *model.IntegrationConfig) error

	// Provisioning attempt operations
	SaveProvisioningAttempt(ctx context.Context, attempt *model.ProvisioningAttempt) error
	GetProvisioningAttempt(ctx context.Context, id types.AttemptID) (*model.ProvisioningAttempt, error)
	DeleteProvisioningAttempt(ctx context.Context, id types.AttemptID) error
	DeleteExpiredProvisioningAttempts(ctx context.Context) (int, error)

	// Close closes the repository connection
	Close() error
}
