package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu           sync.RWMutex
	integrations map[types.ProjectID]*model.IntegrationConfig
	attempts     map[types.AttemptID]*model.ProvisioningAttempt
}

// NewMemory creates a new memory repository
func NewMemory() interfaces.Repository {
	return &Memory{
		integrations: make(map[types.ProjectID]*model.IntegrationConfig),
		attempts:     make(map[types.AttemptID]*model.ProvisioningAttempt),
	}
}

// GetIntegration retrieves the integration of a project
func (m *Memory) GetIntegration(ctx context.Context, projectID types.ProjectID) (*model.IntegrationConfig, error) {
	if projectID <= 0 {
		return nil, goerr.New("project ID must be positive")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, exists := m.integrations[projectID]
	if !exists {
		return nil, goerr.Wrap(model.ErrIntegrationNotFound, "failed to get integration",
			goerr.V("project_id", projectID))
	}

	// Return a copy to prevent external modification
	cfgCopy := *cfg
	return &cfgCopy, nil
}

// PutIntegration saves the integration of a project, overwriting any previous value
func (m *Memory) PutIntegration(ctx context.Context, cfg *model.IntegrationConfig) error {
	if cfg == nil {
		return goerr.New("integration is nil")
	}
	if cfg.ProjectID <= 0 {
		return goerr.New("project ID must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfgCopy := *cfg
	m.integrations[cfg.ProjectID] = &cfgCopy
	return nil
}

// SaveProvisioningAttempt saves a provisioning attempt to memory
func (m *Memory) SaveProvisioningAttempt(ctx context.Context, attempt *model.ProvisioningAttempt) error {
	if attempt == nil {
		return goerr.New("attempt is nil")
	}
	if attempt.ID == "" {
		return goerr.New("attempt ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

// GetProvisioningAttempt retrieves a provisioning attempt by ID
func (m *Memory) GetProvisioningAttempt(ctx context.Context, id types.AttemptID) (*model.ProvisioningAttempt, error) {
	if id == "" {
		return nil, goerr.New("attempt ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	attempt, exists := m.attempts[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrAttemptNotFound, "failed to get provisioning attempt",
			goerr.V("attempt_id", id))
	}

	return copyAttempt(attempt), nil
}

// DeleteProvisioningAttempt deletes a provisioning attempt from memory
func (m *Memory) DeleteProvisioningAttempt(ctx context.Context, id types.AttemptID) error {
	if id == "" {
		return goerr.New("attempt ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.attempts[id]; !exists {
		return goerr.Wrap(model.ErrAttemptNotFound, "failed to delete provisioning attempt",
			goerr.V("attempt_id", id))
	}

	delete(m.attempts, id)
	return nil
}

// DeleteExpiredProvisioningAttempts removes every attempt past its expiry
func (m *Memory) DeleteExpiredProvisioningAttempts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	deleted := 0
	for id, attempt := range m.attempts {
		if now.After(attempt.ExpiresAt) {
			delete(m.attempts, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close does nothing for memory repository
func (m *Memory) Close() error {
	return nil
}

// copyAttempt copies the attempt and its team set
func copyAttempt(attempt *model.ProvisioningAttempt) *model.ProvisioningAttempt {
	attemptCopy := *attempt
	attemptCopy.Resolution = nil
	if attempt.Teams != nil {
		attemptCopy.Teams = make(model.TeamSet, len(attempt.Teams))
		for i, team := range attempt.Teams {
			teamCopy := *team
			attemptCopy.Teams[i] = &teamCopy
		}
	}
	return &attemptCopy
}
