package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// TokenStore holds the verification token of each project's integration
type TokenStore struct {
	repo    interfaces.Repository
	apiBase string
	name    types.IntegrationName
}

var _ TokenUseCase = (*TokenStore)(nil)

// NewTokenStore creates a new TokenStore. apiBase is the externally visible
// API root, e.g. https://example.com/api/v3
func NewTokenStore(repo interfaces.Repository, apiBase string, name types.IntegrationName) *TokenStore {
	if name == "" {
		name = types.DefaultIntegrationName
	}
	return &TokenStore{
		repo:    repo,
		apiBase: strings.TrimRight(apiBase, "/"),
		name:    name,
	}
}

// GetIntegration returns the project's integration, creating it on first access
func (s *TokenStore) GetIntegration(ctx context.Context, projectID types.ProjectID) (*model.IntegrationConfig, error) {
	cfg, err := s.repo.GetIntegration(ctx, projectID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, model.ErrIntegrationNotFound) {
		return nil, goerr.Wrap(err, "failed to get integration", goerr.V("project_id", projectID))
	}

	cfg = model.NewIntegrationConfig(projectID)
	if err := s.repo.PutIntegration(ctx, cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to create integration", goerr.V("project_id", projectID))
	}

	ctxlog.From(ctx).Info("Created integration",
		"projectID", projectID,
		"integration", s.name,
	)
	return cfg, nil
}

// GetOrCreateToken returns the stored token or generates and stores a new one.
// Once generated, repeated calls return the same token.
func (s *TokenStore) GetOrCreateToken(ctx context.Context, projectID types.ProjectID) (string, error) {
	cfg, err := s.GetIntegration(ctx, projectID)
	if err != nil {
		return "", err
	}
	if cfg.HasToken() {
		return cfg.Token, nil
	}

	token, err := model.NewToken()
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate token")
	}

	cfg.Token = token
	cfg.UpdatedAt = time.Now()
	if err := s.repo.PutIntegration(ctx, cfg); err != nil {
		return "", goerr.Wrap(err, "failed to save token", goerr.V("project_id", projectID))
	}

	ctxlog.From(ctx).Info("Generated verification token", "projectID", projectID)
	return token, nil
}

// SetToken overwrites the stored token. Any non-empty string is accepted.
func (s *TokenStore) SetToken(ctx context.Context, projectID types.ProjectID, token string) error {
	if token == "" {
		return model.NewValidationError("token", "Token can't be blank")
	}

	cfg, err := s.GetIntegration(ctx, projectID)
	if err != nil {
		return err
	}

	cfg.Token = token
	cfg.UpdatedAt = time.Now()
	if err := s.repo.PutIntegration(ctx, cfg); err != nil {
		return goerr.Wrap(err, "failed to save token", goerr.V("project_id", projectID))
	}

	ctxlog.From(ctx).Info("Saved verification token", "projectID", projectID)
	return nil
}

// VerifyToken checks a token presented by the chat platform
func (s *TokenStore) VerifyToken(ctx context.Context, projectID types.ProjectID, token string) error {
	cfg, err := s.repo.GetIntegration(ctx, projectID)
	if err != nil {
		return goerr.Wrap(err, "failed to get integration", goerr.V("project_id", projectID))
	}

	if !cfg.HasToken() || token == "" ||
		subtle.ConstantTimeCompare([]byte(cfg.Token), []byte(token)) != 1 {
		return goerr.Wrap(model.ErrTokenMismatch, "invalid token", goerr.V("project_id", projectID))
	}
	return nil
}

// TriggerURL returns <api-base>/projects/<projectID>/services/<name>/trigger
func (s *TokenStore) TriggerURL(projectID types.ProjectID) string {
	return fmt.Sprintf("%s/projects/%d/services/%s/trigger", s.apiBase, projectID, s.name)
}
