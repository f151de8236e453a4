package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names
	integrationsCollection = "integrations"
	attemptsCollection     = "provisioning_attempts"

	// Field names
	fieldExpiresAt = "expires_at"
)

// Firestore implements Repository interface with Firestore
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (interfaces.Repository, error) {
	logger := ctxlog.From(ctx)

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	// Test connection by attempting to read from a collection.
	// This fails fast if the project ID is invalid or permissions are missing.
	_, err = client.Collection(integrationsCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
	)

	return &Firestore{
		client: client,
	}, nil
}

// GetIntegration retrieves the integration of a project
func (f *Firestore) GetIntegration(ctx context.Context, projectID types.ProjectID) (*model.IntegrationConfig, error) {
	if projectID <= 0 {
		return nil, goerr.New("project ID must be positive")
	}

	doc, err := f.client.Collection(integrationsCollection).Doc(projectID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrIntegrationNotFound, "failed to get integration",
				goerr.V("project_id", projectID))
		}
		return nil, goerr.Wrap(err, "failed to get integration from firestore")
	}

	var cfg model.IntegrationConfig
	if err := doc.DataTo(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode integration")
	}

	return &cfg, nil
}

// PutIntegration saves the integration of a project, overwriting any previous value
func (f *Firestore) PutIntegration(ctx context.Context, cfg *model.IntegrationConfig) error {
	if cfg == nil {
		return goerr.New("integration is nil")
	}
	if cfg.ProjectID <= 0 {
		return goerr.New("project ID must be positive")
	}

	_, err := f.client.Collection(integrationsCollection).Doc(cfg.ProjectID.String()).Set(ctx, cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to save integration to firestore")
	}

	return nil
}

// SaveProvisioningAttempt saves a provisioning attempt to Firestore
func (f *Firestore) SaveProvisioningAttempt(ctx context.Context, attempt *model.ProvisioningAttempt) error {
	if attempt == nil {
		return goerr.New("attempt is nil")
	}
	if attempt.ID == "" {
		return goerr.New("attempt ID is empty")
	}

	_, err := f.client.Collection(attemptsCollection).Doc(attempt.ID.String()).Set(ctx, attempt)
	if err != nil {
		return goerr.Wrap(err, "failed to save provisioning attempt to firestore")
	}

	return nil
}

// GetProvisioningAttempt retrieves a provisioning attempt by ID
func (f *Firestore) GetProvisioningAttempt(ctx context.Context, id types.AttemptID) (*model.ProvisioningAttempt, error) {
	if id == "" {
		return nil, goerr.New("attempt ID is empty")
	}

	doc, err := f.client.Collection(attemptsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrAttemptNotFound, "failed to get provisioning attempt",
				goerr.V("attempt_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get provisioning attempt from firestore")
	}

	var attempt model.ProvisioningAttempt
	if err := doc.DataTo(&attempt); err != nil {
		return nil, goerr.Wrap(err, "failed to decode provisioning attempt")
	}

	return &attempt, nil
}

// DeleteProvisioningAttempt deletes a provisioning attempt from Firestore
func (f *Firestore) DeleteProvisioningAttempt(ctx context.Context, id types.AttemptID) error {
	if id == "" {
		return goerr.New("attempt ID is empty")
	}

	// Check if the attempt exists before deletion
	doc := f.client.Collection(attemptsCollection).Doc(id.String())
	if _, err := doc.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrAttemptNotFound, "failed to delete provisioning attempt",
				goerr.V("attempt_id", id))
		}
		return goerr.Wrap(err, "failed to check provisioning attempt existence")
	}

	if _, err := doc.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete provisioning attempt from firestore")
	}

	return nil
}

// DeleteExpiredProvisioningAttempts removes every attempt past its expiry
func (f *Firestore) DeleteExpiredProvisioningAttempts(ctx context.Context) (int, error) {
	iter := f.client.Collection(attemptsCollection).
		Where(fieldExpiresAt, "<", time.Now()).
		Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, goerr.Wrap(err, "failed to iterate expired provisioning attempts")
		}

		if _, err := doc.Ref.Delete(ctx); err != nil {
			return deleted, goerr.Wrap(err, "failed to delete expired provisioning attempt",
				goerr.V("attempt_id", doc.Ref.ID))
		}
		deleted++
	}

	return deleted, nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

var _ interfaces.Repository = (*Firestore)(nil) // Compile-time interface check
