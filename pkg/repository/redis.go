package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

const (
	redisKeyPrefix    = "slashcmd:"
	redisExpiryIndex  = redisKeyPrefix + "attempts:expiry"
	redisPingDeadline = 2 * time.Second
)

// Redis implements Repository interface with Redis. Attempts are stored with
// a TTL and additionally indexed by expiry so a sweep can report what it removed.
type Redis struct {
	client *redis.Client
}

// integrationRecord is the stored form of an integration. The token is
// excluded from the model's JSON form, so it needs its own field here.
type integrationRecord struct {
	ProjectID types.ProjectID `json:"project_id"`
	Token     string          `json:"token"`
	Active    bool            `json:"active"`
	TeamID    types.TeamID    `json:"team_id,omitempty"`
	CommandID types.CommandID `json:"command_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRedis creates a new Redis repository and checks the connection
func NewRedis(ctx context.Context, addr, password string, db int) (interfaces.Repository, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingDeadline)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", addr), goerr.V("db", db))
	}

	ctxlog.From(ctx).Info("Redis repository initialized successfully", "addr", addr, "db", db)
	return &Redis{client: client}, nil
}

func integrationKey(projectID types.ProjectID) string {
	return redisKeyPrefix + "integration:" + projectID.String()
}

func attemptKey(id types.AttemptID) string {
	return redisKeyPrefix + "attempt:" + string(id)
}

// GetIntegration retrieves the integration of a project
func (r *Redis) GetIntegration(ctx context.Context, projectID types.ProjectID) (*model.IntegrationConfig, error) {
	if projectID <= 0 {
		return nil, goerr.New("project ID must be positive")
	}

	data, err := r.client.Get(ctx, integrationKey(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerr.Wrap(model.ErrIntegrationNotFound, "failed to get integration",
			goerr.V("project_id", projectID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get integration", goerr.V("project_id", projectID))
	}

	var rec integrationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, goerr.Wrap(err, "failed to decode integration", goerr.V("project_id", projectID))
	}

	return &model.IntegrationConfig{
		ProjectID: rec.ProjectID,
		Token:     rec.Token,
		Active:    rec.Active,
		TeamID:    rec.TeamID,
		CommandID: rec.CommandID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// PutIntegration saves the integration of a project, overwriting any previous value
func (r *Redis) PutIntegration(ctx context.Context, cfg *model.IntegrationConfig) error {
	if cfg == nil {
		return goerr.New("integration is nil")
	}
	if cfg.ProjectID <= 0 {
		return goerr.New("project ID must be positive")
	}

	data, err := json.Marshal(integrationRecord{
		ProjectID: cfg.ProjectID,
		Token:     cfg.Token,
		Active:    cfg.Active,
		TeamID:    cfg.TeamID,
		CommandID: cfg.CommandID,
		CreatedAt: cfg.CreatedAt,
		UpdatedAt: cfg.UpdatedAt,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to encode integration", goerr.V("project_id", cfg.ProjectID))
	}

	if err := r.client.Set(ctx, integrationKey(cfg.ProjectID), data, 0).Err(); err != nil {
		return goerr.Wrap(err, "failed to put integration", goerr.V("project_id", cfg.ProjectID))
	}
	return nil
}

// SaveProvisioningAttempt saves a provisioning attempt until it expires. An
// attempt already past its expiry is only indexed, leaving it to the sweep.
func (r *Redis) SaveProvisioningAttempt(ctx context.Context, attempt *model.ProvisioningAttempt) error {
	if attempt == nil {
		return goerr.New("attempt is nil")
	}
	if attempt.ID == "" {
		return goerr.New("attempt ID is empty")
	}

	data, err := json.Marshal(copyAttempt(attempt))
	if err != nil {
		return goerr.Wrap(err, "failed to encode provisioning attempt", goerr.V("attempt_id", attempt.ID))
	}

	ttl := time.Until(attempt.ExpiresAt)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if ttl > 0 {
			pipe.Set(ctx, attemptKey(attempt.ID), data, ttl)
		} else {
			pipe.Del(ctx, attemptKey(attempt.ID))
		}
		pipe.ZAdd(ctx, redisExpiryIndex, redis.Z{
			Score:  float64(attempt.ExpiresAt.Unix()),
			Member: string(attempt.ID),
		})
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save provisioning attempt", goerr.V("attempt_id", attempt.ID))
	}
	return nil
}

// GetProvisioningAttempt retrieves a provisioning attempt by ID
func (r *Redis) GetProvisioningAttempt(ctx context.Context, id types.AttemptID) (*model.ProvisioningAttempt, error) {
	if id == "" {
		return nil, goerr.New("attempt ID is empty")
	}

	data, err := r.client.Get(ctx, attemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerr.Wrap(model.ErrAttemptNotFound, "failed to get provisioning attempt",
			goerr.V("attempt_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get provisioning attempt", goerr.V("attempt_id", id))
	}

	var attempt model.ProvisioningAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, goerr.Wrap(err, "failed to decode provisioning attempt", goerr.V("attempt_id", id))
	}
	return &attempt, nil
}

// DeleteProvisioningAttempt deletes a provisioning attempt
func (r *Redis) DeleteProvisioningAttempt(ctx context.Context, id types.AttemptID) error {
	if id == "" {
		return goerr.New("attempt ID is empty")
	}

	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, attemptKey(id))
		pipe.ZRem(ctx, redisExpiryIndex, string(id))
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete provisioning attempt", goerr.V("attempt_id", id))
	}
	if del.Val() == 0 {
		return goerr.Wrap(model.ErrAttemptNotFound, "failed to delete provisioning attempt",
			goerr.V("attempt_id", id))
	}
	return nil
}

// DeleteExpiredProvisioningAttempts removes every indexed attempt past its expiry
func (r *Redis) DeleteExpiredProvisioningAttempts(ctx context.Context) (int, error) {
	ids, err := r.client.ZRangeByScore(ctx, redisExpiryIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to query expired provisioning attempts")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(types.AttemptID(id))
		members[i] = id
	}

	var removed *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		removed = pipe.ZRem(ctx, redisExpiryIndex, members...)
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete expired provisioning attempts")
	}
	return int(removed.Val()), nil
}

// Close closes the Redis client
func (r *Redis) Close() error {
	return r.client.Close()
}
