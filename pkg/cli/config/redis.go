package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/repository"
	"github.com/urfave/cli/v3"
)

// Redis holds the configuration of the Redis storage backend
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Flags returns CLI flags for Redis configuration
func (r *Redis) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port). Takes the place of Firestore when set",
			Category:    "Redis",
			Sources:     cli.EnvVars("SLASHCMD_REDIS_ADDR"),
			Destination: &r.Addr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Redis",
			Sources:     cli.EnvVars("SLASHCMD_REDIS_PASSWORD"),
			Destination: &r.Password,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Redis",
			Sources:     cli.EnvVars("SLASHCMD_REDIS_DB"),
			Destination: &r.DB,
		},
	}
}

// IsConfigured checks if Redis is selected as storage
func (r *Redis) IsConfigured() bool {
	return r.Addr != ""
}

// Configure connects to Redis
func (r *Redis) Configure(ctx context.Context) (interfaces.Repository, error) {
	if r.DB < 0 {
		return nil, goerr.New("redis database number must not be negative", goerr.V("db", r.DB))
	}

	repo, err := repository.NewRedis(ctx, r.Addr, r.Password, r.DB)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init redis", goerr.V("addr", r.Addr))
	}
	return repo, nil
}

// LogValue returns structured log value without the password
func (r Redis) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", r.Addr),
		slog.Int("db", r.DB),
		slog.Bool("has_password", r.Password != ""),
	)
}
