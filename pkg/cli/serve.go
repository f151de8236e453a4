package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/cli/config"
	controller "github.com/secmon-lab/slashcmd/pkg/controller/http"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg      config.Server
		mattermostCfg  config.Mattermost
		integrationCfg config.Integration
		firestoreCfg   config.Firestore
		redisCfg       config.Redis
		gitlabCfg      config.GitLab
	)

	flags := joinFlags(
		serverCfg.Flags(),
		mattermostCfg.Flags(),
		integrationCfg.Flags(),
		firestoreCfg.Flags(),
		redisCfg.Flags(),
		gitlabCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting slashcmd server",
				slog.Any("server", serverCfg),
				slog.Any("mattermost", mattermostCfg),
				slog.Any("integration", integrationCfg),
				slog.Any("firestore", firestoreCfg),
				slog.Any("redis", redisCfg),
				slog.Any("gitlab", gitlabCfg),
			)

			client, err := mattermostCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "invalid mattermost configuration")
			}
			if !mattermostCfg.Enabled {
				logger.Warn("Mattermost integration is disabled, only token settings are available")
			}

			tmpl, err := integrationCfg.CommandTemplate()
			if err != nil {
				return err
			}

			projects, err := gitlabCfg.Configure()
			if err != nil {
				return err
			}

			repo, err := configureRepository(ctx, &firestoreCfg, &redisCfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			tokenUC := usecase.NewTokenStore(repo, integrationCfg.APIBase, integrationCfg.IntegrationName())
			provisioningUC := usecase.NewProvisioning(
				repo,
				client,
				tokenUC,
				usecase.NewTeamResolver(mattermostCfg.SelectTeamURL()),
				usecase.ProvisioningConfig{
					Enabled:     mattermostCfg.Enabled,
					Credentials: mattermostCfg.Credentials(),
					Template:    tmpl,
					Projects:    projects,
				},
			)

			server, err := controller.NewServer(ctx,
				controller.Config{
					Addr:            serverCfg.Addr,
					IntegrationName: integrationCfg.IntegrationName(),
					APIBase:         integrationCfg.APIBase,
				},
				controller.UseCases{
					Tokens:       tokenUC,
					Provisioning: provisioningUC,
				},
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

// configureRepository picks the storage backend. Only one may be configured.
func configureRepository(ctx context.Context, fs *config.Firestore, rd *config.Redis) (interfaces.Repository, error) {
	if fs.IsConfigured() && rd.IsConfigured() {
		return nil, goerr.New("firestore and redis cannot be used together")
	}
	if rd.IsConfigured() {
		return rd.Configure(ctx)
	}
	return fs.Configure(ctx)
}
