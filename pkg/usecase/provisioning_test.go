package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces/mocks"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/secmon-lab/slashcmd/pkg/repository"
	"github.com/secmon-lab/slashcmd/pkg/usecase"
)

const testAPIBase = "https://example.com/api/v3"

type provisioningFixture struct {
	repo   interfaces.Repository
	client *mocks.ChatPlatformClientMock
	tokens *usecase.TokenStore
	uc     *usecase.Provisioning
}

func newProvisioningFixture(enabled bool, teams model.TeamSet) *provisioningFixture {
	repo := repository.NewMemory()
	client := &mocks.ChatPlatformClientMock{
		ListTeamsFunc: func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
			return teams, nil
		},
		RegisterCommandFunc: func(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
			return &model.RegisteredCommand{
				ID:      "cmd1",
				TeamID:  teamID,
				Trigger: cmd.Trigger,
				Token:   "platform-token",
			}, nil
		},
	}
	tokens := usecase.NewTokenStore(repo, testAPIBase, "")
	uc := usecase.NewProvisioning(repo, client, tokens, usecase.NewTeamResolver(selectTeamURL), usecase.ProvisioningConfig{
		Enabled:     enabled,
		Credentials: model.Credentials{AccessToken: "access-token"},
	})
	return &provisioningFixture{repo: repo, client: client, tokens: tokens, uc: uc}
}

func TestProvisioningOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("no teams is a dead end", func(t *testing.T) {
		f := newProvisioningFixture(true, model.TeamSet{})
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		gt.Equal(t, types.PhaseResolved, attempt.Phase)
		gt.Equal(t, types.ResolutionNoTeams, attempt.Resolution.State.Kind)
		gt.True(t, attempt.Resolution.Choice == nil)

		_, err = f.repo.GetProvisioningAttempt(ctx, attempt.ID)
		gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
	})

	t.Run("single team pre-fills the selection", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(1))
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		gt.Equal(t, types.ResolutionSingleTeam, attempt.Resolution.State.Kind)
		gt.Equal(t, types.TeamID("team0"), attempt.Resolution.Choice.SubmittedValue())

		saved, err := f.repo.GetProvisioningAttempt(ctx, attempt.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, types.PhaseResolved, saved.Phase)
		gt.Equal(t, 1, saved.Teams.Len())
	})

	t.Run("multiple teams keep the fetch order", func(t *testing.T) {
		teams := model.NewTeamSet(
			&model.Team{ID: "b", DisplayName: "Beta"},
			&model.Team{ID: "a", DisplayName: "Alpha"},
		)
		f := newProvisioningFixture(true, teams)
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		opts := attempt.Resolution.Choice.Options
		gt.Equal(t, 3, len(opts))
		gt.Equal(t, types.TeamID("b"), opts[1].Value)
		gt.Equal(t, types.TeamID("a"), opts[2].Value)
	})

	t.Run("credentials are passed to the client", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(2))
		_, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		calls := f.client.ListTeamsCalls()
		gt.Equal(t, 1, len(calls))
		gt.Equal(t, "access-token", calls[0].Creds.AccessToken)
	})

	t.Run("upstream message is surfaced verbatim", func(t *testing.T) {
		f := newProvisioningFixture(true, nil)
		f.client.ListTeamsFunc = func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
			return nil, model.NewUpstreamError("list_teams", "test mattermost error message", 500)
		}

		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()
		gt.Equal(t, types.PhaseFetchFailed, attempt.Phase)
		gt.Equal(t, "test mattermost error message", attempt.Failure)
		gt.True(t, attempt.Resolution == nil)
		gt.Equal(t, 1, len(f.client.ListTeamsCalls()))
	})

	t.Run("wrapped upstream error keeps its message", func(t *testing.T) {
		f := newProvisioningFixture(true, nil)
		f.client.ListTeamsFunc = func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
			return nil, goerr.Wrap(model.NewUpstreamError("list_teams", "Invalid or expired session", 401), "failed")
		}

		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()
		gt.Equal(t, "Invalid or expired session", attempt.Failure)
	})

	t.Run("disabled integration", func(t *testing.T) {
		f := newProvisioningFixture(false, makeTeams(2))
		_, err := f.uc.Open(ctx, 42)
		gt.True(t, errors.Is(err, model.ErrIntegrationDisabled))
		gt.Equal(t, 0, len(f.client.ListTeamsCalls()))
		gt.False(t, f.uc.Enabled())
	})
}

func TestProvisioningConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("registers in the selected team", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(3))
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		result, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: attempt.ID,
			TeamID:    "team1",
		})
		gt.NoError(t, err).Required()
		gt.True(t, result.Registered)
		gt.Equal(t, types.TeamID("team1"), result.Team.ID)
		gt.Equal(t, types.CommandID("cmd1"), result.Command.ID)

		calls := f.client.RegisterCommandCalls()
		gt.Equal(t, 1, len(calls))
		gt.Equal(t, types.TeamID("team1"), calls[0].TeamID)

		cmd := calls[0].Cmd
		gt.Equal(t, "project-42", cmd.Trigger)
		gt.Equal(t, "https://example.com/api/v3/projects/42/services/mattermost_slash_commands/trigger", cmd.URL)
		gt.Equal(t, "Perform common operations on: project 42", cmd.Description)
		gt.Equal(t, cmd.Description, cmd.AutoCompleteDesc)
		gt.Equal(t, "[help]", cmd.AutoCompleteHint)
		gt.True(t, cmd.AutoComplete)

		cfg, err := f.repo.GetIntegration(ctx, 42)
		gt.NoError(t, err).Required()
		gt.True(t, cfg.Active)
		gt.Equal(t, "platform-token", cfg.Token)
		gt.Equal(t, types.TeamID("team1"), cfg.TeamID)
		gt.Equal(t, types.CommandID("cmd1"), cfg.CommandID)

		t.Run("attempt is consumed", func(t *testing.T) {
			_, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{
				ProjectID: 42,
				AttemptID: attempt.ID,
				TeamID:    "team1",
			})
			gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
			gt.Equal(t, 1, len(f.client.RegisterCommandCalls()))
		})
	})

	t.Run("single team submits the hidden value", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(1))
		attempt, err := f.uc.Open(ctx, 7)
		gt.NoError(t, err).Required()

		result, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 7,
			AttemptID: attempt.ID,
			TeamID:    attempt.Resolution.Choice.SubmittedValue(),
			Trigger:   "deploy",
		})
		gt.NoError(t, err).Required()
		gt.True(t, result.Registered)
		gt.Equal(t, "deploy", f.client.RegisterCommandCalls()[0].Cmd.Trigger)
	})

	t.Run("placeholder is rejected before any call", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(3))
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		_, err = f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: attempt.ID,
			TeamID:    attempt.Resolution.Choice.SubmittedValue(),
		})
		_, ok := model.AsValidationError(err)
		gt.True(t, ok)
		gt.Equal(t, 0, len(f.client.RegisterCommandCalls()))

		t.Run("attempt stays open for another try", func(t *testing.T) {
			result, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{
				ProjectID: 42,
				AttemptID: attempt.ID,
				TeamID:    "team2",
			})
			gt.NoError(t, err).Required()
			gt.True(t, result.Registered)
		})
	})

	t.Run("team outside the fetched set is rejected", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(2))
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		_, err = f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: attempt.ID,
			TeamID:    "someone-elses-team",
		})
		_, ok := model.AsValidationError(err)
		gt.True(t, ok)
	})

	t.Run("invalid trigger is rejected", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(2))
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		_, err = f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: attempt.ID,
			TeamID:    "team0",
			Trigger:   "/two words",
		})
		v, ok := model.AsValidationError(err)
		gt.True(t, ok)
		gt.Equal(t, "trigger", v.Field)
	})

	t.Run("registration failure leaves the integration untouched", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(2))
		token, err := f.tokens.GetOrCreateToken(ctx, 42)
		gt.NoError(t, err).Required()

		f.client.RegisterCommandFunc = func(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
			return nil, model.NewUpstreamError("register_command", "test mattermost error message", 400)
		}

		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		result, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: attempt.ID,
			TeamID:    "team0",
		})
		gt.NoError(t, err).Required()
		gt.False(t, result.Registered)
		gt.Equal(t, "test mattermost error message", result.Message)
		gt.Equal(t, 1, len(f.client.RegisterCommandCalls()))

		cfg, err := f.repo.GetIntegration(ctx, 42)
		gt.NoError(t, err).Required()
		gt.False(t, cfg.Active)
		gt.Equal(t, token, cfg.Token)
		gt.Equal(t, types.TeamID(""), cfg.TeamID)

		_, err = f.repo.GetProvisioningAttempt(ctx, attempt.ID)
		gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
	})

	t.Run("attempt of another project", func(t *testing.T) {
		f := newProvisioningFixture(true, makeTeams(2))
		attempt, err := f.uc.Open(ctx, 42)
		gt.NoError(t, err).Required()

		_, err = f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 43,
			AttemptID: attempt.ID,
			TeamID:    "team0",
		})
		gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
	})

	t.Run("expired attempt", func(t *testing.T) {
		f := newProvisioningFixture(true, nil)
		attempt, err := model.NewProvisioningAttempt(42)
		gt.NoError(t, err).Required()
		attempt.Phase = types.PhaseResolved
		attempt.Teams = makeTeams(2)
		attempt.ExpiresAt = time.Now().Add(-time.Minute)
		gt.NoError(t, f.repo.SaveProvisioningAttempt(ctx, attempt)).Required()

		_, err = f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: attempt.ID,
			TeamID:    "team0",
		})
		gt.True(t, errors.Is(err, model.ErrAttemptExpired))
		gt.Equal(t, 0, len(f.client.RegisterCommandCalls()))
	})

	t.Run("unknown attempt", func(t *testing.T) {
		f := newProvisioningFixture(true, nil)
		_, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{
			ProjectID: 42,
			AttemptID: "missing",
			TeamID:    "team0",
		})
		gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
	})

	t.Run("disabled integration", func(t *testing.T) {
		f := newProvisioningFixture(false, makeTeams(2))
		_, err := f.uc.Confirm(ctx, &usecase.ConfirmRequest{ProjectID: 42, AttemptID: "any", TeamID: "team0"})
		gt.True(t, errors.Is(err, model.ErrIntegrationDisabled))
	})
}

func TestProvisioningAttempt(t *testing.T) {
	ctx := context.Background()
	f := newProvisioningFixture(true, makeTeams(2))

	opened, err := f.uc.Open(ctx, 42)
	gt.NoError(t, err).Required()

	attempt, err := f.uc.Attempt(ctx, 42, opened.ID)
	gt.NoError(t, err).Required()
	gt.Equal(t, opened.ID, attempt.ID)
	gt.Equal(t, types.ResolutionMultipleTeams, attempt.Resolution.State.Kind)
	gt.Equal(t, 3, len(attempt.Resolution.Choice.Options))
	gt.Equal(t, 1, len(f.client.ListTeamsCalls()))

	_, err = f.uc.Attempt(ctx, 1, opened.ID)
	gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
}

func TestProvisioningProjectName(t *testing.T) {
	ctx := context.Background()

	confirm := func(t *testing.T, projects interfaces.ProjectDirectory) *model.SlashCommand {
		t.Helper()
		repo := repository.NewMemory()
		client := &mocks.ChatPlatformClientMock{
			ListTeamsFunc: func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
				return makeTeams(1), nil
			},
			RegisterCommandFunc: func(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
				return &model.RegisteredCommand{ID: "cmd1", TeamID: teamID, Trigger: cmd.Trigger}, nil
			},
		}
		tokens := usecase.NewTokenStore(repo, testAPIBase, "")
		uc := usecase.NewProvisioning(repo, client, tokens, usecase.NewTeamResolver(selectTeamURL), usecase.ProvisioningConfig{
			Enabled:  true,
			Projects: projects,
		})

		attempt, err := uc.Open(ctx, 42)
		gt.NoError(t, err).Required()
		result, err := uc.Confirm(ctx, &usecase.ConfirmRequest{ProjectID: 42, AttemptID: attempt.ID, TeamID: "team0"})
		gt.NoError(t, err).Required()
		gt.True(t, result.Registered)

		calls := client.RegisterCommandCalls()
		if len(calls) != 1 {
			t.Fatalf("expected one registration, got %d", len(calls))
		}
		return calls[0].Cmd
	}

	t.Run("namespaced name is used", func(t *testing.T) {
		projects := &mocks.ProjectDirectoryMock{
			ProjectNameFunc: func(ctx context.Context, projectID types.ProjectID) (string, error) {
				gt.Equal(t, types.ProjectID(42), projectID)
				return "Acme / api", nil
			},
		}
		cmd := confirm(t, projects)
		gt.Equal(t, "Perform common operations on: Acme / api", cmd.Description)
		gt.Equal(t, 1, len(projects.ProjectNameCalls()))
	})

	t.Run("lookup failure falls back to the ID", func(t *testing.T) {
		projects := &mocks.ProjectDirectoryMock{
			ProjectNameFunc: func(ctx context.Context, projectID types.ProjectID) (string, error) {
				return "", goerr.New("gitlab unavailable")
			},
		}
		cmd := confirm(t, projects)
		gt.Equal(t, "Perform common operations on: project 42", cmd.Description)
	})
}

// failingIntegrationRepo fails PutIntegration once failPut is set
type failingIntegrationRepo struct {
	interfaces.Repository
	failPut bool
}

func (r *failingIntegrationRepo) PutIntegration(ctx context.Context, cfg *model.IntegrationConfig) error {
	if r.failPut {
		return goerr.New("storage unavailable")
	}
	return r.Repository.PutIntegration(ctx, cfg)
}

func TestProvisioningConfirmConsumesAttemptWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	repo := &failingIntegrationRepo{Repository: repository.NewMemory()}
	client := &mocks.ChatPlatformClientMock{
		ListTeamsFunc: func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
			return makeTeams(2), nil
		},
		RegisterCommandFunc: func(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
			return &model.RegisteredCommand{ID: "cmd1", TeamID: teamID, Trigger: cmd.Trigger}, nil
		},
	}
	tokens := usecase.NewTokenStore(repo, testAPIBase, "")
	uc := usecase.NewProvisioning(repo, client, tokens, usecase.NewTeamResolver(selectTeamURL), usecase.ProvisioningConfig{Enabled: true})

	_, err := tokens.GetOrCreateToken(ctx, 42)
	gt.NoError(t, err).Required()

	attempt, err := uc.Open(ctx, 42)
	gt.NoError(t, err).Required()

	repo.failPut = true
	_, err = uc.Confirm(ctx, &usecase.ConfirmRequest{ProjectID: 42, AttemptID: attempt.ID, TeamID: "team1"})
	gt.Error(t, err)
	gt.Equal(t, 1, len(client.RegisterCommandCalls()))

	_, err = repo.GetProvisioningAttempt(ctx, attempt.ID)
	gt.True(t, errors.Is(err, model.ErrAttemptNotFound))
}
