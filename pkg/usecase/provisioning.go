package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/secmon-lab/slashcmd/pkg/utils/async"
)

// ProvisioningConfig holds the settings injected into Provisioning
type ProvisioningConfig struct {
	// Enabled is the integration availability flag
	Enabled bool

	// Credentials authenticate calls to the chat platform
	Credentials model.Credentials

	// Template shapes the registered command. Defaults apply when nil.
	Template *model.CommandTemplate

	// Projects names the project in the command description. Optional.
	Projects interfaces.ProjectDirectory
}

// ConfirmRequest is the user's submission of the team selection form
type ConfirmRequest struct {
	ProjectID types.ProjectID
	AttemptID types.AttemptID
	TeamID    types.TeamID

	// Trigger is the command word. types.DefaultTrigger is used when empty.
	Trigger string
}

// Provisioning drives the flow that registers a slash command in a team
type Provisioning struct {
	repo     interfaces.Repository
	client   interfaces.ChatPlatformClient
	tokens   TokenUseCase
	resolver *TeamResolver
	cfg      ProvisioningConfig
}

var _ ProvisioningUseCase = (*Provisioning)(nil)

// NewProvisioning creates a new Provisioning use case
func NewProvisioning(
	repo interfaces.Repository,
	client interfaces.ChatPlatformClient,
	tokens TokenUseCase,
	resolver *TeamResolver,
	cfg ProvisioningConfig,
) *Provisioning {
	cfg.Template = cfg.Template.WithDefaults()
	return &Provisioning{
		repo:     repo,
		client:   client,
		tokens:   tokens,
		resolver: resolver,
		cfg:      cfg,
	}
}

// Enabled reports whether the integration can be provisioned
func (p *Provisioning) Enabled() bool {
	return p.cfg.Enabled
}

// Open fetches the user's teams and resolves them. A fetch failure is not
// returned as an error: the attempt ends in PhaseFetchFailed and carries the
// upstream message in Failure.
func (p *Provisioning) Open(ctx context.Context, projectID types.ProjectID) (*model.ProvisioningAttempt, error) {
	if !p.cfg.Enabled {
		return nil, goerr.Wrap(model.ErrIntegrationDisabled, "cannot open provisioning", goerr.V("project_id", projectID))
	}

	attempt, err := model.NewProvisioningAttempt(projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create provisioning attempt")
	}
	if err := attempt.TransitionTo(types.PhaseFetching); err != nil {
		return nil, err
	}

	logger := ctxlog.From(ctx).With("projectID", projectID, "attemptID", attempt.ID)

	teams, err := p.client.ListTeams(ctx, p.cfg.Credentials)
	if err != nil {
		attempt.Failure = upstreamMessage(err)
		if err := attempt.TransitionTo(types.PhaseFetchFailed); err != nil {
			return nil, err
		}
		logger.Warn("Failed to fetch teams", "error", err)
		return attempt, nil
	}

	attempt.Teams = teams
	attempt.Resolution = p.resolver.Resolve(teams)
	if err := attempt.TransitionTo(types.PhaseResolved); err != nil {
		return nil, err
	}

	kind := attempt.Resolution.State.Kind
	logger.Info("Resolved teams", "kind", kind, "count", teams.Len())

	if kind.Submittable() {
		if err := p.repo.SaveProvisioningAttempt(ctx, attempt); err != nil {
			return nil, goerr.Wrap(err, "failed to save provisioning attempt", goerr.V("attempt_id", attempt.ID))
		}
	}

	async.Dispatch(ctx, p.sweepExpired)

	return attempt, nil
}

// Attempt returns an attempt still awaiting confirmation, resolution included
func (p *Provisioning) Attempt(ctx context.Context, projectID types.ProjectID, attemptID types.AttemptID) (*model.ProvisioningAttempt, error) {
	attempt, err := p.loadAttempt(ctx, projectID, attemptID)
	if err != nil {
		return nil, err
	}
	attempt.Resolution = p.resolver.Resolve(attempt.Teams)
	return attempt, nil
}

// Confirm validates the selection against the fetched teams and registers the
// command. Invalid input is returned as *model.ValidationError and leaves the
// attempt open for another try. A registration failure is a failed result,
// not an error, and leaves the integration untouched.
func (p *Provisioning) Confirm(ctx context.Context, req *ConfirmRequest) (*model.ProvisioningResult, error) {
	if !p.cfg.Enabled {
		return nil, goerr.Wrap(model.ErrIntegrationDisabled, "cannot confirm provisioning", goerr.V("project_id", req.ProjectID))
	}

	attempt, err := p.loadAttempt(ctx, req.ProjectID, req.AttemptID)
	if err != nil {
		return nil, err
	}

	resolution := p.resolver.Resolve(attempt.Teams)
	team, err := p.resolver.Select(resolution, req.TeamID)
	if err != nil {
		return nil, err
	}

	trigger := req.Trigger
	if trigger == "" {
		trigger = types.DefaultTrigger(req.ProjectID)
	}
	cmd, err := p.cfg.Template.Build(p.projectLabel(ctx, req.ProjectID), trigger, p.tokens.TriggerURL(req.ProjectID))
	if err != nil {
		return nil, err
	}

	if err := attempt.TransitionTo(types.PhaseRegistering); err != nil {
		return nil, err
	}
	if err := p.repo.SaveProvisioningAttempt(ctx, attempt); err != nil {
		return nil, goerr.Wrap(err, "failed to save provisioning attempt", goerr.V("attempt_id", attempt.ID))
	}

	logger := ctxlog.From(ctx).With("projectID", req.ProjectID, "attemptID", attempt.ID, "teamID", team.ID)

	registered, err := p.client.RegisterCommand(ctx, team.ID, cmd, p.cfg.Credentials)
	if err != nil {
		attempt.Failure = upstreamMessage(err)
		if err := attempt.TransitionTo(types.PhaseRegisterFailed); err != nil {
			return nil, err
		}
		p.consume(ctx, attempt)
		logger.Warn("Failed to register slash command", "error", err)
		return model.Failed(attempt.Failure), nil
	}
	if err := attempt.TransitionTo(types.PhaseRegistered); err != nil {
		return nil, err
	}

	// The command exists upstream from here on. The attempt is consumed on every path below.
	defer p.consume(ctx, attempt)

	cfg, err := p.tokens.GetIntegration(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	cfg.MarkProvisioned(registered)
	if err := p.repo.PutIntegration(ctx, cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to save integration",
			goerr.V("project_id", req.ProjectID),
			goerr.V("command_id", registered.ID),
		)
	}

	logger.Info("Registered slash command", "commandID", registered.ID, "trigger", registered.Trigger)
	return model.Registered(team, registered), nil
}

func (p *Provisioning) loadAttempt(ctx context.Context, projectID types.ProjectID, attemptID types.AttemptID) (*model.ProvisioningAttempt, error) {
	if attemptID == "" {
		return nil, goerr.Wrap(model.ErrAttemptNotFound, "attempt ID is required")
	}

	attempt, err := p.repo.GetProvisioningAttempt(ctx, attemptID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get provisioning attempt", goerr.V("attempt_id", attemptID))
	}
	if attempt.ProjectID != projectID {
		return nil, goerr.Wrap(model.ErrAttemptNotFound, "attempt belongs to another project",
			goerr.V("attempt_id", attemptID),
			goerr.V("project_id", projectID),
		)
	}
	if attempt.IsExpired() {
		p.consume(ctx, attempt)
		return nil, goerr.Wrap(model.ErrAttemptExpired, "provisioning attempt expired", goerr.V("attempt_id", attemptID))
	}
	if attempt.Phase != types.PhaseResolved {
		return nil, goerr.Wrap(model.ErrAttemptNotFound, "provisioning attempt is not awaiting confirmation",
			goerr.V("attempt_id", attemptID),
			goerr.V("phase", attempt.Phase),
		)
	}
	return attempt, nil
}

// consume removes a finished attempt. Failing to do so only leaves it to expire.
func (p *Provisioning) consume(ctx context.Context, attempt *model.ProvisioningAttempt) {
	if err := p.repo.DeleteProvisioningAttempt(ctx, attempt.ID); err != nil {
		ctxlog.From(ctx).Warn("Failed to delete provisioning attempt",
			"attemptID", attempt.ID,
			"error", err,
		)
	}
}

func (p *Provisioning) sweepExpired(ctx context.Context) error {
	n, err := p.repo.DeleteExpiredProvisioningAttempts(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to delete expired provisioning attempts")
	}
	if n > 0 {
		ctxlog.From(ctx).Debug("Deleted expired provisioning attempts", "count", n)
	}
	return nil
}

// upstreamMessage returns the text to show for a chat platform failure
func upstreamMessage(err error) string {
	if upstream, ok := model.AsUpstreamError(err); ok && upstream.Message != "" {
		return upstream.Message
	}
	return err.Error()
}

// projectLabel names the project for the command description. A lookup
// failure falls back to the numeric ID.
func (p *Provisioning) projectLabel(ctx context.Context, projectID types.ProjectID) string {
	fallback := fmt.Sprintf("project %d", projectID)
	if p.cfg.Projects == nil {
		return fallback
	}

	name, err := p.cfg.Projects.ProjectName(ctx, projectID)
	if err != nil {
		ctxlog.From(ctx).Warn("Failed to look up project name", "projectID", projectID, "error", err)
		return fallback
	}
	if name == "" {
		return fallback
	}
	return name
}
