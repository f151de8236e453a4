package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	controller "github.com/secmon-lab/slashcmd/pkg/controller/http"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces/mocks"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/secmon-lab/slashcmd/pkg/repository"
	"github.com/secmon-lab/slashcmd/pkg/usecase"
)

const (
	servicePath = "/projects/42/services/mattermost_slash_commands"
	chatHost    = "https://chat.example.com"
)

type testEnv struct {
	server *httptest.Server
	repo   interfaces.Repository
	client *mocks.ChatPlatformClientMock
}

func newTestEnv(t *testing.T, enabled bool, teams model.TeamSet) *testEnv {
	t.Helper()

	ctx := ctxlog.With(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	repo := repository.NewMemory()
	client := &mocks.ChatPlatformClientMock{
		ListTeamsFunc: func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
			return teams, nil
		},
		RegisterCommandFunc: func(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
			return &model.RegisteredCommand{ID: "cmd1", TeamID: teamID, Trigger: cmd.Trigger, Token: "platform-token"}, nil
		},
	}

	tokens := usecase.NewTokenStore(repo, "https://example.com/api/v3", "")
	provisioning := usecase.NewProvisioning(repo, client, tokens, usecase.NewTeamResolver(chatHost+"/select_team"),
		usecase.ProvisioningConfig{Enabled: enabled})

	srv, err := controller.NewServer(ctx, controller.Config{Addr: ":0"}, controller.UseCases{
		Tokens:       tokens,
		Provisioning: provisioning,
	})
	gt.NoError(t, err).Required()

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, repo: repo, client: client}
}

func (e *testEnv) httpClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := e.httpClient().Get(e.server.URL + path)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	return resp.StatusCode, string(body)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.httpClient().PostForm(e.server.URL+path, form)
	gt.NoError(t, err).Required()
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	return string(body)
}

var attemptIDPattern = regexp.MustCompile(`name="attempt_id" value="([^"]+)"`)

func attemptIDFrom(t *testing.T, body string) string {
	t.Helper()
	m := attemptIDPattern.FindStringSubmatch(body)
	gt.Equal(t, 2, len(m))
	return m[1]
}

func teams(n int) model.TeamSet {
	all := []*model.Team{
		{ID: "t1", DisplayName: "Engineering", Name: "eng"},
		{ID: "t2", DisplayName: "Security", Name: "sec"},
		{ID: "t3", DisplayName: "Operations", Name: "ops"},
	}
	return model.NewTeamSet(all[:n]...)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true, nil)
	status, body := env.get(t, "/health")
	gt.Equal(t, http.StatusOK, status)

	var resp map[string]string
	gt.NoError(t, json.Unmarshal([]byte(body), &resp)).Required()
	gt.Equal(t, "healthy", resp["status"])
	gt.Equal(t, "slashcmd", resp["service"])
}

func TestEditPage(t *testing.T) {
	t.Run("shows help text, token and request url", func(t *testing.T) {
		env := newTestEnv(t, true, nil)
		status, body := env.get(t, servicePath+"/edit")
		gt.Equal(t, http.StatusOK, status)

		gt.True(t, strings.Contains(body, "This service allows GitLab users to perform common operations on this project by entering slash commands in Mattermost."))
		gt.True(t, strings.Contains(body, `id="service_token"`))
		gt.True(t, strings.Contains(body,
			`id="request_url" name="request_url" value="https://example.com/api/v3/projects/42/services/mattermost_slash_commands/trigger" readonly`))
		gt.True(t, strings.Contains(body, "Add to Mattermost"))
		gt.True(t, strings.Contains(body, `<button type="submit">Save</button>`))

		cfg, err := env.repo.GetIntegration(context.Background(), 42)
		gt.NoError(t, err).Required()
		gt.True(t, strings.Contains(body, `value="`+cfg.Token+`"`))
	})

	t.Run("token is stable across visits", func(t *testing.T) {
		env := newTestEnv(t, true, nil)
		_, first := env.get(t, servicePath+"/edit")
		_, second := env.get(t, servicePath+"/edit")

		cfg, err := env.repo.GetIntegration(context.Background(), 42)
		gt.NoError(t, err).Required()
		gt.True(t, strings.Contains(first, cfg.Token))
		gt.True(t, strings.Contains(second, cfg.Token))
	})

	t.Run("no add link when disabled", func(t *testing.T) {
		env := newTestEnv(t, false, nil)
		status, body := env.get(t, servicePath+"/edit")
		gt.Equal(t, http.StatusOK, status)
		gt.False(t, strings.Contains(body, "Add to Mattermost"))
	})

	t.Run("invalid project", func(t *testing.T) {
		env := newTestEnv(t, true, nil)
		status, _ := env.get(t, "/projects/abc/services/mattermost_slash_commands/edit")
		gt.Equal(t, http.StatusNotFound, status)
	})
}

func TestSaveToken(t *testing.T) {
	t.Run("saves and redirects", func(t *testing.T) {
		env := newTestEnv(t, true, nil)
		resp := env.post(t, servicePath, url.Values{"token": {"custom-token"}})
		readBody(t, resp)
		gt.Equal(t, http.StatusSeeOther, resp.StatusCode)
		gt.True(t, strings.HasPrefix(resp.Header.Get("Location"), servicePath+"/edit"))

		cfg, err := env.repo.GetIntegration(context.Background(), 42)
		gt.NoError(t, err).Required()
		gt.Equal(t, "custom-token", cfg.Token)
	})

	t.Run("blank token is rejected", func(t *testing.T) {
		env := newTestEnv(t, true, nil)
		resp := env.post(t, servicePath, url.Values{"token": {""}})
		body := readBody(t, resp)
		gt.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		gt.True(t, strings.Contains(body, "Token can&#39;t be blank"))
	})
}

func TestProvisioningNoTeams(t *testing.T) {
	env := newTestEnv(t, true, model.TeamSet{})
	status, body := env.get(t, servicePath+"/mattermost/new")
	gt.Equal(t, http.StatusOK, status)

	gt.True(t, strings.Contains(body, "You aren’t a member of any team on the Mattermost instance"))
	gt.True(t, strings.Contains(body, `<a href="https://chat.example.com/select_team">join a team</a>`))
	gt.False(t, strings.Contains(body, "<select"))
	gt.False(t, strings.Contains(body, "<form"))
}

func TestProvisioningSingleTeam(t *testing.T) {
	env := newTestEnv(t, true, teams(1))
	status, body := env.get(t, servicePath+"/mattermost/new")
	gt.Equal(t, http.StatusOK, status)

	gt.True(t, strings.Contains(body, "The team where the slash commands will be used in"))
	gt.True(t, strings.Contains(body, "This is the only available team."))
	gt.True(t, strings.Contains(body, `<select id="mattermost_team_id" name="team_id" disabled>`))
	gt.True(t, strings.Contains(body, `<option value="t1" selected>Engineering</option>`))
	gt.True(t, strings.Contains(body, `<input type="hidden" id="mattermost_team_id" name="team_id" value="t1">`))

	t.Run("confirm registers and activates", func(t *testing.T) {
		resp := env.post(t, servicePath+"/mattermost", url.Values{
			"attempt_id": {attemptIDFrom(t, body)},
			"team_id":    {"t1"},
			"trigger":    {"project-42"},
		})
		readBody(t, resp)
		gt.Equal(t, http.StatusSeeOther, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		gt.NoError(t, err).Required()
		gt.Equal(t, servicePath+"/edit", location.Path)
		gt.Equal(t, "The slash commands were added to Engineering", location.Query().Get("flash"))

		cfg, err := env.repo.GetIntegration(context.Background(), 42)
		gt.NoError(t, err).Required()
		gt.True(t, cfg.Active)
		gt.Equal(t, "platform-token", cfg.Token)
	})
}

func TestProvisioningMultipleTeams(t *testing.T) {
	env := newTestEnv(t, true, teams(3))
	status, body := env.get(t, servicePath+"/mattermost/new")
	gt.Equal(t, http.StatusOK, status)

	gt.True(t, strings.Contains(body, "Select the team where the slash commands will be used in"))
	gt.True(t, strings.Contains(body, "The list shows all available teams."))
	gt.True(t, strings.Contains(body, `<select id="mattermost_team_id" name="team_id" required>`))
	gt.False(t, strings.Contains(body, `type="hidden" id="mattermost_team_id"`))

	placeholder := strings.Index(body, `<option value="" selected disabled>Select team...</option>`)
	eng := strings.Index(body, `<option value="t1">Engineering</option>`)
	sec := strings.Index(body, `<option value="t2">Security</option>`)
	ops := strings.Index(body, `<option value="t3">Operations</option>`)
	gt.True(t, placeholder >= 0)
	gt.True(t, placeholder < eng && eng < sec && sec < ops)

	attemptID := attemptIDFrom(t, body)

	t.Run("placeholder submission is rejected", func(t *testing.T) {
		resp := env.post(t, servicePath+"/mattermost", url.Values{
			"attempt_id": {attemptID},
			"trigger":    {"project-42"},
		})
		page := readBody(t, resp)
		gt.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		gt.True(t, strings.Contains(page, "Select a team"))
		gt.True(t, strings.Contains(page, "Select team..."))
		gt.Equal(t, 0, len(env.client.RegisterCommandCalls()))
	})

	t.Run("selected team is registered", func(t *testing.T) {
		resp := env.post(t, servicePath+"/mattermost", url.Values{
			"attempt_id": {attemptID},
			"team_id":    {"t2"},
			"trigger":    {"deploy"},
		})
		readBody(t, resp)
		gt.Equal(t, http.StatusSeeOther, resp.StatusCode)

		calls := env.client.RegisterCommandCalls()
		gt.Equal(t, 1, len(calls))
		gt.Equal(t, types.TeamID("t2"), calls[0].TeamID)
		gt.Equal(t, "deploy", calls[0].Cmd.Trigger)
	})

	t.Run("used attempt redirects to settings", func(t *testing.T) {
		resp := env.post(t, servicePath+"/mattermost", url.Values{
			"attempt_id": {attemptID},
			"team_id":    {"t2"},
		})
		readBody(t, resp)
		gt.Equal(t, http.StatusSeeOther, resp.StatusCode)
		gt.True(t, strings.Contains(resp.Header.Get("Location"), "expired"))
	})
}

func TestProvisioningUpstreamErrors(t *testing.T) {
	t.Run("fetch failure shows the message verbatim", func(t *testing.T) {
		env := newTestEnv(t, true, nil)
		env.client.ListTeamsFunc = func(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
			return nil, model.NewUpstreamError("list_teams", "test mattermost error message", 500)
		}

		status, body := env.get(t, servicePath+"/mattermost/new")
		gt.Equal(t, http.StatusOK, status)
		gt.True(t, strings.Contains(body, `<div class="alert alert-danger upstream-error">test mattermost error message</div>`))
		gt.False(t, strings.Contains(body, "<select"))
	})

	t.Run("registration failure leaves the integration inactive", func(t *testing.T) {
		env := newTestEnv(t, true, teams(2))
		env.client.RegisterCommandFunc = func(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
			return nil, model.NewUpstreamError("register_command", "test mattermost error message", 400)
		}

		status, _ := env.get(t, servicePath+"/edit")
		gt.Equal(t, http.StatusOK, status)
		before, err := env.repo.GetIntegration(context.Background(), 42)
		gt.NoError(t, err).Required()

		_, body := env.get(t, servicePath+"/mattermost/new")
		resp := env.post(t, servicePath+"/mattermost", url.Values{
			"attempt_id": {attemptIDFrom(t, body)},
			"team_id":    {"t1"},
		})
		page := readBody(t, resp)
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		gt.True(t, strings.Contains(page, "test mattermost error message"))

		cfg, err := env.repo.GetIntegration(context.Background(), 42)
		gt.NoError(t, err).Required()
		gt.False(t, cfg.Active)
		gt.Equal(t, before.Token, cfg.Token)
		gt.Equal(t, types.CommandID(""), cfg.CommandID)
	})
}

func TestProvisioningDisabled(t *testing.T) {
	env := newTestEnv(t, false, teams(2))
	status, _ := env.get(t, servicePath+"/mattermost/new")
	gt.Equal(t, http.StatusNotFound, status)
	gt.Equal(t, 0, len(env.client.ListTeamsCalls()))
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, true, teams(1))

	status, body := env.get(t, servicePath+"/mattermost/new")
	gt.Equal(t, http.StatusOK, status)
	resp := env.post(t, servicePath+"/mattermost", url.Values{
		"attempt_id": {attemptIDFrom(t, body)},
		"team_id":    {"t1"},
	})
	readBody(t, resp)
	gt.Equal(t, http.StatusSeeOther, resp.StatusCode)

	status, metrics := env.get(t, "/metrics")
	gt.Equal(t, http.StatusOK, status)

	gt.True(t, strings.Contains(metrics, `slashcmd_provisioning_outcomes_total{outcome="single_team"} 1`))
	gt.True(t, strings.Contains(metrics, `slashcmd_provisioning_outcomes_total{outcome="registered"} 1`))
	gt.True(t, strings.Contains(metrics,
		`slashcmd_http_requests_total{method="GET",route="/projects/{projectID}/services/mattermost_slash_commands/mattermost/new",status="200"} 1`))
	gt.False(t, strings.Contains(metrics, `route="/projects/42`))
}

func TestTriggerRouteFollowsAPIBase(t *testing.T) {
	testCases := []struct {
		name    string
		apiBase string
	}{
		{name: "default layout", apiBase: "https://example.com/api/v3"},
		{name: "nested path", apiBase: "https://example.com/slashcmd/api/"},
		{name: "host only", apiBase: "https://example.com"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := ctxlog.With(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
			repo := repository.NewMemory()
			tokens := usecase.NewTokenStore(repo, tc.apiBase, "")
			gt.NoError(t, tokens.SetToken(ctx, 42, "secret-token")).Required()

			client := &mocks.ChatPlatformClientMock{}
			provisioning := usecase.NewProvisioning(repo, client, tokens, usecase.NewTeamResolver(chatHost+"/select_team"),
				usecase.ProvisioningConfig{})

			srv, err := controller.NewServer(ctx, controller.Config{Addr: ":0", APIBase: tc.apiBase}, controller.UseCases{
				Tokens:       tokens,
				Provisioning: provisioning,
			})
			gt.NoError(t, err).Required()
			ts := httptest.NewServer(srv.Handler)
			t.Cleanup(ts.Close)

			triggerURL, err := url.Parse(tokens.TriggerURL(42))
			gt.NoError(t, err).Required()

			resp, err := http.PostForm(ts.URL+triggerURL.Path, url.Values{
				"token":   {"secret-token"},
				"command": {"/project-42"},
			})
			gt.NoError(t, err).Required()
			readBody(t, resp)
			gt.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestNewServerRejectsRelativeAPIBase(t *testing.T) {
	repo := repository.NewMemory()
	tokens := usecase.NewTokenStore(repo, "/api/v3", "")
	provisioning := usecase.NewProvisioning(repo, &mocks.ChatPlatformClientMock{}, tokens,
		usecase.NewTeamResolver(chatHost+"/select_team"), usecase.ProvisioningConfig{})

	_, err := controller.NewServer(context.Background(), controller.Config{APIBase: "/api/v3"}, controller.UseCases{
		Tokens:       tokens,
		Provisioning: provisioning,
	})
	gt.Error(t, err)
}
