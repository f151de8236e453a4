package mattermost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	mm "github.com/mattermost/mattermost/server/public/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

const (
	opListTeams       = "list_teams"
	opRegisterCommand = "register_command"

	defaultTimeout = 10 * time.Second

	// maxMessageLength caps upstream text shown to the user
	maxMessageLength = 500

	decodeJSONErrorID   = "model.utils.decode_json.app_error"
	undecodedBodyMarker = "decode JSON payload into AppError. Body: "
)

// Client talks to the Mattermost API v4
type Client struct {
	host       string
	httpClient *http.Client
}

var _ interfaces.ChatPlatformClient = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout of every API call
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// New creates a client for the Mattermost instance at host
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the Mattermost base URL
func (c *Client) Host() string {
	return c.host
}

// SelectTeamURL returns the page where users join a team
func SelectTeamURL(host string) string {
	return strings.TrimRight(host, "/") + "/select_team"
}

func (c *Client) api(creds model.Credentials) *mm.Client4 {
	api := mm.NewAPIv4Client(c.host)
	api.HTTPClient = c.httpClient
	api.SetToken(creds.AccessToken)
	return api
}

// ListTeams lists the teams the credentials' user is a member of
func (c *Client) ListTeams(ctx context.Context, creds model.Credentials) (model.TeamSet, error) {
	logger := ctxlog.From(ctx)

	resp, err := c.api(creds).DoAPIGet(ctx, "/users/me/teams", "")
	if err != nil {
		return nil, upstreamError(opListTeams, resp, err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, model.NewUpstreamError(opListTeams, "Failed to read the response from Mattermost", resp.StatusCode).WithCause(err)
	}

	var teams []*mm.Team
	if err := json.Unmarshal(body, &teams); err != nil {
		return nil, payloadError(opListTeams, resp.StatusCode, body, err)
	}

	result := make([]*model.Team, 0, len(teams))
	for _, team := range teams {
		if team == nil || team.Id == "" {
			continue
		}
		result = append(result, &model.Team{
			ID:          types.TeamID(team.Id),
			DisplayName: team.DisplayName,
			Name:        team.Name,
		})
	}

	logger.Debug("Listed Mattermost teams",
		"host", c.host,
		"count", len(result),
	)

	return model.NewTeamSet(result...), nil
}

// RegisterCommand registers a slash command in the team
func (c *Client) RegisterCommand(ctx context.Context, teamID types.TeamID, cmd *model.SlashCommand, creds model.Credentials) (*model.RegisteredCommand, error) {
	if teamID == "" {
		return nil, goerr.New("team ID is required")
	}
	if cmd == nil {
		return nil, goerr.New("command is nil")
	}

	payload, err := json.Marshal(&mm.Command{
		TeamId:           teamID.String(),
		Trigger:          cmd.Trigger,
		Method:           mm.CommandMethodPost,
		Username:         cmd.Username,
		IconURL:          cmd.IconURL,
		AutoComplete:     cmd.AutoComplete,
		AutoCompleteDesc: cmd.AutoCompleteDesc,
		AutoCompleteHint: cmd.AutoCompleteHint,
		DisplayName:      cmd.DisplayName,
		Description:      cmd.Description,
		URL:              cmd.URL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode command")
	}

	resp, err := c.api(creds).DoAPIPost(ctx, "/commands", string(payload))
	if err != nil {
		return nil, upstreamError(opRegisterCommand, resp, err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, model.NewUpstreamError(opRegisterCommand, "Failed to read the response from Mattermost", resp.StatusCode).WithCause(err)
	}

	var created mm.Command
	if err := json.Unmarshal(body, &created); err != nil || created.Id == "" {
		return nil, payloadError(opRegisterCommand, resp.StatusCode, body, err)
	}

	ctxlog.From(ctx).Info("Registered Mattermost slash command",
		"host", c.host,
		"teamID", teamID,
		"commandID", created.Id,
		"trigger", created.Trigger,
	)

	return &model.RegisteredCommand{
		ID:      types.CommandID(created.Id),
		TeamID:  types.TeamID(created.TeamId),
		Trigger: created.Trigger,
		Token:   created.Token,
	}, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// upstreamError converts a failed call into an UpstreamError. Error payloads
// sent by Mattermost keep their message, and so does a plain text body.
func upstreamError(op string, resp *http.Response, err error) *model.UpstreamError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	var appErr *mm.AppError
	if errors.As(err, &appErr) {
		if status == 0 {
			status = appErr.StatusCode
		}
		if msg := appErrorMessage(appErr); msg != "" {
			return model.NewUpstreamError(op, msg, status).WithCause(err)
		}
		if appErr.Id == decodeJSONErrorID {
			if msg := plainText(strings.TrimPrefix(appErr.DetailedError, "body: ")); msg != "" {
				return model.NewUpstreamError(op, msg, status).WithCause(err)
			}
		}
	}

	if status != 0 {
		if msg := plainText(undecodedBody(err)); msg != "" {
			return model.NewUpstreamError(op, msg, status).WithCause(err)
		}
	}

	return model.NewUpstreamError(op, genericMessage(status), status).WithCause(err)
}

// payloadError handles 2xx responses that could not be decoded, including
// ones that carry an error object or a bare error string instead of the data
func payloadError(op string, status int, body []byte, err error) *model.UpstreamError {
	var appErr mm.AppError
	if json.Unmarshal(body, &appErr) == nil {
		if msg := appErrorMessage(&appErr); msg != "" {
			return model.NewUpstreamError(op, msg, status).WithCause(err)
		}
	}

	if err == nil {
		err = goerr.New("unexpected response payload", goerr.V("body", string(body)))
	}

	var text string
	if json.Unmarshal(body, &text) == nil {
		if msg := plainText(text); msg != "" {
			return model.NewUpstreamError(op, msg, status).WithCause(err)
		}
	}
	if msg := plainText(string(body)); msg != "" {
		return model.NewUpstreamError(op, msg, status).WithCause(err)
	}

	return model.NewUpstreamError(op, "Mattermost returned an unexpected response", status).WithCause(err)
}

// undecodedBody recovers the body of an error response that Client4 could
// not decode as an AppError. Client4 reports it as
// "failed to decode JSON payload into AppError. Body: <body>: <decode error>".
func undecodedBody(err error) string {
	msg := err.Error()
	idx := strings.Index(msg, undecodedBodyMarker)
	if idx < 0 {
		return ""
	}
	body := msg[idx+len(undecodedBodyMarker):]

	cause := err
	for next := errors.Unwrap(cause); next != nil; next = errors.Unwrap(cause) {
		cause = next
	}
	if cause != err {
		body = strings.TrimSuffix(body, ": "+cause.Error())
	}
	return body
}

// plainText returns body as a message when it is readable text. Markup and
// JSON documents are not shown.
func plainText(body string) string {
	text := strings.TrimSpace(body)
	if text == "" || strings.ContainsAny(text[:1], "<{[") {
		return ""
	}
	if runes := []rune(text); len(runes) > maxMessageLength {
		text = string(runes[:maxMessageLength]) + "..."
	}
	return text
}

// appErrorMessage returns the human readable message of an AppError. An
// untranslated error carries its i18n ID as message, which is not shown.
func appErrorMessage(appErr *mm.AppError) string {
	if appErr == nil || appErr.Message == "" || appErr.Message == appErr.Id {
		return ""
	}
	return appErr.Message
}

func genericMessage(status int) string {
	if status == 0 {
		return "Failed to connect to the Mattermost instance"
	}
	return fmt.Sprintf("Mattermost responded with status %d", status)
}
