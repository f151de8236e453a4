package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/secmon-lab/slashcmd/pkg/usecase"
	"github.com/slack-go/slack"
)

const responseTypeEphemeral = "ephemeral"

// Handler receives slash command invocations. Mattermost posts the same
// form as Slack, so the payload is parsed with the Slack client library.
type Handler struct {
	tokens usecase.TokenUseCase
}

// NewHandler creates a new slash command handler
func NewHandler(tokens usecase.TokenUseCase) *Handler {
	return &Handler{tokens: tokens}
}

// HandleTrigger verifies the token of an invocation and acknowledges it
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID, err := types.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		h.writeError(w, ctx, err, http.StatusNotFound)
		return
	}

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		ctxlog.From(ctx).Warn("Failed to parse slash command", "error", err)
		h.writeError(w, ctx, goerr.Wrap(err, "failed to parse slash command"), http.StatusBadRequest)
		return
	}

	if err := h.tokens.VerifyToken(ctx, projectID, cmd.Token); err != nil {
		ctxlog.From(ctx).Warn("Rejected slash command",
			"projectID", projectID,
			"command", cmd.Command,
			"teamID", cmd.TeamID,
			"error", err,
		)
		h.writeError(w, ctx, goerr.New("invalid token"), http.StatusUnauthorized)
		return
	}

	ctxlog.From(ctx).Info("Slash command received",
		"projectID", projectID,
		"command", cmd.Command,
		"userName", cmd.UserName,
		"channelName", cmd.ChannelName,
	)

	h.writeMessage(w, ctx, &slack.Msg{
		ResponseType: responseTypeEphemeral,
		Text:         fmt.Sprintf("%s is connected to project %d.", commandLabel(cmd), projectID),
	})
}

func commandLabel(cmd slack.SlashCommand) string {
	if cmd.Command == "" {
		return "This command"
	}
	return "`" + cmd.Command + "`"
}

func (h *Handler) writeMessage(w http.ResponseWriter, ctx context.Context, msg *slack.Msg) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		ctxlog.From(ctx).Error("Failed to encode slash command response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		ctxlog.From(ctx).Error("Failed to encode error response", "error", err)
	}
}
