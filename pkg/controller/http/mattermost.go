package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/secmon-lab/slashcmd/pkg/usecase"
)

// Form fields of the settings and provisioning pages
const (
	fieldToken     = "token"
	fieldAttemptID = "attempt_id"
	fieldTrigger   = "trigger"
)

// Flash messages
const (
	flashSaved   = "Settings saved"
	flashExpired = "The team selection has expired. Please start again."
)

// MattermostHandler serves the settings page and the provisioning flow
type MattermostHandler struct {
	tokens       usecase.TokenUseCase
	provisioning usecase.ProvisioningUseCase
	templates    *template.Template
	name         types.IntegrationName
	metrics      *Metrics
}

// NewMattermostHandler creates a new MattermostHandler
func NewMattermostHandler(
	tokens usecase.TokenUseCase,
	provisioning usecase.ProvisioningUseCase,
	templates *template.Template,
	name types.IntegrationName,
	metrics *Metrics,
) *MattermostHandler {
	return &MattermostHandler{
		tokens:       tokens,
		provisioning: provisioning,
		templates:    templates,
		name:         name,
		metrics:      metrics,
	}
}

type page struct {
	Title string
	Flash string
}

type editPage struct {
	page
	Integration *model.IntegrationConfig
	Token       string
	TriggerURL  string
	Enabled     bool
	SaveURL     string
	NewURL      string
	Error       string
}

type provisioningPage struct {
	page
	AttemptID  types.AttemptID
	Resolution *model.Resolution
	Failure    string
	Error      string
	Trigger    string
	ConfirmURL string
	EditURL    string
}

type resultPage struct {
	page
	Failure string
	NewURL  string
	EditURL string
}

// HandleEdit shows the settings page, issuing a token on first visit
func (h *MattermostHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}

	token, err := h.tokens.GetOrCreateToken(r.Context(), projectID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data, err := h.editPage(r, projectID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data.Token = token

	h.render(w, r, http.StatusOK, "edit.html", data)
}

// HandleSave stores the token submitted from the settings page
func (h *MattermostHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	token := r.PostForm.Get(fieldToken)
	if err := h.tokens.SetToken(r.Context(), projectID, token); err != nil {
		v, ok := model.AsValidationError(err)
		if !ok {
			h.renderError(w, r, err)
			return
		}

		data, err := h.editPage(r, projectID)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		data.Token = token
		data.Error = v.Message
		h.render(w, r, http.StatusUnprocessableEntity, "edit.html", data)
		return
	}

	redirectWithFlash(w, r, h.editURL(projectID), flashSaved)
}

// HandleNew opens the provisioning flow by fetching the user's teams
func (h *MattermostHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}

	attempt, err := h.provisioning.Open(r.Context(), projectID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if attempt.Failure != "" {
		h.metrics.ObserveProvisioning(outcomeFetchFailed)
	} else if attempt.Resolution != nil {
		h.metrics.ObserveProvisioning(string(attempt.Resolution.State.Kind))
	}

	data := h.provisioningPage(r, projectID, attempt)
	data.Trigger = types.DefaultTrigger(projectID)
	h.render(w, r, http.StatusOK, "provisioning.html", data)
}

// HandleConfirm registers the command in the submitted team
func (h *MattermostHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := &usecase.ConfirmRequest{
		ProjectID: projectID,
		AttemptID: types.AttemptID(r.PostForm.Get(fieldAttemptID)),
		TeamID:    types.TeamID(r.PostForm.Get(usecase.TeamFieldName)),
		Trigger:   strings.TrimSpace(r.PostForm.Get(fieldTrigger)),
	}

	result, err := h.provisioning.Confirm(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrAttemptNotFound), errors.Is(err, model.ErrAttemptExpired):
		h.metrics.ObserveProvisioning(outcomeExpired)
		redirectWithFlash(w, r, h.editURL(projectID), flashExpired)
		return
	default:
		v, ok := model.AsValidationError(err)
		if !ok {
			h.renderError(w, r, err)
			return
		}
		h.metrics.ObserveProvisioning(outcomeInvalidSelection)

		attempt, err := h.provisioning.Attempt(r.Context(), projectID, req.AttemptID)
		if err != nil {
			redirectWithFlash(w, r, h.editURL(projectID), flashExpired)
			return
		}
		data := h.provisioningPage(r, projectID, attempt)
		data.Error = v.Message
		data.Trigger = req.Trigger
		h.render(w, r, http.StatusUnprocessableEntity, "provisioning.html", data)
		return
	}

	if !result.Registered {
		h.metrics.ObserveProvisioning(outcomeRegisterFailed)
		h.render(w, r, http.StatusOK, "result.html", &resultPage{
			page:    page{Title: "Add to Mattermost"},
			Failure: result.Message,
			NewURL:  h.newURL(projectID),
			EditURL: h.editURL(projectID),
		})
		return
	}

	h.metrics.ObserveProvisioning(outcomeRegistered)
	redirectWithFlash(w, r, h.editURL(projectID),
		fmt.Sprintf("The slash commands were added to %s", result.Team.Label()))
}

func (h *MattermostHandler) projectID(w http.ResponseWriter, r *http.Request) (types.ProjectID, bool) {
	projectID, err := types.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return projectID, true
}

func (h *MattermostHandler) editPage(r *http.Request, projectID types.ProjectID) (*editPage, error) {
	cfg, err := h.tokens.GetIntegration(r.Context(), projectID)
	if err != nil {
		return nil, err
	}
	return &editPage{
		page:        page{Title: "Mattermost slash commands", Flash: flashFromRequest(r)},
		Integration: cfg,
		TriggerURL:  h.tokens.TriggerURL(projectID),
		Enabled:     h.provisioning.Enabled(),
		SaveURL:     h.serviceURL(projectID),
		NewURL:      h.newURL(projectID),
	}, nil
}

func (h *MattermostHandler) provisioningPage(r *http.Request, projectID types.ProjectID, attempt *model.ProvisioningAttempt) *provisioningPage {
	return &provisioningPage{
		page:       page{Title: "Add to Mattermost", Flash: flashFromRequest(r)},
		AttemptID:  attempt.ID,
		Resolution: attempt.Resolution,
		Failure:    attempt.Failure,
		ConfirmURL: h.serviceURL(projectID) + "/mattermost",
		EditURL:    h.editURL(projectID),
	}
}

func (h *MattermostHandler) serviceURL(projectID types.ProjectID) string {
	return fmt.Sprintf("/projects/%d/services/%s", projectID, h.name)
}

func (h *MattermostHandler) editURL(projectID types.ProjectID) string {
	return h.serviceURL(projectID) + "/edit"
}

func (h *MattermostHandler) newURL(projectID types.ProjectID) string {
	return h.serviceURL(projectID) + "/mattermost/new"
}
