package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/frontend"
	"github.com/secmon-lab/slashcmd/pkg/controller/trigger"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/secmon-lab/slashcmd/pkg/usecase"
)

// defaultAPIBasePath mounts the trigger route when Config.APIBase is empty
const defaultAPIBasePath = "/api/v3"

// Config holds the HTTP server settings
type Config struct {
	Addr            string
	IntegrationName types.IntegrationName

	// APIBase is the externally visible API root the trigger URL is built
	// on. The trigger route is mounted under its path.
	APIBase string
}

// UseCases bundles the use cases served over HTTP
type UseCases struct {
	Tokens       usecase.TokenUseCase
	Provisioning usecase.ProvisioningUseCase
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

// NewServer creates a new HTTP server
func NewServer(ctx context.Context, cfg Config, uc UseCases) (*Server, error) {
	if cfg.IntegrationName == "" {
		cfg.IntegrationName = types.DefaultIntegrationName
	}
	apiPath, err := apiBasePath(cfg.APIBase)
	if err != nil {
		return nil, err
	}

	templates, err := frontend.Templates()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse page templates")
	}

	metrics := NewMetrics()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(metrics.Middleware)
	router.Use(middleware.Recoverer)

	servicePath := "/projects/{projectID}/services/" + cfg.IntegrationName.String()
	mattermostHandler := NewMattermostHandler(uc.Tokens, uc.Provisioning, templates, cfg.IntegrationName, metrics)
	triggerHandler := trigger.NewHandler(uc.Tokens)

	router.Get("/health", handleHealth)
	router.Handle("/metrics", metrics.Handler())

	router.Route(servicePath, func(r chi.Router) {
		r.Get("/edit", mattermostHandler.HandleEdit)
		r.Post("/", mattermostHandler.HandleSave)
		r.Get("/mattermost/new", mattermostHandler.HandleNew)
		r.Post("/mattermost", mattermostHandler.HandleConfirm)
	})

	router.Post(apiPath+servicePath+"/trigger", triggerHandler.HandleTrigger)

	return &Server{
		Server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}, nil
}

// apiBasePath returns the path of an absolute API base URL without the
// trailing slash, e.g. "/api/v3" for http://localhost:8080/api/v3
func apiBasePath(apiBase string) (string, error) {
	if apiBase == "" {
		return defaultAPIBasePath, nil
	}

	u, err := url.Parse(apiBase)
	if err != nil {
		return "", goerr.Wrap(err, "invalid api base", goerr.V("api_base", apiBase))
	}
	if u.Scheme == "" || u.Host == "" {
		return "", goerr.New("api base must be an absolute URL", goerr.V("api_base", apiBase))
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", goerr.New("api base must not have a query or fragment", goerr.V("api_base", apiBase))
	}
	return strings.TrimRight(u.Path, "/"), nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "slashcmd",
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}
