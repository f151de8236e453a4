package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
)

// Handle logs an error. Input errors are only worth a debug line.
func Handle(ctx context.Context, err error) {
	logger := ctxlog.From(ctx)
	if _, ok := model.AsValidationError(err); ok {
		logger.Debug("validation error", "error", err)
		return
	}
	logger.Error("application error", "error", err)
}

// HTTPStatus maps an error to the response status reported to the caller
func HTTPStatus(err error) int {
	if _, ok := model.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity
	}
	if _, ok := model.AsUpstreamError(err); ok {
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, model.ErrIntegrationDisabled),
		errors.Is(err, model.ErrIntegrationNotFound),
		errors.Is(err, model.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAttemptExpired):
		return http.StatusGone
	case errors.Is(err, model.ErrTokenMismatch):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
