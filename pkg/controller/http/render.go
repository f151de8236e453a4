package http

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/slashcmd/pkg/utils/apperr"
)

func (h *MattermostHandler) render(w http.ResponseWriter, r *http.Request, status int, tpl string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, tpl, data); err != nil {
		ctxlog.From(r.Context()).Error("Template render failed", "template", tpl, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write page", "template", tpl, "error", err)
	}
}

// renderError answers with the status mapped from err. Server side errors are logged.
func (h *MattermostHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		apperr.Handle(r.Context(), err)
	} else {
		ctxlog.From(r.Context()).Warn("Request failed", "status", status, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

func flashFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("flash"))
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	if strings.TrimSpace(message) == "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := u.Query()
	q.Set("flash", message)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}
