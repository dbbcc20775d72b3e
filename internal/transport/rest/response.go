package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/pkg/ctxutil"
)

// Response headers exposed to browser callers.
const (
	totalEngagementsHeader = "X-Total-Engagements"
	totalCategoriesHeader  = "X-Total-Categories"
	totalUseCasesHeader    = "X-Total-Use-Cases"
	totalWebhooksHeader    = "X-Total-Webhooks"
	lastUpdateHeader       = "Last-Update"
	exposeHeadersHeader    = "Access-Control-Expose-Headers"
)

// ErrorResponse is the JSON body for all error replies.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []FieldErrorPayload `json:"fields,omitempty"`
}

// FieldErrorPayload is one field-level validation failure.
type FieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeError maps domain errors onto HTTP status codes: validation to 400,
// not-found to 404, conflict to 409, everything else to 500 with the detail
// kept out of the response body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		fields := make([]FieldErrorPayload, 0, len(vErr.Errors))
		for _, fe := range vErr.Errors {
			fields = append(fields, FieldErrorPayload{Field: fe.Field, Message: fe.Message})
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: vErr.Error(), Fields: fields})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// authorCtx lifts the updater identity from query parameters into the
// context. The gateway forwards the caller identity this way on writes.
func authorCtx(r *http.Request) *http.Request {
	q := r.URL.Query()
	name := q.Get("authorName")
	if name == "" {
		name = q.Get("author")
	}
	email := q.Get("authorEmail")
	if name == "" && email == "" {
		return r
	}
	return r.WithContext(ctxutil.WithAuthor(r.Context(), ctxutil.Author{Name: name, Email: email}))
}

// csvParam collects a multi-value query parameter, splitting comma-separated
// entries and dropping blanks.
func csvParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
