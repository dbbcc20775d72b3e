package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/guildworks/engagements/internal/domain"
)

// hookConfigService is the operation surface the webhook-config handler
// needs.
type hookConfigService interface {
	Get(ctx context.Context) ([]domain.HookConfig, error)
	Refresh(ctx context.Context) (bool, error)
}

// HookConfigHandler serves the cached webhook configuration.
type HookConfigHandler struct {
	svc hookConfigService
}

func NewHookConfigHandler(svc hookConfigService) *HookConfigHandler {
	return &HookConfigHandler{svc: svc}
}

func (h *HookConfigHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/engagements/gitlab-webhooks", h.Get)
	mux.HandleFunc("PUT /api/v2/engagements/gitlab-webhooks", h.Refresh)
}

func (h *HookConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.svc.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hooks == nil {
		hooks = []domain.HookConfig{}
	}
	w.Header().Set(totalWebhooksHeader, strconv.Itoa(len(hooks)))
	writeJSON(w, http.StatusOK, hooks)
}

// Refresh is the change notification from the configuration collaborator:
// the service re-pulls the definitions and, when they differ from the cache,
// schedules the per-project reinstall.
func (h *HookConfigHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	changed, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !changed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
