package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/guildworks/engagements/internal/domain"
)

// categoryService is the operation surface the category handler needs.
type categoryService interface {
	Update(ctx context.Context, engagementUUID string, names []string) (*domain.Engagement, error)
	ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error)
	Rollup(ctx context.Context, search string, regions []string, page domain.PageFilter) ([]domain.CategoryCount, error)
	Suggest(ctx context.Context, partial string) ([]string, error)
}

// CategoryHandler serves the category resource.
type CategoryHandler struct {
	svc categoryService
}

func NewCategoryHandler(svc categoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/categories", h.List)
	mux.HandleFunc("GET /api/v2/categories/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v2/categories/rollup", h.Rollup)
	mux.HandleFunc("POST /api/v2/categories/{engagementUuid}", h.Update)
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	engagementUUID := r.URL.Query().Get("engagementUuid")
	if engagementUUID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "engagementUuid query parameter is required"})
		return
	}

	rows, err := h.svc.ListByEngagement(r.Context(), engagementUUID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.Category{}
	}
	w.Header().Set(totalCategoriesHeader, strconv.Itoa(len(rows)))
	writeJSON(w, http.StatusOK, rows)
}

func (h *CategoryHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.Suggest(r.Context(), r.URL.Query().Get("partial"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (h *CategoryHandler) Rollup(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Rollup(r.Context(), r.URL.Query().Get("q"), csvParam(r, "region"), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if counts == nil {
		counts = []domain.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// Update replaces an engagement's category set. The body is a plain JSON
// array of names; authorship arrives as query parameters.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var names []string
	if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json body"})
		return
	}

	r = authorCtx(r)
	e, err := h.svc.Update(r.Context(), r.PathValue("engagementUuid"), names)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e.Categories)
}
