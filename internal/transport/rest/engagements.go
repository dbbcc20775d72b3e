package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/service/engagement"
)

// engagementService is the operation surface the engagement handler needs.
type engagementService interface {
	Create(ctx context.Context, e *domain.Engagement) (*domain.Engagement, error)
	Update(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error)
	Delete(ctx context.Context, uuid string) error
	Launch(ctx context.Context, uuid string) (*domain.Engagement, error)
	Get(ctx context.Context, uuid string) (*domain.Engagement, error)
	GetByProjectID(ctx context.Context, projectID int) (*domain.Engagement, error)
	GetByCustomerAndName(ctx context.Context, customerName, name string) (*domain.Engagement, error)
	List(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, int, error)
	StateCounts(ctx context.Context, regions []string) (domain.StateCounts, error)
	SuggestCustomers(ctx context.Context, partial string) ([]string, error)
	ListNotMirrored(ctx context.Context) ([]*domain.Engagement, error)
	Resend(ctx context.Context, uuid string) (engagement.ResendAction, error)
	Refresh(ctx context.Context, uuids []string) (int, error)
	SweepStates(ctx context.Context) error
	SetParticipantCount(ctx context.Context, uuid string, count int) error
	SetArtifactCount(ctx context.Context, uuid string, count int) error
	TouchLastUpdate(ctx context.Context, uuid string) error
	ListUseCases(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error)
	GetUseCase(ctx context.Context, uuid string) (*domain.UseCase, error)
}

// EngagementHandler serves the engagement resource.
type EngagementHandler struct {
	svc engagementService
}

func NewEngagementHandler(svc engagementService) *EngagementHandler {
	return &EngagementHandler{svc: svc}
}

// Register wires the engagement and use-case routes onto the mux.
func (h *EngagementHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/engagements", h.List)
	mux.HandleFunc("POST /api/v2/engagements", h.Create)
	mux.HandleFunc("PUT /api/v2/engagements", h.Update)
	mux.HandleFunc("GET /api/v2/engagements/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v2/engagements/count", h.StateCounts)
	mux.HandleFunc("GET /api/v2/engagements/gitlab", h.NotMirrored)
	mux.HandleFunc("PUT /api/v2/engagements/retry", h.Retry)
	mux.HandleFunc("PUT /api/v2/engagements/refresh", h.Refresh)
	mux.HandleFunc("PUT /api/v2/engagements/refresh/state", h.RefreshStates)
	mux.HandleFunc("GET /api/v2/engagements/project/{id}", h.GetByProject)
	mux.HandleFunc("GET /api/v2/engagements/customer/{customer}/engagement/{engagement}", h.GetByCustomerAndName)
	// HEAD rides on the GET pattern (a separate HEAD registration would
	// conflict with the literal GET routes above); Get branches on method.
	mux.HandleFunc("GET /api/v2/engagements/{uuid}", h.Get)
	mux.HandleFunc("DELETE /api/v2/engagements/{uuid}", h.Delete)
	mux.HandleFunc("PUT /api/v2/engagements/{uuid}/launch", h.Launch)
	mux.HandleFunc("PUT /api/v2/engagements/{uuid}/lastUpdate", h.TouchLastUpdate)
	mux.HandleFunc("PUT /api/v2/engagements/{uuid}/participants/{count}", h.SetParticipants)
	mux.HandleFunc("PUT /api/v2/engagements/{uuid}/artifacts/{count}", h.SetArtifacts)

	mux.HandleFunc("GET /api/usecases", h.ListUseCases)
	mux.HandleFunc("GET /api/usecases/{uuid}", h.GetUseCase)
}

func (h *EngagementHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*domain.Engagement{}
	}

	w.Header().Set(totalEngagementsHeader, strconv.Itoa(total))
	w.Header().Set(exposeHeadersHeader, totalEngagementsHeader)
	writeJSON(w, http.StatusOK, list)
}

func (h *EngagementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var e domain.Engagement
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json body"})
		return
	}

	r = authorCtx(r)
	created, err := h.svc.Create(r.Context(), &e)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+created.UUID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *EngagementHandler) Update(w http.ResponseWriter, r *http.Request) {
	var e domain.Engagement
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json body"})
		return
	}

	r = authorCtx(r)
	updated, changed, err := h.svc.Update(r.Context(), &e, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !changed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *EngagementHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// HEAD exposes only the last-update stamp, for cheap change polling.
	if r.Method == http.MethodHead {
		if e.LastUpdate != nil {
			w.Header().Set(lastUpdateHeader, e.LastUpdate.UTC().Format("2006-01-02T15:04:05.999999999Z"))
		}
		w.Header().Set(exposeHeadersHeader, lastUpdateHeader)
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EngagementHandler) GetByProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "project id must be an integer"})
		return
	}

	e, err := h.svc.GetByProjectID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EngagementHandler) GetByCustomerAndName(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetByCustomerAndName(r.Context(), r.PathValue("customer"), r.PathValue("engagement"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EngagementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("uuid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EngagementHandler) Launch(w http.ResponseWriter, r *http.Request) {
	r = authorCtx(r)
	e, err := h.svc.Launch(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EngagementHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("partial")
	if partial == "" {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	suggestions, err := h.svc.SuggestCustomers(r.Context(), partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (h *EngagementHandler) StateCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.StateCounts(r.Context(), csvParam(r, "region"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// NotMirrored lists uuids present locally but absent from the mirror.
func (h *EngagementHandler) NotMirrored(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListNotMirrored(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	uuids := make([]string, 0, len(list))
	for _, e := range list {
		uuids = append(uuids, e.UUID)
	}
	writeJSON(w, http.StatusOK, uuids)
}

// Retry replays the mirror synchronization for one engagement.
func (h *EngagementHandler) Retry(w http.ResponseWriter, r *http.Request) {
	uuid := r.URL.Query().Get("uuid")
	if uuid == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "uuid query parameter is required"})
		return
	}

	action, err := h.svc.Resend(r.Context(), uuid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uuid": uuid, "action": string(action)})
}

// Refresh reloads engagements from the mirror store, all of them or only
// the uuids given.
func (h *EngagementHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Refresh(r.Context(), csvParam(r, "uuids"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(totalEngagementsHeader, strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
}

// RefreshStates runs the lifecycle sweep on demand.
func (h *EngagementHandler) RefreshStates(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SweepStates(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *EngagementHandler) TouchLastUpdate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TouchLastUpdate(r.Context(), r.PathValue("uuid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *EngagementHandler) SetParticipants(w http.ResponseWriter, r *http.Request) {
	h.setCount(w, r, h.svc.SetParticipantCount)
}

func (h *EngagementHandler) SetArtifacts(w http.ResponseWriter, r *http.Request) {
	h.setCount(w, r, h.svc.SetArtifactCount)
}

func (h *EngagementHandler) setCount(w http.ResponseWriter, r *http.Request, set func(context.Context, string, int) error) {
	count, err := strconv.Atoi(r.PathValue("count"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "count must be an integer"})
		return
	}
	if err := set(r.Context(), r.PathValue("uuid"), count); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *EngagementHandler) ListUseCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.svc.ListUseCases(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cases == nil {
		cases = []domain.UseCase{}
	}
	w.Header().Set(totalUseCasesHeader, strconv.Itoa(len(cases)))
	writeJSON(w, http.StatusOK, cases)
}

func (h *EngagementHandler) GetUseCase(w http.ResponseWriter, r *http.Request) {
	uc, err := h.svc.GetUseCase(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uc)
}

// pageFromQuery parses the shared paging parameters.
func pageFromQuery(r *http.Request) domain.PageFilter {
	q := r.URL.Query()
	page := domain.DefaultPageFilter()
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v >= 0 {
		page.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil && v > 0 {
		page.PageSize = v
	}
	if sort := q.Get("sort"); sort != "" {
		page.Sort = sort
	}
	return page
}

// filterFromQuery parses the engagement search parameters. Unknown state
// names are rejected rather than silently matching nothing.
func filterFromQuery(r *http.Request) (domain.EngagementFilter, error) {
	q := r.URL.Query()
	f := domain.EngagementFilter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Types:    csvParam(r, "types"),
		Regions:  csvParam(r, "region"),
		Page:     pageFromQuery(r),
	}

	for _, raw := range csvParam(r, "inStates") {
		st, ok := domain.ParseState(raw)
		if !ok {
			return f, domain.NewValidationError("inStates", "unknown state "+raw)
		}
		f.States = append(f.States, st)
	}
	return f, nil
}
