package rest

import "net/http"

// NewRouter assembles the service mux from the resource handlers.
func NewRouter(
	health *HealthHandler,
	engagements *EngagementHandler,
	categories *CategoryHandler,
	hooks *HookConfigHandler,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)

	// Hook routes first: their literal segment takes precedence over the
	// engagement uuid wildcard.
	hooks.Register(mux)
	engagements.Register(mux)
	categories.Register(mux)

	return mux
}
