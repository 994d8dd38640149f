package http

import (
	"net/http"
)

type RouterConfig struct {
	Availability *AvailabilityHandler
	Catalog      *CatalogHandler
	Window       *WindowHandler
	Ministers    *MinisterHandler
	Reports      *ReportHandler
	Middleware   []func(http.Handler) http.Handler
}

// NewRouter registers every configured handler. Nil handlers leave their
// routes unregistered.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if h := cfg.Availability; h != nil {
		mux.HandleFunc("GET /window", h.Window)
		mux.HandleFunc("GET /occupancy", h.Occupancy)
		mux.HandleFunc("POST /drafts", h.OpenDraft)
		mux.HandleFunc("GET /drafts/{id}", h.GetDraft)
		mux.HandleFunc("DELETE /drafts/{id}", h.CloseDraft)
		mux.HandleFunc("POST /drafts/{id}/toggle", h.Toggle)
		mux.HandleFunc("POST /drafts/{id}/toggle-extra", h.ToggleExtra)
		mux.HandleFunc("POST /drafts/{id}/recurrence", h.ApplyRecurrence)
		mux.HandleFunc("POST /drafts/{id}/discard", h.Discard)
		mux.HandleFunc("POST /drafts/{id}/commit", h.Commit)
	}

	if h := cfg.Catalog; h != nil {
		mux.HandleFunc("GET /slots", h.ListSlots)
		mux.HandleFunc("POST /slots", h.CreateSlot)
		mux.HandleFunc("PUT /slots/{id}", h.UpdateSlot)
		mux.HandleFunc("DELETE /slots/{id}", h.DeactivateSlot)
		mux.HandleFunc("GET /extras", h.ListExtras)
		mux.HandleFunc("POST /extras", h.CreateExtra)
		mux.HandleFunc("PUT /extras/{id}", h.UpdateExtra)
		mux.HandleFunc("DELETE /extras/{id}", h.DeactivateExtra)
		mux.HandleFunc("GET /blocks", h.ListBlocks)
		mux.HandleFunc("POST /blocks", h.CreateBlock)
		mux.HandleFunc("PUT /blocks/{id}", h.UpdateBlock)
		mux.HandleFunc("DELETE /blocks/{id}", h.DeleteBlock)
	}

	if h := cfg.Window; h != nil {
		mux.HandleFunc("GET /window/config", h.GetConfig)
		mux.HandleFunc("PUT /window/config", h.UpdateConfig)
		mux.HandleFunc("GET /window/overrides", h.ListOverrides)
		mux.HandleFunc("POST /window/overrides", h.CreateOverride)
		mux.HandleFunc("POST /window/overrides/current-month", h.OpenCurrentMonth)
		mux.HandleFunc("POST /window/overrides/next-month", h.OpenNextMonth)
		mux.HandleFunc("DELETE /window/overrides/{id}", h.RevokeOverride)
	}

	if h := cfg.Ministers; h != nil {
		mux.HandleFunc("GET /ministers", h.List)
		mux.HandleFunc("POST /ministers", h.Create)
		mux.HandleFunc("GET /ministers/{id}", h.Get)
		mux.HandleFunc("DELETE /ministers/{id}", h.Delete)
	}

	if h := cfg.Reports; h != nil {
		mux.HandleFunc("GET /reports/coverage", h.Coverage)
		mux.HandleFunc("GET /reports/ministers", h.Ministers)
		mux.HandleFunc("GET /reports/availability", h.Availability)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
