package monitoring

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clientcheck/followup-platform/internal/http/middleware"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

// Handler exposes the monitoring state and settings over HTTP. Every route
// is installation-scoped through the verified session.
type Handler struct {
	store     *Store
	lifecycle *LifecycleManager
	logger    *logging.Logger
}

func NewHandler(store *Store, lifecycle *LifecycleManager, logger *logging.Logger) *Handler {
	if store == nil {
		panic("monitoring: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:     store,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Routes returns a chi router with monitoring routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/state", h.GetState)
	r.Put("/settings", h.UpdateSettings)
	r.Post("/start", h.Start)
	r.Post("/stop", h.Stop)
	r.Delete("/blacklist/{number}", h.RemoveFromBlacklist)
	return r
}

// GetState returns the full monitoring snapshot for the installation.
// GET /monitoring/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "session required"}`, http.StatusUnauthorized)
		return
	}

	state, err := h.store.Snapshot(r.Context(), session.InstallationID)
	if err != nil {
		h.logger.Error("failed to load monitoring state", "installation_id", session.InstallationID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		h.logger.Error("failed to encode monitoring state", "error", err)
	}
}

// UpdateSettingsRequest carries the tunable anti-spam thresholds. Absent
// fields are left untouched, so a foreground edit of one setting cannot
// clobber the other.
type UpdateSettingsRequest struct {
	CooldownDays        *int `json:"cooldown_days,omitempty"`
	MinCallDurationSecs *int `json:"min_call_duration_seconds,omitempty"`
}

// UpdateSettings updates the anti-spam thresholds.
// PUT /monitoring/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "session required"}`, http.StatusUnauthorized)
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.CooldownDays != nil && *req.CooldownDays < 0 {
		http.Error(w, `{"error": "cooldown_days must be >= 0"}`, http.StatusBadRequest)
		return
	}
	if req.MinCallDurationSecs != nil && *req.MinCallDurationSecs < 0 {
		http.Error(w, `{"error": "min_call_duration_seconds must be >= 0"}`, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if req.CooldownDays != nil {
		if err := h.store.SetCooldownDays(ctx, session.InstallationID, *req.CooldownDays); err != nil {
			h.logger.Error("failed to set cooldown days", "error", err)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			return
		}
	}
	if req.MinCallDurationSecs != nil {
		if err := h.store.SetMinCallDuration(ctx, session.InstallationID, *req.MinCallDurationSecs); err != nil {
			h.logger.Error("failed to set min call duration", "error", err)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

// Start transitions the installation's monitoring lifecycle toward Active.
// POST /monitoring/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(installationID string) error {
		return h.lifecycle.StartMonitoring(r.Context(), installationID)
	})
}

// Stop transitions the installation's monitoring lifecycle to Stopped.
// POST /monitoring/stop
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(installationID string) error {
		return h.lifecycle.StopMonitoring(r.Context(), installationID)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(installationID string) error) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "session required"}`, http.StatusUnauthorized)
		return
	}
	if h.lifecycle == nil {
		http.Error(w, `{"error": "monitoring lifecycle unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	if err := fn(session.InstallationID); err != nil {
		h.logger.Error("lifecycle transition failed", "installation_id", session.InstallationID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	phase, err := h.store.CurrentLifecyclePhase(r.Context(), session.InstallationID)
	if err != nil {
		h.logger.Error("failed to read lifecycle phase", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"phase": string(phase)})
}

// RemoveFromBlacklist drops a number from the installation's blacklist.
// DELETE /monitoring/blacklist/{number}
func (h *Handler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "session required"}`, http.StatusUnauthorized)
		return
	}

	number := chi.URLParam(r, "number")
	if number == "" {
		http.Error(w, `{"error": "number required"}`, http.StatusBadRequest)
		return
	}

	if err := h.store.RemoveFromBlacklist(r.Context(), session.InstallationID, number); err != nil {
		h.logger.Error("failed to remove from blacklist", "number", number, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
