package followup

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

const maxActionBody = 64 * 1024

// Handler receives notification action presses from the push subsystem's
// webhook and hands them to the background queue. The webhook must return
// quickly; everything slow happens in the worker.
type Handler struct {
	publisher *Publisher
	logger    *logging.Logger
}

func NewHandler(publisher *Publisher, logger *logging.Logger) *Handler {
	if publisher == nil {
		panic("followup: publisher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		publisher: publisher,
		logger:    logger,
	}
}

// HandleAction accepts one action press.
// POST /webhooks/notifications/actions
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBody))
	if err != nil {
		http.Error(w, `{"error": "failed to read body"}`, http.StatusBadRequest)
		return
	}

	var event ActionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, `{"error": "invalid action event"}`, http.StatusBadRequest)
		return
	}
	if event.NotificationID == "" || event.ActionID == "" || event.InstallationID == "" {
		http.Error(w, `{"error": "notification_id, action_id and installation_id are required"}`, http.StatusBadRequest)
		return
	}

	if err := h.publisher.Publish(r.Context(), event); err != nil {
		h.logger.Error("failed to enqueue action event",
			"error", err,
			"notification_id", event.NotificationID,
			"action_id", event.ActionID,
		)
		http.Error(w, `{"error": "failed to enqueue action"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
