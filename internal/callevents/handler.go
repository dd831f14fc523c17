package callevents

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

const maxEventBody = 64 * 1024

// Handler exposes the device call-event ingest webhook.
type Handler struct {
	ingestor *Ingestor
	logger   *logging.Logger
}

func NewHandler(ingestor *Ingestor, logger *logging.Logger) *Handler {
	if ingestor == nil {
		panic("callevents: ingestor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{ingestor: ingestor, logger: logger}
}

// IngestCallEvent handles POST /events/calls requests from the device agent.
// The raw record travels as the request body; the installation id rides in a
// header so malformed bodies can still be attributed.
func (h *Handler) IngestCallEvent(w http.ResponseWriter, r *http.Request) {
	installationID := strings.TrimSpace(r.Header.Get("X-Installation-ID"))
	if installationID == "" {
		http.Error(w, "Missing installation id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		h.logger.Error("failed to read call event body", "error", err, "installation_id", installationID)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Malformed or duplicate records are accepted and dropped inside the
	// ingest pipeline; the device agent must not retry them.
	if err := h.ingestor.Ingest(r.Context(), installationID, body); err != nil {
		http.Error(w, "Failed to process call event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
