package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/eco-tracker/internal/service"
)

// UsageHandler answers usage and entitlement questions for a user.
type UsageHandler struct {
	usage  *service.UsageService
	logger *slog.Logger
}

func NewUsageHandler(usage *service.UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// HandleStats returns the user's full usage record: lifetime counters plus
// the per-month buckets.
//
// HTTP: GET /api/users/{id}/usage
func (h *UsageHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usage.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleCheckLimit reports whether the user may perform one more
// occurrence of the named action this month.
//
// HTTP: GET /api/users/{id}/limits/{action}
//
// The answer is always 200 with an allowed flag — a denied quota is a
// normal answer here, not an error. Users with no subscription or no
// usage record are denied.
func (h *UsageHandler) HandleCheckLimit(w http.ResponseWriter, r *http.Request) {
	action := service.Action(r.PathValue("action"))

	allowed, err := h.usage.CheckLimit(r.Context(), r.PathValue("id"), action)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"action":  action,
		"allowed": allowed,
	})
}

// HandleHasFeature reports whether the user's plan includes the named
// feature. Unknown features answer false.
//
// HTTP: GET /api/users/{id}/features/{feature}
func (h *UsageHandler) HandleHasFeature(w http.ResponseWriter, r *http.Request) {
	feature := r.PathValue("feature")

	enabled, err := h.usage.HasFeature(r.Context(), r.PathValue("id"), feature)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feature": feature,
		"enabled": enabled,
	})
}
