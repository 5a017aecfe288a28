package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/service"
)

// SubscriptionHandler exposes a user's subscription as a singleton
// sub-resource: each user has at most one, addressed by the user's ID.
type SubscriptionHandler struct {
	subs   *service.SubscriptionService
	logger *slog.Logger
}

func NewSubscriptionHandler(subs *service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

// HandleGet returns the user's current subscription.
//
// HTTP: GET /api/users/{id}/subscription
func (h *SubscriptionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleUpsert moves the user onto a plan, creating the subscription if
// none exists.
//
// HTTP: PUT /api/users/{id}/subscription
// REQUEST BODY: {"plan": "pro"}
//
// PUT rather than POST/PATCH: the plan change replaces the limits and
// feature set wholesale, which is PUT semantics for this sub-resource.
func (h *SubscriptionHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan model.Plan `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Plan == "" {
		writeError(w, apperror.ValidationFailed("plan", "a plan name is required"))
		return
	}

	sub, err := h.subs.Upgrade(r.Context(), r.PathValue("id"), req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleDelete cancels the user's subscription.
//
// HTTP: DELETE /api/users/{id}/subscription
func (h *SubscriptionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	removed, err := h.subs.Remove(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, apperror.NotFound("subscription", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
