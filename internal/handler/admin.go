package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/service"
)

// AdminHandler exposes cross-user operations: aggregate analytics, the
// user listing, snapshot import, and the development-only store reset.
type AdminHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAdminHandler(accounts *service.AccountService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{accounts: accounts, logger: logger}
}

// HandleAnalytics returns aggregate usage and subscription figures across
// all users.
//
// HTTP: GET /api/admin/analytics
func (h *AdminHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.accounts.Analytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleListUsers returns every registered user.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleImport writes an exported snapshot back into the store.
//
// HTTP: POST /api/import
// REQUEST BODY: a UserExport as produced by GET /api/users/{id}/export
//
// Records are written verbatim, overwriting any existing records with the
// same keys, so export followed by import round-trips exactly. Snapshots
// from a newer schema version are rejected with 400.
func (h *AdminHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var export model.UserExport
	if err := json.NewDecoder(r.Body).Decode(&export); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.accounts.ImportUserData(r.Context(), &export); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "import complete"})
}

// HandleReset wipes every collection. Development and testing only; the
// server logs a warning each time it runs.
//
// HTTP: POST /api/admin/reset
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.ResetAll(r.Context()); err != nil {
		h.logger.Error("store reset failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
