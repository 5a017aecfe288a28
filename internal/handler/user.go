package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/service"
)

// UserHandler manages account CRUD.
//
// Account creation normally happens through /auth/register; HandleCreate
// exists for clients that provision accounts directly from an identity
// payload (e.g. a mobile app completing its own OAuth flow).
type UserHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewUserHandler(accounts *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// HandleCreate registers an account from an identity payload.
//
// HTTP: POST /api/users
// REQUEST BODY: {"name": "...", "email": "...", "plan": "basic", ...}
//
// Like registration, a provisioning failure after the user record commits
// is a degraded success: 201 with a warning, not an error.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		model.Identity
		Plan model.Plan `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Plan == "" {
		req.Plan = model.PlanTrial
	}

	user, err := h.accounts.CreateAccount(r.Context(), req.Identity, req.Plan)
	if err != nil && !errors.Is(err, apperror.ErrPartialProvisioning) {
		writeError(w, err)
		return
	}

	resp := sessionResponse{User: user}
	if err != nil {
		h.logger.Warn("account created with incomplete provisioning",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		resp.Warning = "account created but plan provisioning did not complete"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleGet returns a single user.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate applies a partial update to a user record.
//
// HTTP: PATCH /api/users/{id}
// REQUEST BODY: any subset of {"name", "phone", "isActive", "location", "avatar", "preferences"}
//
// Fields absent from the body are left unchanged.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd model.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.accounts.UpdateUser(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes a user and everything keyed to them.
//
// HTTP: DELETE /api/users/{id}
//
// Deleting a user that doesn't exist is a 404; the cascade over the other
// collections runs either way, so a half-provisioned account deletes
// cleanly.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.accounts.DeleteAccount(r.Context(), id)
	if err != nil {
		h.logger.Error("account deletion failed",
			slog.String("userID", id),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, apperror.NotFound("user", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
