package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/auth"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/service"
)

// sessionTTL is how long the JWT cookie (and the token inside it) lives.
const sessionTTL = 24 * time.Hour

// AuthHandler manages registration, login, the Google OAuth flow, and
// session management.
//
//   - HandleRegister / HandleLogin → email+password accounts
//   - HandleGoogleLogin / HandleGoogleCallback → browser OAuth flow
//   - HandleLogout → clear the JWT cookie
//   - HandleMe → return the currently logged-in user's profile
type AuthHandler struct {
	google *auth.GoogleProvider // nil when Google OAuth is not configured
	auths  *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. The Google provider may be nil;
// the server only registers the OAuth routes when it is configured.
func NewAuthHandler(google *auth.GoogleProvider, auths *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{google: google, auths: auths, logger: logger}
}

// sessionResponse is the body returned by register and login.
type sessionResponse struct {
	User    *model.User `json:"user"`
	Warning string      `json:"warning,omitempty"`
}

// setSessionCookie stores the JWT in an HttpOnly cookie.
// HttpOnly = JavaScript cannot read it (XSS protection).
// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
// Secure should be true in production (HTTPS only); left false for local dev.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleRegister creates an email/password account and starts a session.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "...", "plan": "trial"}
//
// DEGRADED SUCCESS:
// If the user record was created but provisioning (subscription or usage
// stats) failed, the account still exists and a session is still issued.
// The response is 201 with a warning field instead of an error, so the
// client isn't told to retry a registration that would now conflict.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Plan     model.Plan `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Plan == "" {
		req.Plan = model.PlanTrial
	}

	result, err := h.auths.RegisterEmail(r.Context(), req.Name, req.Email, req.Password, req.Plan)
	if err != nil && !errors.Is(err, apperror.ErrPartialProvisioning) {
		writeError(w, err)
		return
	}

	resp := sessionResponse{User: result.User}
	if err != nil {
		h.logger.Warn("registration completed with incomplete provisioning",
			slog.String("userID", result.User.ID),
			slog.String("error", err.Error()),
		)
		resp.Warning = "account created but plan provisioning did not complete"
	}

	setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin authenticates an email/password account.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// Wrong password and unknown email both return the same 403 — the login
// endpoint never confirms whether an email is registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.auths.LoginEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, sessionResponse{User: result.User})
}

// HandleGoogleLogin redirects the browser to Google's authorization page.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When Google calls back, HandleGoogleCallback verifies the state matches,
// proving the flow was initiated by this server.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a Google user profile
//  3. Log in the matching account, or register a new trial account
//  4. Issue a JWT in an HttpOnly cookie
//  5. Redirect to the app home page
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// Google sends an error parameter when the user denies authorization
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.auths.LoginOrRegisterGoogle(r.Context(), gUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("email", gUser.Email),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user authenticated",
		slog.String("userID", result.User.ID),
		slog.String("method", result.User.AuthMethod),
	)

	setSessionCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie, effectively logging the user out.
//
// HTTP: POST /auth/logout
//
// Logout is state-changing, so it's a POST. Since sessions are stateless
// JWTs, "logout" just deletes the client-side cookie; the token remains
// technically valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.auths.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user not found", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
