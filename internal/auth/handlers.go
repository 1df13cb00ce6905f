package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// Handler exposes the LINE Login endpoints. Browser-facing steps redirect
// to the frontend; token verification and logout are JSON APIs.
type Handler struct {
	service     *Service
	frontendURL string
	logger      *logging.Logger
}

func NewHandler(service *Service, frontendURL string, logger *logging.Logger) *Handler {
	if service == nil {
		panic("auth: service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, frontendURL: frontendURL, logger: logger}
}

// Routes mounts the login flow under a sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.Login)
	r.Get("/callback", h.Callback)
	r.Post("/verify", h.Verify)
	r.Post("/logout", h.Logout)
	return r
}

// Login redirects the browser to the LINE consent page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	authorizeURL, err := h.service.AuthorizeURL()
	if err != nil {
		h.logger.Error("failed to build authorize url", "error", err)
		http.Error(w, "login unavailable", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Callback handles the OAuth return leg. Every failure sends the browser
// back to the frontend login page with an error tag rather than a raw 4xx.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if errTag := r.URL.Query().Get("error"); errTag != "" {
		h.redirectWithError(w, r, errTag)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "no_code")
		return
	}

	token, err := h.service.CompleteLogin(r.Context(), code)
	if err != nil {
		h.logger.Error("line login failed", "error", err)
		h.redirectWithError(w, r, "login_failed")
		return
	}

	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+url.QueryEscape(token), http.StatusFound)
}

// Verify resolves a session token to its user.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeJSONError(w, http.StatusBadRequest, "no token provided")
		return
	}

	session, err := h.service.Verify(r.Context(), body.Token)
	if errors.Is(err, ErrSessionNotFound) {
		writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	if err != nil {
		h.logger.Error("session verify failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      session.User,
		"expiresAt": session.ExpiresAt,
	})
}

// Logout revokes the session token. Unknown tokens still succeed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Logout(r.Context(), body.Token); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) redirectWithError(w http.ResponseWriter, r *http.Request, tag string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(tag), http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
