package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"labstock-api/internal/ledger"
	"labstock-api/internal/middleware"
	"labstock-api/internal/service"
	"labstock-api/pkg/apierror"
	"labstock-api/pkg/response"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	sessions *service.SessionService
	ledger   *ledger.Ledger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *service.SessionService, l *ledger.Ledger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		ledger:   l,
	}
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response for a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	user, err := h.sessions.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, user)
}

// Login handles POST /api/v1/auth/login
//
// A successful login is the session-start hook: the user's ledger state is
// loaded before the token is returned.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		response.Error(w, apierror.BadRequest("email and password are required"))
		return
	}

	token, user, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.ledger.LoadUser(r.Context(), user.ID); err != nil {
		log.Printf("[AuthHandler] Failed to load ledger for user %s: %v", user.ID, err)
	}

	response.OK(w, LoginResponse{Token: token, User: user})
}

// Logout handles POST /api/v1/auth/logout
//
// Session-end hook: the token is revoked and the user's in-memory ledger
// state is cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	token := r.Header.Get("X-Token")
	if token == "" {
		auth := r.Header.Get("Authorization")
		if len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		log.Printf("[AuthHandler] Failed to revoke session: %v", err)
	}

	h.ledger.ClearUser(session.UserID)

	response.OK(w, map[string]interface{}{"status": "logged_out"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	user, err := h.sessions.UserByID(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, user)
}
