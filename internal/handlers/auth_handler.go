package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prudhvinik1/equiptrack/internal/services"
	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type loginFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	SessionID     string     `json:"session_id,omitempty"`
	Username      string     `json:"username,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

const maxLoginBodyBytes = 4 * 1024

type AuthHandler struct {
	svc      *services.AuthService
	log      *zap.Logger
	validate *validator.Validate
}

func NewAuthHandler(svc *services.AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{svc: svc, log: log, validate: validator.New()}
}

// Login opens a session, or re-logs into the session named by a valid
// bearer token, which restarts its expiry window.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	loginReq := services.LoginRequest{Username: req.Username, Password: req.Password}
	if token, ok := bearerToken(r); ok {
		if claims, err := h.svc.VerifyToken(token); err == nil {
			loginReq.SessionID = claims.SessionID
		}
	}

	resp, err := h.svc.Login(r.Context(), loginReq)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, loginFailure{Success: false, Error: "Invalid credentials"})
		return
	}
	if err != nil {
		h.log.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     resp.Token,
		SessionID: resp.SessionID,
		ExpiresAt: resp.ExpiresAt,
	})
}

// Logout ends the caller's session. Without a token there is nothing to end.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusOK, successResponse{Success: true})
		return
	}

	if err := h.svc.Logout(r.Context(), token); err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		h.log.Error("logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Session reports whether the caller is logged in.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	info, err := h.svc.Session(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: info.Authenticated,
		SessionID:     info.ID,
		Username:      info.Username,
		ExpiresAt:     info.ExpiresAt,
	})
}
