// Package handler implements the auth HTTP endpoints and middleware.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/common"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/repository"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/service"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
)

// AuthHandler implements the auth HTTP endpoints.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler constructs a new handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Routes returns the auth route tree. The token-guarded endpoints sit
// behind the given middleware.
func (h *AuthHandler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)

	r.Group(func(pr chi.Router) {
		pr.Use(auth)
		pr.Get("/me", h.Me)
		pr.Post("/password", h.ChangePassword)
	})

	return r
}

type registerRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type authResponse struct {
	User   *repository.User   `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// Register creates an account and returns the first token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Username == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email, username and password are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		httputil.Error(w, http.StatusBadRequest, "invalid email address")
		return
	}

	result, err := h.svc.RegisterUser(r.Context(), service.RegisterParams{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Metadata:    sessionMetadata(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusConflict, "email already registered")
		case errors.Is(err, common.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to register user", slog.Any("error", err))
			httputil.Error(w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, authResponse{User: result.User, Tokens: result.Tokens})
}

// Login authenticates an email/password pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Login(r.Context(), service.LoginParams{
		Email:    req.Email,
		Password: req.Password,
		Metadata: sessionMetadata(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountInactive):
			httputil.Error(w, http.StatusForbidden, "account is deactivated")
		default:
			h.logger.Error("failed to log in", slog.Any("error", err))
			httputil.Error(w, http.StatusInternalServerError, "failed to log in")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, authResponse{User: result.User, Tokens: result.Tokens})
}

// Refresh rotates a refresh token into a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := h.svc.RefreshTokens(r.Context(), service.RefreshTokenParams{
		RefreshToken: req.RefreshToken,
		Metadata:     sessionMetadata(r),
	})
	if err != nil {
		if errors.Is(err, service.ErrAccountInactive) {
			httputil.Error(w, http.StatusForbidden, "account is deactivated")
			return
		}
		h.logger.Warn("refresh rejected", slog.Any("error", err))
		httputil.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	httputil.JSON(w, http.StatusOK, tokens)
}

// Logout deletes the refresh session. Unknown tokens still succeed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("failed to log out", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to load user", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// ChangePassword updates the password and invalidates every session.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			httputil.Error(w, http.StatusBadRequest, "current password is incorrect")
		case errors.Is(err, common.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to change password", slog.Any("error", err))
			httputil.Error(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func sessionMetadata(r *http.Request) service.SessionMetadata {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return service.SessionMetadata{
		UserAgent: r.UserAgent(),
		ClientIP:  host,
	}
}
