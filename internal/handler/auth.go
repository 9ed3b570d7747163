package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/handler/dto"
	"github.com/bachelorbari/bachelorbari/internal/middleware"
	"github.com/bachelorbari/bachelorbari/internal/service"
)

// AuthHandler handles registration, login and the profile endpoint.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Register(r.Context(), req, clientContext(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("user_registered",
		"user_id", result.User.ID,
		"role", result.User.Role,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Status:  dto.StatusSuccess,
		Message: dto.MessageRegistered,
		Token:   result.Token,
		User:    result.User,
	})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req, clientContext(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("user_logged_in",
		"user_id", result.User.ID,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Status:  dto.StatusSuccess,
		Message: dto.MessageLoggedIn,
		Token:   result.Token,
		User:    result.User,
	})
}

// Profile handles GET /api/profile. It must run behind middleware.Auth.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, dto.MessageUnauthenticated)
		return
	}

	user, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// decode reads a JSON body into dst. An empty body decodes to the zero
// value so that validation reports the missing fields.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, "The request body is too large.")
		return false
	}

	writeErrors(w, http.StatusBadRequest, map[string][]string{"body": {dto.MessageInvalidJSON}})
	return false
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrors(w, http.StatusUnprocessableEntity, verr.Fields)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErrors(w, http.StatusUnauthorized, map[string][]string{"email": {service.MsgCredentialsIncorrect}})
	case errors.Is(err, service.ErrUserNotFound):
		writeMessage(w, http.StatusUnauthorized, dto.MessageUnauthenticated)
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logger.Error("store_unavailable",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeMessage(w, http.StatusServiceUnavailable, dto.MessageUnavailable)
	default:
		h.logger.Error("internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeMessage(w, http.StatusInternalServerError, dto.MessageServerError)
	}
}

// clientContext reads the caller details recorded by the request tracker,
// falling back to the raw request outside the tracked group.
func clientContext(r *http.Request) service.ClientContext {
	if rc := auth.RequestFromContext(r.Context()); rc != nil {
		return service.ClientContext{IP: rc.IP, UserAgent: rc.UserAgent}
	}
	return service.ClientContext{IP: middleware.ClientIP(r), UserAgent: r.UserAgent()}
}
