package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/credguard"
	"github.com/MrEthical07/credguard/middleware"
)

// Service is the engine surface the gateway calls. *credguard.Engine implements it.
type Service interface {
	Register(ctx context.Context, username, password, otp string) (credguard.User, error)
	Login(ctx context.Context, username, password string) (credguard.User, error)
	ForgotPassword(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, username, newPassword, otp string) error
}

// TokenIssuer mints access tokens on login. *jwt.Manager implements it.
type TokenIssuer interface {
	CreateAccess(userID, username string) (string, error)
	TTL() time.Duration
}

type Handler struct {
	service Service
	tokens  TokenIssuer
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// WithTokenIssuer makes login responses carry an access token.
func (h *Handler) WithTokenIssuer(tokens TokenIssuer) *Handler {
	h.tokens = tokens
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/forgot-password", h.HandleForgotPassword)
		r.Post("/reset-password", h.HandleResetPassword)
	})
}

// HandleRegister implements POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.writeValidation(w, r, err)
		return
	}

	user, err := h.service.Register(ctx, req.Username, req.Password, req.OTP)
	if err != nil {
		h.writeError(w, r, "register", req.Username, err)
		return
	}

	writeJSON(w, http.StatusCreated, &userResponse{
		Message: "User registered successfully",
		User:    newUserView(user),
	})
}

// HandleLogin implements POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.writeValidation(w, r, err)
		return
	}

	user, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, "login", req.Username, err)
		return
	}

	resp := &loginResponse{
		Message: "User logged in successfully",
		User:    newUserView(user),
	}
	if h.tokens != nil {
		token, err := h.tokens.CreateAccess(user.ID, user.Username)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to mint access token",
				"error", err,
				"request_id", requestIDFrom(ctx),
			)
			writeErrorBody(w, http.StatusInternalServerError, &errorResponse{
				Error:   "internal",
				Message: "internal error",
			})
			return
		}
		resp.AccessToken = token
		resp.TokenType = "Bearer"
		resp.ExpiresIn = int64(h.tokens.TTL() / time.Second)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleForgotPassword implements POST /api/auth/forgot-password.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.writeValidation(w, r, err)
		return
	}

	if err := h.service.ForgotPassword(ctx, req.Username); err != nil {
		h.writeError(w, r, "forgot_password", req.Username, err)
		return
	}

	writeJSON(w, http.StatusOK, &messageResponse{Message: "OTP sent to your registered contact."})
}

// HandleResetPassword implements POST /api/auth/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.writeValidation(w, r, err)
		return
	}

	if err := h.service.ResetPassword(ctx, req.Username, req.NewPassword, req.OTP); err != nil {
		h.writeError(w, r, "reset_password", req.Username, err)
		return
	}

	writeJSON(w, http.StatusOK, &messageResponse{Message: "Password reset successfully"})
}

// HandleMe implements GET /api/auth/me behind middleware.Guard.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeErrorBody(w, http.StatusUnauthorized, &errorResponse{Error: "unauthorized", Message: "unauthorized"})
		return
	}

	resp := &meResponse{
		UserID:   claims.Subject,
		Username: claims.Username,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}
