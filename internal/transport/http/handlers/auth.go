package handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/taskflow/internal/application/auth"
	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/logger"
	"github.com/baechuer/taskflow/internal/transport/http/dto"
	"github.com/baechuer/taskflow/internal/transport/http/middleware"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if domain.Is(err, "invalid_credentials") {
			middleware.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			middleware.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		response.WriteError(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.LoginResponse{
		Access:   res.Tokens.AccessToken,
		Refresh:  res.Tokens.RefreshToken,
		Username: res.User.Username,
		Role:     string(res.User.Role),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeValid(w, r, &req) {
		return
	}

	access, err := h.svc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.RefreshResponse{Access: access})
}

func (h *AuthHandler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.svc.RegisterEmployee, "Employee registered successfully")
}

func (h *AuthHandler) RegisterScrumMaster(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.svc.RegisterScrumMaster, "Scrum Master registered successfully")
}

type registerFunc func(ctx context.Context, username, password string) (auth.RegisterResult, error)

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, fn registerFunc, msg string) {
	var req dto.CredentialsRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := fn(r.Context(), req.Username, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Str("role", string(res.User.Role)).
		Msg("user_registered")

	response.Created(w, dto.RegisterResponse{
		Message:  msg,
		Username: res.User.Username,
		Role:     string(res.User.Role),
		Access:   res.Tokens.AccessToken,
		Refresh:  res.Tokens.RefreshToken,
	})
}
