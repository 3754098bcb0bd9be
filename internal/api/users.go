package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) Register(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("registering user", zap.String("username", req.Username))

	user, err := h.user.Register(e.Request().Context(), req.Name, req.Email, req.Username, req.Password)
	if err != nil {
		l.Error("failed to register user", zap.String("username", req.Username), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusCreated, user)
}

func (h *Handler) Authenticate(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	session, err := h.user.Authenticate(e.Request().Context(), req.Username, req.Password)
	if err != nil {
		l.Warn("authentication failed", zap.String("username", req.Username), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, session)
}

func (h *Handler) RetrieveUser(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	user, err := h.user.RetrieveUser(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to retrieve user", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, user)
}

func (h *Handler) RetrieveProfile(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	profile, err := h.user.RetrieveProfile(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to retrieve profile", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, profile)
}

func (h *Handler) UpdateUser(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1"`
		Username    *string `json:"username" validate:"omitempty,min=1"`
		NewPassword *string `json:"newPassword" validate:"omitempty,min=1"`
		Password    string  `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("updating user", zap.String("user_id", ids[0]))

	user, err := h.user.UpdateUser(e.Request().Context(), ids[0], &model.UserUpdate{
		Name:        req.Name,
		Username:    req.Username,
		NewPassword: req.NewPassword,
		Password:    req.Password,
	})
	if err != nil {
		l.Error("failed to update user", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		Bio           *string  `json:"bio"`
		GithubProfile *string  `json:"githubProfile"`
		City          *string  `json:"city"`
		Skills        []string `json:"skills" validate:"omitempty,dive,required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("updating profile", zap.String("user_id", ids[0]))

	profile, err := h.user.UpdateProfile(e.Request().Context(), ids[0], &model.ProfileUpdate{
		Bio:           req.Bio,
		GithubProfile: req.GithubProfile,
		City:          req.City,
		Skills:        req.Skills,
	})
	if err != nil {
		l.Error("failed to update profile", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, profile)
}
