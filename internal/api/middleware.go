package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/seand52/socialDev/internal/auth"
	"github.com/seand52/socialDev/internal/service"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

const loggerKey = "logger"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Subject(token string) (string, bool)
}

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			c.Set(loggerKey, reqLogger)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

func GetLoggerFromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// AuthMiddleware requires a valid bearer token and stores its subject in the
// request context.
func AuthMiddleware(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := GetLoggerFromContext(c)

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				l.Debug("missing bearer token")
				return unauthorized(c, "missing bearer token")
			}

			userID, ok := tokens.Subject(strings.TrimSpace(token))
			if !ok {
				l.Debug("invalid bearer token")
				return unauthorized(c, "invalid token")
			}

			ctx := auth.WithUserID(c.Request().Context(), userID)
			ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(zap.String("principal", userID)))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireSelf lets a request through only when the path parameter names the
// authenticated user.
func RequireSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := parseID(c.Param(param))
			if err != nil {
				return c.JSON(http.StatusBadRequest, errorResponse{
					Error: service.NewServiceError(service.ErrorCodeInvalidBody, "invalid "+param),
				})
			}

			principal, ok := auth.UserIDFromContext(c.Request().Context())
			if !ok || principal != id {
				logger.FromContext(c.Request().Context()).Warn("principal mismatch",
					zap.String("principal", principal),
					zap.String("user_id", id))
				return c.JSON(http.StatusForbidden, errorResponse{
					Error: service.NewServiceError(service.ErrorCodeForbidden, "token does not belong to this user"),
				})
			}

			return next(c)
		}
	}
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{
		Error: service.NewServiceError(service.ErrorCodeAuthFailed, message),
	})
}
