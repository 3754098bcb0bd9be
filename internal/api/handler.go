package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/seand52/socialDev/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Handler struct {
	user    *service.UserService
	project *service.ProjectService
	meeting *service.MeetingService
	message *service.MessageService

	healthChecker HealthChecker
	metrics       *Metrics
	tokens        TokenVerifier

	requestTimeout time.Duration
	authRate       rate.Limit
	authBurst      int

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithMetrics(m *Metrics) *Handler {
	h.metrics = m
	return h
}

func (h *Handler) WithTokenVerifier(v TokenVerifier) *Handler {
	h.tokens = v
	return h
}

func (h *Handler) WithUserService(user *service.UserService) *Handler {
	h.user = user
	return h
}

func (h *Handler) WithProjectService(project *service.ProjectService) *Handler {
	h.project = project
	return h
}

func (h *Handler) WithMeetingService(meeting *service.MeetingService) *Handler {
	h.meeting = meeting
	return h
}

func (h *Handler) WithMessageService(message *service.MessageService) *Handler {
	h.message = message
	return h
}

func (h *Handler) WithRequestTimeout(d time.Duration) *Handler {
	h.requestTimeout = d
	return h
}

// WithAuthRateLimit limits POST /users and POST /auth per client IP.
// A non-positive limit disables the limiter.
func (h *Handler) WithAuthRateLimit(limit float64, burst int) *Handler {
	h.authRate = rate.Limit(limit)
	h.authBurst = burst
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if h.metrics != nil {
		e.Use(h.metrics.Middleware())
		e.GET("/metrics", h.metrics.Handler())
	}
	if h.requestTimeout > 0 {
		e.Use(middleware.ContextTimeout(h.requestTimeout))
	}

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	// Middleware is attached per route so unknown paths still answer 404.
	limited := h.authLimiter()
	e.POST("/users", h.Register, limited...)
	e.POST("/auth", h.Authenticate, limited...)

	authenticated := AuthMiddleware(h.tokens)
	e.GET("/users/:id", h.RetrieveUser, authenticated)
	e.GET("/user-profile/:id", h.RetrieveProfile, authenticated)

	self := []echo.MiddlewareFunc{authenticated, RequireSelf("id")}
	e.PATCH("/users/:id", h.UpdateUser, self...)
	e.PATCH("/user-profile/:id", h.UpdateProfile, self...)

	e.POST("/users/:id/projects", h.AddProject, self...)
	e.GET("/users/:id/projects", h.ListOwnProjects, self...)
	e.DELETE("/users/:id/projects/:projectid", h.DeleteProject, self...)
	e.GET("/users/:id/collaborating", h.ListCollaboratingProjects, self...)
	e.POST("/users/:id/projects/:projectid/save", h.SaveProject, self...)
	e.DELETE("/users/:id/projects/:projectid/save", h.RemoveSavedProject, self...)
	e.GET("/users/:id/saved", h.ListSavedProjects, self...)
	e.GET("/users/:id/project/:projectid", h.RetrieveProjectInfo, self...)
	e.GET("/users/:id/projects/filter", h.FilterProjectsQuery, self...)
	e.GET("/users/:id/projects/filter/:query", h.FilterProjectsPath, self...)

	e.POST("/users/:id/projects/:projectid/collaborator", h.RequestCollaboration, self...)
	e.DELETE("/users/:id/projects/:projectid/collaborator", h.CancelCollaborationRequest, self...)
	e.PATCH("/users/:id/projects/:projectid/collaborator", h.HandleCollaboration, self...)
	e.PATCH("/users/:id/projects/:projectid/removecollaborator", h.RemoveCollaborator, self...)
	e.POST("/users/:id/projects/:projectid/leave", h.LeaveProject, self...)
	e.GET("/users/:id/pendingcollaborators", h.ListPendingCollaboratorProjects, self...)

	e.POST("/users/:id/projects/:projectid/meetings", h.AddMeeting, self...)
	e.GET("/users/:id/projects/:projectid/meetings", h.ListProjectMeetings, self...)
	e.GET("/users/:id/meeting/:meetingid", h.RetrieveMeetingInfo, self...)
	e.DELETE("/users/:id/meetings/:meetingid", h.DeleteMeeting, self...)
	e.PUT("/users/:id/meetings/:meetingid", h.AttendMeeting, self...)
	e.PATCH("/users/:id/meetings/:meetingid", h.UnattendMeeting, self...)
	e.GET("/users/:id/meetings", h.UpcomingMeetings, self...)

	e.POST("/users/:id/message", h.SendMessage, self...)
	e.GET("/users/:id/message/:receiverid", h.ListMessages, self...)
	e.GET("/users/:id/chat/:receiverid", h.FindConversation, self...)
	e.GET("/users/:id/chats", h.ListConversations, self...)
}

func (h *Handler) authLimiter() []echo.MiddlewareFunc {
	if h.authRate <= 0 {
		return nil
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      h.authRate,
		Burst:     h.authBurst,
		ExpiresIn: 3 * time.Minute,
	})

	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
	})}
}

type dataResponse struct {
	Data any `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error *service.Error `json:"error"`
}

func (h *Handler) respond(e echo.Context, status int, data any) error {
	return e.JSON(status, dataResponse{Data: data})
}

func (h *Handler) respondMessage(e echo.Context, status int, message string) error {
	return e.JSON(status, messageResponse{Message: message})
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	err := ProcessRequest(e, &req, bindStep, validateStep)
	if err == nil {
		return nil
	}

	var serr *service.Error
	if errors.As(err, &serr) {
		return serr
	}
	return service.NewServiceError(service.ErrorCodeInvalidBody, err.Error())
}

// pathIDs reads uuid path parameters in order.
func (h *Handler) pathIDs(e echo.Context, names ...string) ([]string, *service.Error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := parseID(e.Param(name))
		if err != nil {
			return nil, service.NewServiceError(service.ErrorCodeInvalidBody, "invalid "+name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := errorResponse{Error: err}

	switch err.Code {
	case service.ErrorCodeInvalidBody, service.ErrorCodeInvalidQuery:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeAuthFailed:
		return e.JSON(http.StatusUnauthorized, response)
	case service.ErrorCodeForbidden:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeAlreadyExists, service.ErrorCodeProjectFull,
		service.ErrorCodeNotPending, service.ErrorCodeNotCollaborator:
		return e.JSON(http.StatusConflict, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
