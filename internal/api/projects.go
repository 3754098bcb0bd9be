package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

const filterPathPrefix = "/projects/filter/"

func (h *Handler) AddProject(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		Name        string   `json:"name" validate:"required"`
		Description string   `json:"description" validate:"required"`
		Skills      []string `json:"skills" validate:"dive,required"`
		MaxMembers  int      `json:"maxMembers" validate:"required,gt=0"`
		Location    string   `json:"location"`
		ProjectURL  string   `json:"projectUrl"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("adding project", zap.String("owner_id", ids[0]), zap.String("name", req.Name))

	project, err := h.project.AddProject(e.Request().Context(), ids[0], &model.NewProject{
		Name:        req.Name,
		Description: req.Description,
		Skills:      req.Skills,
		MaxMembers:  req.MaxMembers,
		Location:    req.Location,
		ProjectURL:  req.ProjectURL,
	})
	if err != nil {
		l.Error("failed to add project", zap.String("owner_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusCreated, project)
}

func (h *Handler) DeleteProject(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("deleting project", zap.String("user_id", ids[0]), zap.String("project_id", ids[1]))

	if err := h.project.DeleteProject(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to delete project", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "project deleted")
}

func (h *Handler) ListOwnProjects(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	projects, err := h.project.ListOwnProjects(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to list projects", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, projects)
}

func (h *Handler) ListCollaboratingProjects(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	projects, err := h.project.ListCollaboratingProjects(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to list collaborating projects", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, projects)
}

func (h *Handler) SaveProject(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	if err := h.project.SaveProject(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to save project", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "project saved")
}

func (h *Handler) RemoveSavedProject(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	if err := h.project.RemoveSavedProject(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to remove saved project", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "project removed from saved projects")
}

func (h *Handler) ListSavedProjects(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	projects, err := h.project.ListSavedProjects(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to list saved projects", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, projects)
}

func (h *Handler) RetrieveProjectInfo(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	info, err := h.project.RetrieveProjectInfo(e.Request().Context(), ids[1], ids[0])
	if err != nil {
		l.Error("failed to retrieve project", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, info)
}

// FilterProjectsPath serves /users/:id/projects/filter/q=..&f=..&c=..
// The segment is taken still escaped; the filter parser does the decoding.
func (h *Handler) FilterProjectsPath(e echo.Context) error {
	_, rawQuery, _ := strings.Cut(e.Request().URL.EscapedPath(), filterPathPrefix)
	return h.filterProjects(e, rawQuery)
}

// FilterProjectsQuery serves /users/:id/projects/filter?q=..&f=..&c=..
func (h *Handler) FilterProjectsQuery(e echo.Context) error {
	return h.filterProjects(e, e.Request().URL.RawQuery)
}

func (h *Handler) filterProjects(e echo.Context, rawQuery string) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Debug("filtering projects", zap.String("user_id", ids[0]), zap.String("query", rawQuery))

	projects, err := h.project.FilterProjects(e.Request().Context(), rawQuery, ids[0])
	if err != nil {
		l.Warn("failed to filter projects", zap.String("query", rawQuery), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, projects)
}

func (h *Handler) RequestCollaboration(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("requesting collaboration", zap.String("user_id", ids[0]), zap.String("project_id", ids[1]))

	if err := h.project.RequestCollaboration(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to request collaboration", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "collaboration requested")
}

func (h *Handler) CancelCollaborationRequest(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	if err := h.project.CancelCollaborationRequest(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to cancel collaboration request", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "collaboration request cancelled")
}

func (h *Handler) HandleCollaboration(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		CollaboratorID string `json:"collaboratorId" validate:"required,uuid"`
		Decision       string `json:"decision" validate:"required,oneof=accept reject"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("handling collaboration",
		zap.String("project_id", ids[1]),
		zap.String("collaborator_id", req.CollaboratorID),
		zap.String("decision", req.Decision))

	decision := model.CollaborationDecision(req.Decision)
	if err := h.project.HandleCollaboration(e.Request().Context(), ids[0], req.CollaboratorID, ids[1], decision); err != nil {
		l.Error("failed to handle collaboration", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "collaboration "+req.Decision+"ed")
}

func (h *Handler) RemoveCollaborator(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		CollaboratorID string `json:"collaboratorId" validate:"required,uuid"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("removing collaborator", zap.String("project_id", ids[1]), zap.String("collaborator_id", req.CollaboratorID))

	if err := h.project.RemoveCollaborator(e.Request().Context(), ids[0], req.CollaboratorID, ids[1]); err != nil {
		l.Error("failed to remove collaborator", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "collaborator removed")
}

func (h *Handler) LeaveProject(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("leaving project", zap.String("user_id", ids[0]), zap.String("project_id", ids[1]))

	if err := h.project.LeaveProject(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to leave project", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "left project")
}

func (h *Handler) ListPendingCollaboratorProjects(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	projects, err := h.project.ListPendingCollaboratorProjects(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to list pending collaborators", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, projects)
}
