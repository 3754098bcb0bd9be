package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) AddMeeting(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		Date        time.Time `json:"date" validate:"required"`
		Location    string    `json:"location" validate:"required"`
		Description string    `json:"description" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("adding meeting", zap.String("project_id", ids[1]), zap.Time("date", req.Date))

	meeting, err := h.meeting.AddMeeting(e.Request().Context(), ids[0], ids[1], &model.NewMeeting{
		Date:        req.Date,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		l.Error("failed to add meeting", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusCreated, meeting)
}

func (h *Handler) ListProjectMeetings(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "projectid")
	if err != nil {
		return h.transportError(e, err)
	}

	meetings, err := h.meeting.ListProjectMeetings(e.Request().Context(), ids[1])
	if err != nil {
		l.Error("failed to list meetings", zap.String("project_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, meetings)
}

func (h *Handler) RetrieveMeetingInfo(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "meetingid")
	if err != nil {
		return h.transportError(e, err)
	}

	info, err := h.meeting.RetrieveMeetingInfo(e.Request().Context(), ids[1])
	if err != nil {
		l.Error("failed to retrieve meeting", zap.String("meeting_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, info)
}

func (h *Handler) DeleteMeeting(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "meetingid")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("deleting meeting", zap.String("meeting_id", ids[1]))

	if err := h.meeting.DeleteMeeting(e.Request().Context(), ids[1], ids[0]); err != nil {
		l.Error("failed to delete meeting", zap.String("meeting_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "meeting deleted")
}

func (h *Handler) AttendMeeting(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "meetingid")
	if err != nil {
		return h.transportError(e, err)
	}

	if err := h.meeting.AttendMeeting(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to attend meeting", zap.String("meeting_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "attending meeting")
}

func (h *Handler) UnattendMeeting(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "meetingid")
	if err != nil {
		return h.transportError(e, err)
	}

	if err := h.meeting.UnattendMeeting(e.Request().Context(), ids[0], ids[1]); err != nil {
		l.Error("failed to unattend meeting", zap.String("meeting_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respondMessage(e, http.StatusOK, "no longer attending meeting")
}

func (h *Handler) UpcomingMeetings(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	meetings, err := h.meeting.UpcomingMeetings(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to list upcoming meetings", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, meetings)
}
