package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

type MeetingService struct {
	tx  db.Transactor
	now func() time.Time

	users    repository.UserRepository
	projects repository.ProjectRepository
	meetings repository.MeetingRepository
}

func NewMeetingService(tx db.Transactor) *MeetingService {
	return &MeetingService{tx: tx, now: time.Now}
}

// AddMeeting schedules a meeting for an owned project. The owner attends it.
func (m *MeetingService) AddMeeting(ctx context.Context, ownerID, projectID string, meeting *model.NewMeeting) (*model.Meeting, *Error) {
	l := logger.FromContext(ctx)

	if isBlank(meeting.Location, meeting.Description) {
		return nil, NewServiceError(ErrorCodeInvalidBody, "location and description are required")
	}
	if meeting.Date.Before(m.now()) {
		return nil, NewServiceError(ErrorCodeInvalidBody, "meeting date is in the past")
	}

	var res *model.Meeting
	err := m.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		project, serr := m.getProject(txCtx, projectID)
		if serr != nil {
			return serr
		}
		if project.OwnerID != ownerID {
			return NewServiceError(ErrorCodeForbidden, "only the project owner can schedule meetings")
		}

		repoMeeting := &repository.Meeting{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			ProjectName: project.Name,
			Date:        meeting.Date,
			Location:    meeting.Location,
			Description: meeting.Description,
			Attending:   []string{ownerID},
		}
		if err := m.meetings.Create(txCtx, repoMeeting); err != nil {
			l.Error("failed to create meeting", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to create meeting")
		}

		res = toMeeting(repoMeeting)
		return nil
	})

	if serr := txError(err); serr != nil {
		return nil, serr
	}
	l.Info("meeting scheduled", zap.String("meeting_id", res.ID), zap.String("project_id", projectID))
	return res, nil
}

// DeleteMeeting is allowed to the owner of the meeting's project only.
func (m *MeetingService) DeleteMeeting(ctx context.Context, meetingID, userID string) *Error {
	err := m.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		meeting, serr := m.getMeeting(txCtx, meetingID)
		if serr != nil {
			return serr
		}
		project, serr := m.getProject(txCtx, meeting.ProjectID)
		if serr != nil {
			return serr
		}
		if project.OwnerID != userID {
			return NewServiceError(ErrorCodeForbidden, "only the project owner can delete meetings")
		}

		err := m.meetings.Delete(txCtx, meetingID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewServiceError(ErrorCodeNotFound, "meeting not found")
		}
		if err != nil {
			logger.FromContext(ctx).Error("failed to delete meeting", zap.String("meeting_id", meetingID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to delete meeting")
		}
		return nil
	})

	return txError(err)
}

func (m *MeetingService) ListProjectMeetings(ctx context.Context, projectID string) ([]*model.Meeting, *Error) {
	if _, serr := m.getProject(ctx, projectID); serr != nil {
		return nil, serr
	}

	meetings, err := m.meetings.ListByProject(ctx, projectID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list meetings", zap.String("project_id", projectID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list meetings")
	}

	res := make([]*model.Meeting, 0, len(meetings))
	for _, meeting := range meetings {
		res = append(res, toMeeting(meeting))
	}
	return res, nil
}

func (m *MeetingService) RetrieveMeetingInfo(ctx context.Context, meetingID string) (*model.MeetingInfo, *Error) {
	meeting, serr := m.getMeeting(ctx, meetingID)
	if serr != nil {
		return nil, serr
	}

	attendees, serr := loadUsers(ctx, m.users, meeting.Attending)
	if serr != nil {
		return nil, serr
	}

	return &model.MeetingInfo{
		ID:          meeting.ID,
		Project:     meeting.ProjectID,
		Date:        meeting.Date,
		Location:    meeting.Location,
		Description: meeting.Description,
		Attending:   pick(attendees, meeting.Attending),
	}, nil
}

// AttendMeeting is a no-op when the user already attends.
func (m *MeetingService) AttendMeeting(ctx context.Context, userID, meetingID string) *Error {
	err := m.meetings.Attend(ctx, meetingID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotFound, "user or meeting not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to attend meeting", zap.String("meeting_id", meetingID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to attend meeting")
	}
	return nil
}

func (m *MeetingService) UnattendMeeting(ctx context.Context, userID, meetingID string) *Error {
	if _, serr := m.getMeeting(ctx, meetingID); serr != nil {
		return serr
	}
	if err := m.meetings.Unattend(ctx, meetingID, userID); err != nil {
		logger.FromContext(ctx).Error("failed to unattend meeting", zap.String("meeting_id", meetingID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to unattend meeting")
	}
	return nil
}

// UpcomingMeetings lists the meetings the user attends from now on, earliest first.
func (m *MeetingService) UpcomingMeetings(ctx context.Context, userID string) ([]*model.UpcomingMeeting, *Error) {
	meetings, err := m.meetings.ListAttending(ctx, userID, m.now())
	if err != nil {
		logger.FromContext(ctx).Error("failed to list upcoming meetings", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list meetings")
	}

	res := make([]*model.UpcomingMeeting, 0, len(meetings))
	for _, meeting := range meetings {
		res = append(res, &model.UpcomingMeeting{
			ID:          meeting.ID,
			Project:     &model.ProjectRef{ID: meeting.ProjectID, Name: meeting.ProjectName},
			Date:        meeting.Date,
			Location:    meeting.Location,
			Description: meeting.Description,
			Attending:   nonNil(meeting.Attending),
		})
	}
	return res, nil
}

// PruneMeetings deletes meetings scheduled more than retention ago.
func (m *MeetingService) PruneMeetings(ctx context.Context, retention time.Duration) (int64, *Error) {
	l := logger.FromContext(ctx)

	before := m.now().Add(-retention)
	n, err := m.meetings.DeleteBefore(ctx, before)
	if err != nil {
		l.Error("failed to prune meetings", zap.Time("before", before), zap.Error(err))
		return 0, NewServiceError(ErrorCodeUnspecified, "failed to prune meetings")
	}

	l.Info("pruned meetings", zap.Time("before", before), zap.Int64("deleted", n))
	return n, nil
}

func (m *MeetingService) getMeeting(ctx context.Context, meetingID string) (*repository.Meeting, *Error) {
	meeting, err := m.meetings.Get(ctx, meetingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "meeting not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get meeting", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get meeting")
	}
	return meeting, nil
}

func (m *MeetingService) getProject(ctx context.Context, projectID string) (*repository.Project, *Error) {
	project, err := m.projects.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "project not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get project", zap.String("project_id", projectID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get project")
	}
	return project, nil
}

func toMeeting(meeting *repository.Meeting) *model.Meeting {
	return &model.Meeting{
		ID:          meeting.ID,
		Project:     meeting.ProjectID,
		Date:        meeting.Date,
		Location:    meeting.Location,
		Description: meeting.Description,
		Attending:   nonNil(meeting.Attending),
	}
}

func (m *MeetingService) WithUserRepo(r repository.UserRepository) *MeetingService {
	m.users = r
	return m
}

func (m *MeetingService) WithProjectRepo(r repository.ProjectRepository) *MeetingService {
	m.projects = r
	return m
}

func (m *MeetingService) WithMeetingRepo(r repository.MeetingRepository) *MeetingService {
	m.meetings = r
	return m
}

func (m *MeetingService) WithClock(now func() time.Time) *MeetingService {
	m.now = now
	return m
}
