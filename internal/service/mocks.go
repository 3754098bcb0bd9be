package service

import (
	"context"
	"time"

	"github.com/seand52/socialDev/internal/filter"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *repository.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Get(ctx context.Context, userID string) (*repository.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) GetMany(ctx context.Context, userIDs []string) ([]*repository.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.User), args.Error(1)
}

func (m *MockUserRepository) Patch(ctx context.Context, patch *repository.UserPatch) (*repository.User, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *repository.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Get(ctx context.Context, projectID string) (*repository.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Project), args.Error(1)
}

func (m *MockProjectRepository) Delete(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *MockProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*repository.Project, error) {
	return m.projects(m.Called(ctx, ownerID))
}

func (m *MockProjectRepository) ListByCollaborator(ctx context.Context, userID string) ([]*repository.Project, error) {
	return m.projects(m.Called(ctx, userID))
}

func (m *MockProjectRepository) ListByIDs(ctx context.Context, projectIDs []string) ([]*repository.Project, error) {
	return m.projects(m.Called(ctx, projectIDs))
}

func (m *MockProjectRepository) ListWithPending(ctx context.Context, ownerID string) ([]*repository.Project, error) {
	return m.projects(m.Called(ctx, ownerID))
}

func (m *MockProjectRepository) Find(ctx context.Context, query *filter.Query) ([]*repository.Project, error) {
	return m.projects(m.Called(ctx, query))
}

func (m *MockProjectRepository) AdjustMembers(ctx context.Context, projectID string, delta int) error {
	args := m.Called(ctx, projectID, delta)
	return args.Error(0)
}

func (m *MockProjectRepository) projects(args mock.Arguments) ([]*repository.Project, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Project), args.Error(1)
}

type MockCollaboratorRepository struct {
	mock.Mock
}

func (m *MockCollaboratorRepository) Add(ctx context.Context, membership repository.Membership, projectID, userID string) error {
	args := m.Called(ctx, membership, projectID, userID)
	return args.Error(0)
}

func (m *MockCollaboratorRepository) Remove(ctx context.Context, membership repository.Membership, projectID, userID string) error {
	args := m.Called(ctx, membership, projectID, userID)
	return args.Error(0)
}

func (m *MockCollaboratorRepository) IsMember(ctx context.Context, membership repository.Membership, projectID, userID string) (bool, error) {
	args := m.Called(ctx, membership, projectID, userID)
	return args.Bool(0), args.Error(1)
}

type MockSavedProjectRepository struct {
	mock.Mock
}

func (m *MockSavedProjectRepository) Save(ctx context.Context, userID, projectID string) error {
	args := m.Called(ctx, userID, projectID)
	return args.Error(0)
}

func (m *MockSavedProjectRepository) Remove(ctx context.Context, userID, projectID string) error {
	args := m.Called(ctx, userID, projectID)
	return args.Error(0)
}

func (m *MockSavedProjectRepository) List(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockMeetingRepository struct {
	mock.Mock
}

func (m *MockMeetingRepository) Create(ctx context.Context, meeting *repository.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}

func (m *MockMeetingRepository) Get(ctx context.Context, meetingID string) (*repository.Meeting, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) Delete(ctx context.Context, meetingID string) error {
	args := m.Called(ctx, meetingID)
	return args.Error(0)
}

func (m *MockMeetingRepository) ListByProject(ctx context.Context, projectID string) ([]*repository.Meeting, error) {
	return m.meetings(m.Called(ctx, projectID))
}

func (m *MockMeetingRepository) ListAttending(ctx context.Context, userID string, from time.Time) ([]*repository.Meeting, error) {
	return m.meetings(m.Called(ctx, userID, from))
}

func (m *MockMeetingRepository) Attend(ctx context.Context, meetingID, userID string) error {
	args := m.Called(ctx, meetingID, userID)
	return args.Error(0)
}

func (m *MockMeetingRepository) Unattend(ctx context.Context, meetingID, userID string) error {
	args := m.Called(ctx, meetingID, userID)
	return args.Error(0)
}

func (m *MockMeetingRepository) UnattendProject(ctx context.Context, projectID, userID string) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *MockMeetingRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMeetingRepository) meetings(args mock.Arguments) ([]*repository.Meeting, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Meeting), args.Error(1)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, conversation *repository.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) FindByMembers(ctx context.Context, userID, otherID string) (*repository.Conversation, error) {
	args := m.Called(ctx, userID, otherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByMember(ctx context.Context, userID string) ([]*repository.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Conversation), args.Error(1)
}

func (m *MockConversationRepository) AddMessage(ctx context.Context, message *repository.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockConversationRepository) Messages(ctx context.Context, conversationID string) ([]*repository.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Message), args.Error(1)
}

func (m *MockConversationRepository) SetStatus(ctx context.Context, messageIDs []string, status string) error {
	args := m.Called(ctx, messageIDs, status)
	return args.Error(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, receiverID string, message *model.Message) error {
	args := m.Called(ctx, receiverID, message)
	return args.Error(0)
}
