package service

import (
	"context"
	"errors"
	"testing"

	"github.com/seand52/socialDev/internal/auth"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func ptr[T any](v T) *T {
	return &v
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		email         string
		setupMocks    func(*MockUserRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "success",
			username: "john",
			email:    "john@example.com",
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Create", mock.Anything, mock.MatchedBy(func(u *repository.User) bool {
					return u.Username == "john" && u.ID != "" && u.PasswordHash != "" && u.PasswordHash != "secret"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*repository.User).ProfileImage = model.DefaultProfileImage
				}).Return(nil)
			},
		},
		{
			name:          "blank username",
			username:      "  ",
			email:         "john@example.com",
			setupMocks:    func(ur *MockUserRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name:     "username taken",
			username: "john",
			email:    "john@example.com",
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)
			},
			expectedError: true,
			errorCode:     ErrorCodeAlreadyExists,
		},
		{
			name:     "store failure",
			username: "john",
			email:    "john@example.com",
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUserRepo := new(MockUserRepository)
			tt.setupMocks(mockUserRepo)

			service := NewUserService(new(MockTransactor)).
				WithUserRepo(mockUserRepo)

			got, err := service.Register(context.Background(), "John", tt.email, tt.username, "secret")

			if tt.expectedError {
				require.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, err)
				assert.Equal(t, "john", got.Username)
				assert.Equal(t, model.DefaultProfileImage, got.ProfileImage)
				assert.NotEmpty(t, got.ID)
			}

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	hash := mustHash(t, "secret")

	tests := []struct {
		name          string
		password      string
		setupMocks    func(*MockUserRepository, *MockTokenIssuer)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "success",
			password: "secret",
			setupMocks: func(ur *MockUserRepository, ti *MockTokenIssuer) {
				ur.On("GetByUsername", mock.Anything, "john").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
				ti.On("GenerateToken", "user1").Return("token", nil)
			},
		},
		{
			name:     "unknown user",
			password: "secret",
			setupMocks: func(ur *MockUserRepository, ti *MockTokenIssuer) {
				ur.On("GetByUsername", mock.Anything, "john").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeAuthFailed,
		},
		{
			name:     "wrong password",
			password: "nope",
			setupMocks: func(ur *MockUserRepository, ti *MockTokenIssuer) {
				ur.On("GetByUsername", mock.Anything, "john").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeAuthFailed,
		},
		{
			name:     "signing failure",
			password: "secret",
			setupMocks: func(ur *MockUserRepository, ti *MockTokenIssuer) {
				ur.On("GetByUsername", mock.Anything, "john").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
				ti.On("GenerateToken", "user1").Return("", errors.New("boom"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUserRepo := new(MockUserRepository)
			mockTokens := new(MockTokenIssuer)
			tt.setupMocks(mockUserRepo, mockTokens)

			service := NewUserService(new(MockTransactor)).
				WithUserRepo(mockUserRepo).
				WithTokenIssuer(mockTokens)

			got, err := service.Authenticate(context.Background(), "john", tt.password)

			if tt.expectedError {
				require.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, err)
				assert.Equal(t, &model.Session{ID: "user1", Token: "token"}, got)
			}

			mockUserRepo.AssertExpectations(t)
			mockTokens.AssertExpectations(t)
		})
	}
}

func TestUserService_RetrieveProfile(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockSaved := new(MockSavedProjectRepository)

	mockUserRepo.On("Get", mock.Anything, "user1").Return(&repository.User{
		ID:            "user1",
		Name:          "John",
		Email:         "john@example.com",
		Username:      "john",
		PasswordHash:  "hash",
		Bio:           model.DefaultBio,
		GithubProfile: model.DefaultGithubProfile,
		City:          model.DefaultCity,
	}, nil)
	mockUserRepo.On("Get", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
	mockSaved.On("List", mock.Anything, "user1").Return([]string{"p2", "p1"}, nil)

	service := NewUserService(new(MockTransactor)).
		WithUserRepo(mockUserRepo).
		WithSavedProjectRepo(mockSaved)

	profile, err := service.RetrieveProfile(context.Background(), "user1")
	require.Nil(t, err)
	assert.Equal(t, []string{"p2", "p1"}, profile.SavedProjects)
	assert.Equal(t, []string{}, profile.Skills)
	assert.Equal(t, model.DefaultCity, profile.City)

	_, err = service.RetrieveProfile(context.Background(), "ghost")
	require.NotNil(t, err)
	assert.Equal(t, ErrorCodeNotFound, err.Code)
}

func TestUserService_UpdateUser(t *testing.T) {
	hash := mustHash(t, "secret")

	tests := []struct {
		name          string
		update        *model.UserUpdate
		setupMocks    func(*MockUserRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "rename",
			update: &model.UserUpdate{Username: ptr("johnny"), Password: "secret"},
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Get", mock.Anything, "user1").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
				ur.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.UserPatch) bool {
					return p.ID == "user1" && *p.Username == "johnny" && p.PasswordHash == nil
				})).Return(&repository.User{ID: "user1", Username: "johnny"}, nil)
			},
		},
		{
			name:   "new password is hashed",
			update: &model.UserUpdate{NewPassword: ptr("better"), Password: "secret"},
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Get", mock.Anything, "user1").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
				ur.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.UserPatch) bool {
					return p.PasswordHash != nil && auth.CheckPassword(*p.PasswordHash, "better") == nil
				})).Return(&repository.User{ID: "user1"}, nil)
			},
		},
		{
			name:   "wrong current password",
			update: &model.UserUpdate{Username: ptr("johnny"), Password: "nope"},
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Get", mock.Anything, "user1").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeAuthFailed,
		},
		{
			name:   "username taken",
			update: &model.UserUpdate{Username: ptr("taken"), Password: "secret"},
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Get", mock.Anything, "user1").Return(&repository.User{ID: "user1", PasswordHash: hash}, nil)
				ur.On("Patch", mock.Anything, mock.Anything).Return(nil, repository.ErrAlreadyExists)
			},
			expectedError: true,
			errorCode:     ErrorCodeAlreadyExists,
		},
		{
			name:          "blank name",
			update:        &model.UserUpdate{Name: ptr(""), Password: "secret"},
			setupMocks:    func(ur *MockUserRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name:   "unknown user",
			update: &model.UserUpdate{Name: ptr("x"), Password: "secret"},
			setupMocks: func(ur *MockUserRepository) {
				ur.On("Get", mock.Anything, "user1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUserRepo := new(MockUserRepository)
			tt.setupMocks(mockUserRepo)

			service := NewUserService(new(MockTransactor)).
				WithUserRepo(mockUserRepo)

			got, err := service.UpdateUser(context.Background(), "user1", tt.update)

			if tt.expectedError {
				require.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, err)
				assert.Equal(t, "user1", got.ID)
			}

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockSaved := new(MockSavedProjectRepository)

	mockUserRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.UserPatch) bool {
		return *p.City == "Madrid" && p.Bio == nil && p.Skills != nil && len(*p.Skills) == 2
	})).Return(&repository.User{ID: "user1", City: "Madrid", Skills: []string{"go", "sql"}}, nil)
	mockSaved.On("List", mock.Anything, "user1").Return(nil, nil)

	service := NewUserService(new(MockTransactor)).
		WithUserRepo(mockUserRepo).
		WithSavedProjectRepo(mockSaved)

	profile, err := service.UpdateProfile(context.Background(), "user1", &model.ProfileUpdate{
		City:   ptr("Madrid"),
		Skills: []string{"go", "sql"},
	})
	require.Nil(t, err)
	assert.Equal(t, "Madrid", profile.City)
	assert.Equal(t, []string{"go", "sql"}, profile.Skills)
	assert.Equal(t, []string{}, profile.SavedProjects)

	mockUserRepo.AssertExpectations(t)
}
