package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/seand52/socialDev/internal/auth"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

type UserService struct {
	tx db.Transactor

	users  repository.UserRepository
	saved  repository.SavedProjectRepository
	tokens TokenIssuer
}

func NewUserService(tx db.Transactor) *UserService {
	return &UserService{tx: tx}
}

func (u *UserService) Register(ctx context.Context, name, email, username, password string) (*model.User, *Error) {
	l := logger.FromContext(ctx)

	if isBlank(name, email, username, password) {
		return nil, NewServiceError(ErrorCodeInvalidBody, "name, email, username and password are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to register user")
	}

	user := &repository.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	err = u.users.Create(ctx, user)
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("username or email taken", zap.String("username", username))
		return nil, NewServiceError(ErrorCodeAlreadyExists, "username or email already exists")
	}
	if err != nil {
		l.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to register user")
	}

	l.Info("user registered", zap.String("user_id", user.ID))
	return toUser(user), nil
}

func (u *UserService) Authenticate(ctx context.Context, username, password string) (*model.Session, *Error) {
	l := logger.FromContext(ctx)

	user, err := u.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeAuthFailed, "invalid username or password")
	}
	if err != nil {
		l.Error("failed to get user", zap.String("username", username), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to authenticate")
	}

	if err = auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, NewServiceError(ErrorCodeAuthFailed, "invalid username or password")
	}

	token, err := u.tokens.GenerateToken(user.ID)
	if err != nil {
		l.Error("failed to sign token", zap.String("user_id", user.ID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to authenticate")
	}

	return &model.Session{ID: user.ID, Token: token}, nil
}

func (u *UserService) RetrieveUser(ctx context.Context, userID string) (*model.User, *Error) {
	user, serr := u.getUser(ctx, userID)
	if serr != nil {
		return nil, serr
	}
	return toUser(user), nil
}

func (u *UserService) RetrieveProfile(ctx context.Context, userID string) (*model.Profile, *Error) {
	user, serr := u.getUser(ctx, userID)
	if serr != nil {
		return nil, serr
	}
	return u.profile(ctx, user)
}

// UpdateUser changes account fields. The current password must match.
func (u *UserService) UpdateUser(ctx context.Context, userID string, update *model.UserUpdate) (*model.User, *Error) {
	l := logger.FromContext(ctx)

	for _, field := range []*string{update.Name, update.Username, update.NewPassword} {
		if field != nil && strings.TrimSpace(*field) == "" {
			return nil, NewServiceError(ErrorCodeInvalidBody, "updated fields cannot be blank")
		}
	}

	var res *model.User
	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		user, serr := u.getUser(txCtx, userID)
		if serr != nil {
			return serr
		}

		if err := auth.CheckPassword(user.PasswordHash, update.Password); err != nil {
			return NewServiceError(ErrorCodeAuthFailed, "password does not match")
		}

		patch := &repository.UserPatch{
			ID:       userID,
			Name:     update.Name,
			Username: update.Username,
		}
		if update.NewPassword != nil {
			hash, err := auth.HashPassword(*update.NewPassword)
			if err != nil {
				l.Error("failed to hash password", zap.Error(err))
				return NewServiceError(ErrorCodeUnspecified, "failed to update user")
			}
			patch.PasswordHash = &hash
		}

		patched, err := u.users.Patch(txCtx, patch)
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			return NewServiceError(ErrorCodeAlreadyExists, "username already exists")
		case errors.Is(err, repository.ErrNotFound):
			return NewServiceError(ErrorCodeNotFound, "user not found")
		case err != nil:
			l.Error("failed to patch user", zap.String("user_id", userID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to update user")
		}

		res = toUser(patched)
		return nil
	})

	if serr := txError(err); serr != nil {
		return nil, serr
	}
	return res, nil
}

// UpdateProfile keeps every field left nil.
func (u *UserService) UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*model.Profile, *Error) {
	l := logger.FromContext(ctx)

	patch := &repository.UserPatch{
		ID:            userID,
		Bio:           update.Bio,
		GithubProfile: update.GithubProfile,
		City:          update.City,
	}
	if update.Skills != nil {
		skills := update.Skills
		patch.Skills = &skills
	}

	user, err := u.users.Patch(ctx, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "user not found")
	}
	if err != nil {
		l.Error("failed to patch profile", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to update profile")
	}

	return u.profile(ctx, user)
}

func (u *UserService) getUser(ctx context.Context, userID string) (*repository.User, *Error) {
	user, err := u.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "user not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get user")
	}
	return user, nil
}

func (u *UserService) profile(ctx context.Context, user *repository.User) (*model.Profile, *Error) {
	saved, err := u.saved.List(ctx, user.ID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list saved projects", zap.String("user_id", user.ID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get profile")
	}

	return &model.Profile{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		JoinDate:      user.JoinDate,
		Bio:           user.Bio,
		GithubProfile: user.GithubProfile,
		Skills:        nonNil(user.Skills),
		SavedProjects: nonNil(saved),
		City:          user.City,
		ProfileImage:  user.ProfileImage,
	}, nil
}

func toUser(user *repository.User) *model.User {
	return &model.User{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Username:     user.Username,
		ProfileImage: user.ProfileImage,
	}
}

func isBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (u *UserService) WithUserRepo(r repository.UserRepository) *UserService {
	u.users = r
	return u
}

func (u *UserService) WithSavedProjectRepo(r repository.SavedProjectRepository) *UserService {
	u.saved = r
	return u
}

func (u *UserService) WithTokenIssuer(t TokenIssuer) *UserService {
	u.tokens = t
	return u
}
