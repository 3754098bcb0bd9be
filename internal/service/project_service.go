package service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/filter"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

type ProjectService struct {
	tx db.Transactor

	users    repository.UserRepository
	projects repository.ProjectRepository
	members  repository.CollaboratorRepository
	saved    repository.SavedProjectRepository
	meetings repository.MeetingRepository
}

func NewProjectService(tx db.Transactor) *ProjectService {
	return &ProjectService{tx: tx}
}

func (p *ProjectService) AddProject(ctx context.Context, ownerID string, project *model.NewProject) (*model.Project, *Error) {
	l := logger.FromContext(ctx)

	if isBlank(project.Name, project.Description) {
		return nil, NewServiceError(ErrorCodeInvalidBody, "name and description are required")
	}
	if project.MaxMembers <= 0 {
		return nil, NewServiceError(ErrorCodeInvalidBody, "maxMembers must be positive")
	}

	repoProject := &repository.Project{
		ID:          uuid.NewString(),
		Name:        project.Name,
		Description: project.Description,
		Skills:      nonNil(project.Skills),
		MaxMembers:  project.MaxMembers,
		OwnerID:     ownerID,
		Location:    project.Location,
		ProjectURL:  project.ProjectURL,
	}
	err := p.projects.Create(ctx, repoProject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "owner not found")
	}
	if err != nil {
		l.Error("failed to create project", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to create project")
	}

	l.Info("project created", zap.String("project_id", repoProject.ID), zap.String("owner_id", ownerID))
	return toProject(repoProject), nil
}

// DeleteProject removes an owned project together with its meetings.
func (p *ProjectService) DeleteProject(ctx context.Context, userID, projectID string) *Error {
	l := logger.FromContext(ctx)

	err := p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, serr := p.ownedProject(txCtx, userID, projectID); serr != nil {
			return serr
		}
		if err := p.projects.Delete(txCtx, projectID); err != nil {
			l.Error("failed to delete project", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to delete project")
		}
		return nil
	})

	return txError(err)
}

func (p *ProjectService) ListOwnProjects(ctx context.Context, userID string) ([]*model.Project, *Error) {
	projects, err := p.projects.ListByOwner(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list projects", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list projects")
	}
	return toProjects(projects), nil
}

func (p *ProjectService) ListCollaboratingProjects(ctx context.Context, userID string) ([]*model.Project, *Error) {
	projects, err := p.projects.ListByCollaborator(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list projects", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list projects")
	}
	return toProjects(projects), nil
}

func (p *ProjectService) SaveProject(ctx context.Context, userID, projectID string) *Error {
	err := p.saved.Save(ctx, userID, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotFound, "user or project not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to save project", zap.String("project_id", projectID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to save project")
	}
	return nil
}

func (p *ProjectService) RemoveSavedProject(ctx context.Context, userID, projectID string) *Error {
	if err := p.saved.Remove(ctx, userID, projectID); err != nil {
		logger.FromContext(ctx).Error("failed to remove saved project", zap.String("project_id", projectID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to remove saved project")
	}
	return nil
}

// ListSavedProjects returns saved projects in the order they were saved.
func (p *ProjectService) ListSavedProjects(ctx context.Context, userID string) ([]*model.Project, *Error) {
	l := logger.FromContext(ctx)

	ids, err := p.saved.List(ctx, userID)
	if err != nil {
		l.Error("failed to list saved projects", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list saved projects")
	}

	projects, err := p.projects.ListByIDs(ctx, ids)
	if err != nil {
		l.Error("failed to load saved projects", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list saved projects")
	}

	byID := make(map[string]*repository.Project, len(projects))
	for _, pr := range projects {
		byID[pr.ID] = pr
	}

	res := make([]*model.Project, 0, len(ids))
	for _, id := range ids {
		if pr, ok := byID[id]; ok {
			res = append(res, toProject(pr))
		}
	}
	return res, nil
}

func (p *ProjectService) RetrieveProjectInfo(ctx context.Context, projectID, viewerID string) (*model.ProjectInfo, *Error) {
	l := logger.FromContext(ctx)

	project, serr := p.getProject(ctx, projectID)
	if serr != nil {
		return nil, serr
	}
	viewer, serr := p.getUser(ctx, viewerID)
	if serr != nil {
		return nil, serr
	}

	viewerSaved, err := p.saved.List(ctx, viewerID)
	if err != nil {
		l.Error("failed to list saved projects", zap.String("user_id", viewerID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get project")
	}

	ids := make([]string, 0, 1+len(project.Collaborators)+len(project.PendingCollaborators))
	ids = append(ids, project.OwnerID)
	ids = append(ids, project.Collaborators...)
	ids = append(ids, project.PendingCollaborators...)
	summaries, serr := p.summaries(ctx, ids)
	if serr != nil {
		return nil, serr
	}

	var owner *model.UserSummary
	if s, ok := summaries[project.OwnerID]; ok {
		owner = &model.UserSummary{ID: s.ID, Name: s.Name, Email: s.Email, ProfileImage: s.ProfileImage}
	}

	return &model.ProjectInfo{
		ID:                   project.ID,
		Name:                 project.Name,
		Description:          project.Description,
		Skills:               nonNil(project.Skills),
		Created:              project.Created,
		OnGoing:              project.OnGoing,
		MaxMembers:           project.MaxMembers,
		CurrentMembers:       project.CurrentMembers,
		Owner:                owner,
		Collaborators:        pick(summaries, project.Collaborators),
		PendingCollaborators: pick(summaries, project.PendingCollaborators),
		ProjectImage:         project.ProjectImage,
		Location:             project.Location,
		ProjectURL:           project.ProjectURL,
		ViewerSkills:         nonNil(viewer.Skills),
		ViewerSavedProjects:  nonNil(viewerSaved),
	}, nil
}

// FilterProjects parses a raw filter query and returns every matching
// project annotated with the viewer's saved projects. A malformed query is
// rejected before the store is touched. Result order is the store's natural
// order and is not guaranteed to be stable.
func (p *ProjectService) FilterProjects(ctx context.Context, rawQuery, viewerID string) ([]*model.ProjectView, *Error) {
	l := logger.FromContext(ctx)

	query, err := filter.Parse(rawQuery)
	if err != nil {
		l.Debug("malformed filter query", zap.String("query", rawQuery), zap.Error(err))
		return nil, NewServiceError(ErrorCodeInvalidQuery, err.Error())
	}

	if _, serr := p.getUser(ctx, viewerID); serr != nil {
		return nil, serr
	}

	viewerSaved, err := p.saved.List(ctx, viewerID)
	if err != nil {
		l.Error("failed to list saved projects", zap.String("user_id", viewerID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to filter projects")
	}
	viewerSaved = nonNil(viewerSaved)

	projects, err := p.projects.Find(ctx, query)
	if err != nil {
		l.Error("failed to find projects", zap.String("query", rawQuery), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to filter projects")
	}

	l.Debug("filtered projects", zap.String("query", rawQuery), zap.Int("matches", len(projects)))

	res := make([]*model.ProjectView, 0, len(projects))
	for _, pr := range projects {
		res = append(res, &model.ProjectView{
			ID:                  pr.ID,
			Name:                pr.Name,
			Description:         pr.Description,
			ProjectImage:        pr.ProjectImage,
			Skills:              nonNil(pr.Skills),
			Location:            pr.Location,
			Collaborators:       nonNil(pr.Collaborators),
			Owner:               pr.OwnerID,
			ViewerSavedProjects: viewerSaved,
		})
	}
	return res, nil
}

// RequestCollaboration adds the user to the pending collaborators. Repeating
// a request is a no-op.
func (p *ProjectService) RequestCollaboration(ctx context.Context, userID, projectID string) *Error {
	l := logger.FromContext(ctx)

	err := p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		project, serr := p.getProject(txCtx, projectID)
		if serr != nil {
			return serr
		}

		if project.CurrentMembers >= project.MaxMembers {
			return NewServiceError(ErrorCodeProjectFull, "project has reached its member limit")
		}
		if project.OwnerID == userID || slices.Contains(project.Collaborators, userID) {
			return NewServiceError(ErrorCodeAlreadyExists, "user is already a member of the project")
		}

		err := p.members.Add(txCtx, repository.MembershipPending, projectID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewServiceError(ErrorCodeNotFound, "user not found")
		}
		if err != nil {
			l.Error("failed to add pending collaborator", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to request collaboration")
		}
		return nil
	})

	return txError(err)
}

func (p *ProjectService) CancelCollaborationRequest(ctx context.Context, userID, projectID string) *Error {
	err := p.members.Remove(ctx, repository.MembershipPending, projectID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotPending, "no pending request for this project")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to remove pending collaborator", zap.String("project_id", projectID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to cancel collaboration request")
	}
	return nil
}

// HandleCollaboration lets the owner accept or reject a pending collaborator.
// Accepting moves the user to the collaborators, bumps the member counter and
// drops the project from the user's saved projects.
func (p *ProjectService) HandleCollaboration(
	ctx context.Context,
	ownerID, collaboratorID, projectID string,
	decision model.CollaborationDecision,
) *Error {
	l := logger.FromContext(ctx)

	if decision != model.DecisionAccept && decision != model.DecisionReject {
		return NewServiceError(ErrorCodeInvalidBody, "decision must be accept or reject")
	}

	err := p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		project, serr := p.ownedProject(txCtx, ownerID, projectID)
		if serr != nil {
			return serr
		}
		if !slices.Contains(project.PendingCollaborators, collaboratorID) {
			return NewServiceError(ErrorCodeNotPending, "user has not requested to collaborate")
		}
		if decision == model.DecisionAccept && project.CurrentMembers >= project.MaxMembers {
			return NewServiceError(ErrorCodeProjectFull, "project has reached its member limit")
		}

		if err := p.members.Remove(txCtx, repository.MembershipPending, projectID, collaboratorID); err != nil {
			l.Error("failed to remove pending collaborator", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to handle collaboration")
		}
		if decision == model.DecisionReject {
			l.Info("collaboration rejected", zap.String("project_id", projectID), zap.String("user_id", collaboratorID))
			return nil
		}

		if err := p.members.Add(txCtx, repository.MembershipCollaborator, projectID, collaboratorID); err != nil {
			l.Error("failed to add collaborator", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to handle collaboration")
		}
		err := p.projects.AdjustMembers(txCtx, projectID, 1)
		if errors.Is(err, repository.ErrProjectFull) {
			l.Warn("project filled up before accepting", zap.String("project_id", projectID))
			return NewServiceError(ErrorCodeProjectFull, "project has reached its member limit")
		}
		if err != nil {
			l.Error("failed to update member count", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to handle collaboration")
		}
		if err := p.saved.Remove(txCtx, collaboratorID, projectID); err != nil {
			l.Error("failed to remove saved project", zap.String("project_id", projectID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to handle collaboration")
		}

		l.Info("collaboration accepted", zap.String("project_id", projectID), zap.String("user_id", collaboratorID))
		return nil
	})

	return txError(err)
}

func (p *ProjectService) RemoveCollaborator(ctx context.Context, ownerID, collaboratorID, projectID string) *Error {
	err := p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, serr := p.ownedProject(txCtx, ownerID, projectID); serr != nil {
			return serr
		}
		if serr := p.dropCollaborator(txCtx, collaboratorID, projectID); serr != nil {
			return serr
		}
		return nil
	})

	return txError(err)
}

// LeaveProject removes the user from the collaborators and from every
// meeting of the project.
func (p *ProjectService) LeaveProject(ctx context.Context, userID, projectID string) *Error {
	err := p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, serr := p.getProject(txCtx, projectID); serr != nil {
			return serr
		}
		if serr := p.dropCollaborator(txCtx, userID, projectID); serr != nil {
			return serr
		}
		return nil
	})

	return txError(err)
}

func (p *ProjectService) dropCollaborator(ctx context.Context, userID, projectID string) *Error {
	l := logger.FromContext(ctx)

	err := p.members.Remove(ctx, repository.MembershipCollaborator, projectID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotCollaborator, "user is not a collaborator of the project")
	}
	if err != nil {
		l.Error("failed to remove collaborator", zap.String("project_id", projectID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to remove collaborator")
	}
	if err = p.projects.AdjustMembers(ctx, projectID, -1); err != nil {
		l.Error("failed to update member count", zap.String("project_id", projectID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to remove collaborator")
	}
	if err = p.meetings.UnattendProject(ctx, projectID, userID); err != nil {
		l.Error("failed to remove attendee", zap.String("project_id", projectID), zap.Error(err))
		return NewServiceError(ErrorCodeUnspecified, "failed to remove collaborator")
	}
	return nil
}

func (p *ProjectService) ListPendingCollaboratorProjects(ctx context.Context, ownerID string) ([]*model.PendingProject, *Error) {
	projects, err := p.projects.ListWithPending(ctx, ownerID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list pending projects", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list pending collaborators")
	}

	var ids []string
	for _, pr := range projects {
		ids = append(ids, pr.PendingCollaborators...)
	}
	summaries, serr := p.summaries(ctx, ids)
	if serr != nil {
		return nil, serr
	}

	res := make([]*model.PendingProject, 0, len(projects))
	for _, pr := range projects {
		res = append(res, &model.PendingProject{
			ID:                   pr.ID,
			Name:                 pr.Name,
			Description:          pr.Description,
			ProjectImage:         pr.ProjectImage,
			Skills:               nonNil(pr.Skills),
			Location:             pr.Location,
			PendingCollaborators: pick(summaries, pr.PendingCollaborators),
		})
	}
	return res, nil
}

func (p *ProjectService) getProject(ctx context.Context, projectID string) (*repository.Project, *Error) {
	project, err := p.projects.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "project not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get project", zap.String("project_id", projectID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get project")
	}
	return project, nil
}

func (p *ProjectService) ownedProject(ctx context.Context, userID, projectID string) (*repository.Project, *Error) {
	project, serr := p.getProject(ctx, projectID)
	if serr != nil {
		return nil, serr
	}
	if project.OwnerID != userID {
		return nil, NewServiceError(ErrorCodeForbidden, "only the project owner can do this")
	}
	return project, nil
}

func (p *ProjectService) getUser(ctx context.Context, userID string) (*repository.User, *Error) {
	user, err := p.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(ErrorCodeNotFound, "user not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to get user")
	}
	return user, nil
}

func (p *ProjectService) summaries(ctx context.Context, userIDs []string) (map[string]*repository.User, *Error) {
	return loadUsers(ctx, p.users, userIDs)
}

func loadUsers(ctx context.Context, repo repository.UserRepository, userIDs []string) (map[string]*repository.User, *Error) {
	res := make(map[string]*repository.User, len(userIDs))
	if len(userIDs) == 0 {
		return res, nil
	}

	users, err := repo.GetMany(ctx, userIDs)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load users", zap.Int("count", len(userIDs)), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to load users")
	}
	for _, u := range users {
		res[u.ID] = u
	}
	return res, nil
}

// pick returns id, name and image of the listed users in list order,
// skipping unknown ids.
func pick(users map[string]*repository.User, ids []string) []*model.UserSummary {
	res := make([]*model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			res = append(res, &model.UserSummary{ID: u.ID, Name: u.Name, ProfileImage: u.ProfileImage})
		}
	}
	return res
}

func toProject(pr *repository.Project) *model.Project {
	return &model.Project{
		ID:                   pr.ID,
		Name:                 pr.Name,
		Description:          pr.Description,
		Skills:               nonNil(pr.Skills),
		Created:              pr.Created,
		OnGoing:              pr.OnGoing,
		MaxMembers:           pr.MaxMembers,
		CurrentMembers:       pr.CurrentMembers,
		Owner:                pr.OwnerID,
		Collaborators:        nonNil(pr.Collaborators),
		PendingCollaborators: nonNil(pr.PendingCollaborators),
		ProjectImage:         pr.ProjectImage,
		Location:             pr.Location,
		ProjectURL:           pr.ProjectURL,
	}
}

func toProjects(projects []*repository.Project) []*model.Project {
	res := make([]*model.Project, 0, len(projects))
	for _, pr := range projects {
		res = append(res, toProject(pr))
	}
	return res
}

func (p *ProjectService) WithUserRepo(r repository.UserRepository) *ProjectService {
	p.users = r
	return p
}

func (p *ProjectService) WithProjectRepo(r repository.ProjectRepository) *ProjectService {
	p.projects = r
	return p
}

func (p *ProjectService) WithCollaboratorRepo(r repository.CollaboratorRepository) *ProjectService {
	p.members = r
	return p
}

func (p *ProjectService) WithSavedProjectRepo(r repository.SavedProjectRepository) *ProjectService {
	p.saved = r
	return p
}

func (p *ProjectService) WithMeetingRepo(r repository.MeetingRepository) *ProjectService {
	p.meetings = r
	return p
}
