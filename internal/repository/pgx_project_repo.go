package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/filter"
)

type Project struct {
	ID                   string    `db:"id"`
	Name                 string    `db:"name"`
	Description          string    `db:"description"`
	Skills               []string  `db:"skills"`
	Created              time.Time `db:"created"`
	OnGoing              bool      `db:"on_going"`
	MaxMembers           int       `db:"max_members"`
	CurrentMembers       int       `db:"current_members"`
	OwnerID              string    `db:"owner_id"`
	ProjectImage         string    `db:"project_image"`
	Location             string    `db:"location"`
	ProjectURL           string    `db:"project_url"`
	Collaborators        []string  `db:"collaborators"`
	PendingCollaborators []string  `db:"pending_collaborators"`
}

type psqlSelectMod = bob.Mod[*dialect.SelectQuery]

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	Get(ctx context.Context, projectID string) (*Project, error)
	Delete(ctx context.Context, projectID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*Project, error)
	ListByCollaborator(ctx context.Context, userID string) ([]*Project, error)
	ListByIDs(ctx context.Context, projectIDs []string) ([]*Project, error)
	ListWithPending(ctx context.Context, ownerID string) ([]*Project, error)
	Find(ctx context.Context, query *filter.Query) ([]*Project, error)
	AdjustMembers(ctx context.Context, projectID string, delta int) error
}

var projectColumns = []any{
	"projects.id",
	"projects.name",
	"projects.description",
	"projects.skills",
	"projects.created",
	"projects.on_going",
	"projects.max_members",
	"projects.current_members",
	"projects.owner_id",
	"projects.project_image",
	"projects.location",
	"projects.project_url",
	"ARRAY(SELECT c.user_id FROM project_collaborators c WHERE c.project_id = projects.id) AS collaborators",
	"ARRAY(SELECT pc.user_id FROM project_pending_collaborators pc WHERE pc.project_id = projects.id) AS pending_collaborators",
}

type pgxProjectRepository struct {
	pool *pgxpool.Pool
}

func NewPgxProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &pgxProjectRepository{pool: pool}
}

func scanProject(row pgx.Row) (*Project, error) {
	pr := &Project{}
	err := row.Scan(
		&pr.ID,
		&pr.Name,
		&pr.Description,
		&pr.Skills,
		&pr.Created,
		&pr.OnGoing,
		&pr.MaxMembers,
		&pr.CurrentMembers,
		&pr.OwnerID,
		&pr.ProjectImage,
		&pr.Location,
		&pr.ProjectURL,
		&pr.Collaborators,
		&pr.PendingCollaborators,
	)
	return pr, err
}

// Create inserts a project and fills in the store defaults.
func (p *pgxProjectRepository) Create(ctx context.Context, project *Project) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("projects", "id", "name", "description", "skills", "max_members", "owner_id", "location", "project_url"),
		im.Values(
			psql.Arg(project.ID),
			psql.Arg(project.Name),
			psql.Arg(project.Description),
			psql.Arg(project.Skills),
			psql.Arg(project.MaxMembers),
			psql.Arg(project.OwnerID),
			psql.Arg(project.Location),
			psql.Arg(project.ProjectURL),
		),
		im.Returning("created", "on_going", "current_members", "project_image"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(
		&project.Created,
		&project.OnGoing,
		&project.CurrentMembers,
		&project.ProjectImage,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrAlreadyExists
		case foreignKeyViolation: // owner does not exist
			return ErrNotFound
		}
	}
	if err != nil {
		return errors.Wrap(err, "insert project")
	}
	return nil
}

func (p *pgxProjectRepository) Get(ctx context.Context, projectID string) (*Project, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(projectColumns...),
		sm.From("projects"),
		sm.Where(psql.Quote("projects", "id").EQ(psql.Arg(projectID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	pr, err := scanProject(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "select project")
	}
	return pr, nil
}

// Delete removes a project. Meetings, memberships and saves cascade.
func (p *pgxProjectRepository) Delete(ctx context.Context, projectID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("projects"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(projectID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "delete project")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	return p.list(ctx,
		sm.Where(psql.Quote("projects", "owner_id").EQ(psql.Arg(ownerID))),
		sm.OrderBy("projects.created"),
	)
}

func (p *pgxProjectRepository) ListByCollaborator(ctx context.Context, userID string) ([]*Project, error) {
	return p.list(ctx,
		sm.Where(psql.Raw("EXISTS (SELECT 1 FROM project_collaborators c WHERE c.project_id = projects.id AND c.user_id = ?)", userID)),
		sm.OrderBy("projects.created"),
	)
}

// ListByIDs returns the existing projects among projectIDs, in no particular order.
func (p *pgxProjectRepository) ListByIDs(ctx context.Context, projectIDs []string) ([]*Project, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return p.list(ctx, sm.Where(psql.Raw("projects.id = ANY(?)", projectIDs)))
}

func (p *pgxProjectRepository) ListWithPending(ctx context.Context, ownerID string) ([]*Project, error) {
	return p.list(ctx,
		sm.Where(psql.Quote("projects", "owner_id").EQ(psql.Arg(ownerID))),
		sm.Where(psql.Raw("EXISTS (SELECT 1 FROM project_pending_collaborators pc WHERE pc.project_id = projects.id)")),
		sm.OrderBy("projects.created"),
	)
}

// Find translates a filter query into store conditions. Name and location
// are matched with the case-insensitive regex operator on an escaped
// literal, skills with array containment. Inactive predicates add nothing.
// Results come back in natural store order.
func (p *pgxProjectRepository) Find(ctx context.Context, query *filter.Query) ([]*Project, error) {
	mods := make([]psqlSelectMod, 0, 3)
	if query.Name != nil {
		mods = append(mods, sm.Where(psql.Raw("projects.name ~* ?", query.Name.Pattern())))
	}
	if len(query.Skills) > 0 {
		mods = append(mods, sm.Where(psql.Raw("projects.skills @> ?", query.Skills)))
	}
	if query.Location != nil {
		mods = append(mods, sm.Where(psql.Raw("projects.location ~* ?", query.Location.Pattern())))
	}
	return p.list(ctx, mods...)
}

func (p *pgxProjectRepository) list(ctx context.Context, mods ...psqlSelectMod) ([]*Project, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(projectColumns...),
		sm.From("projects"),
	)
	q.Apply(mods...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select projects")
	}
	defer rows.Close()

	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Project, error) {
		return scanProject(row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan projects")
	}
	return projects, nil
}

// AdjustMembers adds delta to the member counter atomically. A positive delta
// only applies while the counter stays within max_members; otherwise the row
// is left alone and ErrProjectFull is returned.
func (p *pgxProjectRepository) AdjustMembers(ctx context.Context, projectID string, delta int) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("projects"),
		um.SetCol("current_members").To(psql.Raw("current_members + ?", delta)),
		um.Where(psql.Quote("id").EQ(psql.Arg(projectID))),
	)
	if delta > 0 {
		q.Apply(um.Where(psql.Raw("current_members + ? <= max_members", delta)))
	}

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "update project members")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if delta <= 0 {
		return ErrNotFound
	}

	if _, err = p.Get(ctx, projectID); err != nil {
		return err
	}
	return ErrProjectFull
}
