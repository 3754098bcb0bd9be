package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/seand52/socialDev/internal/db"
)

// Membership selects which project member set an operation works on.
type Membership string

const (
	MembershipCollaborator Membership = "project_collaborators"
	MembershipPending      Membership = "project_pending_collaborators"
)

type CollaboratorRepository interface {
	Add(ctx context.Context, membership Membership, projectID, userID string) error
	Remove(ctx context.Context, membership Membership, projectID, userID string) error
	IsMember(ctx context.Context, membership Membership, projectID, userID string) (bool, error)
}

type pgxCollaboratorRepository struct {
	pool *pgxpool.Pool
}

func NewPgxCollaboratorRepository(pool *pgxpool.Pool) CollaboratorRepository {
	return &pgxCollaboratorRepository{pool: pool}
}

// Add is a no-op when the user already belongs to the set.
func (p *pgxCollaboratorRepository) Add(ctx context.Context, membership Membership, projectID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into(string(membership), "project_id", "user_id"),
		im.Values(psql.Arg(projectID), psql.Arg(userID)),
		im.OnConflict("project_id", "user_id").DoNothing(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "insert into %s", membership)
	}
	return nil
}

func (p *pgxCollaboratorRepository) Remove(ctx context.Context, membership Membership, projectID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From(string(membership)),
		dm.Where(
			psql.Quote("project_id").EQ(psql.Arg(projectID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		))

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrapf(err, "delete from %s", membership)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxCollaboratorRepository) IsMember(ctx context.Context, membership Membership, projectID, userID string) (bool, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("count(*)"),
		sm.From(string(membership)),
		sm.Where(
			psql.Quote("project_id").EQ(psql.Arg(projectID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return false, err
	}

	var n int
	if err = e.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "count %s", membership)
	}
	return n > 0, nil
}
