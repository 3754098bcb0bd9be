package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/seand52/socialDev/internal/db"
)

type SavedProjectRepository interface {
	Save(ctx context.Context, userID, projectID string) error
	Remove(ctx context.Context, userID, projectID string) error
	List(ctx context.Context, userID string) ([]string, error)
}

type pgxSavedProjectRepository struct {
	pool *pgxpool.Pool
}

func NewPgxSavedProjectRepository(pool *pgxpool.Pool) SavedProjectRepository {
	return &pgxSavedProjectRepository{pool: pool}
}

func (p *pgxSavedProjectRepository) Save(ctx context.Context, userID, projectID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("saved_projects", "user_id", "project_id"),
		im.Values(psql.Arg(userID), psql.Arg(projectID)),
		im.OnConflict("user_id", "project_id").DoNothing(),
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
		return errors.Wrap(err, "insert saved project")
	}
	return nil
}

// Remove does not fail when the project was not saved.
func (p *pgxSavedProjectRepository) Remove(ctx context.Context, userID, projectID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("saved_projects"),
		dm.Where(
			psql.Quote("user_id").EQ(psql.Arg(userID)).
				And(psql.Quote("project_id").EQ(psql.Arg(projectID))),
		))

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "delete saved project")
	}
	return nil
}

// List returns project ids in the order they were saved.
func (p *pgxSavedProjectRepository) List(ctx context.Context, userID string) ([]string, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("project_id"),
		sm.From("saved_projects"),
		sm.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
		sm.OrderBy("saved_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select saved projects")
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan saved projects")
	}
	return ids, nil
}
