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
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/seand52/socialDev/internal/db"
)

type User struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Username      string    `db:"username"`
	PasswordHash  string    `db:"password_hash"`
	JoinDate      time.Time `db:"join_date"`
	Bio           string    `db:"bio"`
	GithubProfile string    `db:"github_profile"`
	Skills        []string  `db:"skills"`
	City          string    `db:"city"`
	ProfileImage  string    `db:"profile_image"`
}

// UserPatch updates only the non-nil fields.
type UserPatch struct {
	ID            string    `db:"id"`
	Name          *string   `db:"name"`
	Username      *string   `db:"username"`
	PasswordHash  *string   `db:"password_hash"`
	Bio           *string   `db:"bio"`
	GithubProfile *string   `db:"github_profile"`
	City          *string   `db:"city"`
	Skills        *[]string `db:"skills"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetMany(ctx context.Context, userIDs []string) ([]*User, error)
	Patch(ctx context.Context, patch *UserPatch) (*User, error)
}

var userColumns = []any{
	"id", "name", "email", "username", "password_hash", "join_date",
	"bio", "github_profile", "skills", "city", "profile_image",
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgxUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgxUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.JoinDate,
		&u.Bio,
		&u.GithubProfile,
		&u.Skills,
		&u.City,
		&u.ProfileImage,
	)
	return u, err
}

func (p *pgxUserRepository) Create(ctx context.Context, user *User) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("users", "id", "name", "email", "username", "password_hash"),
		im.Values(psql.Arg(user.ID), psql.Arg(user.Name), psql.Arg(user.Email), psql.Arg(user.Username), psql.Arg(user.PasswordHash)),
		im.Returning(userColumns...),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	created, err := scanUser(e.QueryRow(ctx, sql, args...))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	*user = *created
	return nil
}

func (p *pgxUserRepository) Get(ctx context.Context, userID string) (*User, error) {
	return p.getBy(ctx, "id", userID)
}

func (p *pgxUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return p.getBy(ctx, "username", username)
}

func (p *pgxUserRepository) getBy(ctx context.Context, column, value string) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(userColumns...),
		sm.From("users"),
		sm.Where(psql.Quote(column).EQ(psql.Arg(value))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "select user by %s", column)
	}
	return u, nil
}

// GetMany returns the users that exist among userIDs, in no particular order.
func (p *pgxUserRepository) GetMany(ctx context.Context, userIDs []string) ([]*User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(userColumns...),
		sm.From("users"),
		sm.Where(psql.Raw("id = ANY(?)", userIDs)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*User, error) {
		return scanUser(row)
	})
}

func (p *pgxUserRepository) Patch(ctx context.Context, patch *UserPatch) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 7)
	if patch.Name != nil {
		sets = append(sets, um.SetCol("name").ToArg(*patch.Name))
	}
	if patch.Username != nil {
		sets = append(sets, um.SetCol("username").ToArg(*patch.Username))
	}
	if patch.PasswordHash != nil {
		sets = append(sets, um.SetCol("password_hash").ToArg(*patch.PasswordHash))
	}
	if patch.Bio != nil {
		sets = append(sets, um.SetCol("bio").ToArg(*patch.Bio))
	}
	if patch.GithubProfile != nil {
		sets = append(sets, um.SetCol("github_profile").ToArg(*patch.GithubProfile))
	}
	if patch.City != nil {
		sets = append(sets, um.SetCol("city").ToArg(*patch.City))
	}
	if patch.Skills != nil {
		sets = append(sets, um.SetCol("skills").ToArg(*patch.Skills))
	}

	if len(sets) == 0 {
		return p.Get(ctx, patch.ID)
	}

	q := psql.Update(
		um.Table("users"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning(userColumns...),
	)
	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(e.QueryRow(ctx, sql, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return nil, ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "update user")
	}
	return u, nil
}
