package repository

import (
	"context"
	"time"

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

type Meeting struct {
	ID          string    `db:"id"`
	ProjectID   string    `db:"project_id"`
	ProjectName string    `db:"project_name"`
	Date        time.Time `db:"scheduled_at"`
	Location    string    `db:"location"`
	Description string    `db:"description"`
	Attending   []string  `db:"attending"`
}

type MeetingRepository interface {
	Create(ctx context.Context, meeting *Meeting) error
	Get(ctx context.Context, meetingID string) (*Meeting, error)
	Delete(ctx context.Context, meetingID string) error
	ListByProject(ctx context.Context, projectID string) ([]*Meeting, error)
	ListAttending(ctx context.Context, userID string, from time.Time) ([]*Meeting, error)
	Attend(ctx context.Context, meetingID, userID string) error
	Unattend(ctx context.Context, meetingID, userID string) error
	UnattendProject(ctx context.Context, projectID, userID string) error
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

var meetingColumns = []any{
	"meetings.id",
	"meetings.project_id",
	"projects.name AS project_name",
	"meetings.scheduled_at",
	"meetings.location",
	"meetings.description",
	"ARRAY(SELECT a.user_id FROM meeting_attendees a WHERE a.meeting_id = meetings.id) AS attending",
}

type pgxMeetingRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMeetingRepository(pool *pgxpool.Pool) MeetingRepository {
	return &pgxMeetingRepository{pool: pool}
}

func scanMeeting(row pgx.Row) (*Meeting, error) {
	m := &Meeting{}
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.ProjectName,
		&m.Date,
		&m.Location,
		&m.Description,
		&m.Attending,
	)
	return m, err
}

// Create inserts the meeting and its initial attendees.
func (p *pgxMeetingRepository) Create(ctx context.Context, meeting *Meeting) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("meetings", "id", "project_id", "scheduled_at", "location", "description"),
		im.Values(
			psql.Arg(meeting.ID),
			psql.Arg(meeting.ProjectID),
			psql.Arg(meeting.Date),
			psql.Arg(meeting.Location),
			psql.Arg(meeting.Description),
		),
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
		return errors.Wrap(err, "insert meeting")
	}

	for _, userID := range meeting.Attending {
		if err = p.Attend(ctx, meeting.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (p *pgxMeetingRepository) Get(ctx context.Context, meetingID string) (*Meeting, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(meetingColumns...),
		sm.From("meetings"),
		sm.InnerJoin("projects").On(psql.Quote("projects", "id").EQ(psql.Quote("meetings", "project_id"))),
		sm.Where(psql.Quote("meetings", "id").EQ(psql.Arg(meetingID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m, err := scanMeeting(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "select meeting")
	}
	return m, nil
}

func (p *pgxMeetingRepository) Delete(ctx context.Context, meetingID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("meetings"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(meetingID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "delete meeting")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxMeetingRepository) ListByProject(ctx context.Context, projectID string) ([]*Meeting, error) {
	return p.list(ctx,
		sm.Where(psql.Quote("meetings", "project_id").EQ(psql.Arg(projectID))),
		sm.OrderBy("meetings.scheduled_at"),
	)
}

// ListAttending returns the meetings userID attends scheduled at or after from,
// earliest first.
func (p *pgxMeetingRepository) ListAttending(ctx context.Context, userID string, from time.Time) ([]*Meeting, error) {
	return p.list(ctx,
		sm.Where(psql.Raw("EXISTS (SELECT 1 FROM meeting_attendees a WHERE a.meeting_id = meetings.id AND a.user_id = ?)", userID)),
		sm.Where(psql.Quote("meetings", "scheduled_at").GTE(psql.Arg(from))),
		sm.OrderBy("meetings.scheduled_at"),
	)
}

func (p *pgxMeetingRepository) list(ctx context.Context, mods ...psqlSelectMod) ([]*Meeting, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(meetingColumns...),
		sm.From("meetings"),
		sm.InnerJoin("projects").On(psql.Quote("projects", "id").EQ(psql.Quote("meetings", "project_id"))),
	)
	q.Apply(mods...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select meetings")
	}
	defer rows.Close()

	meetings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Meeting, error) {
		return scanMeeting(row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan meetings")
	}
	return meetings, nil
}

// Attend is a no-op for a user already attending.
func (p *pgxMeetingRepository) Attend(ctx context.Context, meetingID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("meeting_attendees", "meeting_id", "user_id"),
		im.Values(psql.Arg(meetingID), psql.Arg(userID)),
		im.OnConflict("meeting_id", "user_id").DoNothing(),
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
		return errors.Wrap(err, "insert attendee")
	}
	return nil
}

func (p *pgxMeetingRepository) Unattend(ctx context.Context, meetingID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("meeting_attendees"),
		dm.Where(
			psql.Quote("meeting_id").EQ(psql.Arg(meetingID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		))

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "delete attendee")
	}
	return nil
}

// UnattendProject removes userID from every meeting of the project.
func (p *pgxMeetingRepository) UnattendProject(ctx context.Context, projectID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("meeting_attendees"),
		dm.Where(
			psql.Quote("user_id").EQ(psql.Arg(userID)).
				And(psql.Raw("meeting_id IN (SELECT m.id FROM meetings m WHERE m.project_id = ?)", projectID)),
		))

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "delete project attendee")
	}
	return nil
}

// DeleteBefore removes meetings scheduled before the given instant and
// reports how many were deleted.
func (p *pgxMeetingRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("meetings"),
		dm.Where(psql.Quote("scheduled_at").LT(psql.Arg(before))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "delete past meetings")
	}
	return tag.RowsAffected(), nil
}
