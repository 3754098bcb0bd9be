package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/seand52/socialDev/internal/db"
)

type Conversation struct {
	ID      string    `db:"id"`
	Created time.Time `db:"created"`
	Members []string  `db:"members"`
}

type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Text           string    `db:"text"`
	Sent           time.Time `db:"sent"`
	Status         string    `db:"status"`
}

type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByMembers(ctx context.Context, userID, otherID string) (*Conversation, error)
	ListByMember(ctx context.Context, userID string) ([]*Conversation, error)
	AddMessage(ctx context.Context, message *Message) error
	Messages(ctx context.Context, conversationID string) ([]*Message, error)
	SetStatus(ctx context.Context, messageIDs []string, status string) error
}

var conversationColumns = []any{
	"conversations.id",
	"conversations.created",
	"ARRAY(SELECT cm.user_id FROM conversation_members cm WHERE cm.conversation_id = conversations.id ORDER BY cm.user_id) AS members",
}

type pgxConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgxConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &pgxConversationRepository{pool: pool}
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	c := &Conversation{}
	err := row.Scan(&c.ID, &c.Created, &c.Members)
	return c, err
}

// Create inserts the conversation with its members. Call it inside a transaction.
func (p *pgxConversationRepository) Create(ctx context.Context, conversation *Conversation) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("conversations", "id", "created"),
		im.Values(psql.Arg(conversation.ID), psql.Arg(conversation.Created)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}
	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "insert conversation")
	}

	members := psql.Insert(im.Into("conversation_members", "conversation_id", "user_id"))
	for _, userID := range conversation.Members {
		members.Apply(im.Values(psql.Arg(conversation.ID), psql.Arg(userID)))
	}

	sql, args, err = members.Build(ctx)
	if err != nil {
		return err
	}
	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "insert conversation members")
	}
	return nil
}

func (p *pgxConversationRepository) FindByMembers(ctx context.Context, userID, otherID string) (*Conversation, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(conversationColumns...),
		sm.From("conversations"),
		sm.Where(psql.Raw("EXISTS (SELECT 1 FROM conversation_members cm WHERE cm.conversation_id = conversations.id AND cm.user_id = ?)", userID)),
		sm.Where(psql.Raw("EXISTS (SELECT 1 FROM conversation_members cm WHERE cm.conversation_id = conversations.id AND cm.user_id = ?)", otherID)),
		sm.OrderBy("conversations.created"),
		sm.Limit(1),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	c, err := scanConversation(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "select conversation")
	}
	return c, nil
}

func (p *pgxConversationRepository) ListByMember(ctx context.Context, userID string) ([]*Conversation, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(conversationColumns...),
		sm.From("conversations"),
		sm.Where(psql.Raw("EXISTS (SELECT 1 FROM conversation_members cm WHERE cm.conversation_id = conversations.id AND cm.user_id = ?)", userID)),
		sm.OrderBy("conversations.created"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select conversations")
	}
	defer rows.Close()

	conversations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Conversation, error) {
		return scanConversation(row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan conversations")
	}
	return conversations, nil
}

func (p *pgxConversationRepository) AddMessage(ctx context.Context, message *Message) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("messages", "id", "conversation_id", "sender_id", "text", "sent", "status"),
		im.Values(
			psql.Arg(message.ID),
			psql.Arg(message.ConversationID),
			psql.Arg(message.SenderID),
			psql.Arg(message.Text),
			psql.Arg(message.Sent),
			psql.Arg(message.Status),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}
	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

// Messages returns the conversation history, oldest first.
func (p *pgxConversationRepository) Messages(ctx context.Context, conversationID string) ([]*Message, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "conversation_id", "sender_id", "text", "sent", "status"),
		sm.From("messages"),
		sm.Where(psql.Quote("conversation_id").EQ(psql.Arg(conversationID))),
		sm.OrderBy("sent"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	defer rows.Close()

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Message, error) {
		m := &Message{}
		if err = row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Sent, &m.Status); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan messages")
	}
	return messages, nil
}

func (p *pgxConversationRepository) SetStatus(ctx context.Context, messageIDs []string, status string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("messages"),
		um.SetCol("status").ToArg(status),
		um.Where(psql.Raw("id = ANY(?)", messageIDs)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}
	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "update message status")
	}
	return nil
}
