package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

// MessagePublisher notifies a receiver about a new message.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, receiverID string, message *model.Message) error
}

type MessageService struct {
	tx  db.Transactor
	now func() time.Time

	users         repository.UserRepository
	conversations repository.ConversationRepository
	publisher     MessagePublisher
}

func NewMessageService(tx db.Transactor) *MessageService {
	return &MessageService{tx: tx, now: time.Now}
}

// SendMessage appends a pending message to the conversation of the pair,
// creating the conversation on first contact. Publishing the notification
// is best effort.
func (m *MessageService) SendMessage(ctx context.Context, senderID, receiverID, text string) (*model.Message, *Error) {
	l := logger.FromContext(ctx)

	if isBlank(text) {
		return nil, NewServiceError(ErrorCodeInvalidBody, "message text is required")
	}
	if senderID == receiverID {
		return nil, NewServiceError(ErrorCodeInvalidBody, "cannot send a message to yourself")
	}

	var res *model.Message
	err := m.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if serr := m.requireUsers(txCtx, senderID, receiverID); serr != nil {
			return serr
		}

		conversation, err := m.conversations.FindByMembers(txCtx, senderID, receiverID)
		if errors.Is(err, repository.ErrNotFound) {
			conversation = &repository.Conversation{
				ID:      uuid.NewString(),
				Created: m.now(),
				Members: []string{senderID, receiverID},
			}
			err = m.conversations.Create(txCtx, conversation)
		}
		if err != nil {
			l.Error("failed to resolve conversation", zap.String("sender_id", senderID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to send message")
		}

		message := &repository.Message{
			ID:             uuid.NewString(),
			ConversationID: conversation.ID,
			SenderID:       senderID,
			Text:           text,
			Sent:           m.now(),
			Status:         string(model.MessageStatusPending),
		}
		if err = m.conversations.AddMessage(txCtx, message); err != nil {
			l.Error("failed to add message", zap.String("conversation_id", conversation.ID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to send message")
		}

		res = toMessage(message)
		return nil
	})
	if serr := txError(err); serr != nil {
		return nil, serr
	}

	if m.publisher != nil {
		if err = m.publisher.PublishMessage(ctx, receiverID, res); err != nil {
			l.Warn("failed to publish message event", zap.String("receiver_id", receiverID), zap.Error(err))
		}
	}

	return res, nil
}

// ListMessages returns the conversation with otherID. When the last message
// came from the other party, its trailing pending messages are marked read.
func (m *MessageService) ListMessages(ctx context.Context, userID, otherID string) (*model.Chat, *Error) {
	l := logger.FromContext(ctx)

	var res *model.Chat
	err := m.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		other, err := m.users.Get(txCtx, otherID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewServiceError(ErrorCodeNotFound, "user not found")
		}
		if err != nil {
			l.Error("failed to get user", zap.String("user_id", otherID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to list messages")
		}

		conversation, err := m.conversations.FindByMembers(txCtx, userID, otherID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewServiceError(ErrorCodeNotFound, "conversation not found")
		}
		if err != nil {
			l.Error("failed to find conversation", zap.String("user_id", userID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to list messages")
		}

		messages, err := m.conversations.Messages(txCtx, conversation.ID)
		if err != nil {
			l.Error("failed to list messages", zap.String("conversation_id", conversation.ID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to list messages")
		}

		read := unreadTail(messages, userID, otherID)
		if err = m.conversations.SetStatus(txCtx, read, string(model.MessageStatusRead)); err != nil {
			l.Error("failed to mark messages read", zap.String("conversation_id", conversation.ID), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to list messages")
		}

		res = &model.Chat{
			Messages: toMessages(messages),
			Receiver: toMember(other),
		}
		return nil
	})

	if serr := txError(err); serr != nil {
		return nil, serr
	}
	return res, nil
}

// unreadTail walks back from the last message collecting pending messages
// sent by otherID, stopping at the first message that is not one. It updates
// the collected messages in place.
func unreadTail(messages []*repository.Message, userID, otherID string) []string {
	if len(messages) == 0 || messages[len(messages)-1].SenderID == userID {
		return nil
	}

	var ids []string
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.SenderID != otherID || msg.Status != string(model.MessageStatusPending) {
			break
		}
		msg.Status = string(model.MessageStatusRead)
		ids = append(ids, msg.ID)
	}
	return ids
}

// FindConversation returns nil without error when the pair never talked.
func (m *MessageService) FindConversation(ctx context.Context, userID, otherID string) (*model.Conversation, *Error) {
	conversation, err := m.conversations.FindByMembers(ctx, userID, otherID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to find conversation", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to find conversation")
	}

	members, serr := loadUsers(ctx, m.users, conversation.Members)
	if serr != nil {
		return nil, serr
	}

	return &model.Conversation{
		ID:      conversation.ID,
		Members: toMembers(members, conversation.Members),
		Created: conversation.Created,
	}, nil
}

func (m *MessageService) ListConversations(ctx context.Context, userID string) ([]*model.Conversation, *Error) {
	l := logger.FromContext(ctx)

	conversations, err := m.conversations.ListByMember(ctx, userID)
	if err != nil {
		l.Error("failed to list conversations", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to list conversations")
	}

	var memberIDs []string
	for _, c := range conversations {
		memberIDs = append(memberIDs, c.Members...)
	}
	members, serr := loadUsers(ctx, m.users, memberIDs)
	if serr != nil {
		return nil, serr
	}

	res := make([]*model.Conversation, 0, len(conversations))
	for _, c := range conversations {
		messages, err := m.conversations.Messages(ctx, c.ID)
		if err != nil {
			l.Error("failed to list messages", zap.String("conversation_id", c.ID), zap.Error(err))
			return nil, NewServiceError(ErrorCodeUnspecified, "failed to list conversations")
		}

		pending := 0
		for _, msg := range messages {
			if msg.SenderID != userID && msg.Status == string(model.MessageStatusPending) {
				pending++
			}
		}

		res = append(res, &model.Conversation{
			ID:              c.ID,
			Members:         toMembers(members, c.Members),
			Created:         c.Created,
			Messages:        toMessages(messages),
			PendingMessages: pending,
		})
	}
	return res, nil
}

func (m *MessageService) requireUsers(ctx context.Context, userIDs ...string) *Error {
	for _, id := range userIDs {
		_, err := m.users.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return NewServiceError(ErrorCodeNotFound, "user not found")
		}
		if err != nil {
			logger.FromContext(ctx).Error("failed to get user", zap.String("user_id", id), zap.Error(err))
			return NewServiceError(ErrorCodeUnspecified, "failed to get user")
		}
	}
	return nil
}

func toMessage(msg *repository.Message) *model.Message {
	return &model.Message{
		ID:     msg.ID,
		Sender: msg.SenderID,
		Text:   msg.Text,
		Sent:   msg.Sent,
		Status: model.MessageStatus(msg.Status),
	}
}

func toMessages(messages []*repository.Message) []*model.Message {
	res := make([]*model.Message, 0, len(messages))
	for _, msg := range messages {
		res = append(res, toMessage(msg))
	}
	return res
}

func toMember(u *repository.User) *model.Member {
	return &model.Member{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage}
}

func toMembers(users map[string]*repository.User, ids []string) []*model.Member {
	res := make([]*model.Member, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			res = append(res, toMember(u))
		}
	}
	return res
}

func (m *MessageService) WithUserRepo(r repository.UserRepository) *MessageService {
	m.users = r
	return m
}

func (m *MessageService) WithConversationRepo(r repository.ConversationRepository) *MessageService {
	m.conversations = r
	return m
}

func (m *MessageService) WithPublisher(p MessagePublisher) *MessageService {
	m.publisher = p
	return m
}

func (m *MessageService) WithClock(now func() time.Time) *MessageService {
	m.now = now
	return m
}
