package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/seand52/socialDev/internal/config"
	"github.com/seand52/socialDev/internal/model"
)

const (
	userChannelPrefix = "socialdev:user:" // socialdev:user:{user_id}:messages
	messagesSuffix    = ":messages"

	TypeMessageSent = "message.sent"
)

// MessageEvent is the payload published when a user receives a message.
type MessageEvent struct {
	Type       string         `json:"type"`
	ReceiverID string         `json:"receiverId"`
	Message    *model.Message `json:"message"`
	At         time.Time      `json:"at"`
}

// RedisPublisher fans message notifications out over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, now: time.Now}
}

// NewRedisClient connects and pings the configured server.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func MessagesChannel(userID string) string {
	return userChannelPrefix + userID + messagesSuffix
}

func (p *RedisPublisher) PublishMessage(ctx context.Context, receiverID string, message *model.Message) error {
	payload, err := json.Marshal(&MessageEvent{
		Type:       TypeMessageSent,
		ReceiverID: receiverID,
		Message:    message,
		At:         p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message event: %w", err)
	}

	if err = p.client.Publish(ctx, MessagesChannel(receiverID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish message event: %w", err)
	}
	return nil
}
