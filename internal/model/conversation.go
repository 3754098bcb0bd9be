package model

import "time"

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusRead    MessageStatus = "read"
)

type Message struct {
	ID     string        `json:"id"`
	Sender string        `json:"sender"`
	Text   string        `json:"text"`
	Sent   time.Time     `json:"sent"`
	Status MessageStatus `json:"status"`
}

// Member is a conversation participant as shown in chat lists.
type Member struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

type Conversation struct {
	ID              string     `json:"id"`
	Members         []*Member  `json:"members"`
	Created         time.Time  `json:"created"`
	Messages        []*Message `json:"messages,omitempty"`
	PendingMessages int        `json:"pendingMessages"`
}

type Chat struct {
	Messages []*Message `json:"messages"`
	Receiver *Member    `json:"receiver"`
}
