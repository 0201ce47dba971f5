package models

import "time"

const (
	ConversationTypePrivate = "private"
	ConversationTypeGroup   = "group"
)

type Conversation struct {
	ID   int64  `db:"id" json:"chatId"`
	Name string `db:"name" json:"name"`
	Type string `db:"type" json:"type"`
}

// Participant links a user to a conversation. Messages created before
// HistoryCutoff are hidden from that participant.
type Participant struct {
	ConversationID int64      `db:"conversation_id" json:"conversationId"`
	UserID         int64      `db:"user_id" json:"userId"`
	HistoryCutoff  *time.Time `db:"history_cutoff" json:"historyCutoff,omitempty"`
}

type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"chat_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"timestamp"`

	// DeletedBy holds the ids of users who soft-deleted the message for
	// themselves. Populated on read, stored in message_deletions.
	DeletedBy []int64 `db:"-" json:"deleted_by"`
}
