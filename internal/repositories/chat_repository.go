package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"chat-service/internal/apperrors"
	"chat-service/internal/models"
	"chat-service/internal/observability"
	"chat-service/internal/rabbitmq"
)

type ChatRepository interface {
	FindOrCreateConversation(ctx context.Context, participantIDs []int64, name, convType string) (*models.Conversation, bool, error)
	ListConversationsForUser(ctx context.Context, userID int64) ([]models.Conversation, error)
	GetConversationForUser(ctx context.Context, conversationID, userID int64) (*models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error)
	AppendMessage(ctx context.Context, conversationID, senderID int64, content string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID, forUserID int64) ([]models.Message, error)
	ClearConversationForUser(ctx context.Context, conversationID, userID int64) error
}

type chatRepository struct {
	db        *sqlx.DB
	publisher rabbitmq.Publisher
}

func NewChatRepository(db *sqlx.DB, publisher rabbitmq.Publisher) ChatRepository {
	return &chatRepository{db: db, publisher: publisher}
}

// FindOrCreateConversation reuses an existing conversation whose participant
// set contains all the given ids (upstream's superset semantics) or creates
// one with exactly the given participants. Private pairs are keyed by a
// normalized pair key, so two concurrent first contacts converge on one row.
func (r *chatRepository) FindOrCreateConversation(ctx context.Context, participantIDs []int64, name, convType string) (*models.Conversation, bool, error) {
	if convType == "" {
		convType = models.ConversationTypePrivate
	}

	existing, err := r.findContainingAll(ctx, participantIDs)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	var conv models.Conversation
	created := false
	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		pairKey := sql.NullString{}
		if convType == models.ConversationTypePrivate && len(participantIDs) == 2 {
			pairKey = sql.NullString{String: pairKeyFor(participantIDs[0], participantIDs[1]), Valid: true}
		}

		err := tx.QueryRowxContext(ctx, `
INSERT INTO conversations (name, type, pair_key)
VALUES ($1, $2, $3)
ON CONFLICT (pair_key) WHERE pair_key IS NOT NULL DO NOTHING
RETURNING id, name, type
`, name, convType, pairKey).StructScan(&conv)
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the creation race; the winner's row is the conversation.
			return tx.GetContext(ctx, &conv, `
SELECT id, name, type FROM conversations WHERE pair_key=$1
`, pairKey)
		}
		if err != nil {
			return err
		}
		created = true

		for _, id := range participantIDs {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO conversation_participants (conversation_id, user_id)
VALUES ($1, $2)
ON CONFLICT (conversation_id, user_id) DO NOTHING
`, conv.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		r.logPublish(ctx, "conversation.created", map[string]any{
			"conversation_id": conv.ID,
			"type":            conv.Type,
			"participants":    participantIDs,
		})
	}

	return &conv, created, nil
}

func (r *chatRepository) findContainingAll(ctx context.Context, participantIDs []int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `
SELECT c.id, c.name, c.type
FROM conversations c
WHERE (
	SELECT COUNT(DISTINCT p.user_id)
	FROM conversation_participants p
	WHERE p.conversation_id = c.id AND p.user_id = ANY($1)
) = $2
ORDER BY c.id
LIMIT 1
`, pq.Array(participantIDs), len(participantIDs))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) ListConversationsForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `
SELECT c.id, c.name, c.type
FROM conversations c
JOIN conversation_participants p ON p.conversation_id = c.id
WHERE p.user_id=$1
ORDER BY c.id
`, userID)
	return convs, err
}

func (r *chatRepository) GetConversationForUser(ctx context.Context, conversationID, userID int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `
SELECT c.id, c.name, c.type
FROM conversations c
JOIN conversation_participants p ON p.conversation_id = c.id
WHERE c.id=$1 AND p.user_id=$2
`, conversationID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("chat not found")
		}
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
SELECT EXISTS(
SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2
)
`, conversationID, userID)
	return exists, err
}

func (r *chatRepository) ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
SELECT user_id FROM conversation_participants WHERE conversation_id=$1 ORDER BY user_id
`, conversationID)
	return ids, err
}

func (r *chatRepository) AppendMessage(ctx context.Context, conversationID, senderID int64, content string) (*models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `
INSERT INTO messages (conversation_id, sender_id, content)
VALUES ($1, $2, $3)
RETURNING id, conversation_id, sender_id, content, created_at
`, conversationID, senderID, content).StructScan(&msg)
	if err != nil {
		return nil, err
	}
	msg.DeletedBy = []int64{}

	r.logPublish(ctx, "message.created", map[string]any{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"sender_id":       msg.SenderID,
		"created_at":      msg.CreatedAt,
	})

	return &msg, nil
}

// ListMessages returns the conversation history in creation order, minus
// messages the reader soft-deleted and messages before the reader's history
// cutoff.
func (r *chatRepository) ListMessages(ctx context.Context, conversationID, forUserID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `
SELECT m.id, m.conversation_id, m.sender_id, m.content, m.created_at
FROM messages m
WHERE m.conversation_id=$1
AND NOT EXISTS (
	SELECT 1 FROM message_deletions d WHERE d.message_id=m.id AND d.user_id=$2
)
AND NOT EXISTS (
	SELECT 1 FROM conversation_participants p
	WHERE p.conversation_id=m.conversation_id AND p.user_id=$2
	AND p.history_cutoff IS NOT NULL AND m.created_at < p.history_cutoff
)
ORDER BY m.created_at, m.id
`, conversationID, forUserID)
	if err != nil {
		return nil, err
	}

	deletions, err := r.deletionsForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if ids, ok := deletions[msgs[i].ID]; ok {
			msgs[i].DeletedBy = ids
		} else {
			msgs[i].DeletedBy = []int64{}
		}
	}
	return msgs, nil
}

// ClearConversationForUser soft-deletes the whole history for one reader;
// other participants keep seeing every message.
func (r *chatRepository) ClearConversationForUser(ctx context.Context, conversationID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO message_deletions (message_id, user_id)
SELECT id, $2 FROM messages WHERE conversation_id=$1
ON CONFLICT (message_id, user_id) DO NOTHING
`, conversationID, userID)
	return err
}

func (r *chatRepository) deletionsForConversation(ctx context.Context, conversationID int64) (map[int64][]int64, error) {
	rows, err := r.db.QueryxContext(ctx, `
SELECT d.message_id, d.user_id
FROM message_deletions d
JOIN messages m ON m.id = d.message_id
WHERE m.conversation_id=$1
ORDER BY d.message_id, d.user_id
`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deletions := make(map[int64][]int64)
	for rows.Next() {
		var messageID, userID int64
		if err := rows.Scan(&messageID, &userID); err != nil {
			return nil, err
		}
		deletions[messageID] = append(deletions[messageID], userID)
	}
	return deletions, rows.Err()
}

func pairKeyFor(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (r *chatRepository) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *chatRepository) logPublish(ctx context.Context, eventType string, payload any) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, eventType, payload); err != nil {
		observability.IncAMQPPublishError()
		logrus.WithError(err).Warnf("failed to publish %s", eventType)
	}
}
