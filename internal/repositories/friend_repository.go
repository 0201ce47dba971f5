package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"chat-service/internal/apperrors"
	"chat-service/internal/models"
	"chat-service/internal/observability"
	"chat-service/internal/rabbitmq"
)

type FriendRepository interface {
	HasFriendRecord(ctx context.Context, userID int64) (bool, error)
	ListFriends(ctx context.Context, userID int64) ([]int64, error)
	AreFriends(ctx context.Context, userID, otherID int64) (bool, error)
	RemoveFriendship(ctx context.Context, userID, friendID int64) error
	CreateRequest(ctx context.Context, senderID, receiverID int64) (*models.FriendRequest, error)
	ListRequestsForUser(ctx context.Context, userID int64) ([]models.FriendRequest, error)
	GetRequest(ctx context.Context, requestID int64) (*models.FriendRequest, error)
	HasPendingRequest(ctx context.Context, userID, otherID int64) (bool, error)
	AcceptRequest(ctx context.Context, requestID, actingUserID int64) error
	DeclineRequest(ctx context.Context, requestID int64) error
}

type friendRepository struct {
	db        *sqlx.DB
	publisher rabbitmq.Publisher
}

func NewFriendRepository(db *sqlx.DB, publisher rabbitmq.Publisher) FriendRepository {
	return &friendRepository{db: db, publisher: publisher}
}

func (r *friendRepository) HasFriendRecord(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
SELECT EXISTS(SELECT 1 FROM friend_records WHERE user_id=$1)
`, userID)
	return exists, err
}

func (r *friendRepository) ListFriends(ctx context.Context, userID int64) ([]int64, error) {
	var friends []int64
	err := r.db.SelectContext(ctx, &friends, `
SELECT friend_id
FROM friendships
WHERE user_id=$1
ORDER BY friend_id
`, userID)
	return friends, err
}

func (r *friendRepository) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
SELECT EXISTS(
SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2
)
`, userID, otherID)
	return exists, err
}

// RemoveFriendship deletes both directions of a friendship in one
// transaction. Both sides must exist before either row is touched; the pair
// advisory lock serializes this against a concurrent accept for the same pair.
func (r *friendRepository) RemoveFriendship(ctx context.Context, userID, friendID int64) error {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockPair(ctx, tx, userID, friendID); err != nil {
			return err
		}

		var forward bool
		if err := tx.GetContext(ctx, &forward, `
SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)
`, userID, friendID); err != nil {
			return err
		}
		if !forward {
			return apperrors.NotFound("friend not found")
		}

		var reverse bool
		if err := tx.GetContext(ctx, &reverse, `
SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)
`, friendID, userID); err != nil {
			return err
		}
		if !reverse {
			return apperrors.NotFound("user not found in friend's friends array")
		}

		_, err := tx.ExecContext(ctx, `
DELETE FROM friendships
WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
`, userID, friendID)
		return err
	})
	if err != nil {
		return err
	}

	r.logPublish(ctx, "friendship.removed", map[string]any{
		"user_id":   userID,
		"friend_id": friendID,
	})
	return nil
}

func (r *friendRepository) CreateRequest(ctx context.Context, senderID, receiverID int64) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.QueryRowxContext(ctx, `
INSERT INTO friend_requests (sender_id, receiver_id)
VALUES ($1, $2)
RETURNING id, sender_id, receiver_id, created_at
`, senderID, receiverID).StructScan(&req)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// Lost the race against a concurrent request for the same pair;
			// the unique pair index is authoritative, not the pre-check.
			return nil, apperrors.Conflict("friend request already exists")
		}
		return nil, err
	}

	r.logPublish(ctx, "friend.request.created", map[string]any{
		"request_id":  req.ID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"created_at":  req.CreatedAt,
	})

	return &req, nil
}

func (r *friendRepository) ListRequestsForUser(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	err := r.db.SelectContext(ctx, &reqs, `
SELECT id, sender_id, receiver_id, created_at
FROM friend_requests
WHERE sender_id=$1 OR receiver_id=$1
ORDER BY created_at DESC
`, userID)
	return reqs, err
}

func (r *friendRepository) GetRequest(ctx context.Context, requestID int64) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req, `
SELECT id, sender_id, receiver_id, created_at
FROM friend_requests
WHERE id=$1
`, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("friend request not found")
		}
		return nil, err
	}
	return &req, nil
}

func (r *friendRepository) HasPendingRequest(ctx context.Context, userID, otherID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
SELECT EXISTS(
SELECT 1 FROM friend_requests
WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
)
`, userID, otherID)
	return exists, err
}

// AcceptRequest inserts both friendship rows and deletes the request as one
// atomic step. The row lock on the request plus the pair advisory lock make
// concurrent resolutions of the same pair exclusive, and the idempotent
// inserts mean a replay cannot duplicate friendship rows.
func (r *friendRepository) AcceptRequest(ctx context.Context, requestID, actingUserID int64) error {
	var eventPayload map[string]any
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var req models.FriendRequest
		if err := tx.GetContext(ctx, &req, `
SELECT id, sender_id, receiver_id, created_at
FROM friend_requests
WHERE id=$1
FOR UPDATE
`, requestID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("friend request not found")
			}
			return err
		}

		if req.SenderID == actingUserID {
			return apperrors.Forbidden("you cannot accept the friend request you yourself has sent")
		}

		if err := lockPair(ctx, tx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}

		if err := r.insertFriendship(ctx, tx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}
		if err := r.insertFriendship(ctx, tx, req.ReceiverID, req.SenderID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM friend_requests WHERE id=$1`, requestID); err != nil {
			return err
		}

		eventPayload = map[string]any{
			"user_id":   req.SenderID,
			"friend_id": req.ReceiverID,
		}
		return nil
	})
	if err != nil {
		return err
	}

	if eventPayload != nil {
		r.logPublish(ctx, "friendship.created", eventPayload)
	}

	return nil
}

func (r *friendRepository) DeclineRequest(ctx context.Context, requestID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM friend_requests WHERE id=$1`, requestID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("friend request not found")
	}
	return nil
}

func (r *friendRepository) insertFriendship(ctx context.Context, tx *sqlx.Tx, userID, friendID int64) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2)
ON CONFLICT (user_id, friend_id) DO NOTHING
`, userID, friendID)
	return err
}

// lockPair takes a transaction-scoped advisory lock on the unordered pair so
// accept and remove for the same two users never interleave.
func lockPair(ctx context.Context, tx *sqlx.Tx, a, b int64) error {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1::int, $2::int)`, lo, hi)
	return err
}

func (r *friendRepository) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
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

func (r *friendRepository) logPublish(ctx context.Context, eventType string, payload any) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, eventType, payload); err != nil {
		observability.IncAMQPPublishError()
		logrus.WithError(err).Warnf("failed to publish %s", eventType)
	}
}
