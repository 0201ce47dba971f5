package models

import "time"

type FriendRequest struct {
	ID         int64     `db:"id" json:"friendRequestId"`
	SenderID   int64     `db:"sender_id" json:"sender_id"`
	ReceiverID int64     `db:"receiver_id" json:"receiver_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Friendship struct {
	ID       int64 `db:"id" json:"id"`
	UserID   int64 `db:"user_id" json:"user_id"`
	FriendID int64 `db:"friend_id" json:"friend_id"`
}
