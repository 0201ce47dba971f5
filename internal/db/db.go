package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			profile_image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
			)`,
		// Marker rows: a user can exist without one (legacy signups), which
		// the friends listing reports differently from an unknown user.
		`CREATE TABLE IF NOT EXISTS friend_records (
			user_id INT PRIMARY KEY
			)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL,
			friend_id INT NOT NULL,
			UNIQUE (user_id, friend_id)
			)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id SERIAL PRIMARY KEY,
			sender_id INT NOT NULL,
			receiver_id INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
			)`,
		// At most one pending request per unordered pair, in either direction.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_request_pair
			ON friend_requests (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id))`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'private' CHECK (type IN ('private','group')),
			pair_key TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
			)`,
		// pair_key is "<min>:<max>" for private conversations; concurrent
		// first contacts between the same two users collapse onto one row.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversation_pair
			ON conversations (pair_key) WHERE pair_key IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id INT NOT NULL,
			user_id INT NOT NULL,
			history_cutoff TIMESTAMPTZ,
			PRIMARY KEY (conversation_id, user_id)
			)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			conversation_id INT NOT NULL,
			sender_id INT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
			)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages (conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS message_deletions (
			message_id INT NOT NULL,
			user_id INT NOT NULL,
			PRIMARY KEY (message_id, user_id)
			)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
