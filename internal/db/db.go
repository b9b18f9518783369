package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Database struct {
	Conn *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

func (d *Database) AutoMigrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            first_name VARCHAR(50) NOT NULL,
            last_name VARCHAR(50) NOT NULL DEFAULT '',
            email VARCHAR(255) UNIQUE NOT NULL,
            password VARCHAR(255) NOT NULL,
            age INT NOT NULL DEFAULT 0,
            gender VARCHAR(20) NOT NULL DEFAULT '',
            about TEXT NOT NULL DEFAULT '',
            photo_url TEXT NOT NULL DEFAULT '',
            skills JSONB NOT NULL DEFAULT '[]',
            links JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,

		// The unique index on the ordered pair is what rejects a duplicate
		// send under concurrent requests; the application only maps the
		// violation to a conflict error.
		`CREATE TABLE IF NOT EXISTS connection_requests (
            id UUID PRIMARY KEY,
            from_user_id UUID NOT NULL REFERENCES users(id),
            to_user_id UUID NOT NULL REFERENCES users(id),
            status VARCHAR(20) NOT NULL CHECK (status IN ('interested', 'ignored', 'accepted', 'rejected')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            CONSTRAINT no_self_request CHECK (from_user_id <> to_user_id),
            CONSTRAINT uniq_ordered_pair UNIQUE (from_user_id, to_user_id)
        )`,

		`CREATE TABLE IF NOT EXISTS conversations (
            id BIGSERIAL PRIMARY KEY,
            room_id VARCHAR(64) UNIQUE NOT NULL,
            user_a UUID NOT NULL REFERENCES users(id),
            user_b UUID NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL REFERENCES users(id),
            text TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,

		`CREATE INDEX IF NOT EXISTS idx_requests_to_user ON connection_requests (to_user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, id)`,
	}

	for _, query := range queries {
		_, err := d.Conn.Exec(query)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
