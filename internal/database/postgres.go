package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 3 * time.Second
)

// PgTeamChatRepository is the Postgres backed TeamChatRepository.
type PgTeamChatRepository struct {
	conn *sql.DB
}

// NewPgTeamChatRepository opens a connection pool for dsn and fails unless
// the database answers a ping.
func NewPgTeamChatRepository(dsn string) (*PgTeamChatRepository, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxIdleTime(connMaxIdleTime)

	db := &PgTeamChatRepository{conn: conn}
	if err := db.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Ping checks the database is reachable, giving up after pingTimeout.
func (db *PgTeamChatRepository) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (db *PgTeamChatRepository) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
