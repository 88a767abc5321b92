// Package database implements the hub's external collaborators, the message
// store and the user directory, on SQLite. The hub itself only ever sees the
// pkg/interfaces contracts; swapping this package for a remote service leaves
// the hub untouched.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

const writeOpTimeout = 30 * time.Second

// Store is a SQLite-backed MessageStore and UserDirectory. All writes funnel
// through a single goroutine; SQLite permits only one writer at a time and
// serializing here avoids lock contention. Reads run concurrently.
type Store struct {
	db       *sql.DB
	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
}

type writeOp struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens (or creates) the database at path, applies the schema, and
// starts the writer goroutine.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:       db,
		writeCh:  make(chan writeOp, 100),
		shutdown: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			op.result <- op.operation(s.db)
		case <-s.shutdown:
			return
		}
	}
}

func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return interfaces.ErrStoreClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeCh <- writeOp{operation: operation, result: result}:
		return <-result
	case <-time.After(writeOpTimeout):
		return fmt.Errorf("write operation timeout")
	case <-s.shutdown:
		return interfaces.ErrStoreClosed
	}
}

// SaveMessage persists one chat message. The router calls this before any
// fan-out; an error here means nobody receives the message.
func (s *Store) SaveMessage(ctx context.Context, message *types.ChatMessage) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO chat_messages (id, sender_id, sender_name, course_id, receiver_id, content, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`

		_, err := db.ExecContext(ctx, query,
			message.ID,
			message.SenderID,
			message.SenderName,
			nullable(message.CourseID),
			nullable(message.ReceiverID),
			message.Content,
			message.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		return nil
	})
}

// CourseHistory returns the most recent course-wide messages, oldest first.
func (s *Store) CourseHistory(ctx context.Context, courseID string, limit int) ([]*types.ChatMessage, error) {
	query := `
		SELECT id, sender_id, sender_name, course_id, receiver_id, content, timestamp
		FROM chat_messages
		WHERE course_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	return s.queryMessages(ctx, query, courseID, capLimit(limit))
}

// PrivateHistory returns the conversation between two participants in either
// direction, oldest first.
func (s *Store) PrivateHistory(ctx context.Context, userA, userB string, limit int) ([]*types.ChatMessage, error) {
	query := `
		SELECT id, sender_id, sender_name, course_id, receiver_id, content, timestamp
		FROM chat_messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY timestamp DESC
		LIMIT ?
	`

	return s.queryMessages(ctx, query, userA, userB, userB, userA, capLimit(limit))
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*types.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*types.ChatMessage

	for rows.Next() {
		var msg types.ChatMessage
		var courseID, receiverID sql.NullString

		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.SenderName,
			&courseID,
			&receiverID,
			&msg.Content,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		msg.CourseID = courseID.String
		msg.ReceiverID = receiverID.String
		messages = append(messages, &msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	// Rows arrive newest-first from the LIMIT query; flip to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// GetUser returns the directory record for id, or ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*types.User, error) {
	query := `SELECT id, name, role FROM users WHERE id = ?`

	var user types.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Role)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// UpsertUser inserts or refreshes a directory record. The hub never calls
// this; it exists for the surrounding application and for test seeding.
func (s *Store) UpsertUser(ctx context.Context, user *types.User) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO users (id, name, role) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role
		`

		if _, err := db.ExecContext(ctx, query, user.ID, user.Name, user.Role); err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		return nil
	})
}

// HealthCheck validates connectivity and a basic read.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.QueryContext(ctx, "SELECT COUNT(*) FROM chat_messages LIMIT 1"); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// Close drains the writer goroutine and closes the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func capLimit(limit int) int {
	const defaultLimit = 50
	if limit <= 0 || limit > 500 {
		return defaultLimit
	}
	return limit
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	return nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id          TEXT PRIMARY KEY,
			sender_id   TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			course_id   TEXT,
			receiver_id TEXT,
			content     TEXT NOT NULL,
			timestamp   DATETIME NOT NULL,
			CHECK ((course_id IS NULL) != (receiver_id IS NULL))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_course_time ON chat_messages (course_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_private ON chat_messages (sender_id, receiver_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON chat_messages (receiver_id, timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	log.Println("Database schema ready")
	return nil
}
