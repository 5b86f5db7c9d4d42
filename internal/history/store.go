package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Message is one chat turn, either the user's question or the assistant's answer.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	IsUser         bool      `json:"isUser"`
	Source         string    `json:"source,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type Store interface {
	Insert(ctx context.Context, msg Message) (Message, error)
	Latest(ctx context.Context, conversationID string, limit int) ([]Message, error)
	Clear(ctx context.Context, conversationID string) error
	Close() error
}

const (
	defaultLimit = 10
	maxLimit     = 50

	// maxStored bounds how many messages MemoryStore keeps per conversation.
	maxStored = 200
)

// clampLimit defaults a non-positive limit and caps the rest at maxLimit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func prepare(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

// SQLiteStore is a SQLite-backed store; safe for concurrent use.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL,
			content TEXT NOT NULL,
			is_user INTEGER NOT NULL,
			source TEXT,
			at_utc TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, seq);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg = prepare(msg)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, content, is_user, source, at_utc)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, msg.Content, msg.IsUser, msg.Source, msg.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// Latest returns up to limit of the most recent messages, oldest first.
func (s *SQLiteStore) Latest(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, content, is_user, source, at_utc
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var (
			m      Message
			source sql.NullString
			at     string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsUser, &source, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Source = source.String
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore is a lightweight fallback for tests and offline use.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]Message)}
}

func (m *MemoryStore) Insert(_ context.Context, msg Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg = prepare(msg)
	msgs := append(m.conversations[msg.ConversationID], msg)
	if len(msgs) > maxStored {
		msgs = msgs[len(msgs)-maxStored:]
	}
	m.conversations[msg.ConversationID] = msgs
	return msg, nil
}

func (m *MemoryStore) Latest(_ context.Context, conversationID string, limit int) ([]Message, error) {
	limit = clampLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.conversations[conversationID]
	start := len(msgs) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Message, 0, len(msgs)-start)
	out = append(out, msgs[start:]...)
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, conversationID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
