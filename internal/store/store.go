package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer mapping client conversation
// ids to remote assistant thread ids.
//
// WAL is enabled so reads stay cheap while a chat request writes.
type Store struct {
	db *sql.DB
}

// Conversation is one persisted conversation→thread mapping.
type Conversation struct {
	ID              int64  `json:"id"`
	ConversationID  string `json:"conversationId"`
	ThreadID        string `json:"threadId"`
	CreatedAtUnixMs int64  `json:"createdAtUnixMs"`
	UpdatedAtUnixMs int64  `json:"updatedAtUnixMs"`
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the mapping for conversationID. An existing row keeps its
// created_at; thread_id and updated_at are replaced.
func (s *Store) Save(ctx context.Context, conversationID string, threadID string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	conversationID = strings.TrimSpace(conversationID)
	threadID = strings.TrimSpace(threadID)
	if conversationID == "" || threadID == "" {
		return errors.New("invalid mapping")
	}

	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO conversations(conversation_id, thread_id, created_at_unix_ms, updated_at_unix_ms)
VALUES(?, ?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET
  thread_id = excluded.thread_id,
  updated_at_unix_ms = excluded.updated_at_unix_ms
`, conversationID, threadID, now, now)
	return err
}

// Get returns the mapping for conversationID, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, conversationID string) (*Conversation, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, errors.New("missing conversation_id")
	}

	var c Conversation
	err := s.db.QueryRowContext(ctx, `
SELECT id, conversation_id, thread_id, created_at_unix_ms, updated_at_unix_ms
FROM conversations
WHERE conversation_id = ?
`, conversationID).Scan(&c.ID, &c.ConversationID, &c.ThreadID, &c.CreatedAtUnixMs, &c.UpdatedAtUnixMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// List returns all mappings, newest first.
func (s *Store) List(ctx context.Context) ([]Conversation, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, conversation_id, thread_id, created_at_unix_ms, updated_at_unix_ms
FROM conversations
ORDER BY created_at_unix_ms DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Conversation, 0, 16)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.ConversationID, &c.ThreadID, &c.CreatedAtUnixMs, &c.UpdatedAtUnixMs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the mapping for conversationID. Returns sql.ErrNoRows when
// nothing was deleted.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return errors.New("missing conversation_id")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS conversations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  conversation_id TEXT UNIQUE NOT NULL,
  thread_id TEXT NOT NULL,
  created_at_unix_ms INTEGER NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at_unix_ms DESC, id DESC);
`)
	return err
}
