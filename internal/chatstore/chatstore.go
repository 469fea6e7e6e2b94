// Package chatstore persists chat sessions, messages and serialized model
// turn history in a local SQLite database.
package chatstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("chat session not found")

// Session is a stored conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn inside a session. Images holds the raw bytes of
// any pictures attached to a user turn.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Images    [][]byte  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	language   TEXT NOT NULL DEFAULT 'en',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	images     TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE TABLE IF NOT EXISTS turn_history (
	session_id TEXT PRIMARY KEY REFERENCES chat_sessions(id) ON DELETE CASCADE,
	history    BLOB NOT NULL
);
`

// Store wraps the SQLite database holding chat state.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the chat database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize chat schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var timeNow = time.Now

// CreateSession inserts a new session and returns it.
func (s *Store) CreateSession(title, language string) (*Session, error) {
	now := timeNow().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		Title:     title,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO chat_sessions (id, title, language, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.Language, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// GetSession loads one session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, title, language, created_at, updated_at FROM chat_sessions WHERE id = ?`, id,
	)
	var sess Session
	err := row.Scan(&sess.ID, &sess.Title, &sess.Language, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions() ([]*Session, error) {
	rows, err := s.db.Query(
		`SELECT id, title, language, created_at, updated_at FROM chat_sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Language, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// UpdateTitle renames a session.
func (s *Store) UpdateTitle(id, title string) error {
	res, err := s.db.Exec(
		`UPDATE chat_sessions SET title = ?, updated_at = ? WHERE id = ?`,
		title, timeNow().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SaveMessage appends a message to a session and bumps the session's
// updated_at so it sorts to the top of ListSessions.
func (s *Store) SaveMessage(sessionID, role, content string, images [][]byte) (*Message, error) {
	var imagesJSON sql.NullString
	if len(images) > 0 {
		raw, err := json.Marshal(images)
		if err != nil {
			return nil, fmt.Errorf("failed to encode images: %w", err)
		}
		imagesJSON = sql.NullString{String: string(raw), Valid: true}
	}

	now := timeNow().UTC()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO messages (session_id, role, content, images, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, role, content, imagesJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	if _, err := tx.Exec(`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	id, _ := res.LastInsertId()
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Images:    images,
		CreatedAt: now,
	}, nil
}

// GetMessages returns the messages of a session in insertion order.
func (s *Store) GetMessages(sessionID string) ([]*Message, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, images, created_at FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var (
			msg        Message
			imagesJSON sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &imagesJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if imagesJSON.Valid {
			if err := json.Unmarshal([]byte(imagesJSON.String), &msg.Images); err != nil {
				return nil, fmt.Errorf("failed to decode images: %w", err)
			}
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// SaveHistory stores the serialized model turn history for a session,
// replacing any previous value.
func (s *Store) SaveHistory(sessionID string, history []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO turn_history (session_id, history) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET history = excluded.history`,
		sessionID, history,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn history: %w", err)
	}
	return nil
}

// GetHistory returns the serialized turn history for a session, or nil when
// none has been stored yet.
func (s *Store) GetHistory(sessionID string) ([]byte, error) {
	row := s.db.QueryRow(`SELECT history FROM turn_history WHERE session_id = ?`, sessionID)
	var history []byte
	err := row.Scan(&history)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load turn history: %w", err)
	}
	return history, nil
}

// DeleteSession removes a session together with its messages and history.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteAll removes every session.
func (s *Store) DeleteAll() error {
	if _, err := s.db.Exec(`DELETE FROM chat_sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}
