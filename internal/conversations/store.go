// Package conversations persists chat threads and their messages.
package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrThreadNotFound = errors.New("thread not found")

type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

const (
	titleLimit  = 50
	titleSuffix = "...."

	DefaultHistoryLimit = 50
)

type Thread struct {
	ID          int64     `json:"-"`
	ThreadID    string    `json:"thread_id"`
	RequesterID int64     `json:"-"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	ID        int64     `json:"-"`
	Role      Role      `json:"role"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db    *sql.DB
	newID func() string
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

// Title is the first human message cut to a bounded length.
func Title(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= titleLimit {
		return firstMessage
	}
	return string(runes[:titleLimit]) + titleSuffix
}

// Create starts a thread with a freshly minted thread id.
func (s *Store) Create(ctx context.Context, requesterID int64, firstMessage string) (Thread, error) {
	t := Thread{
		ThreadID:    s.newID(),
		RequesterID: requesterID,
		Title:       Title(firstMessage),
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO conversations (user_id, thread_id, title)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, last_updated`,
		requesterID, t.ThreadID, t.Title,
	).Scan(&t.ID, &t.CreatedAt, &t.LastUpdated)
	if err != nil {
		return Thread{}, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

// Find returns the thread only when it belongs to requesterID.
func (s *Store) Find(ctx context.Context, threadID string, requesterID int64) (Thread, error) {
	t := Thread{ThreadID: threadID, RequesterID: requesterID}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, last_updated
		 FROM conversations
		 WHERE thread_id = $1 AND user_id = $2`,
		threadID, requesterID,
	).Scan(&t.ID, &t.Title, &t.CreatedAt, &t.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, ErrThreadNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("find thread: %w", err)
	}
	return t, nil
}

// Append stores a message and bumps the thread's last_updated.
func (s *Store) Append(ctx context.Context, conversationID int64, role Role, text string) (Message, error) {
	if role != RoleHuman && role != RoleAI {
		return Message{}, fmt.Errorf("invalid sender role %q", role)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	m := Message{Role: role, Text: text}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO message_history (conversation_id, sender_role, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		conversationID, string(role), text,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_updated = NOW() WHERE id = $1`,
		conversationID,
	); err != nil {
		return Message{}, fmt.Errorf("touch thread: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("commit append: %w", err)
	}
	return m, nil
}

// History lists a requester's threads newest first, each with its messages
// oldest first.
func (s *Store) History(ctx context.Context, requesterID int64, limit int) ([]Thread, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, title, created_at, last_updated
		 FROM conversations
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		requesterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	threads := []Thread{}
	index := map[int64]int{}
	ids := []int64{}
	for rows.Next() {
		t := Thread{RequesterID: requesterID, Messages: []Message{}}
		if err := rows.Scan(&t.ID, &t.ThreadID, &t.Title, &t.CreatedAt, &t.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		index[t.ID] = len(threads)
		ids = append(ids, t.ID)
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	if len(ids) == 0 {
		return threads, nil
	}

	msgRows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_role, message, created_at
		 FROM message_history
		 WHERE conversation_id = ANY($1)
		 ORDER BY created_at ASC, id ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var (
			m              Message
			conversationID int64
			role           string
		)
		if err := msgRows.Scan(&m.ID, &conversationID, &role, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = Role(role)
		if i, ok := index[conversationID]; ok {
			threads[i].Messages = append(threads[i].Messages, m)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return threads, nil
}
