// Package queue implements the durable retry queue for failed submissions.
// The store survives process restarts; entries are replayed on demand and
// removed only once a replay succeeds.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

// storageKey names the single durable record holding the queued reviews.
const storageKey = "failedReviews"

// FailedSubmission wraps a review that could not be delivered.
type FailedSubmission struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	FailedAt  time.Time     `json:"failedAt"`
	Review    review.Record `json:"review"`
}

// Sender makes a single delivery attempt with no queue side effects.
// Implemented by the submission pipeline.
type Sender interface {
	Send(ctx context.Context, rec review.Record) error
}

// Queue is a durable store of failed submissions backed by SQLite. The whole
// collection lives under one key as a JSON array, and every mutation is a
// load-modify-store inside a transaction, so interleaved calls from multiple
// review flows cannot lose entries.
type Queue struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the queue database at path. The special path
// ":memory:" keeps the store in memory, which tests use.
func Open(path string) (*Queue, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create queue directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	// One writer: the store is a single shared collection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS store (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create queue schema: %w", err)
	}

	return &Queue{db: db}, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Append persists a failed submission. Previously queued entries are always
// preserved: the existing collection is read before the new entry is written.
func (q *Queue) Append(rec review.Record, sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.withStore(func(entries []FailedSubmission) ([]FailedSubmission, error) {
		return append(entries, FailedSubmission{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			FailedAt:  time.Now().UTC(),
			Review:    rec,
		}), nil
	})
}

// All returns the queued submissions in insertion order.
func (q *Queue) All() ([]FailedSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(q.db)
}

// Len returns the number of queued submissions.
func (q *Queue) Len() (int, error) {
	entries, err := q.All()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// ReplayAll re-sends every queued submission in insertion order. Entries
// whose replay succeeds are removed; entries that fail again stay queued
// untouched, keeping their original failedAt and position. No backoff is
// applied.
func (q *Queue) ReplayAll(ctx context.Context, sender Sender) (replayed, remaining int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	err = q.withStore(func(entries []FailedSubmission) ([]FailedSubmission, error) {
		kept := entries[:0:0]
		for _, entry := range entries {
			if ctx.Err() != nil {
				kept = append(kept, entry)
				continue
			}
			if sendErr := sender.Send(ctx, entry.Review); sendErr != nil {
				slog.Warn("replay failed, review stays queued", "id", entry.ID, "error", sendErr)
				kept = append(kept, entry)
				continue
			}
			slog.Info("queued review replayed", "id", entry.ID, "type", entry.Review.Kind)
			replayed++
		}
		remaining = len(kept)
		return kept, nil
	})
	return replayed, remaining, err
}

// withStore runs one atomic load-modify-store cycle.
func (q *Queue) withStore(fn func([]FailedSubmission) ([]FailedSubmission, error)) error {
	tx, err := q.db.Begin()
	if err != nil {
		return fmt.Errorf("begin queue transaction: %w", err)
	}
	defer tx.Rollback()

	entries, err := q.load(tx)
	if err != nil {
		return err
	}

	entries, err = fn(entries)
	if err != nil {
		return err
	}

	value, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, storageKey, string(value)); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}

	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (q *Queue) load(db querier) ([]FailedSubmission, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM store WHERE key = ?`, storageKey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}

	var entries []FailedSubmission
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return entries, nil
}
