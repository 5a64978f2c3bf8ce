package database

import (
	"context"
	"database/sql"
	"errors"

	"mention-bot/models"

	"github.com/m-mizutani/goerr/v2"
)

// upsertThread creates the thread row or refreshes its name.
func upsertThread(ctx context.Context, tx *sql.Tx, t models.Thread) error {
	query := `INSERT INTO threads (thread_id, name, parent_id, created_at) VALUES (?, ?, ?, ?)
              ON CONFLICT(thread_id) DO UPDATE SET name = excluded.name`
	if _, err := tx.ExecContext(ctx, query, t.ThreadID, t.Name, t.ParentID, toMillis(t.CreatedAt)); err != nil {
		return goerr.Wrap(err, "failed to upsert thread", goerr.V("threadID", t.ThreadID))
	}
	return nil
}

// GetThread returns ErrNotFound when no mention ever referenced the thread.
func (s *Store) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	var (
		t         models.Thread
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT thread_id, name, parent_id, created_at FROM threads WHERE thread_id = ?", threadID).
		Scan(&t.ThreadID, &t.Name, &t.ParentID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", threadID))
		}
		return nil, goerr.Wrap(err, "failed to get thread", goerr.V("threadID", threadID))
	}
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

// RenameThread refreshes the name of an existing thread row. It never creates one.
func (s *Store) RenameThread(ctx context.Context, threadID, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE threads SET name = ? WHERE thread_id = ? AND name <> ?", name, threadID, name)
	if err != nil {
		return false, goerr.Wrap(err, "failed to rename thread", goerr.V("threadID", threadID))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CountThreadMentions counts the live mentions referencing a thread.
func (s *Store) CountThreadMentions(ctx context.Context, threadID string) (int64, error) {
	return countThreadMentions(ctx, s.db, threadID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func countThreadMentions(ctx context.Context, q queryRower, threadID string) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM mentions WHERE thread_id = ?", threadID).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count thread mentions", goerr.V("threadID", threadID))
	}
	return n, nil
}
