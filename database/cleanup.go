package database

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
)

// MentionDeletion reports what a message deletion removed from the ledger.
type MentionDeletion struct {
	Mentions       int64
	ThreadsDeleted []string
}

// DeleteMentionByMessage removes the mention recorded for a deleted message and, in the
// same transaction, deletes the thread rows that no longer hold any mention. A message
// without a mention is not an error. An empty guildID matches the message in any guild.
func (s *Store) DeleteMentionByMessage(ctx context.Context, guildID, messageID string) (*MentionDeletion, error) {
	result := &MentionDeletion{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := "SELECT id, thread_id FROM mentions WHERE message_id = ?"
		args := []interface{}{messageID}
		if guildID != "" {
			query += " AND guild_id = ?"
			args = append(args, guildID)
		}

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return goerr.Wrap(err, "failed to query mentions for deleted message", goerr.V("messageID", messageID))
		}
		var (
			ids     []int64
			threads []string
		)
		for rows.Next() {
			var (
				id       int64
				threadID sql.NullString
			)
			if err := rows.Scan(&id, &threadID); err != nil {
				rows.Close()
				return goerr.Wrap(err, "failed to scan mention for deleted message")
			}
			ids = append(ids, id)
			if threadID.Valid {
				threads = append(threads, threadID.String)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return goerr.Wrap(err, "failed to iterate mentions for deleted message")
		}

		for _, id := range ids {
			res, err := tx.ExecContext(ctx, "DELETE FROM mentions WHERE id = ?", id)
			if err != nil {
				return goerr.Wrap(err, "failed to delete mention", goerr.V("mentionID", id))
			}
			n, _ := res.RowsAffected()
			result.Mentions += n
		}

		// Reference-count each parent before removing it.
		seen := make(map[string]bool)
		for _, threadID := range threads {
			if seen[threadID] {
				continue
			}
			seen[threadID] = true

			remaining, err := countThreadMentions(ctx, tx, threadID)
			if err != nil {
				return err
			}
			if remaining > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM threads WHERE thread_id = ?", threadID); err != nil {
				return goerr.Wrap(err, "failed to delete empty thread", goerr.V("threadID", threadID))
			}
			result.ThreadsDeleted = append(result.ThreadsDeleted, threadID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteThread removes a thread row; the foreign key cascades to its mentions.
// It reports false when the thread was never stored.
func (s *Store) DeleteThread(ctx context.Context, threadID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE thread_id = ?", threadID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete thread", goerr.V("threadID", threadID))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ReconcileThreads deletes thread rows that no mention references anymore.
func (s *Store) ReconcileThreads(ctx context.Context) (int64, error) {
	query := `DELETE FROM threads
              WHERE NOT EXISTS (SELECT 1 FROM mentions m WHERE m.thread_id = threads.thread_id)`
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to reconcile threads")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
