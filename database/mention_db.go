package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mention-bot/models"

	"github.com/m-mizutani/goerr/v2"
)

const mentionColumns = `id, guild_id, channel_id, thread_id, message_id, mentioned_id, mentioned_name,
        author_id, author_name, created_at, responded_at, closed_response_message_id`

// RecordMention persists a mention keyed on (message_id, guild_id). When the mention
// sits in a thread, the thread row is upserted first in the same transaction so a
// mention never references a missing thread. Calling it twice for the same message is
// safe; created reports whether a new row was inserted.
func (s *Store) RecordMention(ctx context.Context, c models.MentionCandidate) (bool, error) {
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if ft, ok := c.Location.(models.ForumThread); ok {
			if err := upsertThread(ctx, tx, ft.Thread()); err != nil {
				return err
			}
		}

		query := `INSERT INTO mentions (
            guild_id, channel_id, thread_id, message_id, mentioned_id, mentioned_name,
            author_id, author_name, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(message_id, guild_id) DO NOTHING`
		res, err := tx.ExecContext(ctx, query,
			c.GuildID,
			c.Location.BaseChannelID(),
			nullIfEmpty(c.Location.ThreadID()),
			c.MessageID,
			c.MentionedID,
			c.MentionedName,
			c.AuthorID,
			c.AuthorName,
			toMillis(c.CreatedAt),
		)
		if err != nil {
			return goerr.Wrap(err, "failed to insert mention",
				goerr.V("messageID", c.MessageID),
				goerr.V("guildID", c.GuildID))
		}
		n, _ := res.RowsAffected()
		created = n > 0
		return nil
	})
	return created, err
}

// CloseMention sets the response of an open mention. It reports false when the mention
// was already closed or is gone, so a response is recorded at most once.
func (s *Store) CloseMention(ctx context.Context, match models.ResponseMatch) (bool, error) {
	query := `UPDATE mentions SET responded_at = ?, closed_response_message_id = ?
              WHERE id = ? AND responded_at IS NULL AND created_at <= ?`
	respondedAt := toMillis(match.RespondedAt)
	res, err := s.db.ExecContext(ctx, query, respondedAt, nullIfEmpty(match.ResponseMessageID), match.MentionID, respondedAt)
	if err != nil {
		return false, goerr.Wrap(err, "failed to close mention", goerr.V("mentionID", match.MentionID))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FindOpenMentionByMessage looks up the open mention created by messageID that is
// addressed to mentionedID.
func (s *Store) FindOpenMentionByMessage(ctx context.Context, guildID, messageID, mentionedID string) (*models.MentionRecord, error) {
	query := `SELECT ` + mentionColumns + ` FROM mentions
              WHERE guild_id = ? AND message_id = ? AND mentioned_id = ? AND responded_at IS NULL`
	rec, err := scanMention(s.db.QueryRowContext(ctx, query, guildID, messageID, mentionedID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "open mention not found", goerr.V("messageID", messageID))
		}
		return nil, goerr.Wrap(err, "failed to find open mention", goerr.V("messageID", messageID))
	}
	return rec, nil
}

// FindLatestOpenMention returns the most recent open mention of mentionedID in the given
// scope created no later than before. An empty threadID matches mentions outside threads.
func (s *Store) FindLatestOpenMention(ctx context.Context, guildID, channelID, threadID, mentionedID string, before time.Time) (*models.MentionRecord, error) {
	query := `SELECT ` + mentionColumns + ` FROM mentions
              WHERE guild_id = ? AND channel_id = ? AND thread_id IS ? AND mentioned_id = ?
                AND responded_at IS NULL AND created_at <= ?
              ORDER BY created_at DESC, id DESC LIMIT 1`
	rec, err := scanMention(s.db.QueryRowContext(ctx, query, guildID, channelID, nullIfEmpty(threadID), mentionedID, toMillis(before)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "open mention not found",
				goerr.V("channelID", channelID),
				goerr.V("mentionedID", mentionedID))
		}
		return nil, goerr.Wrap(err, "failed to find latest open mention", goerr.V("channelID", channelID))
	}
	return rec, nil
}

// GetMentionByMessage returns the mention recorded for a message.
func (s *Store) GetMentionByMessage(ctx context.Context, guildID, messageID string) (*models.MentionRecord, error) {
	query := `SELECT ` + mentionColumns + ` FROM mentions WHERE guild_id = ? AND message_id = ?`
	rec, err := scanMention(s.db.QueryRowContext(ctx, query, guildID, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "mention not found", goerr.V("messageID", messageID))
		}
		return nil, goerr.Wrap(err, "failed to get mention", goerr.V("messageID", messageID))
	}
	return rec, nil
}

// ListMentions returns the mentions of a guild ordered by creation time.
func (s *Store) ListMentions(ctx context.Context, guildID string) ([]*models.MentionRecord, error) {
	query := `SELECT ` + mentionColumns + ` FROM mentions WHERE guild_id = ? ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query mentions", goerr.V("guildID", guildID))
	}
	defer rows.Close()

	var records []*models.MentionRecord
	for rows.Next() {
		rec, err := scanMention(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan mention")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetMentionStats aggregates the mentions of a guild created in [from, to).
func (s *Store) GetMentionStats(ctx context.Context, guildID string, from, to time.Time) (*models.MentionStats, error) {
	query := `SELECT COUNT(*), COUNT(responded_at),
                     AVG(CASE WHEN responded_at IS NOT NULL THEN responded_at - created_at END)
              FROM mentions
              WHERE guild_id = ? AND created_at >= ? AND created_at < ?`

	var (
		stats models.MentionStats
		avg   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, query, guildID, toMillis(from), toMillis(to)).Scan(&stats.Total, &stats.Responded, &avg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query mention stats", goerr.V("guildID", guildID))
	}
	if avg.Valid {
		stats.AverageLatency = time.Duration(avg.Float64) * time.Millisecond
	}
	return &stats, nil
}

func scanMention(row rowScanner) (*models.MentionRecord, error) {
	var (
		rec         models.MentionRecord
		threadID    sql.NullString
		createdAt   int64
		respondedAt sql.NullInt64
		closedBy    sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.GuildID, &rec.ChannelID, &threadID, &rec.MessageID, &rec.MentionedID, &rec.MentionedName,
		&rec.AuthorID, &rec.AuthorName, &createdAt, &respondedAt, &closedBy,
	)
	if err != nil {
		return nil, err
	}
	rec.ThreadID = nullableString(threadID)
	rec.CreatedAt = fromMillis(createdAt)
	rec.RespondedAt = nullableMillis(respondedAt)
	rec.ClosedResponseMessageID = nullableString(closedBy)
	return &rec, nil
}
