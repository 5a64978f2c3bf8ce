package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mention-bot/models"

	"github.com/m-mizutani/goerr/v2"
)

// UpsertGuild records a guild the bot has joined.
func (s *Store) UpsertGuild(ctx context.Context, guild models.Guild) error {
	query := `INSERT INTO guilds (guild_id, name) VALUES (?, ?)
              ON CONFLICT(guild_id) DO UPDATE SET name = excluded.name`
	if _, err := s.db.ExecContext(ctx, query, guild.GuildID, guild.Name); err != nil {
		return goerr.Wrap(err, "failed to upsert guild", goerr.V("guildID", guild.GuildID))
	}
	return nil
}

// DeleteGuild removes a guild and all of its tracking configuration.
// Mentions already recorded stay in the ledger.
func (s *Store) DeleteGuild(ctx context.Context, guildID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		queries := []string{
			"DELETE FROM tracked_channels WHERE guild_id = ?",
			"DELETE FROM tracked_roles WHERE guild_id = ?",
			"DELETE FROM user_contexts WHERE guild_id = ?",
			"DELETE FROM guilds WHERE guild_id = ?",
		}
		for _, q := range queries {
			if _, err := tx.ExecContext(ctx, q, guildID); err != nil {
				return goerr.Wrap(err, "failed to delete guild configuration", goerr.V("guildID", guildID))
			}
		}
		return nil
	})
}

// UpsertTrackedChannel adds a channel to tracking or refreshes its name, kind and flag.
// The watermark is never touched here.
func (s *Store) UpsertTrackedChannel(ctx context.Context, ch models.TrackedChannel) error {
	query := `INSERT INTO tracked_channels (channel_id, guild_id, name, kind, is_intensive)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(channel_id) DO UPDATE SET
                  guild_id = excluded.guild_id,
                  name = excluded.name,
                  kind = excluded.kind,
                  is_intensive = excluded.is_intensive`
	if _, err := s.db.ExecContext(ctx, query, ch.ChannelID, ch.GuildID, ch.Name, string(ch.Kind), ch.IsIntensive); err != nil {
		return goerr.Wrap(err, "failed to upsert tracked channel", goerr.V("channelID", ch.ChannelID))
	}
	return nil
}

// DeleteTrackedChannel stops tracking a channel. It reports whether a row existed.
func (s *Store) DeleteTrackedChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tracked_channels WHERE guild_id = ? AND channel_id = ?", guildID, channelID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete tracked channel", goerr.V("channelID", channelID))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetTrackedChannel returns ErrNotFound when the channel is not tracked.
func (s *Store) GetTrackedChannel(ctx context.Context, channelID string) (*models.TrackedChannel, error) {
	query := `SELECT channel_id, guild_id, name, kind, is_intensive, last_stored_at
              FROM tracked_channels WHERE channel_id = ?`
	ch, err := scanTrackedChannel(s.db.QueryRowContext(ctx, query, channelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "tracked channel not found", goerr.V("channelID", channelID))
		}
		return nil, goerr.Wrap(err, "failed to get tracked channel", goerr.V("channelID", channelID))
	}
	return ch, nil
}

// ListTrackedChannels returns the tracked channels of a guild, or of every guild when
// guildID is empty.
func (s *Store) ListTrackedChannels(ctx context.Context, guildID string) ([]*models.TrackedChannel, error) {
	query := `SELECT channel_id, guild_id, name, kind, is_intensive, last_stored_at FROM tracked_channels`
	var args []interface{}
	if guildID != "" {
		query += " WHERE guild_id = ?"
		args = append(args, guildID)
	}
	query += " ORDER BY guild_id, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tracked channels", goerr.V("guildID", guildID))
	}
	defer rows.Close()

	var channels []*models.TrackedChannel
	for rows.Next() {
		ch, err := scanTrackedChannel(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan tracked channel")
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateWatermark stores the backfill watermark of a channel.
func (s *Store) UpdateWatermark(ctx context.Context, channelID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tracked_channels SET last_stored_at = ? WHERE channel_id = ?", toMillis(at), channelID)
	if err != nil {
		return goerr.Wrap(err, "failed to update watermark", goerr.V("channelID", channelID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(ErrNotFound, "tracked channel not found", goerr.V("channelID", channelID))
	}
	return nil
}

// AddTrackedRole is a no-op when the role is already tracked.
func (s *Store) AddTrackedRole(ctx context.Context, guildID, roleID string) error {
	if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO tracked_roles (guild_id, role_id) VALUES (?, ?)", guildID, roleID); err != nil {
		return goerr.Wrap(err, "failed to add tracked role", goerr.V("guildID", guildID), goerr.V("roleID", roleID))
	}
	return nil
}

// RemoveTrackedRole reports whether the role was tracked.
func (s *Store) RemoveTrackedRole(ctx context.Context, guildID, roleID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tracked_roles WHERE guild_id = ? AND role_id = ?", guildID, roleID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to remove tracked role", goerr.V("guildID", guildID), goerr.V("roleID", roleID))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// TrackedRoleIDs returns the tracked roles of a guild. The slice may be empty.
func (s *Store) TrackedRoleIDs(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT role_id FROM tracked_roles WHERE guild_id = ? ORDER BY role_id", guildID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tracked roles", goerr.V("guildID", guildID))
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, goerr.Wrap(err, "failed to scan tracked role")
		}
		roles = append(roles, roleID)
	}
	return roles, rows.Err()
}

// SetUserContext selects the guild a user configures from direct messages.
func (s *Store) SetUserContext(ctx context.Context, userID, guildID string) error {
	query := `INSERT INTO user_contexts (user_id, guild_id) VALUES (?, ?)
              ON CONFLICT(user_id) DO UPDATE SET guild_id = excluded.guild_id`
	if _, err := s.db.ExecContext(ctx, query, userID, guildID); err != nil {
		return goerr.Wrap(err, "failed to set user context", goerr.V("userID", userID))
	}
	return nil
}

// GetUserContext returns ErrNotFound when the user has not selected a guild.
func (s *Store) GetUserContext(ctx context.Context, userID string) (*models.UserContext, error) {
	var uc models.UserContext
	err := s.db.QueryRowContext(ctx, "SELECT user_id, guild_id FROM user_contexts WHERE user_id = ?", userID).Scan(&uc.UserID, &uc.GuildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "user context not found", goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get user context", goerr.V("userID", userID))
	}
	return &uc, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrackedChannel(row rowScanner) (*models.TrackedChannel, error) {
	var (
		ch   models.TrackedChannel
		kind string
		last sql.NullInt64
	)
	if err := row.Scan(&ch.ChannelID, &ch.GuildID, &ch.Name, &kind, &ch.IsIntensive, &last); err != nil {
		return nil, err
	}
	ch.Kind = models.ChannelKind(kind)
	ch.LastStoredAt = nullableMillis(last)
	return &ch, nil
}
