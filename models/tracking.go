package models

import "time"

// ChannelKind is the declared kind of a tracked channel.
type ChannelKind string

const (
	ChannelKindText  ChannelKind = "text"
	ChannelKindForum ChannelKind = "forum"
)

// TrackedChannel is a channel under surveillance. LastStoredAt is the backfill
// watermark and stays nil until a backfill pass succeeds.
type TrackedChannel struct {
	ChannelID    string      `db:"channel_id"` // Unique
	GuildID      string      `db:"guild_id"`
	Name         string      `db:"name"`
	Kind         ChannelKind `db:"kind"`
	IsIntensive  bool        `db:"is_intensive"`
	LastStoredAt *time.Time  `db:"last_stored_at"`
}

// TrackedRole is a role whose members are watched for mentions.
type TrackedRole struct {
	GuildID string `db:"guild_id"`
	RoleID  string `db:"role_id"`
}

// Guild is a server the bot has joined.
type Guild struct {
	GuildID string `db:"guild_id"`
	Name    string `db:"name"`
}

// UserContext remembers which guild a user configures from direct messages.
type UserContext struct {
	UserID  string `db:"user_id"`
	GuildID string `db:"guild_id"`
}
