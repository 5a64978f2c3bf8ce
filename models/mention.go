package models

import "time"

// MentionRecord is one mention of a tracked-role member and, once answered, its response.
type MentionRecord struct {
	ID                      int64      `db:"id"`
	GuildID                 string     `db:"guild_id"`
	ChannelID               string     `db:"channel_id"` // base channel, the thread parent for thread mentions
	ThreadID                *string    `db:"thread_id"`
	MessageID               string     `db:"message_id"`
	MentionedID             string     `db:"mentioned_id"`
	MentionedName           string     `db:"mentioned_name"`
	AuthorID                string     `db:"author_id"`
	AuthorName              string     `db:"author_name"`
	CreatedAt               time.Time  `db:"created_at"`
	RespondedAt             *time.Time `db:"responded_at"`
	ClosedResponseMessageID *string    `db:"closed_response_message_id"`
}

// Thread shadows a forum thread that holds at least one mention.
type Thread struct {
	ThreadID  string    `db:"thread_id"`
	Name      string    `db:"name"`
	ParentID  string    `db:"parent_id"`
	CreatedAt time.Time `db:"created_at"`
}

// MentionCandidate is a detected mention that has not been persisted yet.
type MentionCandidate struct {
	GuildID       string
	Location      Location
	MessageID     string
	MentionedID   string
	MentionedName string
	AuthorID      string
	AuthorName    string
	CreatedAt     time.Time
}

// ResponseMatch instructs the ledger to close an open mention.
type ResponseMatch struct {
	MentionID         int64
	MentionMessageID  string
	RespondedAt       time.Time
	ResponseMessageID string
}

// MentionStats summarises the ledger of a guild over a time range.
type MentionStats struct {
	Total          int64
	Responded      int64
	AverageLatency time.Duration
}
