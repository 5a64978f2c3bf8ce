package models

import "time"

// Message is the platform-neutral view of a chat message.
type Message struct {
	ID          string
	GuildID     string
	Location    Location
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	ReferenceID string // id of the replied-to message, empty when not a reply
	CreatedAt   time.Time
}

// Member is a resolved guild member.
type Member struct {
	UserID      string
	DisplayName string
	Roles       []string
}

// Location is where a message was posted: a plain text channel or a forum thread.
type Location interface {
	// BaseChannelID is the channel mentions are attributed to.
	BaseChannelID() string
	// ThreadID is empty outside threads.
	ThreadID() string
	isLocation()
}

// PlainText is a message posted directly in a text channel.
type PlainText struct {
	ChannelID string
}

func (p PlainText) BaseChannelID() string { return p.ChannelID }
func (p PlainText) ThreadID() string      { return "" }
func (PlainText) isLocation()             {}

// ForumThread is a message posted inside a thread.
type ForumThread struct {
	ID        string
	ParentID  string
	Name      string
	CreatedAt time.Time
}

func (f ForumThread) BaseChannelID() string { return f.ParentID }
func (f ForumThread) ThreadID() string      { return f.ID }
func (ForumThread) isLocation()             {}

// Thread returns the shadow row for this thread.
func (f ForumThread) Thread() Thread {
	return Thread{ThreadID: f.ID, Name: f.Name, ParentID: f.ParentID, CreatedAt: f.CreatedAt}
}
