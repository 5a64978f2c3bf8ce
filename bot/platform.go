package bot

import (
	"context"
	"time"

	"mention-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
)

// Platform adapts a discordgo session to the interfaces of the tracker and the scanner.
type Platform struct {
	session *discordgo.Session
}

// NewPlatform wraps a session.
func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{session: s}
}

// GuildMember resolves a member, preferring the gateway state cache.
func (p *Platform) GuildMember(ctx context.Context, guildID, userID string) (*models.Member, error) {
	m, err := p.session.State.Member(guildID, userID)
	if err != nil || m == nil {
		m, err = p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get guild member",
				goerr.V("guildID", guildID),
				goerr.V("userID", userID))
		}
	}
	return ToMember(m), nil
}

// MessagesBefore reads one page of history at loc.
func (p *Platform) MessagesBefore(ctx context.Context, guildID string, loc models.Location, beforeID string, limit int) ([]*models.Message, error) {
	channelID := loc.BaseChannelID()
	if loc.ThreadID() != "" {
		channelID = loc.ThreadID()
	}

	msgs, err := p.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get channel messages", goerr.V("channelID", channelID))
	}

	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		if msg := ToMessage(m, guildID, loc); msg != nil {
			out = append(out, msg)
		}
	}
	return out, nil
}

// ActiveThreads lists the active threads under a forum channel.
func (p *Platform) ActiveThreads(ctx context.Context, guildID, parentID string) ([]models.ForumThread, error) {
	list, err := p.session.GuildThreadsActive(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active threads", goerr.V("guildID", guildID))
	}
	var threads []models.ForumThread
	for _, ch := range list.Threads {
		if ch.ParentID == parentID {
			threads = append(threads, ToForumThread(ch))
		}
	}
	return threads, nil
}

// ArchivedThreads lists one page of public archived threads under a forum channel.
func (p *Platform) ArchivedThreads(ctx context.Context, parentID string, limit int) ([]models.ForumThread, error) {
	list, err := p.session.ThreadsArchived(parentID, nil, limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get archived threads", goerr.V("channelID", parentID))
	}
	threads := make([]models.ForumThread, 0, len(list.Threads))
	for _, ch := range list.Threads {
		threads = append(threads, ToForumThread(ch))
	}
	return threads, nil
}

// DirectMessage sends content to a user's DM channel.
func (p *Platform) DirectMessage(ctx context.Context, userID, content string) error {
	ch, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return goerr.Wrap(err, "failed to open DM channel", goerr.V("userID", userID))
	}
	if _, err := p.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return goerr.Wrap(err, "failed to send DM", goerr.V("userID", userID))
	}
	return nil
}

// ResolveLocation tells whether channelID is a thread or a plain channel.
func (p *Platform) ResolveLocation(ctx context.Context, channelID string) (models.Location, error) {
	ch, err := p.session.State.Channel(channelID)
	if err != nil || ch == nil {
		ch, err = p.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get channel", goerr.V("channelID", channelID))
		}
	}
	return LocationOf(ch), nil
}

// LocationOf maps a channel to a message location.
func LocationOf(ch *discordgo.Channel) models.Location {
	if ch.IsThread() {
		return ToForumThread(ch)
	}
	return models.PlainText{ChannelID: ch.ID}
}

// ToForumThread converts a thread channel.
func ToForumThread(ch *discordgo.Channel) models.ForumThread {
	created, err := discordgo.SnowflakeTimestamp(ch.ID)
	if err != nil {
		created = time.Now()
	}
	return models.ForumThread{
		ID:        ch.ID,
		ParentID:  ch.ParentID,
		Name:      ch.Name,
		CreatedAt: created.UTC(),
	}
}

// ToMember converts a guild member.
func ToMember(m *discordgo.Member) *models.Member {
	member := &models.Member{
		DisplayName: m.Nick,
		Roles:       m.Roles,
	}
	if m.User != nil {
		member.UserID = m.User.ID
		if member.DisplayName == "" {
			member.DisplayName = userName(m.User)
		}
	}
	return member
}

// ToMessage converts a message posted at loc. Messages without an author are dropped.
func ToMessage(m *discordgo.Message, guildID string, loc models.Location) *models.Message {
	if m.Author == nil {
		return nil
	}
	if guildID == "" {
		guildID = m.GuildID
	}

	name := userName(m.Author)
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}

	msg := &models.Message{
		ID:         m.ID,
		GuildID:    guildID,
		Location:   loc,
		AuthorID:   m.Author.ID,
		AuthorName: name,
		AuthorBot:  m.Author.Bot,
		Content:    m.Content,
		CreatedAt:  m.Timestamp.UTC(),
	}
	if m.Type == discordgo.MessageTypeReply && m.MessageReference != nil {
		msg.ReferenceID = m.MessageReference.MessageID
	}
	if msg.CreatedAt.IsZero() {
		if ts, err := discordgo.SnowflakeTimestamp(m.ID); err == nil {
			msg.CreatedAt = ts.UTC()
		}
	}
	return msg
}

func userName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
