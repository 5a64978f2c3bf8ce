package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mention-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func plainMention(messageID, mentionedID string, at time.Time) models.MentionCandidate {
	return models.MentionCandidate{
		GuildID:       "g1",
		Location:      models.PlainText{ChannelID: "c1"},
		MessageID:     messageID,
		MentionedID:   mentionedID,
		MentionedName: "Support",
		AuthorID:      "u1",
		AuthorName:    "Alice",
		CreatedAt:     at,
	}
}

func threadMention(messageID, threadID string, at time.Time) models.MentionCandidate {
	c := plainMention(messageID, "m1", at)
	c.Location = models.ForumThread{ID: threadID, ParentID: "f1", Name: "help", CreatedAt: base}
	return c
}

func TestOpenCreatesDirectoryAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "mentions.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestTrackedChannelLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertTrackedChannel(ctx, models.TrackedChannel{
		ChannelID: "c1", GuildID: "g1", Name: "general", Kind: models.ChannelKindText,
	}))
	require.NoError(t, s.UpdateWatermark(ctx, "c1", base))

	// Refreshing the name keeps the watermark.
	require.NoError(t, s.UpsertTrackedChannel(ctx, models.TrackedChannel{
		ChannelID: "c1", GuildID: "g1", Name: "general-2", Kind: models.ChannelKindText, IsIntensive: true,
	}))

	ch, err := s.GetTrackedChannel(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "general-2", ch.Name)
	assert.True(t, ch.IsIntensive)
	require.NotNil(t, ch.LastStoredAt)
	assert.True(t, ch.LastStoredAt.Equal(base))

	deleted, err := s.DeleteTrackedChannel(ctx, "g1", "c1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetTrackedChannel(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateWatermark(ctx, "c1", base), ErrNotFound)
}

func TestListTrackedChannels(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertTrackedChannel(ctx, models.TrackedChannel{ChannelID: "c1", GuildID: "g1", Name: "b", Kind: models.ChannelKindText}))
	require.NoError(t, s.UpsertTrackedChannel(ctx, models.TrackedChannel{ChannelID: "c2", GuildID: "g1", Name: "a", Kind: models.ChannelKindForum}))
	require.NoError(t, s.UpsertTrackedChannel(ctx, models.TrackedChannel{ChannelID: "c3", GuildID: "g2", Name: "c", Kind: models.ChannelKindText}))

	g1, err := s.ListTrackedChannels(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, g1, 2)
	assert.Equal(t, "c2", g1[0].ChannelID)
	assert.Equal(t, models.ChannelKindForum, g1[0].Kind)

	all, err := s.ListTrackedChannels(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTrackedRoles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	roles, err := s.TrackedRoleIDs(ctx, "g1")
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)

	require.NoError(t, s.AddTrackedRole(ctx, "g1", "r1"))
	require.NoError(t, s.AddTrackedRole(ctx, "g1", "r1"))
	require.NoError(t, s.AddTrackedRole(ctx, "g2", "r2"))

	roles, err = s.TrackedRoleIDs(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, roles)

	removed, err := s.RemoveTrackedRole(ctx, "g1", "r1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveTrackedRole(ctx, "g1", "r1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetUserContext(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetUserContext(ctx, "u1", "g1"))
	require.NoError(t, s.SetUserContext(ctx, "u1", "g2"))

	uc, err := s.GetUserContext(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "g2", uc.GuildID)
}

func TestDeleteGuildRemovesConfigurationOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertGuild(ctx, models.Guild{GuildID: "g1", Name: "Guild"}))
	require.NoError(t, s.UpsertTrackedChannel(ctx, models.TrackedChannel{ChannelID: "c1", GuildID: "g1", Kind: models.ChannelKindText}))
	require.NoError(t, s.AddTrackedRole(ctx, "g1", "r1"))
	require.NoError(t, s.SetUserContext(ctx, "u1", "g1"))
	_, err := s.RecordMention(ctx, plainMention("msg1", "m1", base))
	require.NoError(t, err)

	require.NoError(t, s.DeleteGuild(ctx, "g1"))

	channels, err := s.ListTrackedChannels(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, channels)
	roles, err := s.TrackedRoleIDs(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, roles)
	_, err = s.GetUserContext(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetMentionByMessage(ctx, "g1", "msg1")
	assert.NoError(t, err)
}
