package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mention-bot/database"
	"mention-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Snowflake-like user ids; mention tokens only carry digits.
const (
	supportID  = "310000000000000001"
	support2ID = "310000000000000002"
	aliceID    = "310000000000000011"
	bobID      = "310000000000000012"
	goneID     = "310000000000000099"
)

func ping(userID string) string {
	return "<@" + userID + ">"
}

type mockMembers struct {
	mock.Mock
}

func (m *mockMembers) GuildMember(ctx context.Context, guildID, userID string) (*models.Member, error) {
	args := m.Called(ctx, guildID, userID)
	member, _ := args.Get(0).(*models.Member)
	return member, args.Error(1)
}

type fixture struct {
	store   *database.Store
	members *mockMembers
	tracker *Tracker
}

// newFixture sets up guild g1 with tracked text channel c1, tracked forum f1 and the
// tracked role "support".
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.UpsertTrackedChannel(ctx, models.TrackedChannel{ChannelID: "c1", GuildID: "g1", Name: "help", Kind: models.ChannelKindText}))
	require.NoError(t, store.UpsertTrackedChannel(ctx, models.TrackedChannel{ChannelID: "f1", GuildID: "g1", Name: "forum", Kind: models.ChannelKindForum}))
	require.NoError(t, store.AddTrackedRole(ctx, "g1", "support"))

	members := &mockMembers{}
	tr := New(store, members, 0)
	t.Cleanup(tr.Close)
	return &fixture{store: store, members: members, tracker: tr}
}

func (f *fixture) member(userID, name string, roles ...string) {
	f.members.On("GuildMember", mock.Anything, "g1", userID).Return(&models.Member{UserID: userID, DisplayName: name, Roles: roles}, nil)
}

func message(id, authorID, content string, at time.Time) *models.Message {
	return &models.Message{
		ID:         id,
		GuildID:    "g1",
		Location:   models.PlainText{ChannelID: "c1"},
		AuthorID:   authorID,
		AuthorName: "user-" + authorID,
		Content:    content,
		CreatedAt:  at,
	}
}

func TestHandleMessageRecordsMentionAndResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	require.NoError(t, f.tracker.HandleMessage(ctx, message("m1", aliceID, ping(supportID)+" hi", base)))

	rec, err := f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.Equal(t, supportID, rec.MentionedID)
	assert.Equal(t, "Support", rec.MentionedName)
	assert.Equal(t, aliceID, rec.AuthorID)
	assert.Equal(t, "c1", rec.ChannelID)
	assert.Nil(t, rec.ThreadID)
	assert.Nil(t, rec.RespondedAt)

	reply := message("m2", supportID, "hello!", base.Add(2*time.Minute))
	reply.ReferenceID = "m1"
	require.NoError(t, f.tracker.HandleMessage(ctx, reply))

	rec, err = f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	require.NotNil(t, rec.RespondedAt)
	assert.Equal(t, 2*time.Minute, rec.RespondedAt.Sub(rec.CreatedAt))
	require.NotNil(t, rec.ClosedResponseMessageID)
	assert.Equal(t, "m2", *rec.ClosedResponseMessageID)
}

func TestHandleMessageIgnoresBotsDMsAndUntrackedChannels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fromBot := message("m1", "bot", ping(supportID), base)
	fromBot.AuthorBot = true
	require.NoError(t, f.tracker.HandleMessage(ctx, fromBot))

	dm := message("m2", aliceID, ping(supportID), base)
	dm.GuildID = ""
	require.NoError(t, f.tracker.HandleMessage(ctx, dm))

	elsewhere := message("m3", aliceID, ping(supportID), base)
	elsewhere.Location = models.PlainText{ChannelID: "other"}
	require.NoError(t, f.tracker.HandleMessage(ctx, elsewhere))

	all, err := f.store.ListMentions(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, all)
	f.members.AssertNotCalled(t, "GuildMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessageIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	msg := message("m1", aliceID, ping(supportID), base)
	require.NoError(t, f.tracker.HandleMessage(ctx, msg))
	require.NoError(t, f.tracker.HandleMessage(ctx, msg))

	all, err := f.store.ListMentions(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResponseClosesAtMostOneMention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	require.NoError(t, f.tracker.HandleMessage(ctx, message("m1", aliceID, ping(supportID)+" first", base)))
	require.NoError(t, f.tracker.HandleMessage(ctx, message("m2", bobID, ping(supportID)+" second", base.Add(time.Minute))))

	require.NoError(t, f.tracker.HandleMessage(ctx, message("m3", supportID, "on it", base.Add(2*time.Minute))))

	first, err := f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	second, err := f.store.GetMentionByMessage(ctx, "g1", "m2")
	require.NoError(t, err)
	assert.Nil(t, first.RespondedAt, "only the most recent open mention is closed")
	require.NotNil(t, second.RespondedAt)

	// The next plain message answers the remaining one.
	require.NoError(t, f.tracker.HandleMessage(ctx, message("m4", supportID, "and you", base.Add(3*time.Minute))))
	first, err = f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	require.NotNil(t, first.RespondedAt)
	assert.True(t, first.RespondedAt.Equal(base.Add(3*time.Minute)))

	// Nothing is left to close, and closed mentions keep their first response.
	require.NoError(t, f.tracker.HandleMessage(ctx, message("m5", supportID, "again", base.Add(4*time.Minute))))
	second, err = f.store.GetMentionByMessage(ctx, "g1", "m2")
	require.NoError(t, err)
	assert.True(t, second.RespondedAt.Equal(base.Add(2*time.Minute)))
}

func TestReplyMatchesOnlyTheReferencedMention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	require.NoError(t, f.tracker.HandleMessage(ctx, message("m1", aliceID, ping(supportID), base)))

	// A reply to an unrelated message does not fall back to the open mention.
	reply := message("m2", supportID, "reply elsewhere", base.Add(time.Minute))
	reply.ReferenceID = "unrelated"
	require.NoError(t, f.tracker.HandleMessage(ctx, reply))

	rec, err := f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.Nil(t, rec.RespondedAt)
}

func TestResponsesStayInTheirThread(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	thread := func(id string) models.ForumThread {
		return models.ForumThread{ID: id, ParentID: "f1", Name: "topic " + id, CreatedAt: base}
	}

	mention := message("m1", aliceID, ping(supportID)+" help", base)
	mention.Location = thread("t1")
	require.NoError(t, f.tracker.HandleMessage(ctx, mention))

	other := message("m2", supportID, "wrong thread", base.Add(time.Minute))
	other.Location = thread("t2")
	require.NoError(t, f.tracker.HandleMessage(ctx, other))

	plain := message("m3", supportID, "wrong channel", base.Add(time.Minute))
	require.NoError(t, f.tracker.HandleMessage(ctx, plain))

	rec, err := f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.Nil(t, rec.RespondedAt)

	answer := message("m4", supportID, "here", base.Add(2*time.Minute))
	answer.Location = thread("t1")
	require.NoError(t, f.tracker.HandleMessage(ctx, answer))

	rec, err = f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.NotNil(t, rec.RespondedAt)
}

func TestHandleMessageInThreadOfTextChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	msg := message("m1", aliceID, ping(supportID), base)
	msg.Location = models.ForumThread{ID: "t5", ParentID: "c1", Name: "side topic", CreatedAt: base}
	require.NoError(t, f.tracker.HandleMessage(ctx, msg))

	rec, err := f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "c1", rec.ChannelID)
	require.NotNil(t, rec.ThreadID)
	assert.Equal(t, "t5", *rec.ThreadID)
}

func TestMessageCanAnswerAndMention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")
	f.member(support2ID, "Support 2", "support")

	require.NoError(t, f.tracker.HandleMessage(ctx, message("m1", aliceID, ping(supportID), base)))
	require.NoError(t, f.tracker.HandleMessage(ctx, message("m2", supportID, "asking "+ping(support2ID), base.Add(time.Minute))))

	first, err := f.store.GetMentionByMessage(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.NotNil(t, first.RespondedAt)

	handoff, err := f.store.GetMentionByMessage(ctx, "g1", "m2")
	require.NoError(t, err)
	assert.Equal(t, support2ID, handoff.MentionedID)
}

func TestTrackedRolesCache(t *testing.T) {
	ctx := context.Background()
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	tr := New(store, &mockMembers{}, time.Hour)
	defer tr.Close()

	roles, err := tr.TrackedRoles(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, roles)

	require.NoError(t, store.AddTrackedRole(ctx, "g1", "support"))
	roles, err = tr.TrackedRoles(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, roles, "served from cache")

	tr.InvalidateRoles("g1")
	roles, err = tr.TrackedRoles(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"support"}, roles)
}

func TestDeletionCleanup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(supportID, "Support", "support")

	inThread := func(id string, at time.Time) *models.Message {
		m := message(id, aliceID, ping(supportID), at)
		m.Location = models.ForumThread{ID: "t1", ParentID: "f1", Name: "topic", CreatedAt: base}
		return m
	}
	require.NoError(t, f.tracker.HandleMessage(ctx, inThread("m1", base)))
	require.NoError(t, f.tracker.HandleMessage(ctx, inThread("m2", base.Add(time.Minute))))

	require.NoError(t, f.tracker.OnMessageDeleted(ctx, "m1", "g1"))
	_, err := f.store.GetThread(ctx, "t1")
	require.NoError(t, err, "thread still holds a mention")

	require.NoError(t, f.tracker.OnThreadUpdated(ctx, "t1", "renamed"))
	thread, err := f.store.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", thread.Name)

	require.NoError(t, f.tracker.OnThreadDeleted(ctx, "t1"))
	all, err := f.store.ListMentions(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, all)

	// Deleting again, or deleting a message that never mentioned anyone, is fine.
	assert.NoError(t, f.tracker.OnThreadDeleted(ctx, "t1"))
	assert.NoError(t, f.tracker.OnMessageDeleted(ctx, "never-seen", "g1"))
}

func TestHandleMessageReportsLedgerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	err := f.tracker.HandleMessage(ctx, message("m1", aliceID, ping(supportID), base))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, database.ErrNotFound))
}
