package tracker

import (
	"context"
	"errors"
	"testing"

	"mention-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExtractMentionIDs(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", "hello", []string{}},
		{"plain", "<@123> hi", []string{"123"}},
		{"nickname form", "hey <@!456>", []string{"456"}},
		{"text order", "<@2> and <@!1>", []string{"2", "1"}},
		{"duplicates", "<@1> <@!1> <@1>", []string{"1"}},
		{"role and channel mentions", "<@&9> <#8> <@7>", []string{"7"}},
		{"non numeric ids", "<@alice> <@!bob>", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractMentionIDs(tc.content))
		})
	}
}

func TestDetectMention(t *testing.T) {
	ctx := context.Background()
	msg := func(content string) *models.Message {
		return &models.Message{
			ID: "m1", GuildID: "g1", Location: models.PlainText{ChannelID: "c1"},
			AuthorID: aliceID, AuthorName: "Alice", Content: content, CreatedAt: base,
		}
	}

	t.Run("no tracked roles skips lookups", func(t *testing.T) {
		members := &mockMembers{}
		tr := New(nil, members, 0)

		c, err := tr.DetectMention(ctx, msg(ping(supportID)), nil)
		require.NoError(t, err)
		assert.Nil(t, c)
		members.AssertNotCalled(t, "GuildMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("self mention never counts", func(t *testing.T) {
		members := &mockMembers{}
		tr := New(nil, members, 0)

		c, err := tr.DetectMention(ctx, msg(ping(aliceID)), []string{"support"})
		require.NoError(t, err)
		assert.Nil(t, c)
		members.AssertNotCalled(t, "GuildMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("first qualifying user wins", func(t *testing.T) {
		members := &mockMembers{}
		members.On("GuildMember", mock.Anything, "g1", bobID).Return(&models.Member{UserID: bobID, DisplayName: "Bob", Roles: []string{"member"}}, nil)
		members.On("GuildMember", mock.Anything, "g1", supportID).Return(&models.Member{UserID: supportID, DisplayName: "S1", Roles: []string{"support"}}, nil)
		tr := New(nil, members, 0)

		c, err := tr.DetectMention(ctx, msg(ping(bobID) + " " + ping(supportID) + " " + ping(support2ID)), []string{"support"})
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, supportID, c.MentionedID)
		assert.Equal(t, "S1", c.MentionedName)
		assert.Equal(t, "Alice", c.AuthorName)
		assert.Equal(t, "m1", c.MessageID)
		members.AssertNotCalled(t, "GuildMember", mock.Anything, "g1", support2ID)
	})

	t.Run("lookup failure skips that user", func(t *testing.T) {
		members := &mockMembers{}
		members.On("GuildMember", mock.Anything, "g1", goneID).Return(nil, errors.New("unknown member"))
		members.On("GuildMember", mock.Anything, "g1", supportID).Return(&models.Member{UserID: supportID, Roles: []string{"support"}}, nil)
		tr := New(nil, members, 0)

		c, err := tr.DetectMention(ctx, msg(ping(goneID) + " " + ping(supportID)), []string{"support"})
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, supportID, c.MentionedID)
		members.AssertExpectations(t)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		tr := New(nil, &mockMembers{}, 0)

		_, err := tr.DetectMention(cctx, msg(ping(supportID)), []string{"support"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
