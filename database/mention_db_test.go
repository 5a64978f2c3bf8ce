package database

import (
	"context"
	"testing"
	"time"

	"mention-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMentionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.RecordMention(ctx, plainMention("msg1", "m1", base))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.RecordMention(ctx, plainMention("msg1", "m1", base))
	require.NoError(t, err)
	assert.False(t, created)

	all, err := s.ListMentions(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].ThreadID)
	assert.Nil(t, all[0].RespondedAt)
	assert.True(t, all[0].CreatedAt.Equal(base))
}

func TestRecordMentionInThreadStoresThread(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordMention(ctx, threadMention("msg1", "t1", base))
	require.NoError(t, err)

	thread, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "help", thread.Name)
	assert.Equal(t, "f1", thread.ParentID)

	rec, err := s.GetMentionByMessage(ctx, "g1", "msg1")
	require.NoError(t, err)
	require.NotNil(t, rec.ThreadID)
	assert.Equal(t, "t1", *rec.ThreadID)
	assert.Equal(t, "f1", rec.ChannelID)
}

func TestCloseMentionOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordMention(ctx, plainMention("msg1", "m1", base))
	require.NoError(t, err)
	rec, err := s.GetMentionByMessage(ctx, "g1", "msg1")
	require.NoError(t, err)

	first := models.ResponseMatch{MentionID: rec.ID, MentionMessageID: "msg1", RespondedAt: base.Add(5 * time.Minute), ResponseMessageID: "msg2"}
	closed, err := s.CloseMention(ctx, first)
	require.NoError(t, err)
	assert.True(t, closed)

	second := first
	second.RespondedAt = base.Add(10 * time.Minute)
	second.ResponseMessageID = "msg3"
	closed, err = s.CloseMention(ctx, second)
	require.NoError(t, err)
	assert.False(t, closed)

	rec, err = s.GetMentionByMessage(ctx, "g1", "msg1")
	require.NoError(t, err)
	require.NotNil(t, rec.RespondedAt)
	assert.True(t, rec.RespondedAt.Equal(base.Add(5*time.Minute)))
	require.NotNil(t, rec.ClosedResponseMessageID)
	assert.Equal(t, "msg2", *rec.ClosedResponseMessageID)
}

func TestCloseMentionRejectsEarlierResponse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordMention(ctx, plainMention("msg1", "m1", base))
	require.NoError(t, err)
	rec, err := s.GetMentionByMessage(ctx, "g1", "msg1")
	require.NoError(t, err)

	closed, err := s.CloseMention(ctx, models.ResponseMatch{MentionID: rec.ID, RespondedAt: base.Add(-time.Minute), ResponseMessageID: "msg0"})
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestFindOpenMentions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordMention(ctx, plainMention("msg1", "m1", base))
	require.NoError(t, err)
	_, err = s.RecordMention(ctx, plainMention("msg2", "m1", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.RecordMention(ctx, threadMention("msg3", "t1", base.Add(2*time.Minute)))
	require.NoError(t, err)

	t.Run("latest in plain channel", func(t *testing.T) {
		rec, err := s.FindLatestOpenMention(ctx, "g1", "c1", "", "m1", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "msg2", rec.MessageID)
	})

	t.Run("bounded by time", func(t *testing.T) {
		rec, err := s.FindLatestOpenMention(ctx, "g1", "c1", "", "m1", base.Add(30*time.Second))
		require.NoError(t, err)
		assert.Equal(t, "msg1", rec.MessageID)
	})

	t.Run("thread scope", func(t *testing.T) {
		rec, err := s.FindLatestOpenMention(ctx, "g1", "f1", "t1", "m1", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "msg3", rec.MessageID)

		_, err = s.FindLatestOpenMention(ctx, "g1", "f1", "t2", "m1", base.Add(time.Hour))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("by message", func(t *testing.T) {
		rec, err := s.FindOpenMentionByMessage(ctx, "g1", "msg1", "m1")
		require.NoError(t, err)
		assert.Equal(t, "msg1", rec.MessageID)

		_, err = s.FindOpenMentionByMessage(ctx, "g1", "msg1", "someone-else")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetMentionStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, id := range []string{"msg1", "msg2", "msg3"} {
		_, err := s.RecordMention(ctx, plainMention(id, "m1", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	for i, id := range []string{"msg1", "msg2"} {
		rec, err := s.GetMentionByMessage(ctx, "g1", id)
		require.NoError(t, err)
		latency := time.Duration(i+1) * 2 * time.Minute // 2m and 4m
		_, err = s.CloseMention(ctx, models.ResponseMatch{MentionID: rec.ID, RespondedAt: rec.CreatedAt.Add(latency), ResponseMessageID: "r" + id})
		require.NoError(t, err)
	}

	stats, err := s.GetMentionStats(ctx, "g1", base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Responded)
	assert.Equal(t, 3*time.Minute, stats.AverageLatency)

	empty, err := s.GetMentionStats(ctx, "g2", base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AverageLatency)
}
