package handlers

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"mention-bot/bot"
	"mention-bot/models"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// rejectingTransport answers every REST call with 403 Missing Access.
type rejectingTransport struct {
	mu    sync.Mutex
	paths []string
}

func (rt *rejectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.paths = append(rt.paths, req.URL.Path)
	rt.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusForbidden,
		Status:     "403 Forbidden",
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"message": "Missing Access", "code": 50001}`)),
		Request:    req,
	}, nil
}

func TestMessageCreateLogsFailedPing(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	utils.SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { utils.SetLogger(zap.NewNop().Sugar()) })

	s, err := discordgo.New("Bot test")
	require.NoError(t, err)
	transport := &rejectingTransport{}
	s.Client = &http.Client{Transport: transport}
	s.State.User = &discordgo.User{ID: "bot"}

	b := &bot.Bot{Config: &models.Config{}}
	MessageCreate(b)(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   "!ping",
		Author:    &discordgo.User{ID: "u1"},
	}})

	require.Len(t, transport.paths, 1)
	assert.Contains(t, transport.paths[0], "/channels/c1/messages")

	entries := logs.FilterMessage("failed to answer ping").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ContextMap()["channelID"])
}
