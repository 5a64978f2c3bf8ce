package handlers

import (
	"context"
	"strings"
	"time"

	"mention-bot/bot"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

const eventTimeout = 30 * time.Second

// MessageCreate feeds every guild message to the correlation engine. It also answers the
// prefix ping.
func MessageCreate(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore all messages created by the bot itself
		if m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}

		prefix := b.Config.Bot.Prefix
		if prefix == "" {
			prefix = "!" // Default prefix
		}
		if strings.TrimSpace(m.Content) == prefix+"ping" {
			if _, err := s.ChannelMessageSend(m.ChannelID, "Pong!"); err != nil {
				utils.Logger().Warnw("failed to answer ping", "channelID", m.ChannelID, "error", err)
			}
			return
		}

		if m.GuildID == "" || m.Author.Bot {
			return
		}

		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		loc, err := b.Platform.ResolveLocation(ctx, m.ChannelID)
		if err != nil {
			utils.Logger().Warnw("cannot resolve message channel", "channelID", m.ChannelID, "error", err)
			return
		}

		msg := bot.ToMessage(m.Message, m.GuildID, loc)
		if msg == nil {
			return
		}
		if err := b.Tracker.HandleMessage(ctx, msg); err != nil {
			utils.Logger().Errorw("failed to process message",
				"messageID", m.ID,
				"channelID", m.ChannelID,
				"guildID", m.GuildID,
				"error", err)
		}
	}
}
