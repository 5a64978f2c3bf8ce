package handlers

import (
	"context"

	"mention-bot/bot"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// MessageDelete removes the mention recorded for a deleted message.
func MessageDelete(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDelete) {
	return func(s *discordgo.Session, m *discordgo.MessageDelete) {
		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		if err := b.Tracker.OnMessageDeleted(ctx, m.ID, m.GuildID); err != nil {
			utils.Logger().Errorw("failed to clean up deleted message", "messageID", m.ID, "guildID", m.GuildID, "error", err)
		}
	}
}

// MessageDeleteBulk handles purges the same way, one message at a time.
func MessageDeleteBulk(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	return func(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		for _, id := range m.Messages {
			if err := b.Tracker.OnMessageDeleted(ctx, id, m.GuildID); err != nil {
				utils.Logger().Errorw("failed to clean up deleted message", "messageID", id, "guildID", m.GuildID, "error", err)
			}
		}
	}
}
