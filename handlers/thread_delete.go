package handlers

import (
	"context"
	"fmt"

	"mention-bot/bot"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// ThreadDelete handles the THREAD_DELETE event.
func ThreadDelete(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadDelete) {
	return func(s *discordgo.Session, t *discordgo.ThreadDelete) {
		utils.Logger().Debugw("Thread delete event received", "threadID", t.ID, "guildID", t.GuildID)

		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		if err := b.Tracker.OnThreadDeleted(ctx, t.ID); err != nil {
			utils.Error("ThreadDelete", "DatabaseUpdate", fmt.Sprintf("Error deleting thread %s: %v", t.ID, err))
		}
	}
}

// ThreadUpdate keeps stored thread names current.
func ThreadUpdate(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadUpdate) {
	return func(s *discordgo.Session, t *discordgo.ThreadUpdate) {
		if t.BeforeUpdate != nil && t.BeforeUpdate.Name == t.Name {
			return
		}

		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		if err := b.Tracker.OnThreadUpdated(ctx, t.ID, t.Name); err != nil {
			utils.Logger().Errorw("failed to rename thread", "threadID", t.ID, "error", err)
		}
	}
}
