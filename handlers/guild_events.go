package handlers

import (
	"context"
	"fmt"

	"mention-bot/bot"
	"mention-bot/models"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// GuildCreate records the guilds the bot is in.
func GuildCreate(b *bot.Bot) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(s *discordgo.Session, g *discordgo.GuildCreate) {
		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		if err := b.Store.UpsertGuild(ctx, models.Guild{GuildID: g.ID, Name: g.Name}); err != nil {
			utils.Logger().Errorw("failed to record guild", "guildID", g.ID, "error", err)
		}
	}
}

// GuildDelete drops the configuration of a guild the bot has left. Outages also produce
// this event, with Unavailable set; those are ignored.
func GuildDelete(b *bot.Bot) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(s *discordgo.Session, g *discordgo.GuildDelete) {
		if g.Unavailable {
			return
		}

		ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
		defer cancel()

		if err := b.Store.DeleteGuild(ctx, g.ID); err != nil {
			utils.Logger().Errorw("failed to remove guild configuration", "guildID", g.ID, "error", err)
			return
		}
		b.Tracker.InvalidateRoles(g.ID)
		utils.Info("GuildDelete", "Cleanup", fmt.Sprintf("Removed the configuration of guild %s", g.ID))
	}
}
