package handlers

import (
	"mention-bot/bot"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	// Register event handlers
	b.Session.AddHandler(InteractionCreate(b))
	b.Session.AddHandler(MessageCreate(b))
	b.Session.AddHandler(MessageDelete(b))
	b.Session.AddHandler(MessageDeleteBulk(b))
	b.Session.AddHandler(ThreadDelete(b))
	b.Session.AddHandler(ThreadUpdate(b))
	b.Session.AddHandler(GuildCreate(b))
	b.Session.AddHandler(GuildDelete(b))

	// Add a ready handler to log when the bot is connected.
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		utils.Logger().Infow("Logged in", "user", s.State.User.Username, "guilds", len(r.Guilds))
		if b.Health != nil {
			b.Health.SetServing(true)
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Resumed) {
		if b.Health != nil {
			b.Health.SetServing(true)
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		utils.Logger().Warn("Gateway disconnected")
		if b.Health != nil {
			b.Health.SetServing(false)
		}
	})
}
