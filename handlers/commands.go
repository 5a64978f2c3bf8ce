package handlers

import (
	"context"
	"errors"

	"mention-bot/bot"
	"mention-bot/database"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

var commandPermissions = map[string]string{
	"ping":          "guest",
	"setserver":     "guest",
	"currentserver": "guest",
	"trackchannel":  "admin",
	"trackrole":     "admin",
	"backfill":      "admin",
	"mentionstats":  "admin",
}

// guildCommand handles a command scoped to a guild the user may configure.
type guildCommand func(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, guildID string)

var guildCommands = map[string]guildCommand{
	"trackchannel": HandleTrackChannel,
	"trackrole":    HandleTrackRole,
	"backfill":     HandleBackfill,
	"mentionstats": HandleMentionStats,
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name
	requiredLevel, ok := commandPermissions[commandName]
	if !ok {
		respond(s, i, "🚫 Internal error: unknown command.")
		return
	}
	if !b.Auth.CheckPermission(s, i, requiredLevel) {
		respond(s, i, "🚫 You do not have permission to run this command.")
		return
	}

	if handler, ok := guildCommands[commandName]; ok {
		guildID, msg := resolveGuild(b, i)
		if guildID == "" {
			respond(s, i, msg)
			return
		}
		// DM invocations skip the guild check in CheckPermission.
		if !b.Auth.CanConfigureGuild(s, guildID, utils.InteractionUserID(i)) {
			respond(s, i, "🚫 You are not allowed to configure this server.")
			return
		}
		handler(b, s, i, guildID)
		return
	}

	switch commandName {
	case "ping":
		HandlePing(s, i)
	case "setserver":
		HandleSetServer(b, s, i)
	case "currentserver":
		HandleCurrentServer(b, s, i)
	}
}

// resolveGuild returns the guild a command applies to: the guild it was run in, or the
// guild selected with /setserver for direct messages. On failure it returns a message for
// the user.
func resolveGuild(b *bot.Bot, i *discordgo.InteractionCreate) (string, string) {
	if i.GuildID != "" {
		return i.GuildID, ""
	}

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()

	uc, err := b.Store.GetUserContext(ctx, utils.InteractionUserID(i))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", "No server selected. Run `/setserver` first."
		}
		utils.Logger().Errorw("failed to load user context", "error", err)
		return "", "❌ Could not load your selected server."
	}
	return uc.GuildID, ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		utils.Logger().Warnw("failed to respond to interaction", "error", err)
	}
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}
