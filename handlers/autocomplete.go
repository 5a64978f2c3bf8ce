package handlers

import (
	"context"
	"strings"

	"mention-bot/bot"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func HandleAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	for _, opt := range data.Options {
		if !opt.Focused {
			continue
		}
		query := strings.ToLower(opt.StringValue())

		var choices []*discordgo.ApplicationCommandOptionChoice
		switch {
		case data.Name == "setserver" && opt.Name == "guild_id":
			choices = guildChoices(b, s, i, query)
		case data.Name == "trackchannel" && opt.Name == "channel":
			choices = channelChoices(b, s, i, query)
		case data.Name == "trackrole" && opt.Name == "role":
			choices = roleChoices(b, s, i, query)
		case data.Name == "backfill" && opt.Name == "channel":
			choices = trackedChannelChoices(b, i, query)
		}
		autocompleteRespond(s, i, choices)
		return
	}
}

func guildChoices(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, query string) []*discordgo.ApplicationCommandOptionChoice {
	userID := utils.InteractionUserID(i)
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, g := range s.State.Guilds {
		if len(choices) == maxChoices {
			break
		}
		if !matches(g.Name, query) || !b.Auth.CanConfigureGuild(s, g.ID, userID) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: g.Name, Value: g.ID})
	}
	return choices
}

func channelChoices(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, query string) []*discordgo.ApplicationCommandOptionChoice {
	guildID, _ := resolveGuild(b, i)
	if guildID == "" {
		return nil
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, ch := range guild.Channels {
		if len(choices) == maxChoices {
			break
		}
		switch ch.Type {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeGuildForum:
		default:
			continue
		}
		if matches(ch.Name, query) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: "#" + ch.Name, Value: ch.ID})
		}
	}
	return choices
}

func roleChoices(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, query string) []*discordgo.ApplicationCommandOptionChoice {
	guildID, _ := resolveGuild(b, i)
	if guildID == "" {
		return nil
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, r := range guild.Roles {
		if len(choices) == maxChoices {
			break
		}
		if r.ID == guildID || r.Managed {
			continue // @everyone and integration roles
		}
		if matches(r.Name, query) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: "@" + r.Name, Value: r.ID})
		}
	}
	return choices
}

func trackedChannelChoices(b *bot.Bot, i *discordgo.InteractionCreate, query string) []*discordgo.ApplicationCommandOptionChoice {
	guildID, _ := resolveGuild(b, i)
	if guildID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()
	channels, err := b.Store.ListTrackedChannels(ctx, guildID)
	if err != nil {
		utils.Logger().Warnw("failed to list tracked channels for autocomplete", "guildID", guildID, "error", err)
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, ch := range channels {
		if len(choices) == maxChoices {
			break
		}
		if matches(ch.Name, query) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  "#" + ch.Name + " (" + string(ch.Kind) + ")",
				Value: ch.ChannelID,
			})
		}
	}
	return choices
}

func matches(name, query string) bool {
	return query == "" || strings.Contains(strings.ToLower(name), query)
}

func autocompleteRespond(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		utils.Logger().Warnw("Error responding to autocomplete interaction", "error", err)
	}
}
