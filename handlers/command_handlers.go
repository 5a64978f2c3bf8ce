package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mention-bot/bot"
	"mention-bot/database"
	"mention-bot/models"
	"mention-bot/scanner"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// HandlePing handles the logic for the /ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}

// HandleSetServer selects the guild the user configures from direct messages.
func HandleSetServer(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	guildID := strings.TrimSpace(opts["guild_id"].StringValue())
	userID := utils.InteractionUserID(i)

	guild, err := s.State.Guild(guildID)
	if err != nil {
		respond(s, i, "❌ I am not a member of that server.")
		return
	}
	if !b.Auth.CanConfigureGuild(s, guildID, userID) {
		respond(s, i, "🚫 You are not allowed to configure this server.")
		return
	}

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()
	if err := b.Store.SetUserContext(ctx, userID, guildID); err != nil {
		utils.Logger().Errorw("failed to set user context", "userID", userID, "guildID", guildID, "error", err)
		respond(s, i, "❌ Could not save your selection.")
		return
	}
	respond(s, i, fmt.Sprintf("✅ Now configuring **%s**.", guild.Name))
}

// HandleCurrentServer shows the guild selected with /setserver.
func HandleCurrentServer(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()

	uc, err := b.Store.GetUserContext(ctx, utils.InteractionUserID(i))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respond(s, i, "No server selected. Run `/setserver` first.")
			return
		}
		utils.Logger().Errorw("failed to load user context", "error", err)
		respond(s, i, "❌ Could not load your selected server.")
		return
	}

	name := uc.GuildID
	if g, err := s.State.Guild(uc.GuildID); err == nil {
		name = g.Name
	}
	respond(s, i, fmt.Sprintf("You are configuring **%s** (`%s`).", name, uc.GuildID))
}

// HandleTrackChannel toggles tracking of a text or forum channel. With the intensive
// option set on an already tracked channel, only the flag is updated.
func HandleTrackChannel(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, guildID string) {
	opts := optionMap(i)
	channelID := strings.TrimSpace(opts["channel"].StringValue())

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()

	ch, err := s.State.Channel(channelID)
	if err != nil {
		ch, err = s.Channel(channelID, discordgo.WithContext(ctx))
	}
	if err != nil || ch.GuildID != guildID {
		respond(s, i, "❌ That channel is not part of the selected server.")
		return
	}

	var kind models.ChannelKind
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		kind = models.ChannelKindText
	case discordgo.ChannelTypeGuildForum:
		kind = models.ChannelKindForum
	default:
		respond(s, i, "❌ Only text and forum channels can be tracked.")
		return
	}

	existing, err := b.Store.GetTrackedChannel(ctx, channelID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		utils.Logger().Errorw("failed to get tracked channel", "channelID", channelID, "error", err)
		respond(s, i, "❌ Could not update tracking.")
		return
	}
	intensiveOpt, hasIntensive := opts["intensive"]

	if existing != nil && !hasIntensive {
		if _, err := b.Store.DeleteTrackedChannel(ctx, guildID, channelID); err != nil {
			utils.Logger().Errorw("failed to untrack channel", "channelID", channelID, "error", err)
			respond(s, i, "❌ Could not update tracking.")
			return
		}
		utils.Info("Command", "TrackChannel", fmt.Sprintf("Stopped tracking <#%s>", channelID))
		respond(s, i, fmt.Sprintf("Stopped tracking <#%s>.", channelID))
		return
	}

	tc := models.TrackedChannel{
		ChannelID: channelID,
		GuildID:   guildID,
		Name:      ch.Name,
		Kind:      kind,
	}
	if hasIntensive {
		tc.IsIntensive = intensiveOpt.BoolValue()
	} else if existing != nil {
		tc.IsIntensive = existing.IsIntensive
	}
	if err := b.Store.UpsertTrackedChannel(ctx, tc); err != nil {
		utils.Logger().Errorw("failed to track channel", "channelID", channelID, "error", err)
		respond(s, i, "❌ Could not update tracking.")
		return
	}

	if existing != nil {
		respond(s, i, fmt.Sprintf("Updated <#%s> (intensive: %t).", channelID, tc.IsIntensive))
		return
	}
	utils.Info("Command", "TrackChannel", fmt.Sprintf("Started tracking <#%s> (%s)", channelID, kind))
	respond(s, i, fmt.Sprintf("✅ Now tracking <#%s> (%s). Run `/backfill` to record its history.", channelID, kind))
}

// HandleTrackRole toggles tracking of a role.
func HandleTrackRole(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, guildID string) {
	opts := optionMap(i)
	roleID := strings.TrimSpace(opts["role"].StringValue())

	role, err := s.State.Role(guildID, roleID)
	if err != nil {
		respond(s, i, "❌ That role is not part of the selected server.")
		return
	}

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()
	defer b.Tracker.InvalidateRoles(guildID)

	removed, err := b.Store.RemoveTrackedRole(ctx, guildID, roleID)
	if err != nil {
		utils.Logger().Errorw("failed to untrack role", "roleID", roleID, "error", err)
		respond(s, i, "❌ Could not update tracking.")
		return
	}
	if removed {
		respond(s, i, fmt.Sprintf("Stopped tracking mentions of **%s** members.", role.Name))
		return
	}

	if err := b.Store.AddTrackedRole(ctx, guildID, roleID); err != nil {
		utils.Logger().Errorw("failed to track role", "roleID", roleID, "error", err)
		respond(s, i, "❌ Could not update tracking.")
		return
	}
	respond(s, i, fmt.Sprintf("✅ Now tracking mentions of **%s** members.", role.Name))
}

// HandleBackfill starts a detached backfill; the summary arrives by direct message.
func HandleBackfill(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, guildID string) {
	opts := optionMap(i)
	channelID := strings.TrimSpace(opts["channel"].StringValue())
	mode := models.BackfillMode{}
	if opt, ok := opts["mode"]; ok {
		mode = parseBackfillMode(opt.StringValue())
	}

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()

	ch, err := b.Store.GetTrackedChannel(ctx, channelID)
	if err != nil || ch.GuildID != guildID {
		respond(s, i, "❌ That channel is not tracked in the selected server.")
		return
	}

	runID, err := b.Scanner.Start(b.Context(), ch, mode, utils.InteractionUserID(i))
	if err != nil {
		if errors.Is(err, scanner.ErrAlreadyRunning) {
			respond(s, i, fmt.Sprintf("A backfill of <#%s> is already running.", channelID))
			return
		}
		utils.Logger().Errorw("failed to start backfill", "channelID", channelID, "error", err)
		respond(s, i, "❌ Could not start the backfill.")
		return
	}
	respond(s, i, fmt.Sprintf("Backfill of <#%s> (%s) started. I will send you a DM when it is done. Run id: `%s`.", channelID, mode, runID))
}

func parseBackfillMode(v string) models.BackfillMode {
	switch v {
	case "full":
		return models.BackfillMode{Full: true}
	case "two_pass":
		return models.BackfillMode{TwoPass: true}
	case "full_two_pass":
		return models.BackfillMode{Full: true, TwoPass: true}
	default:
		return models.BackfillMode{}
	}
}

// HandleMentionStats reports mention counts and the average response latency.
func HandleMentionStats(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, guildID string) {
	days := 7
	if opt, ok := optionMap(i)["days"]; ok {
		days = int(opt.IntValue())
	}

	ctx, cancel := context.WithTimeout(b.Context(), eventTimeout)
	defer cancel()

	tr := utils.GetLastDaysRange(time.Now(), days)
	stats, err := b.Store.GetMentionStats(ctx, guildID, tr.Start, tr.End)
	if err != nil {
		utils.Logger().Errorw("failed to get mention stats", "guildID", guildID, "error", err)
		respond(s, i, "❌ Could not load statistics.")
		return
	}

	content := fmt.Sprintf("**Mentions, %s**\nTotal: %d\nAnswered: %d\nOpen: %d\nAverage response time: %s",
		utils.GetTimeRangeLabel(days),
		stats.Total,
		stats.Responded,
		stats.Total-stats.Responded,
		utils.FormatLatency(stats.AverageLatency))
	respond(s, i, content)
}
