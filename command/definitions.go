package command

import "github.com/bwmarrin/discordgo"

var (
	adminPermission int64 = discordgo.PermissionManageServer
	minDays               = 1.0
)

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}

// SetServerCommand selects the guild a user configures from direct messages.
type SetServerCommand struct{}

func (c *SetServerCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "setserver",
		Description: "Select the server to configure from direct messages",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "guild_id",
				Description:  "The server to configure",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	}
}

// CurrentServerCommand shows the selected guild.
type CurrentServerCommand struct{}

func (c *CurrentServerCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "currentserver",
		Description: "Show the server you are configuring",
	}
}

// TrackChannelCommand toggles tracking of a channel.
type TrackChannelCommand struct{}

func (c *TrackChannelCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "trackchannel",
		Description:              "Start or stop tracking mentions in a channel",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "channel",
				Description:  "A text or forum channel",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
			{
				Name:        "intensive",
				Description: "Mark the channel as high traffic",
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Required:    false,
			},
		},
	}
}

// TrackRoleCommand toggles tracking of a role.
type TrackRoleCommand struct{}

func (c *TrackRoleCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "trackrole",
		Description:              "Start or stop tracking mentions of a role's members",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "role",
				Description:  "The role to track",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	}
}

// BackfillCommand starts a history backfill of a tracked channel.
type BackfillCommand struct{}

func (c *BackfillCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "backfill",
		Description:              "Record mentions and responses from a tracked channel's history",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "channel",
				Description:  "The tracked channel",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
			{
				Name:        "mode",
				Description: "How much history to read",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{
						Name:  "Incremental",
						Value: "incremental",
					},
					{
						Name:  "Incremental, two passes",
						Value: "two_pass",
					},
					{
						Name:  "Full",
						Value: "full",
					},
					{
						Name:  "Full, two passes",
						Value: "full_two_pass",
					},
				},
			},
		},
	}
}

// MentionStatsCommand reports response statistics.
type MentionStatsCommand struct{}

func (c *MentionStatsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "mentionstats",
		Description: "Show mention and response statistics",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "days",
				Description: "Number of days to include (default 7)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    false,
				MinValue:    &minDays,
				MaxValue:    365,
			},
		},
	}
}
