package command

import (
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands holds all the command instances.
var AllCommands = []Command{
	&PingCommand{},
	&SetServerCommand{},
	&CurrentServerCommand{},
	&TrackChannelCommand{},
	&TrackRoleCommand{},
	&BackfillCommand{},
	&MentionStatsCommand{},
}

// GetCommandDefinitions returns a slice of all command definitions.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, len(AllCommands))
	for i, cmd := range AllCommands {
		defs[i] = cmd.Definition()
	}
	return defs
}

// Register creates the global slash commands for the logged-in application.
func Register(s *discordgo.Session) {
	for _, def := range GetCommandDefinitions() {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", def); err != nil {
			utils.Logger().Warnw("cannot create command", "command", def.Name, "error", err)
		}
	}
}
