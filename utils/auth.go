package utils

import (
	"slices"

	"mention-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Auth provides methods for authorization checks.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth creates a new Auth instance from the commands configuration.
func NewAuth(config models.CommandsConfig) *Auth {
	return &Auth{config: config}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.config.Auth.Developers, userID)
}

// IsAdmin checks if a member holds one of the admin roles.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, adminRoleID := range a.config.Auth.AdminsRoles {
		if slices.Contains(member.Roles, adminRoleID) {
			return true
		}
	}
	return false
}

// CanConfigureGuild reports whether a user may configure guild G: developers, the
// guild owner, and members holding an admin role.
func (a *Auth) CanConfigureGuild(s *discordgo.Session, guildID, userID string) bool {
	if a.IsDeveloper(userID) {
		return true
	}
	if guildID == "" {
		return false
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
	}
	if err == nil && guild.OwnerID == userID {
		return true
	}

	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}
	return a.IsAdmin(member)
}

// CheckPermission checks if the interaction user has the required permission level.
func (a *Auth) CheckPermission(s *discordgo.Session, i *discordgo.InteractionCreate, requiredLevel string) bool {
	switch requiredLevel {
	case "developer":
		return a.IsDeveloper(InteractionUserID(i))
	case "admin":
		// Guild resolution for DM invocations happens in the command itself.
		if i.GuildID == "" {
			return true
		}
		return a.CanConfigureGuild(s, i.GuildID, InteractionUserID(i))
	case "guest":
		return true
	default:
		return false
	}
}

// InteractionUserID returns the invoking user for guild and DM interactions alike.
func InteractionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
