package tracker

import (
	"context"
	"regexp"
	"slices"

	"mention-bot/models"
	"mention-bot/utils"
)

// userMentionPattern matches both <@id> and the legacy nickname form <@!id>.
var userMentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// ExtractMentionIDs returns the mentioned user ids in text order, duplicates removed.
func ExtractMentionIDs(content string) []string {
	matches := userMentionPattern.FindAllStringSubmatch(content, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if !slices.Contains(ids, m[1]) {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// DetectMention returns a candidate for the first user mentioned in msg that holds a
// tracked role, or nil. Self-mentions never count and a failed member lookup only skips
// that user. With no tracked roles no lookup is made at all. The error is non-nil only
// when ctx ends during the lookups.
func (t *Tracker) DetectMention(ctx context.Context, msg *models.Message, trackedRoleIDs []string) (*models.MentionCandidate, error) {
	if len(trackedRoleIDs) == 0 {
		return nil, nil
	}

	for _, mentionedID := range ExtractMentionIDs(msg.Content) {
		if mentionedID == msg.AuthorID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		member, err := t.members.GuildMember(ctx, msg.GuildID, mentionedID)
		if err != nil || member == nil {
			utils.Logger().Debugw("skipping mention, member lookup failed",
				"guildID", msg.GuildID,
				"userID", mentionedID,
				"error", err)
			continue
		}

		if !holdsAny(member.Roles, trackedRoleIDs) {
			continue
		}

		return &models.MentionCandidate{
			GuildID:       msg.GuildID,
			Location:      msg.Location,
			MessageID:     msg.ID,
			MentionedID:   mentionedID,
			MentionedName: member.DisplayName,
			AuthorID:      msg.AuthorID,
			AuthorName:    msg.AuthorName,
			CreatedAt:     msg.CreatedAt,
		}, nil
	}
	return nil, nil
}

func holdsAny(roles, tracked []string) bool {
	for _, r := range roles {
		if slices.Contains(tracked, r) {
			return true
		}
	}
	return false
}
