package tracker

import (
	"context"
	"errors"

	"mention-bot/database"
	"mention-bot/models"
)

// DetectResponse finds the open mention that msg answers.
//
// A reply matches only the mention it references. A message that is not a reply closes
// the most recent open mention of its author in the same guild, channel and thread.
func (t *Tracker) DetectResponse(ctx context.Context, msg *models.Message) (*models.ResponseMatch, error) {
	if msg.Location == nil || msg.GuildID == "" {
		return nil, nil
	}

	var (
		rec *models.MentionRecord
		err error
	)
	if msg.ReferenceID != "" {
		rec, err = t.ledger.FindOpenMentionByMessage(ctx, msg.GuildID, msg.ReferenceID, msg.AuthorID)
	} else {
		rec, err = t.ledger.FindLatestOpenMention(ctx,
			msg.GuildID,
			msg.Location.BaseChannelID(),
			msg.Location.ThreadID(),
			msg.AuthorID,
			msg.CreatedAt)
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if rec.MessageID == msg.ID || msg.CreatedAt.Before(rec.CreatedAt) {
		return nil, nil
	}

	return &models.ResponseMatch{
		MentionID:         rec.ID,
		MentionMessageID:  rec.MessageID,
		RespondedAt:       msg.CreatedAt,
		ResponseMessageID: msg.ID,
	}, nil
}
