// Package tracker correlates mentions of tracked-role members with their responses.
package tracker

import (
	"context"
	"errors"
	"time"

	"mention-bot/database"
	"mention-bot/models"
	"mention-bot/utils"

	"github.com/jellydator/ttlcache/v3"
	"github.com/m-mizutani/goerr/v2"
)

// Ledger is the persistence the engine needs. *database.Store implements it.
type Ledger interface {
	GetTrackedChannel(ctx context.Context, channelID string) (*models.TrackedChannel, error)
	TrackedRoleIDs(ctx context.Context, guildID string) ([]string, error)

	RecordMention(ctx context.Context, c models.MentionCandidate) (bool, error)
	CloseMention(ctx context.Context, match models.ResponseMatch) (bool, error)
	FindOpenMentionByMessage(ctx context.Context, guildID, messageID, mentionedID string) (*models.MentionRecord, error)
	FindLatestOpenMention(ctx context.Context, guildID, channelID, threadID, mentionedID string, before time.Time) (*models.MentionRecord, error)

	DeleteMentionByMessage(ctx context.Context, guildID, messageID string) (*database.MentionDeletion, error)
	DeleteThread(ctx context.Context, threadID string) (bool, error)
	RenameThread(ctx context.Context, threadID, name string) (bool, error)
}

// MemberResolver looks up the current roles of a guild member.
type MemberResolver interface {
	GuildMember(ctx context.Context, guildID, userID string) (*models.Member, error)
}

// Passes selects which detections Process runs.
type Passes struct {
	Mentions  bool
	Responses bool
}

// BothPasses is what live processing and single-pass backfill use.
var BothPasses = Passes{Mentions: true, Responses: true}

// Outcome reports what Process changed in the ledger.
type Outcome struct {
	MentionCreated  bool
	ResponseMatched bool
}

// Tracker is the correlation engine.
type Tracker struct {
	ledger  Ledger
	members MemberResolver
	roles   *ttlcache.Cache[string, []string]
}

// New creates a tracker. A positive roleTTL caches the tracked roles of each guild.
func New(ledger Ledger, members MemberResolver, roleTTL time.Duration) *Tracker {
	t := &Tracker{ledger: ledger, members: members}
	if roleTTL > 0 {
		t.roles = ttlcache.New(
			ttlcache.WithTTL[string, []string](roleTTL),
			ttlcache.WithDisableTouchOnHit[string, []string](),
		)
		go t.roles.Start()
	}
	return t
}

// Close stops the role cache janitor.
func (t *Tracker) Close() {
	if t.roles != nil {
		t.roles.Stop()
	}
}

// TrackedRoles returns the tracked roles of a guild.
func (t *Tracker) TrackedRoles(ctx context.Context, guildID string) ([]string, error) {
	if t.roles != nil {
		if item := t.roles.Get(guildID); item != nil {
			return item.Value(), nil
		}
	}
	roles, err := t.ledger.TrackedRoleIDs(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if t.roles != nil {
		t.roles.Set(guildID, roles, ttlcache.DefaultTTL)
	}
	return roles, nil
}

// InvalidateRoles drops the cached roles of a guild after a configuration change.
func (t *Tracker) InvalidateRoles(guildID string) {
	if t.roles != nil {
		t.roles.Delete(guildID)
	}
}

// RecordMention persists a candidate. It is safe to call twice for the same message.
func (t *Tracker) RecordMention(ctx context.Context, c *models.MentionCandidate) (bool, error) {
	created, err := t.ledger.RecordMention(ctx, *c)
	if err != nil {
		return false, err
	}
	if created {
		utils.Logger().Debugw("mention recorded",
			"guildID", c.GuildID,
			"channelID", c.Location.BaseChannelID(),
			"threadID", c.Location.ThreadID(),
			"messageID", c.MessageID,
			"mentionedID", c.MentionedID)
	}
	return created, nil
}

// RecordResponse closes the matched mention. It reports false when the mention had
// already been answered.
func (t *Tracker) RecordResponse(ctx context.Context, m *models.ResponseMatch) (bool, error) {
	closed, err := t.ledger.CloseMention(ctx, *m)
	if err != nil {
		return false, err
	}
	if closed {
		utils.Logger().Debugw("mention answered",
			"mentionMessageID", m.MentionMessageID,
			"responseMessageID", m.ResponseMessageID,
			"respondedAt", m.RespondedAt)
	}
	return closed, nil
}

// Process runs response detection, then mention detection, on one message. A message
// can both answer a mention and open a new one.
func (t *Tracker) Process(ctx context.Context, msg *models.Message, trackedRoleIDs []string, passes Passes) (Outcome, error) {
	var out Outcome

	if passes.Responses {
		match, err := t.DetectResponse(ctx, msg)
		if err != nil {
			return out, err
		}
		if match != nil {
			if out.ResponseMatched, err = t.RecordResponse(ctx, match); err != nil {
				return out, err
			}
		}
	}

	if passes.Mentions {
		c, err := t.DetectMention(ctx, msg, trackedRoleIDs)
		if err != nil {
			return out, err
		}
		if c != nil {
			created, err := t.RecordMention(ctx, c)
			if err != nil {
				return out, err
			}
			out.MentionCreated = created
		}
	}
	return out, nil
}

// HandleMessage is the live entry point for a newly created message.
func (t *Tracker) HandleMessage(ctx context.Context, msg *models.Message) error {
	if msg.AuthorBot || msg.GuildID == "" || msg.Location == nil {
		return nil
	}

	channel, err := t.ledger.GetTrackedChannel(ctx, msg.Location.BaseChannelID())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}
	if channel.GuildID != msg.GuildID {
		return nil
	}

	roles, err := t.TrackedRoles(ctx, msg.GuildID)
	if err != nil {
		return goerr.Wrap(err, "failed to load tracked roles", goerr.V("guildID", msg.GuildID))
	}

	_, err = t.Process(ctx, msg, roles, BothPasses)
	return err
}
