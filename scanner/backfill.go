package scanner

import (
	"context"
	"errors"

	"mention-bot/models"
	"mention-bot/tracker"
	"mention-bot/utils"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ErrAlreadyRunning is returned when a channel already has a backfill in flight.
var ErrAlreadyRunning = errors.New("backfill already running")

// RunBackfill replays the history of a tracked channel through the correlation engine.
//
// An incremental run visits only messages newer than the channel watermark. The
// watermark moves to the newest visited message after a pass in which every location
// completed; a platform failure on one thread skips that thread and keeps the watermark,
// while a ledger failure aborts the whole run.
func (s *Scanner) RunBackfill(ctx context.Context, channel *models.TrackedChannel, mode models.BackfillMode) (*models.BackfillResult, error) {
	runID := uuid.NewString()
	if !s.acquire(channel.ChannelID, runID) {
		return nil, goerr.Wrap(ErrAlreadyRunning, "failed to start backfill", goerr.V("channelID", channel.ChannelID))
	}
	defer s.release(channel.ChannelID)
	return s.run(ctx, runID, channel, mode)
}

func (s *Scanner) run(ctx context.Context, runID string, channel *models.TrackedChannel, mode models.BackfillMode) (*models.BackfillResult, error) {
	log := utils.Logger().With("runID", runID, "channelID", channel.ChannelID, "mode", mode.String())
	log.Infow("backfill started")

	result := &models.BackfillResult{
		RunID:     runID,
		ChannelID: channel.ChannelID,
		Watermark: channel.LastStoredAt,
	}

	w := window{}
	if !mode.Full {
		w.since = channel.LastStoredAt
	}

	roles, err := s.engine.TrackedRoles(ctx, channel.GuildID)
	if err != nil {
		return result, goerr.Wrap(err, "failed to load tracked roles", goerr.V("guildID", channel.GuildID))
	}

	locations, complete, err := s.locations(ctx, channel)
	if err != nil {
		return result, err
	}
	for _, loc := range locations {
		if loc.ThreadID() != "" {
			result.Threads++
		}
	}

	p := newPass(s, result, roles, log)
	if mode.TwoPass {
		if err := p.runAll(ctx, channel, locations, w, tracker.Passes{Mentions: true}); err != nil {
			return result, err
		}
		// Responses are matched over the window the first pass saw.
		if p.newest != nil {
			w.until = p.newest
			p.counting = false
			if err := p.runAll(ctx, channel, locations, w, tracker.Passes{Responses: true}); err != nil {
				return result, err
			}
		}
	} else if err := p.runAll(ctx, channel, locations, w, tracker.BothPasses); err != nil {
		return result, err
	}

	if result.FailedThreads > 0 {
		complete = false
	}

	if complete && p.newest != nil && (channel.LastStoredAt == nil || p.newest.After(*channel.LastStoredAt)) {
		if err := s.channels.UpdateWatermark(ctx, channel.ChannelID, *p.newest); err != nil {
			return result, err
		}
		result.Watermark = p.newest
		result.WatermarkMoved = true
	} else if !complete {
		log.Warnw("backfill incomplete, watermark kept", "failedThreads", result.FailedThreads)
	}

	log.Infow("backfill finished",
		"messages", result.Messages,
		"threads", result.Threads,
		"failedThreads", result.FailedThreads,
		"mentions", result.MentionsCreated,
		"responses", result.ResponsesMatched,
		"watermarkMoved", result.WatermarkMoved)
	return result, nil
}

// locations lists where a channel's messages live: the threads under it and, for a text
// channel, the channel itself first. complete is false when some threads could not be
// listed.
func (s *Scanner) locations(ctx context.Context, channel *models.TrackedChannel) ([]models.Location, bool, error) {
	var locs []models.Location
	if channel.Kind != models.ChannelKindForum {
		locs = append(locs, models.PlainText{ChannelID: channel.ChannelID})
	}

	active, err := s.source.ActiveThreads(ctx, channel.GuildID, channel.ChannelID)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to list active threads", goerr.V("channelID", channel.ChannelID))
	}

	complete := true
	archived, err := s.source.ArchivedThreads(ctx, channel.ChannelID, s.cfg.ArchivedThreadLimit)
	if err != nil {
		utils.Logger().Warnw("failed to list archived threads", "channelID", channel.ChannelID, "error", err)
		complete = false
	}

	seen := make(map[string]bool)
	for _, t := range append(active, archived...) {
		if seen[t.ID] || t.ParentID != channel.ChannelID {
			continue
		}
		seen[t.ID] = true
		locs = append(locs, t)
	}
	return locs, complete, nil
}
