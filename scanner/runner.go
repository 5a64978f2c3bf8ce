package scanner

import (
	"context"
	"fmt"

	"mention-bot/models"
	"mention-bot/utils"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// Start runs a backfill in the background and sends its summary to requesterID by direct
// message. ctx must outlive the request that triggered the run. It returns the run id.
func (s *Scanner) Start(ctx context.Context, channel *models.TrackedChannel, mode models.BackfillMode, requesterID string) (string, error) {
	runID := uuid.NewString()
	if !s.acquire(channel.ChannelID, runID) {
		return "", goerr.Wrap(ErrAlreadyRunning, "failed to start backfill", goerr.V("channelID", channel.ChannelID))
	}
	s.status.Begin(runID, channel.ChannelID, mode.String())

	go func() {
		defer s.release(channel.ChannelID)

		result, err := s.run(ctx, runID, channel, mode)
		s.record(channel.ChannelID, result, err)

		if err != nil {
			utils.Error("Backfill", "Run", fmt.Sprintf("Backfill of <#%s> failed: %v", channel.ChannelID, err))
		} else {
			utils.Info("Backfill", "Run", summary(channel, mode, result))
		}

		if requesterID == "" {
			return
		}
		content := fmt.Sprintf("Backfill of <#%s> (%s) failed. Run id: `%s`.", channel.ChannelID, mode, runID)
		if err == nil {
			content = summary(channel, mode, result)
		}
		if dmErr := s.notifier.DirectMessage(ctx, requesterID, content); dmErr != nil {
			utils.Logger().Warnw("failed to notify backfill requester", "userID", requesterID, "error", dmErr)
		}
	}()
	return runID, nil
}

// RunAll runs an incremental backfill of every tracked channel, at most
// cfg.Concurrency at a time. A failing channel does not stop the others.
func (s *Scanner) RunAll(ctx context.Context) error {
	channels, err := s.channels.ListTrackedChannels(ctx, "")
	if err != nil {
		return err
	}
	utils.Logger().Infow("scheduled backfill started", "channels", len(channels))

	var eg errgroup.Group
	eg.SetLimit(s.cfg.Concurrency)
	for _, ch := range channels {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			runID := uuid.NewString()
			if !s.acquire(ch.ChannelID, runID) {
				utils.Logger().Infow("backfill already running, skipped", "channelID", ch.ChannelID)
				return nil
			}
			defer s.release(ch.ChannelID)

			s.status.Begin(runID, ch.ChannelID, models.BackfillMode{}.String())
			result, err := s.run(ctx, runID, ch, models.BackfillMode{})
			s.record(ch.ChannelID, result, err)
			if err != nil {
				utils.Logger().Errorw("scheduled backfill failed", "channelID", ch.ChannelID, "error", err)
			}
			return nil
		})
	}
	_ = eg.Wait()

	utils.Logger().Infow("scheduled backfill finished", "channels", len(channels))
	return ctx.Err()
}

func (s *Scanner) record(channelID string, result *models.BackfillResult, err error) {
	s.status.Finish(channelID, result, err)
	if saveErr := s.status.Save(); saveErr != nil {
		utils.Logger().Warnw("failed to save backfill status", "error", saveErr)
	}
}

func summary(channel *models.TrackedChannel, mode models.BackfillMode, r *models.BackfillResult) string {
	msg := fmt.Sprintf("Backfill of <#%s> (%s) finished: %d messages, %d new mentions, %d responses matched.",
		channel.ChannelID, mode, r.Messages, r.MentionsCreated, r.ResponsesMatched)
	if channel.Kind == models.ChannelKindForum || r.Threads > 0 {
		msg += fmt.Sprintf(" Threads: %d, failed: %d.", r.Threads, r.FailedThreads)
	}
	if r.FailedThreads > 0 {
		msg += " The watermark was kept so the next run retries."
	}
	return msg
}
