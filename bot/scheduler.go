package bot

import (
	"context"

	"mention-bot/utils"

	"github.com/robfig/cron/v3"
)

// startScheduler starts the cron jobs: the incremental backfill of every tracked channel
// and the daily thread reconciliation.
func (b *Bot) startScheduler() error {
	utils.Logger().Info("Initializing scheduler...")
	b.cron = cron.New()

	schedule := b.Config.Backfill.Schedule
	if _, err := b.cron.AddFunc(schedule, func() {
		utils.Logger().Infow("Running scheduled backfill...", "schedule", schedule)
		if err := b.Scanner.RunAll(b.ctx); err != nil {
			utils.Logger().Warnw("scheduled backfill interrupted", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := b.cron.AddFunc("@daily", func() { b.reconcileThreads(b.ctx) }); err != nil {
		return err
	}

	b.cron.Start()
	utils.Logger().Infow("Cron jobs scheduled", "backfill", schedule)

	if b.Config.Bot.ScanAtStartup {
		go func() {
			utils.Logger().Info("Performing initial backfill on startup...")
			if err := b.Scanner.RunAll(b.ctx); err != nil {
				utils.Logger().Warnw("startup backfill interrupted", "error", err)
			}
		}()
	} else {
		utils.Logger().Info("Skipping initial backfill on startup as per configuration.")
	}
	return nil
}

func (b *Bot) reconcileThreads(ctx context.Context) {
	n, err := b.Store.ReconcileThreads(ctx)
	if err != nil {
		utils.Logger().Errorw("thread reconciliation failed", "error", err)
		return
	}
	if n > 0 {
		utils.Logger().Infow("removed threads without mentions", "threads", n)
	}
}

// stopScheduler stops the cron jobs and waits for running ones.
func (b *Bot) stopScheduler() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
		utils.Logger().Info("Scheduler stopped.")
	}
}
