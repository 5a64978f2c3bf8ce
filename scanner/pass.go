package scanner

import (
	"context"
	"errors"
	"time"

	"mention-bot/models"
	"mention-bot/tracker"

	"go.uber.org/zap"
)

// pass accumulates the counters of one backfill run across its locations.
type pass struct {
	scanner *Scanner
	result  *models.BackfillResult
	roles   []string
	log     *zap.SugaredLogger

	// counting is off during the response pass of a two-pass run so messages are
	// counted once.
	counting bool
	newest   *time.Time
	failed   map[string]bool
}

func newPass(s *Scanner, result *models.BackfillResult, roles []string, log *zap.SugaredLogger) *pass {
	return &pass{
		scanner:  s,
		result:   result,
		roles:    roles,
		log:      log,
		counting: true,
		failed:   make(map[string]bool),
	}
}

func (p *pass) runAll(ctx context.Context, channel *models.TrackedChannel, locs []models.Location, w window, passes tracker.Passes) error {
	for _, loc := range locs {
		err := p.scanner.walk(ctx, channel.GuildID, loc, w, func(m *models.Message) error {
			return p.visit(ctx, m, passes)
		})
		if err == nil {
			continue
		}

		var perr *platformError
		if !errors.As(err, &perr) || ctx.Err() != nil {
			return err
		}
		key := loc.ThreadID()
		if key == "" {
			return err
		}
		if !p.failed[key] {
			p.failed[key] = true
			p.result.FailedThreads++
		}
		p.log.Warnw("thread skipped", "threadID", key, "error", err)
	}
	return nil
}

func (p *pass) visit(ctx context.Context, m *models.Message, passes tracker.Passes) error {
	if p.counting {
		p.result.Messages++
		if p.newest == nil || m.CreatedAt.After(*p.newest) {
			t := m.CreatedAt
			p.newest = &t
		}
		if every := p.scanner.cfg.ProgressEvery; every > 0 && p.result.Messages%every == 0 {
			p.log.Infow("backfill progress",
				"messages", p.result.Messages,
				"mentions", p.result.MentionsCreated,
				"responses", p.result.ResponsesMatched)
		}
	}

	if m.AuthorBot {
		return nil
	}

	out, err := p.scanner.engine.Process(ctx, m, p.roles, passes)
	if err != nil {
		return err
	}
	if out.MentionCreated {
		p.result.MentionsCreated++
	}
	if out.ResponseMatched {
		p.result.ResponsesMatched++
	}
	return nil
}
