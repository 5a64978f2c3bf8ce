package scanner

import (
	"context"
	"sort"
	"strconv"
	"time"

	"mention-bot/models"

	"github.com/m-mizutani/goerr/v2"
)

// window bounds the messages a walk visits: strictly after since and no later than until.
// Nil bounds are open.
type window struct {
	since *time.Time
	until *time.Time
}

func (w window) contains(m *models.Message) bool {
	if w.since != nil && !m.CreatedAt.After(*w.since) {
		return false
	}
	if w.until != nil && m.CreatedAt.After(*w.until) {
		return false
	}
	return true
}

// page is one fetched batch of history. before is the cursor it was fetched with; msgs is
// nil once the page has been evicted from the buffer.
type page struct {
	before string
	msgs   []*models.Message
}

// platformError marks failures reported by the message source, as opposed to ledger
// failures raised while processing.
type platformError struct {
	err error
}

func (e *platformError) Error() string { return e.err.Error() }
func (e *platformError) Unwrap() error { return e.err }

// walk visits every message of loc inside w in ascending time order.
//
// History is read backward with a before cursor until an empty page, a short page or a
// page reaching the lower bound. The cursors are recorded so the pages can be replayed
// oldest first. At most BufferedPages pages are kept in memory: the newest page always,
// then the most recently fetched ones. Evicted pages are fetched again by cursor on replay.
func (s *Scanner) walk(ctx context.Context, guildID string, loc models.Location, w window, visit func(*models.Message) error) error {
	var (
		pages    []*page
		buffered int
		cursor   string
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgs, err := s.fetch(ctx, guildID, loc, cursor)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}

		pages = append(pages, &page{before: cursor, msgs: msgs})
		buffered++
		// The newest page was read without a cursor, so fetching it again would return
		// whatever was posted since. It stays buffered.
		for i := 1; buffered > s.cfg.BufferedPages && i < len(pages); i++ {
			if pages[i].msgs != nil {
				pages[i].msgs = nil
				buffered--
			}
		}

		oldest := msgs[0]
		if w.since != nil && !oldest.CreatedAt.After(*w.since) {
			break
		}
		if len(msgs) < s.cfg.PageSize {
			break
		}
		cursor = oldest.ID
	}

	var last *models.Message
	for i := len(pages) - 1; i >= 0; i-- {
		p := pages[i]
		msgs := p.msgs
		if msgs == nil {
			var err error
			if msgs, err = s.fetch(ctx, guildID, loc, p.before); err != nil {
				return err
			}
		}
		p.msgs = nil

		for _, m := range msgs {
			// A refetched page can overlap the previous one when history changed.
			if last != nil && !after(m, last) {
				continue
			}
			last = m
			if !w.contains(m) {
				continue
			}
			if err := visit(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetch reads one page and sorts it ascending.
func (s *Scanner) fetch(ctx context.Context, guildID string, loc models.Location, before string) ([]*models.Message, error) {
	msgs, err := s.source.MessagesBefore(ctx, guildID, loc, before, s.cfg.PageSize)
	if err != nil {
		return nil, &platformError{err: goerr.Wrap(err, "failed to fetch messages",
			goerr.V("channelID", loc.BaseChannelID()),
			goerr.V("threadID", loc.ThreadID()),
			goerr.V("before", before))}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return after(msgs[j], msgs[i]) })
	return msgs, nil
}

// after orders messages by time, then by snowflake.
func after(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	ai, errA := strconv.ParseUint(a.ID, 10, 64)
	bi, errB := strconv.ParseUint(b.ID, 10, 64)
	if errA != nil || errB != nil {
		return a.ID > b.ID
	}
	return ai > bi
}
