// Package scanner backfills the mention ledger from channel history.
package scanner

import (
	"context"
	"sync"
	"time"

	"mention-bot/models"
	"mention-bot/tracker"
)

// MessageSource reads channel history from the chat platform.
type MessageSource interface {
	// MessagesBefore returns up to limit messages posted at loc before the message
	// beforeID, or the latest messages when beforeID is empty. Every returned message
	// carries guildID and loc.
	MessagesBefore(ctx context.Context, guildID string, loc models.Location, beforeID string, limit int) ([]*models.Message, error)
	// ActiveThreads lists the active threads under a channel.
	ActiveThreads(ctx context.Context, guildID, parentID string) ([]models.ForumThread, error)
	// ArchivedThreads lists the most recently archived threads under a channel.
	ArchivedThreads(ctx context.Context, parentID string, limit int) ([]models.ForumThread, error)
}

// Notifier delivers the summary of a detached backfill to the user who requested it.
type Notifier interface {
	DirectMessage(ctx context.Context, userID, content string) error
}

// Engine is the part of the correlation engine a backfill drives.
type Engine interface {
	TrackedRoles(ctx context.Context, guildID string) ([]string, error)
	Process(ctx context.Context, msg *models.Message, trackedRoleIDs []string, passes tracker.Passes) (tracker.Outcome, error)
}

// ChannelStore holds the tracked channels and their watermarks.
type ChannelStore interface {
	GetTrackedChannel(ctx context.Context, channelID string) (*models.TrackedChannel, error)
	ListTrackedChannels(ctx context.Context, guildID string) ([]*models.TrackedChannel, error)
	UpdateWatermark(ctx context.Context, channelID string, at time.Time) error
}

// StatusRecorder keeps the outcome of the latest run per channel.
type StatusRecorder interface {
	Begin(runID, channelID, mode string)
	Finish(channelID string, result *models.BackfillResult, runErr error)
	Save() error
}

// Scanner runs history backfills.
type Scanner struct {
	source   MessageSource
	notifier Notifier
	engine   Engine
	channels ChannelStore
	status   StatusRecorder
	cfg      models.BackfillConfig

	mu      sync.Mutex
	running map[string]string // channel id -> run id
}

// New creates a scanner. Zero values in cfg fall back to the platform limits.
func New(source MessageSource, notifier Notifier, engine Engine, channels ChannelStore, status StatusRecorder, cfg models.BackfillConfig) *Scanner {
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	if cfg.ArchivedThreadLimit <= 0 {
		cfg.ArchivedThreadLimit = 50
	}
	if cfg.BufferedPages <= 0 {
		cfg.BufferedPages = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Scanner{
		source:   source,
		notifier: notifier,
		engine:   engine,
		channels: channels,
		status:   status,
		cfg:      cfg,
		running:  make(map[string]string),
	}
}

// acquire marks a channel as being backfilled. It fails when a run is in flight.
func (s *Scanner) acquire(channelID, runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[channelID]; busy {
		return false
	}
	s.running[channelID] = runID
	return true
}

func (s *Scanner) release(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, channelID)
}

// Running reports the run id of the backfill in flight for a channel.
func (s *Scanner) Running(channelID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.running[channelID]
	return id, ok
}
