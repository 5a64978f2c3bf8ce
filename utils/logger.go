package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

var (
	mu        sync.RWMutex
	logger    = zap.NewNop().Sugar()
	session   *discordgo.Session
	channelID string
)

// InitLogger builds the process logger. mode is "production" or "development".
func InitLogger(mode string) error {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	logger = zl.Sugar()
	mu.Unlock()
	return nil
}

// Logger returns the structured process logger.
func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process logger.
func SetLogger(l *zap.SugaredLogger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger().Sync()
}

// AttachSession enables mirroring Info/Warn/Error entries to the admin channel.
func AttachSession(s *discordgo.Session, adminChannelID string) {
	mu.Lock()
	defer mu.Unlock()
	session = s
	channelID = adminChannelID
	if channelID == "" {
		logger.Warn("bot.adminChannelId is not set; logging to channel is disabled")
	}
}

// Log writes a structured entry and, when an admin channel is configured, posts it as an embed.
func Log(level, module, operation, details string) {
	l := Logger().With("module", module, "operation", operation)
	switch level {
	case "WARN":
		l.Warn(details)
	case "ERROR":
		l.Error(details)
	default:
		l.Info(details)
	}

	mu.RLock()
	s, ch := session, channelID
	mu.RUnlock()
	if s == nil || ch == "" {
		return
	}

	var color int
	switch level {
	case "WARN":
		color = ColorWarn
	case "ERROR":
		color = ColorError
	default:
		color = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: details,
			},
		},
	}

	if _, err := s.ChannelMessageSendEmbed(ch, embed); err != nil {
		Logger().Warnw("Error sending log message to Discord", "error", err)
	}
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}
