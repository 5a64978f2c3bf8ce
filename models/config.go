package models

import "time"

// Config is the typed view of config.yaml and the environment.
type Config struct {
	Token    string         `mapstructure:"-"`
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Log      LogConfig      `mapstructure:"log"`
	Commands CommandsConfig `mapstructure:"commands"`
}

// BotConfig holds the gateway level settings.
type BotConfig struct {
	Prefix         string `mapstructure:"prefix"`
	AdminChannelID string `mapstructure:"adminChannelId"`
	ScanAtStartup  bool   `mapstructure:"scanAtStartup"`
}

// DatabaseConfig points at the sqlite ledger file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// TrackerConfig tunes the live correlation path.
type TrackerConfig struct {
	RoleCacheTTL time.Duration `mapstructure:"roleCacheTTL"`
}

// BackfillConfig tunes history traversal.
type BackfillConfig struct {
	PageSize            int    `mapstructure:"pageSize"`
	ArchivedThreadLimit int    `mapstructure:"archivedThreadLimit"`
	BufferedPages       int    `mapstructure:"bufferedPages"`
	ProgressEvery       int    `mapstructure:"progressEvery"`
	Schedule            string `mapstructure:"schedule"`
	Concurrency         int    `mapstructure:"concurrency"`
	StatusFile          string `mapstructure:"statusFile"`
}

// GRPCConfig configures the health endpoint. An empty address disables it.
type GRPCConfig struct {
	StatusAddr string `mapstructure:"statusAddr"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// CommandsConfig holds permission settings for slash commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists the users and roles allowed to run admin commands.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"adminsRoles"`
}
