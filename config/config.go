package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"mention-bot/models"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from, in order:
// 1. the .env file (environment variables)
// 2. config.yaml in the working directory
// Environment variables override keys of the same name, with '.' replaced by '_'.
func LoadConfig() error {
	// A missing .env is normal in containers.
	if err := godotenv.Load(); err != nil {
		log.Printf(".env file not found, skipping.")
	}

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Printf("config.yaml not found, using environment variables and defaults.")
			return nil
		}
		return goerr.Wrap(err, "failed to read config.yaml")
	}
	return nil
}

// Load reads every configuration source and returns the typed configuration.
func Load() (*models.Config, error) {
	if err := LoadConfig(); err != nil {
		return nil, err
	}

	var cfg models.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode configuration")
	}
	cfg.Token = viper.GetString("BOT_TOKEN")
	if cfg.Token == "" {
		return nil, goerr.New("no bot token provided, set BOT_TOKEN in .env or the environment")
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("bot.prefix", "!")
	viper.SetDefault("bot.adminChannelId", "")
	viper.SetDefault("bot.scanAtStartup", false)

	viper.SetDefault("database.path", "./data/mentions.db")

	viper.SetDefault("tracker.roleCacheTTL", time.Minute)

	viper.SetDefault("backfill.pageSize", 100)
	viper.SetDefault("backfill.archivedThreadLimit", 50)
	viper.SetDefault("backfill.bufferedPages", 50)
	viper.SetDefault("backfill.progressEvery", 500)
	viper.SetDefault("backfill.schedule", "@hourly")
	viper.SetDefault("backfill.concurrency", 2)
	viper.SetDefault("backfill.statusFile", "./data/backfill_status.json")

	viper.SetDefault("grpc.statusAddr", "")
	viper.SetDefault("log.mode", "development")

	viper.SetDefault("commands.auth.developers", []string{})
	viper.SetDefault("commands.auth.adminsRoles", []string{})
}
