package main

import (
	"log"

	"mention-bot/bot"
	"mention-bot/config"
	"mention-bot/database"
	"mention-bot/handlers"
	"mention-bot/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := utils.InitLogger(cfg.Log.Mode); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer utils.Sync()

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		utils.Logger().Fatalw("Error opening database", "path", cfg.Database.Path, "error", err)
	}
	defer store.Close()

	if err := bot.Run(cfg, store, handlers.Register); err != nil {
		utils.Logger().Errorw("Bot exited with error", "error", err)
	}
}
