package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mention-bot/command"
	"mention-bot/database"
	"mention-bot/grpc"
	"mention-bot/models"
	"mention-bot/scanner"
	"mention-bot/tracker"
	"mention-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
)

// Bot encapsulates the bot's state and its collaborators.
type Bot struct {
	Session  *discordgo.Session
	Config   *models.Config
	Store    *database.Store
	Platform *Platform
	Tracker  *tracker.Tracker
	Scanner  *scanner.Scanner
	Status   *database.StatusManager
	Auth     *utils.Auth
	Health   *grpc.StatusServer

	ctx    context.Context
	cancel context.CancelFunc
	cron   *cron.Cron
}

// NewBot creates and initializes a new Bot instance over an opened store.
func NewBot(cfg *models.Config, store *database.Store) (*Bot, error) {
	if cfg.Token == "" {
		return nil, goerr.New("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Discord session")
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	// Live events are handled one at a time, in arrival order.
	dg.SyncEvents = true

	ctx, cancel := context.WithCancel(context.Background())
	platform := NewPlatform(dg)
	trk := tracker.New(store, platform, cfg.Tracker.RoleCacheTTL)
	status := database.NewStatusManager(cfg.Backfill.StatusFile)

	b := &Bot{
		Session:  dg,
		Config:   cfg,
		Store:    store,
		Platform: platform,
		Tracker:  trk,
		Scanner:  scanner.New(platform, platform, trk, store, status, cfg.Backfill),
		Status:   status,
		Auth:     utils.NewAuth(cfg.Commands),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.GRPC.StatusAddr != "" {
		b.Health = grpc.NewStatusServer(cfg.GRPC.StatusAddr)
	}
	return b, nil
}

// Context is canceled when the bot stops. Detached work started by handlers uses it.
func (b *Bot) Context() context.Context {
	return b.ctx
}

// Start opens the bot's session and registers handlers and slash commands.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)
	utils.AttachSession(b.Session, b.Config.Bot.AdminChannelID)

	if b.Health != nil {
		if err := b.Health.Start(); err != nil {
			return err
		}
	}

	if err := b.Session.Open(); err != nil {
		return goerr.Wrap(err, "failed to open connection")
	}

	command.Register(b.Session)

	if err := b.startScheduler(); err != nil {
		return goerr.Wrap(err, "failed to set up cron jobs", goerr.V("schedule", b.Config.Backfill.Schedule))
	}

	utils.Logger().Info("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	b.cancel()
	b.stopScheduler()
	if b.Health != nil {
		b.Health.Stop()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	b.Tracker.Close()
	if err := b.Status.Save(); err != nil {
		utils.Logger().Warnw("failed to save backfill status", "error", err)
	}
	utils.Logger().Info("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application. It blocks until SIGINT or SIGTERM.
func Run(cfg *models.Config, store *database.Store, registerHandlers func(*Bot)) error {
	b, err := NewBot(cfg, store)
	if err != nil {
		return err
	}

	if err := b.Start(registerHandlers); err != nil {
		b.Stop()
		return err
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	b.Stop()
	return nil
}
