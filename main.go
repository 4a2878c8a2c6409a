package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/pflag"

	"github.com/wesavefood/wesavefood/internal/auth"
	"github.com/wesavefood/wesavefood/internal/config"
	"github.com/wesavefood/wesavefood/internal/database"
	"github.com/wesavefood/wesavefood/internal/events"
	"github.com/wesavefood/wesavefood/internal/github"
	"github.com/wesavefood/wesavefood/internal/http"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/internal/notification"
	"github.com/wesavefood/wesavefood/internal/update"
	"github.com/wesavefood/wesavefood/internal/user"
	"github.com/wesavefood/wesavefood/internal/verification"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "path to configuration file")
	pflag.Parse()

	// read config
	cfg := config.New(configPath, version)

	// init new logger
	log := logger.New(cfg.Config)

	if err := cfg.Config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// init dynamic config
	cfg.DynamicReload(log)

	// setup server-sent-events
	serverEvents := sse.New()
	serverEvents.CreateStreamWithOpts("logs", sse.StreamOpts{MaxEntries: 1000, AutoReplay: true})

	// register SSE writer
	log.RegisterSSEWriter(serverEvents)

	// setup internal eventbus
	bus := EventBus.New()

	// connect to the content repository backing the document store
	githubClient := github.NewClient(cfg.Config.GitHub, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := githubClient.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("could not reach the content repository")
	}
	cancel()

	store := database.NewStore(cfg.Config, log, githubClient)

	log.Info().Msgf("Starting wesavefood")
	log.Info().Msgf("Version: %s", version)
	log.Info().Msgf("Commit: %s", commit)
	log.Info().Msgf("Build date: %s", date)
	log.Info().Msgf("Log-level: %s", cfg.Config.Logging.Level)
	log.Info().Msgf("Content repository: %s/%s@%s", cfg.Config.GitHub.Owner, cfg.Config.GitHub.Repo, cfg.Config.GitHub.Branch)

	// setup repos
	var (
		notificationRepo = database.NewNotificationRepo(log, store)
		userRepo         = database.NewUserRepo(log, store)
		storeRepo        = database.NewStoreRepo(log, store)
		productRepo      = database.NewProductRepo(log, store)
	)

	// ephemeral store for phone verification codes
	codes := verification.NewStore(cfg.Config.Auth.CodeTTL(), log)

	// setup services
	var (
		notificationService = notification.NewService(log, notificationRepo)
		updateService       = update.NewUpdate(log, cfg.Config, bus)
		userService         = user.NewService(userRepo, log)
		authService         = auth.NewService(log, cfg.Config, codes, userService, bus)
		seeder              = database.NewSeeder(log, store)
	)

	// register event subscribers
	events.NewSubscribers(log, bus, notificationService)

	if cfg.Config.CheckForUpdates {
		go updateService.CheckUpdates(context.Background())
	}

	errorChannel := make(chan error)

	go func() {
		httpServer := http.NewServer(
			log,
			cfg,
			serverEvents,
			bus,
			store,
			seeder,
			githubClient,
			version,
			commit,
			date,
			authService,
			notificationService,
			updateService,
			userService,
			storeRepo,
			productRepo,
		)
		errorChannel <- httpServer.Open()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	for {
		select {
		case err := <-errorChannel:
			log.Fatal().Stack().Err(err).Msg("http server failed")
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Log().Msg("shutting down server sighup")
				os.Exit(1)
			default:
				log.Info().Msg("Shutting down server...")
				os.Exit(0)
			}
		}
	}
}
