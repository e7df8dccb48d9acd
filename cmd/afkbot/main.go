package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/afkbot/internal/autodelete"
	"github.com/p-blackswan/afkbot/internal/bot"
	"github.com/p-blackswan/afkbot/internal/broadcast"
	"github.com/p-blackswan/afkbot/internal/config"
	"github.com/p-blackswan/afkbot/internal/health"
	"github.com/p-blackswan/afkbot/internal/jobs"
	"github.com/p-blackswan/afkbot/internal/metrics"
	"github.com/p-blackswan/afkbot/internal/presence"
	"github.com/p-blackswan/afkbot/internal/retry"
	"github.com/p-blackswan/afkbot/internal/store"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("bot_username", cfg.BotUsername).
		Bool("owner_enabled", cfg.OwnerEnabled()).
		Msg("starting afk bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	media, err := presence.NewMediaStore(cfg.DownloadsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare downloads dir")
	}

	m := metrics.New()

	// Auto-delete
	policies := autodelete.NewPolicyStore(db.DB())
	tasks := autodelete.NewTaskStore(db.DB())
	scheduler := autodelete.NewScheduler(policies, tasks, logger, autodelete.WithObserver(m))

	client := telegram.NewClient(cfg.BotToken, logger, telegram.WithBaseURL(cfg.APIBaseURL))
	me, err := client.GetMe(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve bot identity")
	}
	logger.Info().Int64("bot_id", me.ID).Str("username", me.Username).Msg("bot identity resolved")

	sweeper := autodelete.NewSweeper(autodelete.Config{
		SweepInterval: cfg.SweepInterval,
		ErrorBackoff:  cfg.SweepErrorBackoff,
	}, tasks, client, logger, autodelete.WithObserver(m))

	outbox := bot.NewOutbox(client, scheduler, logger)
	tracker := presence.NewTracker(db, logger)

	broadcaster := broadcast.NewBroadcaster(outbox.Broadcaster(), db, cfg.BroadcastRate, logger,
		broadcast.WithRetry(retry.DefaultConfig()),
		broadcast.WithDeliveryObserver(func(target broadcast.Target, ok bool) {
			m.RecordBroadcast(string(target), ok)
		}),
	)

	username := cfg.BotUsername
	if me.Username != "" {
		username = me.Username
	}
	handler := bot.NewHandler(bot.Config{
		BotID:         me.ID,
		BotUsername:   username,
		OwnerID:       cfg.OwnerID,
		StartPhotoURL: cfg.StartPhotoURL,
		OwnerURL:      cfg.OwnerURL,
		SupportURL:    cfg.SupportURL,
		StartedAt:     time.Now(),
		CommandLimit:  cfg.CommandRateLimit,
		CommandWindow: time.Minute,
	}, bot.Deps{
		Client:     client,
		Outbox:     outbox,
		Tracker:    tracker,
		Media:      media,
		Directory:  db,
		Policies:   policies,
		Tasks:      tasks,
		Broadcasts: broadcast.NewService(db, broadcaster, logger),
		Recorder:   m,
	}, logger)

	// Health and metrics
	checker := health.NewChecker(logger, health.WithCacheTTL(15*time.Second))
	checker.Register("store", health.PingCheck(db.Ping))
	// The Bot API being unreachable degrades the bot but does not make it unready.
	checker.Register("telegram", func(ctx context.Context) health.Status {
		if _, err := client.GetMe(ctx); err != nil {
			return health.StatusDegraded
		}
		return health.StatusOK
	})
	server := health.NewServer(fmt.Sprintf(":%d", cfg.HTTPPort), checker, m.Handler(), logger)

	// Housekeeping
	cronJobs := jobs.NewScheduler(logger, 30*time.Second)
	for _, job := range []jobs.Job{
		jobs.PurgeDrafts("@every 1h", db, cfg.BroadcastDraftTTL, logger),
		jobs.RefreshGauges("@every 1m", m, tracker.CountAway, tasks.Count),
		jobs.PruneLimiter("@every 10m", handler.Limiter()),
	} {
		if err := cronJobs.Add(job); err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule job")
		}
	}
	cronJobs.Start()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	updates := make(chan telegram.Update, 100)
	poller := telegram.NewPoller(client, logger, telegram.WithPollTimeout(cfg.PollTimeout))

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx, updates)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx, updates)
	}()

	if cfg.OwnerEnabled() {
		if _, err := client.SendMessage(ctx, cfg.OwnerID, "✅ AFK Bot started", telegram.SendOptions{}); err != nil {
			logger.Warn().Err(err).Msg("failed to notify owner")
		}
	}

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	cronJobs.Stop(shutdownCtx)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		handler.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("afk bot stopped")
}
