// Package main contains the entrypoint for the guildwatch Discord bot.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/guildwatch/internal/activity"
	"github.com/edgard/guildwatch/internal/api"
	"github.com/edgard/guildwatch/internal/bot"
	"github.com/edgard/guildwatch/internal/bot/handlers"
	"github.com/edgard/guildwatch/internal/bot/tasks"
	"github.com/edgard/guildwatch/internal/cache"
	"github.com/edgard/guildwatch/internal/config"
	"github.com/edgard/guildwatch/internal/database"
	"github.com/edgard/guildwatch/internal/discord"
	"github.com/edgard/guildwatch/internal/gemini"
	"github.com/edgard/guildwatch/internal/llmchat"
	"github.com/edgard/guildwatch/internal/logger"
	"github.com/edgard/guildwatch/internal/ratelimit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until ctx is cancelled and returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	counters, err := cache.New(cfg.Cache.URL, log)
	if err != nil {
		log.Error("Failed to create cache store", "error", err)
		return 1
	}
	defer func() {
		if err := counters.Close(); err != nil {
			log.Warn("Error closing cache store", "error", err)
		}
	}()
	if err := counters.Ping(ctx); err != nil {
		log.Warn("Cache backend unreachable, rate limits fail open until it recovers", "error", err)
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		log.Error("Failed to create Discord session", "error", err)
		return 1
	}

	clock := clockwork.NewRealClock()
	attributor := activity.NewAttributor(discord.NewAuditTrail(session), cfg.Activity.AuditLogLimit, cfg.Activity.AttributionWindow, log)
	activitySvc := activity.NewService(store, attributor, activity.NewIgnoreSet(cfg.Activity.IgnoreTTL), clock, log)

	var gemClient gemini.Client
	if cfg.Gemini.Enabled() {
		gemClient, err = gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
	}

	hDeps := handlers.HandlerDeps{
		Logger:       log,
		Config:       cfg,
		Messenger:    session,
		BotUser:      botUser(session),
		Activity:     activitySvc,
		Limiter:      ratelimit.NewLimiter(counters, cfg.RateLimit.Window(), cfg.RateLimit.MaxHits, log),
		History:      llmchat.NewHistory(store, counters, log),
		GeminiClient: gemClient,
	}
	removeHandlers := handlers.RegisterAll(session, hDeps, handlers.DefaultEventTimeout)
	defer removeHandlers()

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Clock:  clock,
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), clock)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var server *http.Server
	if cfg.API.ListenAddr != "" {
		server = api.NewServer(activitySvc, map[string]api.Pinger{
			"database": store,
			"cache":    counters,
		}, log).NewHTTPServer(cfg.API.ListenAddr)
	}
	app := bot.NewBot(log, session, sched, server, cfg.API.ShutdownTimeout)

	if err := app.Run(ctx); err != nil {
		log.Error("Bot stopped due to error", "error", err)
		// Allow logs to flush before exiting.
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully")
	return 0
}

func botUser(s *discordgo.Session) func() *discordgo.User {
	return func() *discordgo.User {
		if s.State == nil {
			return nil
		}
		s.State.RLock()
		defer s.State.RUnlock()
		return s.State.User
	}
}

