package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lesson-league-system/config"
	"lesson-league-system/handlers"
	"lesson-league-system/logging"
	"lesson-league-system/middleware"
	"lesson-league-system/repository"
	"lesson-league-system/services"
	"lesson-league-system/utils"
	"lesson-league-system/workers"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(cfg.Database)
	defer closeStore()

	now := services.SystemClock

	// --- Services ---
	tokens := services.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, now)
	economy := services.NewEconomyService(store, now)
	progression := services.NewProgressionService(store, now)
	achievements := services.NewAchievementService(store, now)
	accounts := services.NewAccountService(store, tokens, economy, now)
	progress := services.NewProgressService(store, progression, achievements, now)
	exercises := services.NewExerciseService(store, progression)
	social := services.NewSocialService(store)
	leagues := services.NewLeagueService(store, now)
	practice := services.NewPracticeService(store)

	generator := services.NewChatGenerator(services.ChatGeneratorConfig{
		APIKey:        cfg.Generator.APIKey,
		BaseURL:       cfg.Generator.BaseURL,
		Model:         cfg.Generator.Model,
		RatePerMinute: cfg.Generator.RatePerMinute,
		Client:        utils.NewHTTPClient(cfg.Generator.Timeout),
	})
	if cfg.Generator.APIKey == "" {
		logging.Warn().Msg("⚠️  generator API key not set, lesson and story generation will fail")
	}
	content := services.NewContentService(store, generator, openArchive(ctx, cfg.Storage), services.ContentLanguages{
		Target: cfg.Generator.TargetLang,
		Source: cfg.Generator.SourceLang,
	})

	if err := economy.SeedShop(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to seed shop catalog")
	}

	// --- Background jobs ---
	sched, err := leagues.StartLeagueScheduler(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer func() { _ = sched.Shutdown() }()

	workers.NewInventorySweeper(economy, cfg.Workers.InventorySweepInterval).Start(ctx)

	// --- HTTP ---
	app := handlers.NewApp(cfg.Server.BodyLimitMB * 1024 * 1024)

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.Origins(), ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		MaxAge:       86400,
	}))
	app.Use(middleware.RequestLogger())

	auth := middleware.BearerAuth(tokens)
	api := app.Group("/api")

	handlers.SetupHealthRoutes(app, api)
	handlers.SetupAuthRoutes(api, auth, accounts)
	handlers.SetupContentRoutes(api, auth, middleware.AdminKey(cfg.Auth.AdminKey), content, exercises, int64(cfg.Server.BodyLimitMB)*1024*1024)
	handlers.SetupProgressionRoutes(api, auth, progress, progression, achievements)
	handlers.SetupEconomyRoutes(api, auth, economy)
	handlers.SetupSocialRoutes(api, auth, social, leagues)
	handlers.SetupPracticeRoutes(api, auth, practice)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			logging.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	logging.Info().Int("port", cfg.Server.Port).Str("store", cfg.Database.Driver).Msg("✅ Server running")
	logging.Info().Strs("origins", cfg.Server.Origins()).Msg("✅ CORS configured")

	<-ctx.Done()
	logging.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStore connects to Postgres and migrates, or builds the in-memory store.
func openStore(cfg config.DatabaseConfig) (*repository.Store, func()) {
	if cfg.Driver == "memory" {
		logging.Warn().Msg("⚠️  using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}
	}

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate database")
	}
	return repository.NewGormStore(db), func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func openArchive(ctx context.Context, cfg config.StorageConfig) services.Archive {
	if !cfg.ArchiveEnabled() {
		return utils.NopArchive{}
	}
	archive, err := utils.NewR2Archive(ctx, cfg.R2AccountID, cfg.R2AccessKey, cfg.R2SecretKey, cfg.R2Bucket)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize R2 client")
	}
	logging.Info().Str("bucket", cfg.R2Bucket).Msg("✅ generated content archived to R2")
	return archive
}
