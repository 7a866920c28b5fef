package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackmeet/internal/api"
	"trackmeet/internal/app/service"
	"trackmeet/internal/app/worker"
	"trackmeet/internal/common/security"
	"trackmeet/internal/domain/repository"
	"trackmeet/internal/platform/cache"
	"trackmeet/internal/platform/config"
	"trackmeet/internal/platform/database"
	"trackmeet/internal/platform/queue"

	"github.com/spf13/cobra"
)

var (
	serverPort  string
	autoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and the results announcement worker.

Configuration comes from the environment (and .env when present).
Redis is optional: without REDIS_ADDR the event list is not cached and
result announcements are not queued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port, overrides API_PORT")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServer() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(firstNonEmpty(logLevel, cfg.LogLevel), firstNonEmpty(logFormat, cfg.LogFormat))
	port := firstNonEmpty(serverPort, cfg.APIPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Database
	if autoMigrate {
		if err := database.MigrateUp(cfg.DBDriver, cfg.DSN()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info().Str("driver", cfg.DBDriver).Msg("database connected")

	// 3. Initialize Redis
	rdb, err := queue.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	var (
		eventCache service.EventCache
		publisher  service.AnnouncementPublisher
		results    *queue.ResultsQueue
	)
	if rdb != nil {
		defer rdb.Close()
		eventCache = cache.NewEventsCache(rdb, cfg.EventsCache)
		results = queue.NewResultsQueue(rdb, cfg.ResultsQueueName)
		publisher = results
	}

	// 4. Initialize Repositories
	dialect := repository.DialectFor(cfg.DBDriver)
	athleteRepo := repository.NewAthleteRepository(db, dialect)
	eventRepo := repository.NewEventRepository(db, dialect)

	// 5. Initialize Services
	tokens := security.NewTokenIssuer([]byte(cfg.JWTKey))
	svc := api.Services{
		Auth: service.NewAuthService(athleteRepo, tokens, service.AuthSettings{
			AthleteTokenTTL: cfg.AthleteTokenTTL,
			AdminTokenTTL:   cfg.AdminTokenTTL,
			AdminEmail:      cfg.AdminEmail,
			AdminPassword:   cfg.AdminPassword,
		}, logger),
		Athletes:      service.NewAthleteService(athleteRepo, eventRepo, logger),
		Events:        service.NewEventService(eventRepo, athleteRepo, eventCache, logger),
		Participation: service.NewParticipationService(db, eventRepo, athleteRepo, eventCache, publisher, logger),
	}

	// 6. Start the announcement worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if results != nil {
		announcer := worker.NewAnnouncementWorker(results, athleteRepo, cfg.ResultsWebhookURL, logger)
		go func() {
			announcer.Start(workerCtx)
			close(workerDone)
		}()
	} else {
		close(workerDone)
	}

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(svc, api.RouterOptions{
		Tokens:         tokens,
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		LoginPerMinute: cfg.LoginPerMinute,
	})
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 8. Graceful Shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("listen on %s: %w", port, err)
	}

	logger.Info().Msg("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-workerDone

	logger.Info().Msg("server and worker stopped gracefully")
	return nil
}
