package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/domain"
	"dispatch/internal/handler"
	"dispatch/internal/middleware"
	"dispatch/internal/mq"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/repository/memory"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

// repositories groups one storage backend's repositories.
type repositories struct {
	rides       repository.RideRepository
	interests   repository.InterestRepository
	assignments repository.AssignmentRepository
	drivers     repository.DriverRepository
	stats       repository.StatsRepository
}

func main() {
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Dispatch.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	if !cfg.Dispatch.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	var repos repositories
	switch cfg.Dispatch.Storage {
	case "memory":
		repos = memoryRepositories()
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		repos = postgresRepositories(db)
		logger.Info("connected to PostgreSQL", zap.String("db", cfg.Database.DBName))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	notifiers := []service.Notifier{service.NewLogNotifier(logger)}
	if redisClient != nil {
		notifiers = append(notifiers, internalRedis.NewChangePublisher(redisClient))
	}
	if cfg.AMQP.Enabled {
		publisher, err := mq.NewPublisher(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		logger.Info("publishing ride events", zap.String("exchange", cfg.AMQP.Exchange))
	}
	notifications := service.NewNotificationService(logger, cfg.Dispatch.NotifyTimeout, notifiers...)

	server, scheduler := wireServer(cfg, repos, redisClient, notifications, nrApp, logger)

	runCtx, stop := context.WithCancel(context.Background())
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(runCtx)
	}()

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	stop()
	<-schedulerDone
	notifications.Wait()
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

func memoryRepositories() repositories {
	store := memory.NewStore()
	return repositories{
		rides:       store.Rides(),
		interests:   store.Interests(),
		assignments: store.Assignments(),
		drivers:     store.Drivers(),
		stats:       store.Stats(),
	}
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		rides:       postgres.NewRideRepository(db),
		interests:   postgres.NewInterestRepository(db),
		assignments: postgres.NewAssignmentRepository(db),
		drivers:     postgres.NewDriverRepository(db),
		stats:       postgres.NewStatsRepository(db),
	}
}

// wireServer wires all dependencies and returns the HTTP server and the
// background scheduler.
func wireServer(
	cfg *config.Config,
	repos repositories,
	redisClient *redis.Client,
	notifications *service.NotificationService,
	nrApp *newrelic.Application,
	logger *zap.Logger,
) (*http.Server, *service.RideTimeoutScheduler) {
	// Optional Redis-backed collaborators stay untyped nil when Redis is off.
	var (
		profileCache    internalRedis.ProfileCache
		assignmentCache internalRedis.AssignmentCache
		lockStore       internalRedis.LockStoreInterface
		responseStore   middleware.ResponseStore
	)
	if redisClient != nil {
		cacheStore := internalRedis.NewCacheStore(redisClient)
		profileCache = cacheStore
		assignmentCache = cacheStore
		lockStore = internalRedis.NewLockStore(redisClient)
		responseStore = internalRedis.NewResponseStore(redisClient)
	}

	windows := domain.DecisionWindows{
		Immediate: cfg.Dispatch.ImmediateWindow,
		Scheduled: cfg.Dispatch.ScheduledWindow,
	}

	// Initialize services.
	driverService := service.NewDriverService(repos.drivers, profileCache, logger)
	registry := service.NewInterestRegistry(repos.rides, repos.interests, driverService.LookupProfile, logger)
	policy := service.NewAssignmentPolicy(nil)
	executor := service.NewAssignmentExecutor(repos.rides, registry, policy, logger)
	scheduler := service.NewRideTimeoutScheduler(repos.rides, executor, notifications, lockStore, nrApp, service.SchedulerConfig{
		Windows:       windows,
		SweepInterval: cfg.Dispatch.SweepInterval,
		SweepLockTTL:  cfg.Dispatch.SweepLockTTL,
	}, logger)
	rideService := service.NewRideService(repos.rides, notifications, logger)
	queryService := service.NewAssignmentQueryService(repos.rides, repos.assignments, assignmentCache, logger)
	statsService := service.NewStatsService(repos.stats)

	// Initialize handlers.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:       handler.NewRideHandler(rideService, scheduler.Windows()),
		InterestHandler:   handler.NewInterestHandler(registry, scheduler),
		AssignmentHandler: handler.NewAssignmentHandler(scheduler, queryService, rideService),
		DriverHandler:     handler.NewDriverHandler(driverService),
		StatsHandler:      handler.NewStatsHandler(statsService),
		ResponseStore:     responseStore,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		NewRelicApp:       nrApp,
		Logger:            logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, scheduler
}
