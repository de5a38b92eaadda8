package setup

import (
	"context"
	"time"

	"github.com/redis/rueidis"
	"github.com/tribelabs/tribe/internal/cache"
	"github.com/tribelabs/tribe/internal/database"
	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/tribelabs/tribe/internal/notify/channels"
	"github.com/tribelabs/tribe/internal/redis"
	"github.com/tribelabs/tribe/internal/setup/config"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and
// cleanup.
type App struct {
	Config       *config.Config             // Application configuration
	Logger       *zap.Logger                // Main application logger
	DBLogger     *zap.Logger                // Database-specific logger
	DB           database.Client            // Database connection pool
	RedisManager *redis.Manager             // Redis connection manager
	StatusClient rueidis.Client             // Redis client for worker status reporting
	GroupCache   *cache.GroupCache          // Group lookup cache
	Senders      map[string]channels.Sender // Delivery providers keyed by channel
	pprofServer  *pprofServer               // Debug HTTP server for pprof
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logger, dbLogger, err := GetLoggers(logDir, cfg.Common.Debug.LogLevel, cfg.Common.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	// Redis manager provides connection pools for the cache and worker
	// status subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, dbLogger, true)
	if err != nil {
		return nil, err
	}

	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return nil, err
	}

	cacheClient, err := redisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		return nil, err
	}

	groupCache := cache.NewGroupCache(
		cacheClient,
		time.Duration(cfg.Worker.Digest.CacheTTL)*time.Second,
		logger,
	)

	senders := map[string]channels.Sender{
		types.ChannelEmail:    channels.NewEmailSender(&cfg.Common.SMTP, logger),
		types.ChannelWhatsApp: channels.NewWhatsAppSender(&cfg.Common.WhatsApp, logger),
		types.ChannelSMS:      channels.NewSMSSender(&cfg.Common.SMS, logger),
	}

	// Start pprof server if enabled
	var pprofSrv *pprofServer

	if cfg.Common.Debug.EnablePprof {
		srv, err := startPprofServer(cfg.Common.Debug.PprofPort, logger)
		if err != nil {
			logger.Error("Failed to start pprof server", zap.Error(err))
		} else {
			pprofSrv = srv

			logger.Warn("pprof debugging endpoint enabled - this should not be used in production!")
		}
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		GroupCache:   groupCache,
		Senders:      senders,
		pprofServer:  pprofSrv,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse
// initialization order. Logs but does not fail on cleanup errors so every
// component gets a shutdown attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.pprofServer != nil {
		if err := s.pprofServer.shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shut down pprof server", zap.Error(err))
		}
	}

	if err := s.DB.Close(); err != nil {
		s.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.RedisManager.Close()

	_ = s.Logger.Sync()
	_ = s.DBLogger.Sync()
}
