package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/drive"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/metadata"
	"github.com/MrSnakeDoc/shelf/internal/redis"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/shelf"
	redisstore "github.com/MrSnakeDoc/shelf/internal/store/redis"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sweeper     *scheduler.SessionSweeper
	seeder      *scheduler.SeedImporter
}

// New wires the full server: session backend, drive, fetcher and HTTP router.
// It fails fast when a backend cannot be reached.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}

	var sessions session.Store
	switch cfg.SessionBackend {
	case "redis":
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		a.redisClient = client
		sessions = redisstore.NewStore(client, cfg.SessionTTL)
	default:
		mem := session.NewMemoryStore(cfg.SessionTTL, domain.RealClock{})
		a.sweeper = scheduler.NewSessionSweeper(mem, domain.RealClock{}, log, cfg.SessionSweepInterval)
		sessions = mem
		log.Warn("in-memory sessions: every login is lost on restart")
	}

	svc, err := newService(ctx, cfg, log, sessions)
	if err != nil {
		a.closeRedis()
		return nil, err
	}

	if cfg.SeedFile != "" {
		log.Info("seed file configured", logger.String("file", cfg.SeedFile))
		a.seeder = scheduler.NewSeedImporter(cfg.SeedFile, svc, log, cfg.SeedInterval)
	}

	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CookieSecure:    cfg.CookieSecure,
		SessionTTL:      cfg.SessionTTL,
		FetchRateBurst:  cfg.FetchRateBurst,
		FetchRatePerMin: cfg.FetchRatePerMin,
		Shelf:           svc,
	}
	a.server = httpserver.New(cfg, log, d)

	return a, nil
}

// NewOffline wires only the service, on throwaway in-memory sessions. CLI
// commands use it to reach the drive without a session backend.
func NewOffline(ctx context.Context, cfg *config.Config, log logger.Logger) (*shelf.Service, error) {
	return newService(ctx, cfg, log, session.NewMemoryStore(cfg.SessionTTL, domain.RealClock{}))
}

func newService(ctx context.Context, cfg *config.Config, log logger.Logger, sessions session.Store) (*shelf.Service, error) {
	store, err := drive.NewFromConfig(ctx, cfg.Drive)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive: %w", err)
	}
	log.Info("drive initialized", logger.String("type", store.Kind()))

	fetcher := metadata.NewFetcher(metadata.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.FetchUserAgent,
		MaxBody:   cfg.FetchMaxBodyBytes,
	})

	return shelf.New(shelf.Options{
		Gate:     domain.NewGate(cfg.OwnerPassword, cfg.GuestPassword),
		Sessions: sessions,
		Drive:    store,
		Fetcher:  fetcher,
		Logger:   log,
	}), nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.sweeper != nil {
		a.sweeper.Start(ctx)
		a.logger.Info("session sweeper started",
			logger.Duration("interval", a.cfg.SessionSweepInterval))
	}

	if a.seeder != nil {
		if err := a.seeder.Start(ctx); err != nil {
			a.stopBackground()
			return fmt.Errorf("failed to start seed importer: %w", err)
		}
		a.logger.Info("seed importer started",
			logger.Duration("interval", a.cfg.SeedInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.stopBackground()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.stopBackground()
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.stopBackground()
	a.logger.Info("✅ Shelf stopped cleanly")
	return nil
}

func (a *App) stopBackground() {
	if a.sweeper != nil {
		a.sweeper.Stop()
		a.sweeper = nil
	}
	if a.seeder != nil {
		a.seeder.Stop()
		a.seeder = nil
	}
	a.closeRedis()
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
	} else {
		a.logger.Info("✅ Redis closed cleanly")
	}
	a.redisClient = nil
}
