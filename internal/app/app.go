package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/bus"
	"github.com/MrSnakeDoc/bookmarks/internal/config"
	"github.com/MrSnakeDoc/bookmarks/internal/consumer"
	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/redis"
	"github.com/MrSnakeDoc/bookmarks/internal/scheduler"
	"github.com/MrSnakeDoc/bookmarks/internal/utils"
	"github.com/MrSnakeDoc/bookmarks/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	bus         *bus.RedisBus
	closeStore  func()
	seeder      *scheduler.BookmarkSeeder
	redeliverer *scheduler.Redeliverer
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	// The bus lives on Redis - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		utils.Close(redisClient)
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	loggerClient.Info("store initialized",
		logger.String("driver", cfg.StoreDriver),
		logger.String("table", cfg.Table))

	// Bus with a single rule: bookmark mutations go to the consumer.
	eventBus := bus.NewRedisBus(redisClient, bus.Options{
		Consumer: cfg.BusConsumer,
		Workers:  cfg.BusWorkers,
		Batch:    cfg.BusBatch,
		Block:    cfg.BusBlock,
		MinIdle:  cfg.RedeliverMinIdle,
	}, loggerClient)

	handler := consumer.NewHandler(store, loggerClient)
	target := bus.TargetFunc(func(ctx context.Context, evt domain.Event) {
		handler.Handle(ctx, evt)
	})
	if err := eventBus.Register(bus.MutationRule(), target); err != nil {
		closeStore()
		utils.Close(redisClient)
		return nil, fmt.Errorf("register mutation rule: %w", err)
	}

	// Mutations publish in-process unless a remote bus endpoint is configured.
	var publisher events.Publisher = eventBus
	publisherName := "local"
	if cfg.BusEndpoint != "" {
		publisherName = cfg.BusEndpoint
		loggerClient.Info("publishing mutations to remote bus",
			logger.String("endpoint", cfg.BusEndpoint))
		publisher = bus.NewClient(cfg.BusEndpoint, cfg.BusTimeout)
	}

	resolver, err := events.NewResolver(publisher, loggerClient, domain.MutationKinds()...)
	if err != nil {
		closeStore()
		utils.Close(redisClient)
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	redeliverer := scheduler.NewRedeliverer(eventBus, loggerClient, cfg.RedeliverInterval)

	// Seed import (if a bookmarks file is configured)
	var seeder *scheduler.BookmarkSeeder
	var seedTrigger chan struct{}
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured, initializing bookmark seeder",
			logger.String("file", cfg.SeedFile))
		seedTrigger = make(chan struct{}, 1)
		seeder = scheduler.NewBookmarkSeeder(
			cfg.SeedFile,
			resolver,
			loggerClient,
			cfg.SeedInterval,
			seedTrigger,
		)
	} else {
		loggerClient.Info("seed file not configured, seeding disabled")
	}

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		CORSOrigins:  cfg.CORSOrigins,
		RateBurst:    cfg.RateBurst,
		RatePerMin:   cfg.RatePerMin,
		Resolver:     resolver,
		Bus:          eventBus,
		Publisher:    publisherName,
		Redis:        redisPinger{redisClient},
		Store:        store,
		StoreDriver:  cfg.StoreDriver,
		Table:        cfg.Table,
		SeedTrigger:  seedTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		bus:         eventBus,
		closeStore:  closeStore,
		seeder:      seeder,
		redeliverer: redeliverer,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting bookmarks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("bookmarks %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	busDone := make(chan error, 1)
	go func() {
		busDone <- a.bus.Run(ctx)
	}()
	a.logger.Info("event bus started",
		logger.String("stream", a.bus.Stream()),
		logger.Int("workers", a.cfg.BusWorkers))

	if err := a.redeliverer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start redeliverer: %w", err)
	}
	a.logger.Info("redeliverer started",
		logger.Duration("interval", a.cfg.RedeliverInterval))

	if a.seeder != nil {
		if err := a.seeder.Start(ctx); err != nil {
			return fmt.Errorf("failed to start bookmark seeder: %w", err)
		}
		a.logger.Info("bookmark seeder started",
			logger.Duration("interval", a.cfg.SeedInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	busExited := false
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		runErr = err
	case err := <-busDone:
		busExited = true
		if err != nil {
			runErr = fmt.Errorf("event bus stopped: %w", err)
		}
	}
	stop()

	if a.seeder != nil {
		a.seeder.Stop()
	}
	a.redeliverer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	// In-flight deliveries finish before the store goes away.
	if !busExited {
		select {
		case err := <-busDone:
			if err != nil {
				a.logger.Warn("event bus stopped with error", logger.Error(err))
			}
		case <-shutdownCtx.Done():
			a.logger.Warn("event bus did not drain before shutdown timeout")
		}
	}

	a.closeStore()

	utils.CloseLogged(a.redisClient, "redis", a.logger)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ bookmarks stopped cleanly")
	return nil
}

type redisPinger struct{ client *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
