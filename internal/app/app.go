package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/config"
	httpserver "github.com/KostasPapadooo/ev-charging-app/internal/http"
	"github.com/KostasPapadooo/ev-charging-app/internal/http/handlers"
	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/notify"
	"github.com/KostasPapadooo/ev-charging-app/internal/pubsub"
	"github.com/KostasPapadooo/ev-charging-app/internal/repository"
	"github.com/KostasPapadooo/ev-charging-app/internal/scheduler"
	"github.com/KostasPapadooo/ev-charging-app/internal/service"
	"github.com/KostasPapadooo/ev-charging-app/internal/tomtom"
	"github.com/KostasPapadooo/ev-charging-app/internal/ws"
	libdb "github.com/KostasPapadooo/ev-charging-app/libs/db"
	libredis "github.com/KostasPapadooo/ev-charging-app/libs/redis"
)

// App wires the engine's dependency graph: store, provider client, sweeps,
// fan-out, pub/sub bridge and the HTTP surface.
type App struct {
	server      *httpserver.Server
	scheduler   *scheduler.Scheduler
	hub         *ws.Hub
	bridge      *pubsub.Bridge
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	stationRepo := repository.NewStationRepository(sqlDB)
	historyRepo := repository.NewHistoryRepository(sqlDB)
	eventRepo := repository.NewEventRepository(sqlDB)
	subscriptionRepo := repository.NewSubscriptionRepository(sqlDB)
	notificationRepo := repository.NewNotificationRepository(sqlDB)

	provider := tomtom.NewClient(tomtom.Config{
		SearchAPIKey: cfg.TomTom.SearchAPIKey,
		EVAPIKey:     cfg.TomTom.EVAPIKey,
		BaseURL:      cfg.TomTom.BaseURL,
		Timeout:      cfg.TomTom.Timeout.Std(),
	}, nil, logger)

	hub := ws.NewHub(logger)
	publisher := pubsub.NewRedisPublisher(redisClient)
	bridge := pubsub.NewBridge(redisClient, hub, logger)

	mailer := notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger)
	fanout := notify.NewFanout(subscriptionRepo, notificationRepo, mailer, logger, m)

	searchService := service.NewSearchService(stationRepo, provider, cfg.Search.MinLocalResults, cfg.Search.MaxResults, logger, m)
	batchSweep := service.NewBatchSweep(stationRepo, historyRepo, provider, logger, m)
	speedSweep := service.NewSpeedSweep(stationRepo, historyRepo, eventRepo, provider, publisher, fanout, logger, m)
	maintenance := service.NewMaintenance(stationRepo, historyRepo, cfg.Retention.CacheMaxAge.Std(), historyRetention(cfg), logger)

	sched := scheduler.New(logger)
	for _, region := range cfg.Sweeps.Regions {
		region := region
		sched.Register(scheduler.Job{
			Name:       "batch_sweep_" + region.Name,
			Interval:   region.Interval.Std(),
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := batchSweep.Run(ctx, region)
				return err
			},
		})
	}
	sched.Register(scheduler.Job{
		Name:       "speed_sweep",
		Interval:   cfg.Sweeps.SpeedInterval.Std(),
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := speedSweep.Run(ctx)
			return err
		},
	})
	sched.Register(scheduler.Job{
		Name:     "cache_eviction",
		Interval: cfg.Retention.CleanupInterval.Std(),
		Run:      maintenance.EvictStale,
	})
	sched.Register(scheduler.Job{
		Name:     "history_retention",
		Interval: cfg.Retention.CleanupInterval.Std(),
		Run:      maintenance.PruneHistory,
	})

	routes := httpserver.Routes{
		StationsList:   handlers.NewStationsListHandler(stationRepo, cfg.Search.MaxResults, logger),
		StationByID:    handlers.NewStationByIDHandler(stationRepo, logger),
		NearbySearch:   handlers.NewNearbySearchHandler(searchService, cfg.Search.DefaultRadiusMeters, cfg.Search.MaxResults, logger),
		StationHistory: handlers.NewStationHistoryHandler(stationRepo, historyRepo, logger),
		StationEvents:  handlers.NewStationEventsHandler(stationRepo, eventRepo, logger),
		StatsSummary:   handlers.NewStatsSummaryHandler(stationRepo, logger),
		WebSocket:      handlers.NewWebSocketHandler(hub, logger),
		Health:         handlers.NewHealthHandler(),
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	server := httpserver.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes), logger)

	return &App{
		server:      server,
		scheduler:   sched,
		hub:         hub,
		bridge:      bridge,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the hub, the pub/sub bridge, the sweep scheduler and the HTTP
// server, and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)
	go a.bridge.Run(ctx)
	a.scheduler.Start(ctx)

	err := a.server.Run(ctx)
	a.scheduler.Wait()
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func historyRetention(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Retention.HistoryDays) * 24 * time.Hour
}
