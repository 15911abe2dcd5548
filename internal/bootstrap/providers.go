package bootstrap

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"stockwatch/internal/adapters/ai"
	badgerstore "stockwatch/internal/adapters/badger"
	chclient "stockwatch/internal/adapters/clickhouse"
	"stockwatch/internal/adapters/config"
	errnoop "stockwatch/internal/adapters/errors/noop"
	"stockwatch/internal/adapters/errors/sentry"
	"stockwatch/internal/adapters/influx"
	"stockwatch/internal/adapters/kafka"
	"stockwatch/internal/adapters/marketdata"
	"stockwatch/internal/adapters/news"
	pgclient "stockwatch/internal/adapters/postgres"
	redisclient "stockwatch/internal/adapters/redis"
	"stockwatch/internal/adapters/telegram"
	"stockwatch/internal/agents/collection"
	"stockwatch/internal/agents/risk"
	"stockwatch/internal/agents/sentiment"
	"stockwatch/internal/agents/technical"
	"stockwatch/internal/alerts"
	"stockwatch/internal/api"
	"stockwatch/internal/api/health"
	"stockwatch/internal/events"
	"stockwatch/internal/metrics"
	"stockwatch/internal/orchestrator"
	chrepo "stockwatch/internal/repository/clickhouse"
	pgrepo "stockwatch/internal/repository/postgres"
	"stockwatch/internal/tracing"
	"stockwatch/migrations"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

const connectTimeout = 15 * time.Second

// ========================================
// Phase 1: Configuration & Logging
// ========================================

func (c *Container) initConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return errors.Wrap(err, "failed to init logger")
	}
	c.Log = logger.Get()
	c.Log.Infow("Starting", "app", cfg.App.Name, "env", cfg.App.Env, "version", cfg.App.Version)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
	// Derived loggers copy the tracker, so refresh ours after installing it
	c.Log = logger.Get()

	c.shutdownTracing, err = tracing.Init(c.Context, cfg.App, cfg.Tracing)
	if err != nil {
		return errors.Wrap(err, "failed to init tracing")
	}

	metrics.Init()
	return nil
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// initInfrastructure connects Postgres (required) and every optional store
func (c *Container) initInfrastructure() error {
	ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
	defer cancel()

	var err error

	c.PG, err = pgclient.NewClient(ctx, c.Config.Postgres)
	if err != nil {
		return errors.Wrap(err, "failed to connect postgres")
	}
	if err := migrations.Apply(ctx, c.PG.DB()); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	c.Log.Infow("PostgreSQL connected", "host", c.Config.Postgres.Host)

	if c.Config.ClickHouse.Enabled() {
		c.CH, err = chclient.NewClient(ctx, c.Config.ClickHouse)
		if err != nil {
			return errors.Wrap(err, "failed to connect clickhouse")
		}
		c.Log.Infow("ClickHouse connected", "host", c.Config.ClickHouse.Host)
	}

	if c.Config.Influx.Enabled() && c.Config.MarketData.InfluxSink {
		c.Influx, err = influx.NewSink(ctx, c.Config.Influx)
		if err != nil {
			// Dashboards only; collection works without it
			c.Log.Warnw("InfluxDB sink disabled", "error", err)
			c.Influx = nil
		}
	}

	c.KV, err = c.provideKV(ctx)
	if err != nil {
		return err
	}
	return nil
}

func (c *Container) provideKV(ctx context.Context) (KV, error) {
	switch c.Config.Store.Backend {
	case config.StoreRedis:
		client, err := redisclient.NewClient(ctx, c.Config.Redis)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect redis")
		}
		c.Redis = client
		c.Log.Infow("Store backend: redis", "addr", c.Config.Redis.Addr())
		return client, nil
	case config.StoreBadger:
		store, err := badgerstore.Open(badgerstore.Config{
			Path:       c.Config.Store.BadgerPath,
			GCInterval: 10 * time.Minute,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to open badger")
		}
		c.Badger = store
		c.Log.Infow("Store backend: badger", "path", c.Config.Store.BadgerPath)
		return store, nil
	default:
		c.Log.Infow("Store backend: memory")
		return kvstore.NewMemory(), nil
	}
}

// ========================================
// Phase 3: Repositories
// ========================================

func (c *Container) initRepositories() error {
	db := c.PG.DB()
	c.Repos.Stocks = pgrepo.NewStockRepository(db)
	c.Repos.Positions = pgrepo.NewTrackingRepository(db)
	c.Repos.Alerts = pgrepo.NewAlertRepository(db)

	if c.CH != nil {
		repo := chrepo.NewMarketDataRepository(c.CH.Conn())
		ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return errors.Wrap(err, "clickhouse schema")
		}
		c.Repos.MarketData = repo
	}

	prometheus.MustRegister(metrics.NewStateCollector(c.Log, db))
	return nil
}

// ========================================
// Phase 4: External Adapters
// ========================================

func (c *Container) initAdapters() error {
	cfg := c.Config

	c.Adapters.Prices = marketdata.NewYahoo(cfg.MarketData)
	c.Adapters.News = provideNews(cfg.News, c.Log)

	narrator, err := ai.New(c.Context, cfg.AI)
	if err != nil {
		return errors.Wrap(err, "failed to init narrator")
	}
	c.Adapters.Narrator = narrator
	c.Log.Infow("Narrator ready", "provider", cfg.AI.Provider)

	if cfg.Kafka.Enabled() {
		c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:     cfg.Kafka.Brokers,
			Async:       cfg.Kafka.Async,
			TopicPrefix: cfg.Kafka.TopicPrefix,
		})
		c.Adapters.Publisher = events.NewAlertPublisher(c.Adapters.KafkaProducer)
		c.Log.Infow("Kafka alert events enabled", "brokers", cfg.Kafka.Brokers)
	}

	c.Adapters.Notifier, err = provideNotifier(cfg.Telegram, c.Log)
	if err != nil {
		return err
	}
	return nil
}

// ========================================
// Phase 5: Business Logic
// ========================================

func (c *Container) initBusiness() error {
	cfg := c.Config
	repos := c.Repos

	var collectOpts []collection.Option
	if repos.MarketData != nil {
		collectOpts = append(collectOpts, collection.WithRepository(repos.MarketData))
	}
	if c.Influx != nil {
		collectOpts = append(collectOpts, collection.WithPriceSink(c.Influx))
	}
	c.Business.Collector = collection.New(c.Adapters.Prices, c.Adapters.News, collection.Config{
		HistoryDays:  cfg.MarketData.HistoryDays,
		NewsLimit:    cfg.News.Limit,
		MaxStaleness: cfg.MarketData.MaxStaleness,
	}, collectOpts...)

	var techOpts []technical.Option
	if cfg.Analysis.MACDSignal == config.MACDSignalEMA {
		techOpts = append(techOpts, technical.WithTrueMACDSignal())
	}
	c.Business.Pipeline = orchestrator.New(
		c.Business.Collector,
		[]orchestrator.Agent{technical.New(techOpts...), risk.New(), sentiment.New()},
		orchestrator.Config{CacheTTL: cfg.Store.CacheTTL},
		orchestrator.WithNarrator(c.Adapters.Narrator),
		orchestrator.WithCache(c.KV),
	)

	engineOpts := []alerts.EngineOption{alerts.WithLocker(c.KV)}
	smartOpts := []alerts.SmartOption{
		alerts.WithSmartLocker(c.KV),
		alerts.WithSmartNarrator(c.Adapters.Narrator),
		alerts.WithSmartNews(c.Adapters.News),
	}
	if c.Adapters.Publisher != nil {
		engineOpts = append(engineOpts, alerts.WithPublisher(c.Adapters.Publisher))
		smartOpts = append(smartOpts, alerts.WithSmartPublisher(c.Adapters.Publisher))
	}

	c.Business.Engine = alerts.NewEngine(repos.Alerts, repos.Positions, c.Adapters.Prices, alerts.EngineConfig{
		RequiredTriggers: cfg.Alerts.RequiredTriggers,
		PriceTimeout:     cfg.MarketData.Timeout,
		LockTTL:          cfg.Alerts.SweepLockTTL,
	}, engineOpts...)

	c.Business.Smart = alerts.NewSmartAnalyzer(repos.Alerts, c.Adapters.Prices, alerts.SmartConfig{
		WindowDays: cfg.Alerts.SmartWindowDays,
		LockTTL:    cfg.Alerts.SweepLockTTL,
	}, smartOpts...)

	c.Business.Alerts = alerts.NewService(repos.Stocks, repos.Positions, repos.Alerts, alerts.ServiceConfig{
		RequiredTriggers: cfg.Alerts.RequiredTriggers,
		DefaultThreshold: decimal.NewFromFloat(cfg.Alerts.DefaultThreshold),
	})

	c.Business.Dispatcher = alerts.NewDispatcher(repos.Alerts, c.Adapters.Notifier)
	return nil
}

// ========================================
// Phase 6: Application Layer
// ========================================

func (c *Container) initApplication() {
	h := health.New(c.Config.App.Name, c.Config.App.Version).AddCheck("postgres", c.PG.Health)
	if c.CH != nil {
		h.AddCheck("clickhouse", c.CH.Health)
	}
	if c.Redis != nil {
		h.AddCheck("redis", c.Redis.Health)
	}
	c.Application.HealthHandler = h

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.HTTP.Port,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
	}, h)
}

// ========================================
// Phase 7: Background Processing
// ========================================

func (c *Container) initBackground() {
	c.Background.WorkerScheduler = provideWorkers(c)
	c.Application.HealthHandler.WithWorkers(c.Background.WorkerScheduler)
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Infow("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnw("Failed to initialize Sentry", "error", err)
		return errnoop.New()
	}

	log.Infow("Error tracking initialized (Sentry)")
	return tracker
}

// provideNews chains NewsAPI (when keyed) in front of the page scraper
func provideNews(cfg config.NewsConfig, log *logger.Logger) news.Provider {
	var chain []news.Provider
	if cfg.APIKey != "" {
		chain = append(chain, news.NewNewsAPI(cfg))
	}
	if cfg.ScrapeWith {
		chain = append(chain, news.NewScraper(cfg, news.YahooSelectors))
	}
	log.Infow("News providers configured", "count", len(chain))
	return news.NewFallback(chain...)
}

// provideNotifier falls back to log output when no bot token is configured
func provideNotifier(cfg config.TelegramConfig, log *logger.Logger) (alerts.Notifier, error) {
	if !cfg.Enabled() {
		log.Infow("Telegram disabled, notifications go to the log")
		return alerts.NewLogNotifier(), nil
	}

	tgCfg := telegram.Config{Token: cfg.BotToken, ChatID: cfg.ChatID}
	bot, err := telegram.NewBotAPI(tgCfg, log)
	if err != nil {
		return nil, err
	}
	notifier, err := telegram.NewNotifier(bot, tgCfg)
	if err != nil {
		return nil, err
	}
	log.Infow("Telegram notifications enabled", "chat_id", cfg.ChatID)
	return notifier, nil
}
