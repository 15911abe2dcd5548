package bootstrap

import (
	"context"
	"sync"

	"stockwatch/internal/adapters/ai"
	badgerstore "stockwatch/internal/adapters/badger"
	chclient "stockwatch/internal/adapters/clickhouse"
	"stockwatch/internal/adapters/config"
	"stockwatch/internal/adapters/influx"
	"stockwatch/internal/adapters/kafka"
	"stockwatch/internal/adapters/marketdata"
	"stockwatch/internal/adapters/news"
	pgclient "stockwatch/internal/adapters/postgres"
	redisclient "stockwatch/internal/adapters/redis"
	"stockwatch/internal/agents/collection"
	"stockwatch/internal/alerts"
	"stockwatch/internal/api"
	"stockwatch/internal/api/health"
	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/stock"
	"stockwatch/internal/domain/tracking"
	"stockwatch/internal/orchestrator"
	chrepo "stockwatch/internal/repository/clickhouse"
	"stockwatch/internal/workers"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

// KV is the keyed store backing the pipeline cache and sweep leases
type KV interface {
	kvstore.Store
	kvstore.Locker
}

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Optional stores are nil when not configured
	PG     *pgclient.Client
	CH     *chclient.Client
	Redis  *redisclient.Client
	Badger *badgerstore.Store
	Influx *influx.Sink
	KV     KV

	Repos       *Repositories
	Adapters    *Adapters
	Business    *Business
	Application *Application
	Background  *Background

	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc

	shutdownTracing func(context.Context) error
}

// Repositories groups the persistence layer
type Repositories struct {
	Stocks     stock.Repository
	Positions  tracking.Repository
	Alerts     alert.Repository
	MarketData *chrepo.MarketDataRepository
}

// Adapters groups external providers and sinks
type Adapters struct {
	Prices        *marketdata.Yahoo
	News          news.Provider
	Narrator      ai.Narrator
	KafkaProducer *kafka.Producer
	Publisher     alert.Publisher
	Notifier      alerts.Notifier
}

// Business groups the analysis pipeline and the alert engine
type Business struct {
	Collector  *collection.Agent
	Pipeline   *orchestrator.Orchestrator
	Engine     *alerts.Engine
	Smart      *alerts.SmartAnalyzer
	Alerts     *alerts.Service
	Dispatcher *alerts.Dispatcher
}

// Application groups the ops HTTP surface
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

type Background struct {
	WorkerScheduler *workers.Scheduler
}

// NewContainer creates an empty dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Business:    &Business{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// InitCore initializes everything the one-shot commands need: config,
// stores, repositories, adapters and the business layer
func (c *Container) InitCore() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", c.initConfig},
		{"infrastructure", c.initInfrastructure},
		{"repositories", c.initRepositories},
		{"adapters", c.initAdapters},
		{"business", c.initBusiness},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return errors.Wrapf(err, "init %s", step.name)
		}
	}
	return nil
}

// Init initializes the full service: core plus the ops server and workers
func (c *Container) Init() error {
	if err := c.InitCore(); err != nil {
		return err
	}
	c.initApplication()
	c.initBackground()
	return nil
}

// Start runs the scheduler and the ops server in the background
func (c *Container) Start() error {
	c.Log.Infow("Starting all systems")

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorw("HTTP server failed", "error", err)
			c.Cancel()
		}
	}()

	c.Log.Infow("All systems operational",
		"workers", len(c.Background.WorkerScheduler.GetWorkers()),
		"port", c.Config.HTTP.Port,
	)
	return nil
}

// Shutdown performs graceful shutdown in dependency order
func (c *Container) Shutdown() {
	if c.Log == nil {
		c.Cancel()
		return
	}
	c.Log.Infow("Initiating graceful shutdown")
	c.Cancel()
	c.Lifecycle.Shutdown(c)
}
