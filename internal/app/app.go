package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/dmikhr/catalog-imagery/config"
	"github.com/dmikhr/catalog-imagery/internal/adapter"
	"github.com/dmikhr/catalog-imagery/internal/adapter/httphandler"
	"github.com/dmikhr/catalog-imagery/internal/adapter/kafka"
	"github.com/dmikhr/catalog-imagery/internal/adapter/objectstore"
	"github.com/dmikhr/catalog-imagery/internal/adapter/provider"
	"github.com/dmikhr/catalog-imagery/internal/adapter/remotecatalog"
	"github.com/dmikhr/catalog-imagery/internal/adapter/storage"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/dmikhr/catalog-imagery/internal/core/service"
)

type repositories struct {
	products storage.ProductsRepository
	images   storage.ImagesRepository
}

type coreService struct {
	resolver  port.ImageResolver
	remover   port.BackgroundRemover
	merger    port.ImageMerger
	registrar port.ImageRegistrar
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	sqlDB      storage.SQLDB
	repos      repositories
	events     *kafka.RemovalEventsProducer
	service    coreService
	httpServer httphandler.HTTPServer
}

func New(context context.Context, config config.Config) *App {
	app := &App{ctx: context, cfg: config}

	app.initLogger()
	app.initStorage()
	app.initEventsProducer()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initStorage() {
	const op = "App.initStorage"

	sqlDB, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}

	app.sqlDB = sqlDB
	app.repos.products = storage.NewProductsRepository(sqlDB)
	app.repos.images = storage.NewImagesRepository(sqlDB)
}

func (app *App) initEventsProducer() {
	const op = "App.initEventsProducer"

	brokerCfg := app.cfg.Broker
	if len(brokerCfg.SeedBrokers) == 0 {
		slog.Info("removal events are disabled: no seed brokers configured")
		return
	}

	var tlsConfig *tls.Config
	if brokerCfg.TLS.CAPath != "" {
		cfg, err := adapter.MakeTLSConfig(
			brokerCfg.TLS.CAPath, brokerCfg.TLS.CertPath, brokerCfg.TLS.KeyPath,
		)
		if err != nil {
			app.fallDown(op, err)
		}
		tlsConfig = cfg
	}

	producer, err := kafka.NewRemovalEventsProducer(
		kafka.ProducerClientOpt(
			app.ctx, brokerCfg.SeedBrokers, brokerCfg.RemovalEventsTopic,
			tlsConfig,
		),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.events = &producer
}

func (app *App) initCoreService() {
	cfg := app.cfg

	providers := []port.RemovalProvider{
		provider.NewQueueProvider(provider.QueueConfig{
			BaseURL:      cfg.Providers.Queue.BaseURL,
			APIKey:       cfg.Providers.Queue.APIKey,
			PollInterval: cfg.Providers.Queue.PollInterval,
			MaxPolls:     cfg.Providers.Queue.MaxPolls,
		}),
		provider.NewHostedProvider(provider.HostedConfig{
			BaseURL: cfg.Providers.Hosted.BaseURL,
		}),
		provider.NewLocalProvider(provider.LocalConfig{
			BaseURL: cfg.Providers.Local.BaseURL,
		}),
	}

	prober := objectstore.New(objectstore.Config{
		BaseURL: cfg.ObjectStore.BaseURL,
	})

	opts := []service.Option{
		service.ProbeLimitOpt(cfg.ObjectStore.ProbeLimit),
	}
	if cfg.RemoteCatalog.BaseURL != "" {
		remote := remotecatalog.New(remotecatalog.Config{
			BaseURL: cfg.RemoteCatalog.BaseURL,
			Timeout: cfg.RemoteCatalog.Timeout,
		})
		opts = append(opts, service.RemoteCatalogOpt(remote))
	}
	if app.events != nil {
		opts = append(opts, service.EventsProducerOpt(*app.events))
	}

	s := service.New(
		app.repos.products,
		app.repos.images,
		providers,
		prober,
		cfg.ObjectStore.BaseURL,
		opts...,
	)
	app.service.resolver = s
	app.service.remover = s
	app.service.merger = s
	app.service.registrar = s
}

func (app *App) initInboundAdapters() {
	addr := app.cfg.HTTPServerAddr
	mux := http.NewServeMux()
	httphandler.RegisterImages(mux, app.service.resolver, app.service.remover)
	httphandler.RegisterProducts(mux, app.service.merger, app.service.registrar)

	handler := httphandler.LogRequests(httphandler.AllowJSON(mux))
	httpServer := httphandler.NewHTTPServer(addr, handler)
	app.httpServer = httpServer
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	if app.events != nil {
		app.events.Close()
	}
	app.sqlDB.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
