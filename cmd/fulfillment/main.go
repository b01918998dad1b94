package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/appetiteclub/fulfillment/internal/catalog"
	"github.com/appetiteclub/fulfillment/internal/kitchen"
	"github.com/appetiteclub/fulfillment/internal/mongo"
	"github.com/appetiteclub/fulfillment/internal/ops"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/internal/shift"
	"github.com/appetiteclub/fulfillment/internal/tables"
	"github.com/appetiteclub/fulfillment/pkg"
)

const (
	appNamespace = "FULFILLMENT"
	appName      = "fulfillment"
	appVersion   = "0.1.0"
)

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := mongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	if err := baseRepo.EnsureIndexes(ctx); err != nil {
		logger.Error("cannot ensure indexes", "error", err)
	}

	orderRepo := mongo.NewOrderRepo(db)
	orderItemRepo := mongo.NewOrderItemRepo(db)
	tableRepo := mongo.NewTableRepo(db)
	ticketRepo := mongo.NewTicketRepo(db)
	shiftRepo := mongo.NewShiftRepo(db)

	natsURL, _ := config.GetString("nats.url")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	var kitchenStream *pkg.NATSStream
	var publisher aqmevents.Publisher

	streamEnabled, _ := config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		streamCfg := pkg.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   "FULFILLMENT_EVENTS",
			Topic:        "kitchen.ticket",
			ConsumerName: "fulfillment-publisher",
			MaxAge:       24 * time.Hour,
			MaxMsgs:      0,
		}
		kitchenStream, err = pkg.NewNATSStream(streamCfg)
		if err != nil {
			log.Fatalf("%s(%s) cannot create NATS stream: %v", appName, appVersion, err)
		}
		logger.Info("NATS stream initialized for persistent events")
		publisher = kitchenStream
	} else {
		corePublisher, err := pkg.NewNATSPublisher(natsURL)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		publisher = corePublisher
	}

	catalogURL, _ := config.GetString("services.catalog.url")
	var catalogClient catalog.Client = catalog.NewHTTPClient(catalogURL)
	catalogEnabled, _ := config.GetString("services.catalog.enabled")
	if catalogEnabled == "false" {
		catalogClient = catalog.NewNoopClient()
	}

	var streamForCache aqmevents.StreamConsumer
	if kitchenStream != nil {
		streamForCache = kitchenStream
	}
	ticketCache := kitchen.NewTicketStateCache(streamForCache, ticketRepo, logger)
	ticketRouter := kitchen.NewRouter(ticketRepo, publisher, logger)

	coordinator := ops.NewCoordinator(orderRepo, orderItemRepo, tableRepo, publisher, logger)
	reconciler := shift.NewReconciler(shiftRepo, orderRepo, orderItemRepo, logger)

	tablesHandler := tables.NewHandler(tableRepo, publisher, config, logger)
	orderHandler := order.NewHandler(order.HandlerDeps{
		OrderRepo: orderRepo,
		ItemRepo:  orderItemRepo,
		TableRepo: tableRepo,
		Catalog:   catalogClient,
		Publisher: publisher,
	}, config, logger)
	kitchenHandler := kitchen.NewHandler(kitchen.HandlerDeps{
		Repo:      ticketRepo,
		Cache:     ticketCache,
		Router:    ticketRouter,
		OrderRepo: orderRepo,
		ItemRepo:  orderItemRepo,
		Publisher: publisher,
	}, config, logger)
	opsHandler := ops.NewHandler(coordinator, config, logger)
	shiftHandler := shift.NewHandler(reconciler, shiftRepo, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true, // Internal API service
	})
	stack = append(stack, middleware.InternalOnly())

	cacheLifecycle := aqm.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			if err := ticketCache.Warm(ctx); err != nil {
				logger.Info("failed to warm ticket cache", "error", err)
			}
			return nil
		},
	}

	lifecycles := []interface{}{
		aqm.LifecycleHooks{OnStop: baseRepo.Stop},
		cacheLifecycle,
	}
	if kitchenStream != nil {
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return kitchenStream.Close() },
		})
	} else if closer, ok := publisher.(*pkg.NATSPublisher); ok {
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return closer.Close() },
		})
	}

	options := []aqm.Option{
		aqm.WithConfig(config),
		aqm.WithLogger(logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", tablesHandler, orderHandler, kitchenHandler, opsHandler, shiftHandler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(appName),
	}

	ms := aqm.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
