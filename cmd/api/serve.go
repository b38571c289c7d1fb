package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"fulfillment-engine/internal/core/config"
	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/core/server"
	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/core/telemetry"
	customeradapter "fulfillment-engine/internal/features/customers/adapters"
	inventoryadapter "fulfillment-engine/internal/features/inventory/adapters"
	inventoryhandler "fulfillment-engine/internal/features/inventory/handler"
	inventoryservice "fulfillment-engine/internal/features/inventory/service"
	notificationadapter "fulfillment-engine/internal/features/notifications/adapters"
	notificationservice "fulfillment-engine/internal/features/notifications/service"
	orderadapter "fulfillment-engine/internal/features/orders/adapters"
	orderdomain "fulfillment-engine/internal/features/orders/domain"
	orderhandler "fulfillment-engine/internal/features/orders/handler"
	orderservice "fulfillment-engine/internal/features/orders/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API and the event emitter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir)
		},
	}
}

// bootstrap loads configuration, the logger and the store shared by every command.
func bootstrap(dir string) (*config.AppConfig, *store.Redis, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel, zap.String("service", cfg.ServiceName)); err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := store.NewRedis(cfg.Redis.URL, cfg.Redis.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func runServe(parent context.Context, dir string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, db, err := bootstrap(dir)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer db.Close()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	if err := db.Ping(ctx); err != nil {
		l.Error("Redis health check failed", zap.Error(err))
		return err
	}
	l.Info("Redis connection verified")

	shutdownTracing, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}

	// Event emitter and its sinks
	sinks, err := notificationadapter.BuildSinks(cfg.Events, db)
	if err != nil {
		return fmt.Errorf("failed to build event sinks: %w", err)
	}
	emitter := notificationservice.NewEmitter(sinks, notificationservice.Options{
		Source:         cfg.ServiceName,
		Buffer:         cfg.Events.Buffer,
		PublishTimeout: cfg.Events.PublishTimeout,
	})

	// Inventory
	ledger := inventoryservice.NewLedgerService(inventoryadapter.NewRedisProductStore(db))
	inventoryHdl := inventoryhandler.NewInventoryHandler(ledger)

	// Orders
	orderSvc := orderservice.NewOrderService(
		orderadapter.NewRedisOrderRepository(db),
		ledger,
		customeradapter.NewRedisDirectory(db),
		emitter,
		orderservice.Options{
			Pricing: orderdomain.Pricing{
				FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
				FlatFee:               cfg.Checkout.ShippingFlatFee,
			},
			DefaultCountry:  cfg.Checkout.DefaultCountry,
			CheckoutTimeout: cfg.Checkout.Timeout,
		},
	)
	orderHdl := orderhandler.NewOrderHandler(orderSvc)

	srv := server.New(cfg, db.Ping)

	// Register Routes
	srv.App.Get("/products/:ref/stock", inventoryHdl.GetStock)
	srv.App.Post("/orders", orderHdl.CreateOrder)
	srv.App.Post("/orders/guest", orderHdl.CreateGuestOrder)
	srv.App.Get("/orders", orderHdl.ListOrders)
	srv.App.Get("/orders/user", orderHdl.ListMyOrders)
	srv.App.Get("/orders/:id", orderHdl.GetOrder)
	srv.App.Put("/orders/:id/approve", orderHdl.ApproveOrder)
	srv.App.Put("/orders/:id/reject", orderHdl.RejectOrder)
	srv.App.Put("/orders/:id/status", orderHdl.UpdateStatus)
	srv.App.Put("/orders/:id/cancel", orderHdl.CancelOrder)

	// The emitter outlives the server so in-flight requests can still emit.
	emitterCtx, stopEmitter := context.WithCancel(context.WithoutCancel(ctx))
	defer stopEmitter()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return emitter.Run(emitterCtx)
	})
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		stopEmitter()
		return errors.Join(err, shutdownTracing(sctx))
	})

	if err := g.Wait(); err != nil {
		l.Error("Server stopped with error", zap.Error(err))
		return err
	}
	l.Info("Application stopped")
	return nil
}
