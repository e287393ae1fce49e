package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/checkout"
	"github.com/shopsphere/order-fulfillment/internal/config"
	"github.com/shopsphere/order-fulfillment/internal/gateway"
	"github.com/shopsphere/order-fulfillment/internal/handlers"
	"github.com/shopsphere/order-fulfillment/internal/httpx"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
	"github.com/shopsphere/order-fulfillment/internal/messaging"
	"github.com/shopsphere/order-fulfillment/internal/metrics"
	"github.com/shopsphere/order-fulfillment/internal/order"
	"github.com/shopsphere/order-fulfillment/internal/repository"
	"github.com/shopsphere/order-fulfillment/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("starting order fulfillment service")

	db, err := initDatabase(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := repository.Migrate(context.Background(), db); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	rabbitConfig := messaging.NewRabbitMQConfig()
	rabbitClient := messaging.NewRabbitMQClient(rabbitConfig, log)
	if err := rabbitClient.Connect(); err != nil {
		log.Fatal("rabbitmq connection failed", zap.Error(err))
	}
	defer rabbitClient.Close()

	publisher := messaging.NewPublisher(rabbitClient, log)
	consumer := messaging.NewConsumer(rabbitClient, "fulfillment-order-events", cfg.ServiceName, log)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	inventoryStore := repository.NewPostgresInventoryStore(db)
	orderStore := repository.NewPostgresOrderStore(db)

	ledger := inventory.NewLedger(inventoryStore, publisher, log, m)
	orders := order.NewService(orderStore, log)

	catalogClient := checkout.NewHTTPCatalogClient(cfg.Checkout.CatalogBaseURL, cfg.Checkout.CatalogTimeout)
	paymentGateway := gateway.NewMockPaymentGateway(cfg.Checkout.PaymentFailureRate, log)

	orchestrator := checkout.NewOrchestrator(
		orders, ledger, catalogClient, paymentGateway, publisher,
		cfg.Checkout, log, m,
	)

	inventoryHandler := handlers.NewInventoryHandler(ledger)
	checkoutHandler := handlers.NewCheckoutHandler(orchestrator, orders)
	orderEventHandler := handlers.NewOrderEventHandler(ledger, log)

	if err := orderEventHandler.StartConsuming(consumer); err != nil {
		log.Fatal("order event consumption failed to start", zap.Error(err))
	}

	app := setupFiberApp(log)
	setupRoutes(app, inventoryHandler, checkoutHandler, registry)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down order fulfillment service")
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	}()

	log.Info("order fulfillment service listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal("server startup failed", zap.Error(err))
	}
}

func initDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("database open error: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database ping error: %w", err)
	}

	return db, nil
}

func setupFiberApp(log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Order Fulfillment Service v1.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			log.Error("request failed", zap.Error(err))

			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	return app
}

func setupRoutes(app *fiber.App, inventoryHandler *handlers.InventoryHandler, checkoutHandler *handlers.CheckoutHandler, registry *prometheus.Registry) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return httpx.Success(c, "order fulfillment service is healthy", map[string]interface{}{
			"status": "healthy",
		})
	})

	inventoryHandler.Register(api)
	checkoutHandler.Register(api)

	app.Use(func(c *fiber.Ctx) error {
		return httpx.NotFound(c, "route not found")
	})
}
