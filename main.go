package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/ids"
	"storefront/pkg/logger"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, envLoaded, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()
	if !envLoaded {
		zlog.Debug("no .env file loaded, using environment only")
	}
	for _, w := range cfg.Warnings() {
		zlog.Warn(w)
	}

	// --- Database ---
	db, err := database.OpenAndMigrate(cfg.DatabaseDriver, cfg.DatabaseDSN, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	// --- Order events ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, zlog)
		if err != nil {
			zlog.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		} else {
			defer mqClient.Close()
			publisher = mqClient
			if err := mqClient.Consume(orderEventLogger(zlog)); err != nil {
				zlog.Warn("failed to start order event consumer", zap.Error(err))
			}
		}
	}

	deps := buildServices(cfg, db, publisher, zlog)
	if cfg.SeedProducts {
		seedProducts(deps.products, zlog)
	}

	app := newApp(cfg, deps, publisher != nil, zlog)

	// --- Start HTTP Server ---
	zlog.Info("starting server", zap.String("addr", cfg.AppPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			zlog.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	zlog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("error during fiber shutdown", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}

type appServices struct {
	auth      *services.AuthService
	addresses *services.AddressService
	products  *services.ProductService
	orders    *services.OrderService
}

// buildServices wires repositories and services on top of db.
func buildServices(cfg config.Config, db *gorm.DB, publisher services.EventPublisher, zlog *zap.Logger) *appServices {
	rt := services.Runtime{Logger: zlog, StoreTimeout: cfg.StoreTimeout}

	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	return &appServices{
		auth:      services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, rt),
		addresses: services.NewAddressService(userRepo, rt),
		products:  services.NewProductService(productRepo, rt),
		orders: services.NewOrderService(orderRepo, userRepo, publisher,
			ids.NewSequence(cfg.SnowflakeNode), cfg.ShippingSurcharge, rt),
	}
}

// newApp builds the fiber application and registers every route.
func newApp(cfg config.Config, deps *appServices, eventsEnabled bool, zlog *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: errorHandler(zlog),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": eventsEnabled,
		})
	})

	// --- API Routes ---
	api := app.Group("/api", middleware.APIKey(middleware.APIKeyConfig{
		Header:   cfg.APIKeyHeader,
		Key:      cfg.APIKey,
		Disabled: cfg.APIKeyDisabled,
	}))
	authRequired := middleware.AuthRequired(deps.auth, zlog)

	handlers.NewAuthHandler(deps.auth, zlog).RegisterRoutes(api, authRequired)
	handlers.NewAddressHandler(deps.addresses, zlog).RegisterRoutes(api, authRequired)
	handlers.NewProductHandler(deps.products, zlog).RegisterRoutes(api, authRequired)
	handlers.NewOrderHandler(deps.orders, zlog).RegisterRoutes(api, authRequired)

	return app
}

// errorHandler renders errors that escape a handler, such as unknown routes.
func errorHandler(zlog *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		zlog.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return middleware.WriteError(c, apperr.Wrap(apperr.Internal, "internal server error", err))
	}
}

// orderEventLogger handles deliveries from the order event queue.
func orderEventLogger(zlog *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return err
		}
		zlog.Info("order event received",
			zap.String("event", event.Event),
			zap.String("order_id", event.OrderID),
			zap.String("number", event.Number),
			zap.String("status", string(event.Status)))
		return nil
	}
}

// defaultProducts is the catalog a fresh store starts with.
func defaultProducts() []models.Product {
	return []models.Product{
		{Name: "Laptop", Description: "High performance laptop", Price: decimal.NewFromInt(1200)},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: decimal.NewFromInt(75)},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: decimal.NewFromInt(25)},
	}
}

// seedProducts populates an empty catalog.
func seedProducts(svc *services.ProductService, zlog *zap.Logger) {
	n, err := svc.SeedProducts(context.Background(), defaultProducts())
	if err != nil {
		zlog.Error("failed to seed products", zap.Int("seeded", n), zap.Error(err))
		return
	}
	if n > 0 {
		zlog.Info("seeded products", zap.Int("count", n))
	}
}
