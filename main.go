package main

import (
	"amap/config"
	authController "amap/controllers/auth"
	distributionController "amap/controllers/distribution"
	"amap/database"
	"amap/middleware"
	authRoutes "amap/routers/authRoutes"
	distributionRoutes "amap/routers/distributionRoutes"
	"amap/services"
	"amap/utils"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	defer logger.Sync()

	if err := database.ConnectDb(); err != nil {
		logger.Fatal("failed to connect to database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	clock := services.SystemClock(cfg.Location())
	engine := services.NewEngine(database.Database.Db, clock)

	var payments distributionController.PaymentResolver
	if client := utils.NewPaymentClient(cfg.PaymentApiURL, cfg.PaymentApiKey, cfg.PaymentTimeout); client != nil {
		payments = client
	}

	scheduler, err := utils.InitializeStatusScheduler(cfg.StatusSyncSchedule, engine.Subscriptions, clock, logger)
	if err != nil {
		logger.Fatal("invalid STATUS_SYNC_SCHEDULE", zap.String("schedule", cfg.StatusSyncSchedule), zap.Error(err))
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	app := fiber.New()

	app.Use(middleware.RequestID())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",  // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "[${time}] ${locals:requestId} ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app, authController.NewHandler(database.Database.Db, cfg.SaltRound, logger))

	h := distributionController.NewHandler(engine, clock, payments, logger)
	distributionRoutes.SetupAdminRoutes(app, h)
	distributionRoutes.SetupPublicRoutes(app, h)

	logger.Info("server is running",
		zap.String("port", cfg.Port),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("paymentProcessor", payments != nil))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
