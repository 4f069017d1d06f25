package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tavern-bot/internal/api/handlers"
	"tavern-bot/internal/commands"
	"tavern-bot/internal/config"
	"tavern-bot/internal/infrastructure/file"
	"tavern-bot/internal/infrastructure/gateway"
	"tavern-bot/internal/infrastructure/mysql"
	"tavern-bot/internal/infrastructure/redis"
	"tavern-bot/internal/services"
	"tavern-bot/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting tavern-bot")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	if err := mysql.EnsureSchema(ctx, db); err != nil {
		log.Error("Failed to ensure MySQL schema", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Flat-file persistence for schedules and guild settings
	recordStore, err := file.NewRecordStore(cfg.Scheduler.DataDir, log)
	if err != nil {
		log.Error("Failed to open record store", "dir", cfg.Scheduler.DataDir, "error", err)
		os.Exit(1)
	}

	// Initialize repositories and caches
	priceRepo := mysql.NewMySQLPriceRepository(db)
	downtimeRepo := mysql.NewMySQLDowntimeRepository(db)
	priceCache := redis.NewRedisPriceCache(rdb)
	pingLimiter := redis.NewRedisPingLimiter(rdb)

	broker := services.NewDisambiguationBroker(log)
	settings := services.NewSettingsService(recordStore, cfg.Pings.Cooldown, log)
	downtimeService := services.NewDowntimeService(downtimeRepo, log)

	session, err := gateway.Dial(context.Background(), cfg.Gateway.URL, cfg.Gateway.Token, cfg.Gateway.BotID, log)
	if err != nil {
		log.Error("Failed to connect to chat gateway", "url", cfg.Gateway.URL, "error", err)
		os.Exit(1)
	}
	defer session.Close()

	resolver := services.NewItemResolver(broker, session, cfg.Broker.AskTimeout, log)
	priceService := services.NewPriceService(priceRepo, priceCache, resolver, log)
	pingService := services.NewPingService(session, pingLimiter, settings, log)
	scheduler := services.NewMessageScheduler(recordStore, session, log)

	router := commands.NewRouter(session, broker, scheduler, priceService,
		downtimeService, pingService, settings, cfg.Gateway.AdminIDs, log)
	session.SetHandler(router.HandleMessage)

	// Periodic schedule driver
	driver := services.NewCronSchedulerDriver(scheduler, cfg.Scheduler.TickInterval, log)
	if err := driver.Start(context.Background()); err != nil {
		log.Error("Failed to start schedule driver", "error", err)
		os.Exit(1)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	adminHandler := handlers.NewAdminHandler(scheduler, priceService, log)
	adminHandler.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "tavern-bot",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting admin server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down tavern-bot...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := driver.Stop(); err != nil {
		log.Error("Failed to stop schedule driver", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("tavern-bot stopped")
}
