package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"retail-sales/cache"
	"retail-sales/condb"
	"retail-sales/config"
	"retail-sales/controllers"
	"retail-sales/logger"
	"retail-sales/middleware"
	"retail-sales/routes"
	"retail-sales/services"
	"retail-sales/store"
	"retail-sales/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewStructured("error", "console").Error("failed to load config", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// store ที่ต่อไม่ได้ตอนเริ่ม ยังใช้ต่อได้ แต่ละ request จะได้ 503 จนกว่าจะกลับมา
	records, closeStore, err := condb.OpenRecordStore(ctx, cfg, log)
	if records == nil {
		log.Error("failed to build record store", map[string]interface{}{"error": err, "driver": cfg.Store.Driver})
		os.Exit(1)
	}
	defer closeStore()
	if err != nil {
		log.Warn("starting with record store unavailable", map[string]interface{}{"error": err})
	}

	sales := services.NewSalesService(records, cfg.Store.FetchCap, cfg.Store.TagSampleLimit, log.WithFields(map[string]interface{}{"component": "sales"}))

	var filters controllers.FilterOptionsProvider = sales
	if cfg.Redis.Enabled {
		rdb, err := condb.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, facet cache disabled", map[string]interface{}{"error": err})
		} else {
			defer rdb.Close()
			filters = cache.NewFilterOptionsCache(sales, rdb, cfg.Redis.TTL, log.WithFields(map[string]interface{}{"component": "cache"}))
		}
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("JWT_SECRET not set, tokens will not survive a restart", nil)
	}
	tokens := utils.NewTokenIssuer(secret, cfg.Auth.TokenTTL)

	if cfg.Store.Driver != config.DriverPostgres {
		// users always live in postgres
		if pool, err := condb.NewPostgresPool(ctx, cfg.Database.Postgres); err == nil {
			if _, err := condb.Migrate(ctx, pool); err != nil {
				log.Warn("users schema not migrated", map[string]interface{}{"error": err})
			}
			pool.Close()
		}
	}

	var auth *controllers.Auth
	if users, err := store.OpenUsers(cfg.Database.Postgres.DSN(), cfg.Database.Postgres.MaxConnections); err != nil {
		log.Warn("users store disabled", map[string]interface{}{"error": err})
	} else {
		defer users.Close()
		auth = controllers.NewAuth(users, tokens, log.WithFields(map[string]interface{}{"component": "auth"}))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins, // คั่นด้วย comma
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, x-auth-token",
	}))

	routes.RegisterRoutes(app, routes.Deps{
		BasePath: cfg.Server.BasePath,
		Sales:    sales,
		Filters:  filters,
		Store:    records,
		Auth:     auth,
		Tokens:   tokens,
		Log:      log,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down", nil)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", map[string]interface{}{"error": err})
		}
	}()

	log.Info("server starting", map[string]interface{}{"addr": cfg.Server.Addr(), "driver": cfg.Store.Driver})
	if err := app.Listen(cfg.Server.Addr()); err != nil {
		log.Error("server stopped", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}
