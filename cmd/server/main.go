package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/estate-market/internal/config"     // Internal config loader
	"github.com/iliyamo/estate-market/internal/database"   // MySQL connection helper
	"github.com/iliyamo/estate-market/internal/engine"     // Listing rule engine
	"github.com/iliyamo/estate-market/internal/handler"    // HTTP handlers
	"github.com/iliyamo/estate-market/internal/middleware" // Cache and rate-limit middleware
	"github.com/iliyamo/estate-market/internal/queue"      // Notification consumer
	"github.com/iliyamo/estate-market/internal/repository" // Data access layer
	"github.com/iliyamo/estate-market/internal/router"     // Route registration
)

func main() {
	// Load .env if present; real deployments set variables directly.
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}

	cfg := config.Load() // Load environment config

	// Connect to MySQL and fail fast when the database is unreachable.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	// Repositories share the single *sql.DB pool.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	listingRepo := repository.NewListingRepo(db)
	viewRepo := repository.NewViewRepo(db)
	favoriteRepo := repository.NewFavoriteRepo(db)
	messageRepo := repository.NewMessageRepo(db)

	// The engine owns quota, price-ceiling, status-transition and
	// visibility decisions; handlers translate its errors to HTTP.
	eng := engine.New(userRepo, listingRepo, viewRepo)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	listingHandler := handler.NewListingHandler(eng, listingRepo, viewRepo)
	publicHandler := handler.NewPublicHandler(eng, listingRepo)
	moderationHandler := handler.NewModerationHandler(eng, listingRepo, userRepo)
	favoriteHandler := handler.NewFavoriteHandler(eng, favoriteRepo, listingRepo)
	messageHandler := handler.NewMessageHandler(eng, messageRepo, listingRepo)

	e := echo.New() // Create Echo instance

	// Redis backs the public response cache and the token-bucket rate
	// limiter.  Both middlewares degrade to no-ops when Redis is down.
	rdb := config.NewRedisClient()
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	// Guest browse runs behind the rate limiter and the response cache.
	router.RegisterPublic(e, publicHandler, rateMW, cacheMW)
	router.RegisterListings(e, listingHandler, favoriteHandler, messageHandler, cfg.JWTSecret)
	router.RegisterModeration(e, moderationHandler, cfg.JWTSecret)

	// Consume moderation decisions in the background and write owner
	// notifications.  The consumer reconnects on its own; a fatal setup
	// error only disables notifications, it never stops the API.
	go func() {
		if err := queue.StartModerationConsumer(); err != nil {
			log.Printf("moderation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
