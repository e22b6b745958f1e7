package main

import (
	"context"
	"log"
	"time"

	"go-pos-books/internal/ai"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/cache"
	"go-pos-books/internal/config"
	"go-pos-books/internal/database"
	"go-pos-books/internal/handlers"
	"go-pos-books/internal/inventory"
	"go-pos-books/internal/middleware"
	"go-pos-books/internal/reports"
	"go-pos-books/internal/sales"
	"go-pos-books/internal/settings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)

	db := database.Connect(cfg)
	redisCache := cache.Connect(context.Background(), cfg.RedisAddress, logger)
	defer redisCache.Close()

	// --- SERVICES ---
	store := settings.NewStore(db, redisCache, logger)
	reportSvc := reports.NewService(db, store, logger)

	var locker sales.Locker
	if redisCache != nil {
		locker = redisCache
	}

	h := &handlers.Handler{
		DB:                db,
		Issuer:            auth.NewIssuer(cfg.JWTSecret, tokenTTL),
		Sales:             sales.NewService(db, store, locker, logger),
		Inventory:         inventory.NewService(db, store, logger),
		Reports:           reportSvc,
		Settings:          store,
		Agent:             ai.NewAgent(cfg.GeminiAPIKey, reportSvc, logger),
		Logger:            logger,
		AllowRegistration: cfg.AllowRegistration,
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// --- CORS: allow the till UI ---
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.RegisterRoutes(r)

	if cfg.AllowRegistration {
		log.Println("⚠️ WARNING: Registration route is OPEN. Disable this in production!")
	} else {
		log.Println("🔒 Registration route is safely DISABLED.")
	}
	if !h.Agent.Enabled() {
		log.Println("🤖 GEMINI_API_KEY not set; /api/ask is disabled.")
	}

	log.Println("🚀 Server starting on " + cfg.BaseURL)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
