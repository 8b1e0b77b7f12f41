package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/churchhub/platform-gateway/internal/auth"
	"github.com/churchhub/platform-gateway/internal/cache"
	"github.com/churchhub/platform-gateway/internal/config"
	"github.com/churchhub/platform-gateway/internal/database"
	"github.com/churchhub/platform-gateway/internal/handlers"
	"github.com/churchhub/platform-gateway/internal/middleware"
	"github.com/churchhub/platform-gateway/internal/mp"
	"github.com/churchhub/platform-gateway/internal/repository"
	"github.com/churchhub/platform-gateway/internal/session"
	"github.com/churchhub/platform-gateway/internal/tenant"
	"github.com/churchhub/platform-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting platform gateway")

	// Connect to central database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	// Initialize tenant lookup cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis cache initialized")
	} else if cfg.Cache.Enabled {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}
	if cacheImpl != nil {
		defer cacheImpl.Close()
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	pinnedRepo := repository.NewPinnedItemRepository(db)

	// Tenant resolution and sessions
	resolver := tenant.NewResolver(tenantRepo, cacheImpl, cfg.Tenant.BaseDomain, cfg.Cache.TTL)
	codec := session.NewTokenCodec(cfg.Session.Secret, cfg.Session.MaxAge, cfg.Session.SecureCookies)
	enricher := session.NewEnricher(cfg.MP.AdminRoleID)
	mpClients := mp.NewFactory(mp.Config{
		Domain:       cfg.MP.Domain,
		ClientID:     cfg.MP.ClientID,
		ClientSecret: cfg.MP.ClientSecret,
		FileURL:      cfg.MP.FileURL,
	})
	sessions := handlers.NewSessions(codec, enricher, mpClients)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := auth.NewHandler(mpClients, codec, cfg.MP.RedirectURI, cfg.Session.SecureCookies)
	sessionHandler := handlers.NewSessionHandler(sessions)
	profileHandler := handlers.NewProfileHandler(sessions, codec, cfg.MP.AdminRoleID)
	pinnedHandler := handlers.NewPinnedItemsHandler(sessions, pinnedRepo)
	simulationHandler := handlers.NewSimulationHandler(sessions, cfg.Session.SecureCookies)
	manifestHandler := handlers.NewManifestHandler(cfg.Server.AppName, cfg.Server.AppColor)

	appProxy, err := handlers.NewAppProxy(cfg.Server.UpstreamURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid upstream configuration")
	}

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no tenant resolution)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Everything else goes through tenant resolution and the auth gate
	r.Group(func(r chi.Router) {
		r.Use(middleware.TenantResolver(resolver))
		r.Use(middleware.AuthGate(codec))

		// Sign-in flow
		r.Get(middleware.SignInPath, authHandler.SignIn)
		r.Get("/api/auth/callback", authHandler.Callback)
		r.Post("/api/auth/signout", authHandler.SignOut)

		// Session and profile
		r.Get("/api/session", sessionHandler.Get)
		r.Get("/api/profile", profileHandler.Get)

		// Admin simulation
		r.Post("/api/admin/simulation", simulationHandler.Set)
		r.Delete("/api/admin/simulation", simulationHandler.Clear)

		// Pinned dashboard cards
		r.Route("/api/pinned-items", func(r chi.Router) {
			r.Get("/", pinnedHandler.List)
			r.Post("/", pinnedHandler.Create)
			r.Patch("/{id}/sort", pinnedHandler.Reorder)
			r.Delete("/{itemType}/{itemID}", pinnedHandler.Delete)
		})

		// Tenant-branded manifest
		r.Get("/api/manifest", manifestHandler.Get)

		// Forwarded requests reach the web app
		r.Handle("/*", appProxy)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
