package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	accessevents "github.com/tillsup/tillsup-backend/internal/access/events"
	accesshandler "github.com/tillsup/tillsup-backend/internal/access/handler"
	"github.com/tillsup/tillsup-backend/internal/access/repository"
	"github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/internal/access/token"
	inventoryevents "github.com/tillsup/tillsup-backend/internal/inventory/events"
	inventoryhandler "github.com/tillsup/tillsup-backend/internal/inventory/handler"
	inventoryrepo "github.com/tillsup/tillsup-backend/internal/inventory/repository"
	inventoryservice "github.com/tillsup/tillsup-backend/internal/inventory/service"
	"github.com/tillsup/tillsup-backend/pkg/config"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/httputil"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"github.com/tillsup/tillsup-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("access-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("access-service", cfg.Server.Environment)
	log.Info().Msg("starting Access Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Event publishers
	accessPub, err := messaging.NewPublisher(rmq, messaging.ExchangeAccessEvents, "access-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create access event publisher")
	}
	inventoryPub, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "access-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create inventory event publisher")
	}

	accessEvents := accessevents.NewPublisher(accessPub, log)
	stockEvents := inventoryevents.NewPublisher(inventoryPub, log)

	// Repositories
	businessRepo := repository.NewBusinessRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	itemRepo := inventoryrepo.NewItemRepository(db)

	// Access layer: resolver, policy evaluator, scope filter
	tokens := token.NewManager(&cfg.JWT)
	resolver := service.NewIdentityResolver(tokens, profileRepo, &cfg.Access, log)
	policy := service.NewPolicyEvaluator(accessEvents, log)
	scope := service.NewScopeFilter()

	// Services
	authService := service.NewAuthService(profileRepo, tokens, log)
	staffService := service.NewStaffService(profileRepo, branchRepo, policy, scope, accessEvents, log)
	branchService := service.NewBranchService(branchRepo, policy, accessEvents, log)
	provisionService := service.NewProvisionService(db, businessRepo, profileRepo, branchRepo, accessEvents, log)
	repairService := service.NewRepairService(db, businessRepo, profileRepo, accessEvents, &cfg.Access, log)
	inventoryService := inventoryservice.NewInventoryService(db, itemRepo, policy, scope, stockEvents, log)

	// Handlers
	authHandler := accesshandler.NewAuthHandler(authService, log)
	tenantHandler := accesshandler.NewTenantHandler(provisionService, repairService, policy, log)
	staffHandler := accesshandler.NewStaffHandler(staffService, log)
	branchHandler := accesshandler.NewBranchHandler(branchService, log)
	itemHandler := inventoryhandler.NewItemHandler(inventoryService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			// Per-business storefronts run on *.tillsup.io
			return strings.HasSuffix(origin, ".tillsup.io") || origin == "https://tillsup.io"
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", httputil.ViewingBranchHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "access-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Public routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/tenants", tenantHandler.Provision)

		// Authenticated routes: the resolver runs exactly once here and the
		// actor context rides the request from then on
		r.Group(func(r chi.Router) {
			r.Use(httputil.Authenticator(resolver.Resolve))

			r.Get("/me", authHandler.Me)
			r.Post("/auth/logout", authHandler.Logout)
			r.Post("/auth/change-password", authHandler.ChangePassword)

			// Actors holding a provisional password get no further than the
			// auth surface above
			r.Group(func(r chi.Router) {
				r.Use(httputil.PasswordChangeGate)

				r.Post("/businesses/{id}/repair-ownership", tenantHandler.RepairOwnership)

				r.Route("/staff", func(r chi.Router) {
					r.Get("/", staffHandler.List)
					r.Post("/", staffHandler.Create)
					r.Get("/{id}", staffHandler.Get)
					r.Put("/{id}", staffHandler.Update)
					r.Put("/{id}/role", staffHandler.ChangeRole)
					r.Post("/{id}/reset-password", staffHandler.ResetPassword)
					r.Delete("/{id}", staffHandler.Deactivate)
				})

				r.Route("/branches", func(r chi.Router) {
					r.Get("/", branchHandler.List)
					r.Post("/", branchHandler.Create)
					r.Delete("/{id}", branchHandler.Deactivate)
				})

				r.Route("/items", func(r chi.Router) {
					r.Get("/", itemHandler.List)
					r.Post("/", itemHandler.Create)
					r.Get("/{id}", itemHandler.Get)
					r.Post("/{id}/adjust", itemHandler.Adjust)
				})
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
