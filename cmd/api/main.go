package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rentworks/rentworks-backend/api/routes"
	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/internal/auth"
	"github.com/rentworks/rentworks-backend/internal/company"
	"github.com/rentworks/rentworks-backend/internal/customers"
	"github.com/rentworks/rentworks-backend/internal/inventory"
	"github.com/rentworks/rentworks-backend/internal/items"
	"github.com/rentworks/rentworks-backend/internal/purchases"
	"github.com/rentworks/rentworks-backend/internal/rentals"
	"github.com/rentworks/rentworks-backend/internal/reports"
	"github.com/rentworks/rentworks-backend/internal/sales"
	"github.com/rentworks/rentworks-backend/internal/suppliers"
	"github.com/rentworks/rentworks-backend/internal/users"
	"github.com/rentworks/rentworks-backend/pkg/auth/session"
	"github.com/rentworks/rentworks-backend/pkg/config"
	"github.com/rentworks/rentworks-backend/pkg/db"
	"github.com/rentworks/rentworks-backend/pkg/logger"
	"github.com/rentworks/rentworks-backend/pkg/migrate"
	"github.com/rentworks/rentworks-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, dbClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildServices wires every domain service over the shared database handle.
// Construction order follows the dependency flow: audit first, then the
// directory services, then the flows that consume them.
func buildServices(cfg *config.Config, dbClient *db.Client, sessions *session.Manager) (routes.Services, error) {
	gormDB := dbClient.DB()

	auditSvc, err := audit.NewService(audit.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	userRepo := users.NewRepository(gormDB)
	userSvc, err := users.NewService(userRepo, dbClient, auditSvc, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		AuditRecorder:  auditSvc,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	customerSvc, err := customers.NewService(customers.NewRepository(gormDB), dbClient, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	supplierSvc, err := suppliers.NewService(suppliers.NewRepository(gormDB), dbClient, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	itemSvc, err := items.NewService(items.NewRepository(gormDB), dbClient, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	companySvc, err := company.NewService(company.NewRepository(gormDB), dbClient, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	purchaseSvc, err := purchases.NewService(purchases.NewRepository(gormDB), dbClient, supplierSvc, itemSvc, inventorySvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	rentalSvc, err := rentals.NewService(rentals.NewRepository(gormDB), dbClient, customerSvc, companySvc, inventorySvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	saleSvc, err := sales.NewService(sales.NewRepository(gormDB), dbClient, customerSvc, companySvc, inventorySvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	reportSvc, err := reports.NewService(reports.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:      authSvc,
		Users:     userSvc,
		Customers: customerSvc,
		Suppliers: supplierSvc,
		Items:     itemSvc,
		Inventory: inventorySvc,
		Purchases: purchaseSvc,
		Rentals:   rentalSvc,
		Sales:     saleSvc,
		Reports:   reportSvc,
		Company:   companySvc,
		Audit:     auditSvc,
	}, nil
}
