package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentworks/rentworks-backend/api/controllers"
	"github.com/rentworks/rentworks-backend/api/middleware"
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
	"github.com/rentworks/rentworks-backend/pkg/enums"
	"github.com/rentworks/rentworks-backend/pkg/logger"
	"github.com/rentworks/rentworks-backend/pkg/redis"
)

// Services groups the domain services the router wires into handlers.
type Services struct {
	Auth      auth.Service
	Users     users.Service
	Customers customers.Service
	Suppliers suppliers.Service
	Items     items.Service
	Inventory inventory.Service
	Purchases purchases.Service
	Rentals   rentals.Service
	Sales     sales.Service
	Reports   reports.Service
	Company   company.Service
	Audit     audit.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions *session.Manager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		staff := middleware.RequireRole(enums.UserRoleStaff, logg)
		manager := middleware.RequireRole(enums.UserRoleManager, logg)
		admin := middleware.RequireRole(enums.UserRoleAdmin, logg)

		r.Get("/me", controllers.UserMe(svcs.Users, logg))
		r.Put("/me/password", controllers.UserChangePassword(svcs.Users, logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(svcs.Customers, logg))
			r.Get("/{customerId}", controllers.CustomerGet(svcs.Customers, logg))
			r.With(staff).Post("/", controllers.CustomerCreate(svcs.Customers, logg))
			r.With(staff).Put("/{customerId}", controllers.CustomerUpdate(svcs.Customers, logg))
			r.With(staff).Put("/{customerId}/active", controllers.CustomerSetActive(svcs.Customers, logg))
			r.With(manager).Delete("/{customerId}", controllers.CustomerDelete(svcs.Customers, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(svcs.Suppliers, logg))
			r.Get("/{supplierId}", controllers.SupplierGet(svcs.Suppliers, logg))
			r.With(staff).Post("/", controllers.SupplierCreate(svcs.Suppliers, logg))
			r.With(staff).Put("/{supplierId}", controllers.SupplierUpdate(svcs.Suppliers, logg))
			r.With(staff).Put("/{supplierId}/active", controllers.SupplierSetActive(svcs.Suppliers, logg))
			r.With(manager).Delete("/{supplierId}", controllers.SupplierDelete(svcs.Suppliers, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemList(svcs.Items, logg))
			r.Get("/{itemId}", controllers.ItemGet(svcs.Items, logg))
			r.With(staff).Post("/", controllers.ItemCreate(svcs.Items, logg))
			r.With(staff).Put("/{itemId}", controllers.ItemUpdate(svcs.Items, logg))
			r.With(staff).Put("/{itemId}/active", controllers.ItemSetActive(svcs.Items, logg))
			r.With(manager).Delete("/{itemId}", controllers.ItemDelete(svcs.Items, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(svcs.Inventory, logg))
			r.Route("/validation", func(r chi.Router) {
				r.Get("/serial-numbers/{serialNumber}/check", controllers.InventoryCheckSerial(svcs.Inventory, logg))
				r.Post("/serial-numbers/batch-check", controllers.InventoryCheckSerialBatch(svcs.Inventory, logg))
				r.Get("/batch-codes/{batchCode}/check", controllers.InventoryCheckBatchCode(svcs.Inventory, logg))
			})
			r.Get("/{unitId}", controllers.InventoryGet(svcs.Inventory, logg))
			r.With(staff).Put("/{unitId}", controllers.InventoryUpdate(svcs.Inventory, logg))
			r.With(staff).Post("/{unitId}/status", controllers.InventoryTransition(svcs.Inventory, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.PurchaseList(svcs.Purchases, logg))
			r.Get("/{purchaseId}", controllers.PurchaseGet(svcs.Purchases, logg))
			r.With(staff).Post("/", controllers.PurchaseCreate(svcs.Purchases, logg))
			r.With(staff).Put("/{purchaseId}", controllers.PurchaseUpdate(svcs.Purchases, logg))
			r.With(staff).Post("/{purchaseId}/receive", controllers.PurchaseReceive(svcs.Purchases, logg))
			r.With(manager).Post("/{purchaseId}/cancel", controllers.PurchaseCancel(svcs.Purchases, logg))
		})

		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", controllers.RentalList(svcs.Rentals, logg))
			r.Get("/{rentalId}", controllers.RentalGet(svcs.Rentals, logg))
			r.With(staff).Post("/", controllers.RentalCreate(svcs.Rentals, logg))
			r.With(staff).Post("/{rentalId}/return", controllers.RentalReturn(svcs.Rentals, logg))
			r.With(manager).Post("/{rentalId}/cancel", controllers.RentalCancel(svcs.Rentals, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SaleList(svcs.Sales, logg))
			r.Get("/{saleId}", controllers.SaleGet(svcs.Sales, logg))
			r.With(staff).Post("/", controllers.SaleCreate(svcs.Sales, logg))
			r.With(manager).Post("/{saleId}/cancel", controllers.SaleCancel(svcs.Sales, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/stock-summary", controllers.ReportStockSummary(svcs.Reports, logg))
			r.Get("/reorder-alerts", controllers.ReportReorderAlerts(svcs.Reports, logg))
			r.Get("/overdue-rentals", controllers.ReportOverdueRentals(svcs.Reports, logg))
			r.With(manager).Get("/revenue", controllers.ReportRevenue(svcs.Reports, logg))
		})

		r.Route("/company", func(r chi.Router) {
			r.Get("/", controllers.CompanyGet(svcs.Company, logg))
			r.With(admin).Put("/", controllers.CompanyUpdate(svcs.Company, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", controllers.UserList(svcs.Users, logg))
			r.Get("/{userId}", controllers.UserGet(svcs.Users, logg))
			r.Post("/", controllers.UserCreate(svcs.Users, logg))
			r.Put("/{userId}", controllers.UserUpdate(svcs.Users, logg))
			r.Put("/{userId}/active", controllers.UserSetActive(svcs.Users, logg))
			r.Put("/{userId}/role", controllers.UserSetRole(svcs.Users, logg))
			r.Post("/{userId}/reset-password", controllers.UserResetPassword(svcs.Users, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(manager)
			r.Get("/", controllers.AuditList(svcs.Audit, logg))
			r.Get("/{entityType}/{entityId}", controllers.AuditEntityTrail(svcs.Audit, logg))
		})
	})

	return r
}
