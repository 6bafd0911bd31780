package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ukydev/fleet-ops/internal/auth"
	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/middleware"
	"github.com/ukydev/fleet-ops/internal/models"
)

// RouterConfig holds everything the API routes depend on.
type RouterConfig struct {
	Auth            *auth.Service
	Users           db.UserCollection
	Trips           TripService
	Reports         db.ReportSource
	Audit           db.AuditCollection
	Ping            func(ctx context.Context) error
	CORSOrigins     []string
	RateLimitMax    int
	RateLimitWindow time.Duration
	AlertDueSoon    time.Duration
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	limiter := middleware.NewRateLimitMiddleware()

	authH := NewAuthHandler(cfg.Auth, cfg.Users)
	tripH := NewTripHandler(cfg.Trips)
	payH := NewDriverPaymentHandler(cfg.Trips)
	reportH := NewReportHandler(cfg.Reports, cfg.AlertDueSoon)
	auditH := NewAuditHandler(cfg.Audit)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Ping != nil {
		r.Get("/health", Health(cfg.Ping))
	}

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow)).Post("/auth/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			r.Get("/auth/perfil", authH.GetProfile)

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequirePermission(models.ActionViewTrips))
				r.Get("/viajes", tripH.List)
				r.Get("/viajes/{id}", tripH.Get)
				r.Get("/viajes/{id}/gastos", tripH.ListExpenses)
				r.Get("/viajes/{id}/resumen", tripH.Summary)
				r.Get("/pagos-chofer", payH.List)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireWrite)
				r.Post("/viajes", tripH.Create)
				r.Patch("/viajes/{id}/iniciar", tripH.Start)
				r.Patch("/viajes/{id}/completar", tripH.Complete)
				r.Patch("/viajes/{id}/cancelar", tripH.Cancel)
				r.Post("/viajes/{id}/pagos", tripH.RegisterPayment)
				r.Post("/viajes/{id}/gastos", tripH.AddExpense)
				r.Post("/pagos-chofer", payH.Create)
				r.Patch("/pagos-chofer/{id}/pagar", payH.MarkPaid)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequirePermission(models.ActionViewReports))
				r.Get("/reportes/cartera", reportH.Cartera)
				r.Get("/reportes/cartera/exportar", reportH.CarteraCSV)
				r.Get("/alertas/resumen", reportH.Alerts)
			})

			r.With(authMW.RequirePermission(models.ActionViewAudit)).Get("/auditoria", auditH.List)
		})
	})
	return r
}
