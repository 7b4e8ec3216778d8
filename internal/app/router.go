package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/chemstock/chemstock/internal/alerts"
	"github.com/chemstock/chemstock/internal/auth"
	"github.com/chemstock/chemstock/internal/authz"
	"github.com/chemstock/chemstock/internal/invoices"
	"github.com/chemstock/chemstock/internal/masterdata/locations"
	"github.com/chemstock/chemstock/internal/masterdata/suppliers"
	"github.com/chemstock/chemstock/internal/movements"
	"github.com/chemstock/chemstock/internal/notifications"
	"github.com/chemstock/chemstock/internal/observability"
	"github.com/chemstock/chemstock/internal/products"
	"github.com/chemstock/chemstock/internal/reports"
	"github.com/chemstock/chemstock/internal/shared"
	"github.com/chemstock/chemstock/internal/users"
	"github.com/chemstock/chemstock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	AuthzHandler         *authz.Handler
	UsersHandler         *users.Handler
	ProductsHandler      *products.Handler
	InvoicesHandler      *invoices.Handler
	MovementsHandler     *movements.Handler
	SuppliersHandler     *suppliers.Handler
	LocationsHandler     *locations.Handler
	AlertsHandler        *alerts.Handler
	NotificationsHandler *notifications.Handler
	ReportsHandler       *reports.Handler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with ChemStock defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.AuthzHandler != nil {
			r.Route("/authz", params.AuthzHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		if params.InvoicesHandler != nil {
			r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		}
		if params.MovementsHandler != nil {
			r.Route("/movements", params.MovementsHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.LocationsHandler != nil {
			r.Route("/locations", params.LocationsHandler.MountRoutes)
		}
		if params.AlertsHandler != nil {
			r.Route("/alerts", params.AlertsHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
