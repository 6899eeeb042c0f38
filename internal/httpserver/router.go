package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleetkeys/internal/auth"
	"fleetkeys/internal/config"
	"fleetkeys/internal/httpserver/handlers"
	"fleetkeys/internal/services/fleet"
	"fleetkeys/internal/services/identity"
	"fleetkeys/internal/services/ledger"
	"fleetkeys/internal/services/reports"
)

func NewRouter(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) http.Handler {
	idSvc := identity.New(db, cfg)
	ledSvc := ledger.New(db, cfg)
	fleetSvc := fleet.New(db)
	reportSvc := reports.New(db, cfg)
	secret := []byte(cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(db, idSvc, cfg, lg))
	r.Post("/v1/auth/register", handlers.Register(db, idSvc, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.SessionAuth(db, secret))
		protected.Post("/v1/auth/logout", handlers.Logout(db, lg))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Get("/v1/keys", handlers.ListKeys(fleetSvc, lg))
		protected.Get("/v1/keys/search", handlers.SearchKey(ledSvc, lg))
		protected.Post("/v1/keys/{id}/checkout", handlers.CheckoutKey(db, ledSvc, lg))
		protected.Post("/v1/transactions/{id}/checkin", handlers.CheckinKey(db, ledSvc, lg))
		protected.Get("/v1/my/transactions", handlers.MyLoans(ledSvc, lg))
		protected.Get("/v1/logs", handlers.MyLogs(db, lg))
		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireDispatch)
			admin.Post("/v1/admin/vehicles", handlers.RegisterVehicle(db, fleetSvc, lg))
			admin.Post("/v1/admin/keys", handlers.RegisterKey(db, fleetSvc, lg))
			admin.Get("/v1/admin/dashboard", handlers.Dashboard(reportSvc, lg))
			admin.Get("/v1/admin/loans", handlers.ActiveLoans(reportSvc, lg))
			admin.Get("/v1/admin/reports/vehicles", handlers.VehicleReport(reportSvc, lg))
			admin.Get("/v1/admin/reports/drivers", handlers.DriverReport(reportSvc, lg))
			admin.Get("/v1/admin/reports/incidents", handlers.IncidentReport(reportSvc, lg))
			admin.Get("/v1/admin/history", handlers.History(reportSvc, lg))
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
