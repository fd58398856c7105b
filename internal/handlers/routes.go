package handlers

import (
	"net/http"

	"github.com/ukydev/garage/internal/middleware"
	"github.com/ukydev/garage/internal/models"
)

// NewRouter wires every endpoint behind request logging, rate limiting and
// authentication. limiter may be nil.
func NewRouter(authH *AuthHandler, vehicles *VehicleHandler, authMW *middleware.AuthMiddleware, limiter *middleware.RateLimitMiddleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", Health)

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("GET /api/auth/profile", authH.GetProfile)

	view := func(h http.HandlerFunc) http.Handler { return authMW.Protect(models.ActionViewVehicles, h) }
	drive := func(h http.HandlerFunc) http.Handler { return authMW.Protect(models.ActionDriveVehicles, h) }
	manage := func(h http.HandlerFunc) http.Handler { return authMW.Protect(models.ActionManageVehicles, h) }
	service := func(h http.HandlerFunc) http.Handler { return authMW.Protect(models.ActionLogMaintenance, h) }

	mux.Handle("GET /api/vehicles", view(vehicles.List))
	mux.Handle("POST /api/vehicles", manage(vehicles.Create))
	mux.Handle("GET /api/vehicles/selected", view(vehicles.Selected))
	mux.Handle("GET /api/vehicles/{id}", view(vehicles.Get))
	mux.Handle("DELETE /api/vehicles/{id}", manage(vehicles.Delete))
	mux.Handle("POST /api/vehicles/{id}/select", view(vehicles.Select))
	mux.Handle("POST /api/vehicles/{id}/commands/{command}", drive(vehicles.Command))
	mux.Handle("GET /api/vehicles/{id}/maintenance", view(vehicles.ListMaintenance))
	mux.Handle("POST /api/vehicles/{id}/maintenance", service(vehicles.AddMaintenance))
	mux.Handle("POST /api/vehicles/{id}/maintenance/import", service(vehicles.ImportMaintenance))
	mux.Handle("GET /api/notices", view(vehicles.Notices))

	var h http.Handler = authMW.Authenticate(mux)
	if limiter != nil {
		h = limiter.RateLimit(h)
	}
	return middleware.RequestLogger(h)
}

// Health reports that the service is up.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
