package handlers

import (
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/fleet"
	"github.com/ukydev/garage/internal/garage"
	"github.com/ukydev/garage/internal/middleware"
	"github.com/ukydev/garage/internal/models"
	"github.com/ukydev/garage/internal/notify"
)

const defaultNoticeLimit = 20

// VehicleHandler serves the garage fleet over HTTP.
type VehicleHandler struct {
	fleet   *fleet.Fleet
	notices *notify.Recorder
}

// NewVehicleHandler creates a new vehicle handler. notices may be nil.
func NewVehicleHandler(f *fleet.Fleet, notices *notify.Recorder) *VehicleHandler {
	return &VehicleHandler{fleet: f, notices: notices}
}

// List returns every vehicle.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.fleet.List())
}

// Create adds a vehicle of the requested kind.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVehicleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !models.IsValidKind(req.Kind) {
		http.Error(w, "Invalid vehicle kind", http.StatusBadRequest)
		return
	}

	v, err := buildVehicle(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.fleet.Add(r.Context(), v)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, summary)
}

func buildVehicle(req models.CreateVehicleRequest) (*garage.Vehicle, error) {
	var opts []garage.Option
	if req.Image != "" {
		opts = append(opts, garage.WithImage(req.Image))
	}
	if req.MaxSpeed != 0 {
		opts = append(opts, garage.WithMaxSpeed(req.MaxSpeed))
	}

	switch req.Kind {
	case models.KindSportsCar:
		return garage.NewSportsCar(req.Model, req.Color, opts...)
	case models.KindTruck:
		if req.CargoLoad != 0 {
			opts = append(opts, garage.WithCargoLoad(req.CargoLoad))
		}
		return garage.NewTruck(req.Model, req.Color, req.CargoCapacity, opts...)
	default:
		return garage.NewCar(req.Model, req.Color, opts...)
	}
}

// Get returns one vehicle.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.fleet.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// Delete removes a vehicle.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.fleet.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select marks a vehicle as the one being watched.
func (h *VehicleHandler) Select(w http.ResponseWriter, r *http.Request) {
	summary, err := h.fleet.Select(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// Selected returns the watched vehicle.
func (h *VehicleHandler) Selected(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.fleet.Selected()
	if !ok {
		http.Error(w, "No vehicle selected", http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// Command runs a vehicle command. A refused command is still a 200 with
// success set to false.
func (h *VehicleHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req models.CommandRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	id, cmd := r.PathValue("id"), fleet.Command(r.PathValue("command"))
	res, err := h.fleet.Exec(id, cmd, req.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.LoggerFromContext(r.Context()).WithFields(log.Fields{
		"vehicle_id": id,
		"command":    cmd,
		"success":    res.Success,
	}).Info("Vehicle command")
	writeJSON(w, r, http.StatusOK, res)
}

// ListMaintenance returns the vehicle's service history, newest first.
func (h *VehicleHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	history, err := h.fleet.Maintenance(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]models.MaintenanceView, 0, len(history))
	for _, rec := range history {
		views = append(views, models.MaintenanceView{
			MaintenanceDocument: rec.Document(),
			Formatted:           rec.Format(),
			Scheduled:           rec.IsFutureScheduled(),
		})
	}
	writeJSON(w, r, http.StatusOK, views)
}

// AddMaintenance logs a service on the vehicle.
func (h *VehicleHandler) AddMaintenance(w http.ResponseWriter, r *http.Request) {
	var req models.MaintenanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	rec, err := garage.NewMaintenanceRecord(req.Date, req.ServiceType, req.Cost, req.Description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	summary, err := h.fleet.AddMaintenance(r.PathValue("id"), rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, summary)
}

// ImportMaintenance accepts a JSON array of raw history entries. Entries that
// are not maintenance records or do not validate are skipped.
func (h *VehicleHandler) ImportMaintenance(w http.ResponseWriter, r *http.Request) {
	var entries []any
	if err := decodeJSON(w, r, &entries); err != nil {
		http.Error(w, "Expected a JSON array", http.StatusBadRequest)
		return
	}

	n, summary, err := h.fleet.ImportMaintenance(r.PathValue("id"), entries)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"received": len(entries),
		"imported": n,
		"vehicle":  summary,
	})
}

// Notices returns the most recent notices, oldest first.
func (h *VehicleHandler) Notices(w http.ResponseWriter, r *http.Request) {
	if h.notices == nil {
		writeJSON(w, r, http.StatusOK, []notify.Notice{})
		return
	}
	limit := defaultNoticeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, r, http.StatusOK, h.notices.Recent(limit))
}

// fail maps fleet and vehicle errors to HTTP statuses.
func (h *VehicleHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *garage.ValidationError
	switch {
	case errors.Is(err, fleet.ErrVehicleNotFound):
		http.Error(w, "Vehicle not found", http.StatusNotFound)
	case errors.Is(err, fleet.ErrUnsupportedCommand):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, fleet.ErrDuplicateVehicle):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, garage.ErrInvalidRecord), errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		middleware.LoggerFromContext(r.Context()).WithError(err).Error("Vehicle request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
