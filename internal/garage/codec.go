package garage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/models"
)

// Document converts the vehicle to its storage shape.
func (v *Vehicle) Document() models.VehicleDocument {
	doc := models.VehicleDocument{
		ID:          v.id,
		Kind:        v.kind,
		Model:       v.model,
		Color:       v.color,
		Image:       v.image,
		EngineOn:    v.engineOn,
		Speed:       v.speed,
		MaxSpeed:    v.maxSpeed,
		Maintenance: make([]models.MaintenanceDocument, 0, len(v.history)),
		UpdatedAt:   time.Now().UTC(),
	}
	switch v.kind {
	case KindSportsCar:
		doc.Turbo = v.turbo
	case KindTruck:
		doc.Capacity = v.CargoCapacity()
		doc.CargoLoad = v.CargoLoad()
	}
	for _, rec := range v.history {
		doc.Maintenance = append(doc.Maintenance, rec.Document())
	}
	return doc
}

// FromDocument rebuilds a live vehicle of the right kind. Stored state is
// normalized so the ignition and speed rules hold.
func FromDocument(doc models.VehicleDocument) (*Vehicle, error) {
	opts := []Option{WithID(doc.ID), WithImage(doc.Image)}
	if doc.MaxSpeed > 0 {
		opts = append(opts, WithMaxSpeed(doc.MaxSpeed))
	}

	var (
		v   *Vehicle
		err error
	)
	switch doc.Kind {
	case KindCar:
		v, err = NewCar(doc.Model, doc.Color, opts...)
	case KindSportsCar:
		v, err = NewSportsCar(doc.Model, doc.Color, opts...)
	case KindTruck:
		if doc.CargoLoad > doc.Capacity {
			log.WithFields(log.Fields{
				"vehicle_id": doc.ID,
				"cargo_load": doc.CargoLoad,
				"capacity":   doc.Capacity,
			}).Warn("Stored truck is overloaded, clamping load to capacity")
		}
		v, err = NewTruck(doc.Model, doc.Color, doc.Capacity, append(opts, WithCargoLoad(doc.CargoLoad))...)
	default:
		return nil, fmt.Errorf("unknown vehicle kind %q", doc.Kind)
	}
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		log.WithField("vehicle_id", v.id).Warn("Stored vehicle had no ID, generated one")
	}

	v.engineOn = doc.EngineOn
	if v.engineOn {
		v.speed = math.Max(0, math.Min(nonNegative(doc.Speed), v.maxSpeed))
	}
	v.turbo = v.kind == KindSportsCar && v.engineOn && doc.Turbo

	entries := make([]any, 0, len(doc.Maintenance))
	for _, m := range doc.Maintenance {
		entries = append(entries, m)
	}
	v.history = RehydrateHistory(entries)
	return v, nil
}

// RehydrateFleet rebuilds every well-formed document. Broken or duplicate
// documents are logged and skipped.
func RehydrateFleet(docs []models.VehicleDocument) []*Vehicle {
	fleet := make([]*Vehicle, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, doc := range docs {
		v, err := FromDocument(doc)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"index": i, "vehicle_id": doc.ID}).Warn("Discarding stored vehicle")
			continue
		}
		if seen[v.id] {
			log.WithFields(log.Fields{"index": i, "vehicle_id": v.id}).Warn("Discarding duplicate stored vehicle")
			continue
		}
		seen[v.id] = true
		fleet = append(fleet, v)
	}
	return fleet
}

// RehydrateHistory turns raw history entries into live records, newest
// first. Live records pass through. Documents and decoded JSON objects tagged
// as maintenance are rebuilt; those that fail validation are logged and
// dropped. Anything else is dropped silently.
func RehydrateHistory(entries []any) []*MaintenanceRecord {
	out := make([]*MaintenanceRecord, 0, len(entries))
	for i, entry := range entries {
		var (
			rec *MaintenanceRecord
			err error
		)
		switch e := entry.(type) {
		case *MaintenanceRecord:
			if !e.valid() {
				continue
			}
			rec = e
		case models.MaintenanceDocument:
			if e.Type != models.MaintenanceType {
				continue
			}
			rec, err = NewMaintenanceRecord(e.Date, e.ServiceType, e.Cost, e.Description)
		case *models.MaintenanceDocument:
			if e == nil || e.Type != models.MaintenanceType {
				continue
			}
			rec, err = NewMaintenanceRecord(e.Date, e.ServiceType, e.Cost, e.Description)
		case map[string]any:
			if tag, _ := e["_type"].(string); tag != models.MaintenanceType {
				continue
			}
			rec, err = recordFromMap(e)
		default:
			continue
		}
		if err != nil {
			log.WithError(err).WithField("index", i).Warn("Discarding malformed maintenance entry")
			continue
		}
		out = append(out, rec)
	}
	sortHistory(out)
	return out
}

func recordFromMap(m map[string]any) (*MaintenanceRecord, error) {
	serviceType, _ := m["type"].(string)
	description, _ := m["description"].(string)
	cost, ok := toFloat(m["cost"])
	if !ok {
		cost = math.NaN()
	}
	switch d := m["date"].(type) {
	case time.Time:
		return NewMaintenanceRecordAt(d, serviceType, cost, description)
	case string:
		return NewMaintenanceRecord(d, serviceType, cost, description)
	default:
		return NewMaintenanceRecord(fmt.Sprint(d), serviceType, cost, description)
	}
}

func toFloat(x any) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
