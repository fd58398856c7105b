// Package fleet holds the garage's vehicles, tracks which one is selected and
// wires vehicle side effects to notification sinks and storage.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/db"
	"github.com/ukydev/garage/internal/garage"
	"github.com/ukydev/garage/internal/models"
	"github.com/ukydev/garage/internal/notify"
)

const defaultPersistTimeout = 5 * time.Second

var (
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrDuplicateVehicle   = errors.New("vehicle already in fleet")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// Fleet is the single owner of the live vehicles. All operations are
// serialized, so vehicles only ever see one command at a time.
type Fleet struct {
	mu             sync.Mutex
	store          db.VehicleCollection
	sink           notify.Sink
	persistTimeout time.Duration

	vehicles []*garage.Vehicle
	selected string
	captured []notify.Notice
}

// Option configures a Fleet.
type Option func(*Fleet)

// WithPersistTimeout bounds each fleet snapshot write.
func WithPersistTimeout(d time.Duration) Option {
	return func(f *Fleet) {
		if d > 0 {
			f.persistTimeout = d
		}
	}
}

// New creates an empty fleet. A nil store disables persistence and a nil sink
// discards notices.
func New(store db.VehicleCollection, sink notify.Sink, opts ...Option) *Fleet {
	if sink == nil {
		sink = notify.Multi{}
	}
	f := &Fleet{
		store:          store,
		sink:           sink,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load replaces the in-memory fleet with the stored one. Broken documents are
// skipped. The selection survives only if its vehicle is still there.
func (f *Fleet) Load(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	docs, err := f.store.FindVehicles(ctx)
	if err != nil {
		return fmt.Errorf("load fleet: %w", err)
	}
	vehicles := garage.RehydrateFleet(docs)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicles = vehicles
	if f.indexOf(f.selected) < 0 {
		f.selected = ""
	}
	log.WithFields(log.Fields{"stored": len(docs), "loaded": len(vehicles)}).Info("Fleet loaded")
	return nil
}

// Add puts v in the fleet and stores the new snapshot. The vehicle is not
// kept if the snapshot cannot be written.
func (f *Fleet) Add(ctx context.Context, v *garage.Vehicle) (garage.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.indexOf(v.ID()) >= 0 {
		return garage.Summary{}, fmt.Errorf("%w: %s", ErrDuplicateVehicle, v.ID())
	}
	f.vehicles = append(f.vehicles, v)
	if err := f.writeSnapshot(ctx); err != nil {
		f.vehicles = f.vehicles[:len(f.vehicles)-1]
		return garage.Summary{}, err
	}

	log.WithFields(log.Fields{"vehicle_id": v.ID(), "kind": v.Kind(), "model": v.Model()}).Info("Vehicle added")
	return v.Describe(), nil
}

// Remove takes a vehicle out of the fleet and storage, clearing the selection
// if it pointed at it.
func (f *Fleet) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(id)
	if i < 0 {
		return ErrVehicleNotFound
	}
	if f.store != nil {
		err := f.store.DeleteVehicle(ctx, id)
		if err != nil && !errors.Is(err, db.ErrVehicleNotFound) {
			return fmt.Errorf("delete vehicle: %w", err)
		}
	}
	f.vehicles = slices.Delete(f.vehicles, i, i+1)
	if f.selected == id {
		f.selected = ""
	}

	log.WithField("vehicle_id", id).Info("Vehicle removed")
	return nil
}

// Get describes one vehicle.
func (f *Fleet) Get(id string) (garage.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(id)
	if v == nil {
		return garage.Summary{}, ErrVehicleNotFound
	}
	return v.Describe(), nil
}

// List describes every vehicle in insertion order.
func (f *Fleet) List() []garage.Summary {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]garage.Summary, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		out = append(out, v.Describe())
	}
	return out
}

// Select marks the vehicle the user is looking at and asks the sink to show it.
func (f *Fleet) Select(id string) (garage.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(id)
	if v == nil {
		return garage.Summary{}, ErrVehicleNotFound
	}
	f.selected = id
	f.sink.Refresh(id)
	return v.Describe(), nil
}

// Selected describes the selected vehicle, if any.
func (f *Fleet) Selected() (garage.Summary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(f.selected)
	if v == nil {
		return garage.Summary{}, false
	}
	return v.Describe(), true
}

// Maintenance returns the vehicle's history, newest first.
func (f *Fleet) Maintenance(id string) ([]*garage.MaintenanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(id)
	if v == nil {
		return nil, ErrVehicleNotFound
	}
	return v.History(), nil
}

// AddMaintenance logs a service record on the vehicle.
func (f *Fleet) AddMaintenance(id string, rec *garage.MaintenanceRecord) (garage.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(id)
	if v == nil {
		return garage.Summary{}, ErrVehicleNotFound
	}
	if err := v.AddMaintenance(f.hooksFor(v), rec); err != nil {
		return garage.Summary{}, err
	}
	return v.Describe(), nil
}

// ImportMaintenance rebuilds raw history entries (stored documents or decoded
// JSON objects) and adds the valid ones in one step. The fleet is stored once
// at the end.
func (f *Fleet) ImportMaintenance(id string, entries []any) (int, garage.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(id)
	if v == nil {
		return 0, garage.Summary{}, ErrVehicleNotFound
	}

	records := garage.RehydrateHistory(entries)
	h := f.hooksFor(v)
	h.PersistFleet = nil
	if err := v.AddMaintenanceRecords(h, records); err != nil {
		return 0, garage.Summary{}, err
	}
	if len(records) > 0 {
		f.persist()
	}

	log.WithFields(log.Fields{
		"vehicle_id": id,
		"received":   len(entries),
		"imported":   len(records),
	}).Info("Maintenance history imported")
	return len(records), v.Describe(), nil
}

// hooksFor routes the side effects of v's operations. Must be called with mu held.
func (f *Fleet) hooksFor(v *garage.Vehicle) garage.Hooks {
	id := v.ID()
	return garage.Hooks{
		Notify: func(message string, severity garage.Severity, duration time.Duration) {
			n := notify.Notice{
				VehicleID: id,
				Message:   message,
				Severity:  severity,
				Duration:  duration,
				At:        time.Now().UTC(),
			}
			f.captured = append(f.captured, n)
			f.sink.Notify(n)
		},
		PlayCue: func(cue string) {
			f.sink.Cue(id, cue)
		},
		OnStateChanged: func() {
			if f.selected == id {
				f.sink.Refresh(id)
			}
		},
		PersistFleet: f.persist,
	}
}

// persist stores the whole fleet. Failures are logged and otherwise ignored;
// the live fleet stays authoritative.
func (f *Fleet) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), f.persistTimeout)
	defer cancel()
	if err := f.writeSnapshot(ctx); err != nil {
		log.WithError(err).WithField("vehicles", len(f.vehicles)).Error("Failed to persist fleet")
	}
}

func (f *Fleet) writeSnapshot(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	docs := make([]models.VehicleDocument, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		docs = append(docs, v.Document())
	}
	if err := f.store.ReplaceFleet(ctx, docs); err != nil {
		return fmt.Errorf("store fleet: %w", err)
	}
	return nil
}

func (f *Fleet) find(id string) *garage.Vehicle {
	if i := f.indexOf(id); i >= 0 {
		return f.vehicles[i]
	}
	return nil
}

func (f *Fleet) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(f.vehicles, func(v *garage.Vehicle) bool { return v.ID() == id })
}
