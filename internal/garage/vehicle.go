// Package garage holds the vehicle state machines of the garage: ignition,
// speed, cargo and turbo rules, plus the maintenance history each vehicle keeps.
//
// Cars, sports cars and trucks share one Vehicle type tagged with a Kind.
// Kind-specific rules are explicit branches composed around the common
// transitions. Operations never reach out to the rest of the application
// directly; they report through the Hooks passed to each call.
package garage

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/models"
)

// Kind is the vehicle variant discriminator.
type Kind = models.VehicleKind

const (
	KindCar       = models.KindCar
	KindSportsCar = models.KindSportsCar
	KindTruck     = models.KindTruck
)

// Maximum speeds in km/h used when none is given.
const (
	DefaultCarMaxSpeed       = 180.0
	DefaultSportsCarMaxSpeed = 300.0
	DefaultTruckMaxSpeed     = 120.0
)

// Status is the ignition state derived from the engine flag and speed.
type Status string

const (
	StatusOff    Status = "off"
	StatusIdle   Status = "idle"
	StatusMoving Status = "moving"
)

// Operator is the capability every vehicle variant offers.
type Operator interface {
	TurnOn(h Hooks) bool
	TurnOff(h Hooks) bool
	AccelerateBy(h Hooks, delta float64) bool
	BrakeBy(h Hooks, delta float64) bool
	Describe() Summary
}

var _ Operator = (*Vehicle)(nil)

// Vehicle is the state record shared by all variants. Fields that only make
// sense for one kind stay zero for the others.
type Vehicle struct {
	id       string
	kind     Kind
	model    string
	color    string
	image    string
	engineOn bool
	speed    float64
	maxSpeed float64
	history  []*MaintenanceRecord

	// sports car
	turbo bool

	// truck; decimals keep load/unload round trips exact
	cargoCapacity decimal.Decimal
	cargoLoad     decimal.Decimal
	initialLoad   float64
}

// Option customizes a vehicle at construction.
type Option func(*Vehicle)

// WithID keeps an existing identifier instead of generating one.
func WithID(id string) Option {
	return func(v *Vehicle) {
		if id = strings.TrimSpace(id); id != "" {
			v.id = id
		}
	}
}

// WithMaxSpeed overrides the kind's default maximum speed.
func WithMaxSpeed(limit float64) Option {
	return func(v *Vehicle) { v.maxSpeed = limit }
}

// WithImage sets the display image path.
func WithImage(path string) Option {
	return func(v *Vehicle) { v.image = strings.TrimSpace(path) }
}

// WithCargoLoad sets a truck's initial load. It is clamped to the capacity.
func WithCargoLoad(load float64) Option {
	return func(v *Vehicle) { v.initialLoad = load }
}

// NewCar builds a plain car.
func NewCar(model, color string, opts ...Option) (*Vehicle, error) {
	return newVehicle(KindCar, model, color, DefaultCarMaxSpeed, opts)
}

// NewSportsCar builds a car with a turbo boost, initially disengaged.
func NewSportsCar(model, color string, opts ...Option) (*Vehicle, error) {
	return newVehicle(KindSportsCar, model, color, DefaultSportsCarMaxSpeed, opts)
}

// NewTruck builds a truck with the given cargo capacity in kg. An initial
// load outside [0, capacity] is clamped; an invalid one becomes 0.
func NewTruck(model, color string, capacity float64, opts ...Option) (*Vehicle, error) {
	v, err := newVehicle(KindTruck, model, color, DefaultTruckMaxSpeed, opts, func(problems []string) []string {
		if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity <= 0 {
			problems = append(problems, fmt.Sprintf("cargo capacity must be a positive number (got %v)", capacity))
		}
		return problems
	})
	if err != nil {
		return nil, err
	}
	v.cargoCapacity = decimal.NewFromFloat(capacity)
	v.cargoLoad = decimal.NewFromFloat(clampLoad(v.initialLoad, capacity))
	return v, nil
}

func newVehicle(kind Kind, model, color string, maxSpeed float64, opts []Option, checks ...func([]string) []string) (*Vehicle, error) {
	v := &Vehicle{
		kind:     kind,
		model:    strings.TrimSpace(model),
		color:    strings.TrimSpace(color),
		maxSpeed: maxSpeed,
	}
	for _, opt := range opts {
		opt(v)
	}

	var problems []string
	if v.model == "" {
		problems = append(problems, "model must not be empty")
	}
	if v.color == "" {
		problems = append(problems, "color must not be empty")
	}
	if math.IsNaN(v.maxSpeed) || math.IsInf(v.maxSpeed, 0) || v.maxSpeed < 0 {
		problems = append(problems, fmt.Sprintf("max speed must be a non-negative number (got %v)", v.maxSpeed))
	}
	for _, check := range checks {
		problems = check(problems)
	}
	if err := newValidationError(string(kind), problems); err != nil {
		return nil, err
	}

	if v.id == "" {
		v.id = newID()
	}
	return v, nil
}

// newID combines the creation time with a random suffix.
func newID() string {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}

func clampLoad(load, capacity float64) float64 {
	switch {
	case math.IsNaN(load) || load < 0:
		return 0
	case load > capacity:
		return capacity
	default:
		return load
	}
}

func (v *Vehicle) ID() string             { return v.id }
func (v *Vehicle) Kind() Kind             { return v.kind }
func (v *Vehicle) Model() string          { return v.model }
func (v *Vehicle) Color() string          { return v.color }
func (v *Vehicle) Image() string          { return v.image }
func (v *Vehicle) EngineOn() bool         { return v.engineOn }
func (v *Vehicle) Speed() float64         { return v.speed }
func (v *Vehicle) MaxSpeed() float64      { return v.maxSpeed }
func (v *Vehicle) Turbo() bool            { return v.turbo }
func (v *Vehicle) CargoCapacity() float64 { return v.cargoCapacity.InexactFloat64() }
func (v *Vehicle) CargoLoad() float64     { return v.cargoLoad.InexactFloat64() }

// History returns the maintenance records, newest first.
func (v *Vehicle) History() []*MaintenanceRecord {
	return slices.Clone(v.history)
}

// Status derives the ignition state.
func (v *Vehicle) Status() Status {
	switch {
	case !v.engineOn:
		return StatusOff
	case v.speed > 0:
		return StatusMoving
	default:
		return StatusIdle
	}
}

func (v *Vehicle) reject(h Hooks, message string) bool {
	log.WithFields(log.Fields{
		"vehicle_id": v.id,
		"kind":       v.kind,
	}).Debug("Rejected vehicle operation: " + message)
	h.notice(message, SeverityWarning, longNotice)
	return false
}

// TurnOn starts the engine. Trucks refuse to start while overloaded.
func (v *Vehicle) TurnOn(h Hooks) bool {
	if v.kind == KindTruck && v.cargoLoad.GreaterThan(v.cargoCapacity) {
		return v.reject(h, fmt.Sprintf("%s is overloaded (%s/%s kg): unload before starting the engine",
			v.model, v.cargoLoad, v.cargoCapacity))
	}
	return v.turnOn(h)
}

func (v *Vehicle) turnOn(h Hooks) bool {
	if v.engineOn {
		return v.reject(h, fmt.Sprintf("%s is already on", v.model))
	}
	v.engineOn = true
	h.cue(CueIgnition)
	h.committed()
	return true
}

// TurnOff stops the engine. The vehicle must be standing still. A sports car
// also drops its turbo.
func (v *Vehicle) TurnOff(h Hooks) bool {
	turbo := v.turbo
	if !v.turnOff(h) {
		return false
	}
	if v.kind == KindSportsCar && turbo {
		v.DisengageTurbo(h)
	}
	return true
}

func (v *Vehicle) turnOff(h Hooks) bool {
	if !v.engineOn {
		return v.reject(h, fmt.Sprintf("%s is already off", v.model))
	}
	if v.speed > 0 {
		return v.reject(h, fmt.Sprintf("%s must stop before turning off (speed %s km/h)", v.model, num(v.speed)))
	}
	v.engineOn = false
	h.committed()
	return true
}

// Accelerate speeds up by the kind's default step.
func (v *Vehicle) Accelerate(h Hooks) bool {
	return v.AccelerateBy(h, v.defaultAcceleration())
}

// AccelerateBy speeds up by delta km/h, adjusted by turbo or cargo load, and
// capped at the maximum speed.
func (v *Vehicle) AccelerateBy(h Hooks, delta float64) bool {
	switch v.kind {
	case KindSportsCar:
		delta = nonNegative(delta) * v.turboFactor()
	case KindTruck:
		delta = nonNegative(delta) * v.LoadFactor()
	}
	return v.accelerate(h, delta)
}

func (v *Vehicle) accelerate(h Hooks, delta float64) bool {
	if !v.engineOn {
		return v.reject(h, fmt.Sprintf("turn %s on before accelerating", v.model))
	}
	delta = nonNegative(delta)
	next := math.Min(v.speed+delta, v.maxSpeed)
	if next == v.speed {
		if v.speed >= v.maxSpeed {
			return v.reject(h, fmt.Sprintf("%s is already at maximum speed (%s km/h)", v.model, num(v.maxSpeed)))
		}
		return v.reject(h, fmt.Sprintf("acceleration of %s km/h had no effect on %s", num(delta), v.model))
	}
	v.speed = next
	h.committed()
	return true
}

// Brake slows down by the kind's default step.
func (v *Vehicle) Brake(h Hooks) bool {
	return v.BrakeBy(h, v.defaultBraking())
}

// BrakeBy slows down by delta km/h, never below zero. A sports car dropping
// under TurboCutoffSpeed loses its turbo.
func (v *Vehicle) BrakeBy(h Hooks, delta float64) bool {
	if !v.brake(h, delta) {
		return false
	}
	if v.kind == KindSportsCar && v.turbo && v.speed < TurboCutoffSpeed {
		v.DisengageTurbo(h)
		h.notice(fmt.Sprintf("turbo of %s disengaged automatically below %s km/h", v.model, num(TurboCutoffSpeed)),
			SeverityInfo, defaultNotice)
	}
	return true
}

func (v *Vehicle) brake(h Hooks, delta float64) bool {
	if v.speed == 0 {
		return v.reject(h, fmt.Sprintf("%s is already stopped", v.model))
	}
	delta = nonNegative(delta)
	if delta == 0 {
		return v.reject(h, fmt.Sprintf("braking by 0 km/h had no effect on %s", v.model))
	}
	v.speed = math.Max(0, v.speed-delta)
	h.committed()
	return true
}

// Honk sounds the horn. Nothing durable changes, so nothing is persisted.
func (v *Vehicle) Honk(h Hooks) bool {
	h.cue(CueHonk)
	h.notice(fmt.Sprintf("%s: beep beep!", v.model), SeverityInfo, shortNotice)
	return true
}

// AddMaintenance appends rec and keeps the history sorted newest first.
func (v *Vehicle) AddMaintenance(h Hooks, rec *MaintenanceRecord) error {
	return v.AddMaintenanceRecords(h, []*MaintenanceRecord{rec})
}

// AddMaintenanceRecords appends all of recs or none of them. The hooks run
// once for the whole batch; an empty batch changes nothing.
func (v *Vehicle) AddMaintenanceRecords(h Hooks, recs []*MaintenanceRecord) error {
	for _, rec := range recs {
		if !rec.valid() {
			return ErrInvalidRecord
		}
	}
	if len(recs) == 0 {
		return nil
	}
	v.history = append(v.history, recs...)
	sortHistory(v.history)
	h.committed()
	return nil
}

func sortHistory(history []*MaintenanceRecord) {
	slices.SortStableFunc(history, func(a, b *MaintenanceRecord) int {
		return b.date.Compare(a.date)
	})
}

// PastRecords returns records due today or earlier.
func (v *Vehicle) PastRecords() []*MaintenanceRecord {
	if v == nil {
		return []*MaintenanceRecord{}
	}
	out := []*MaintenanceRecord{}
	for _, rec := range v.history {
		if rec.valid() && !rec.IsFutureScheduled() {
			out = append(out, rec)
		}
	}
	return out
}

// FutureScheduled returns records scheduled after today.
func (v *Vehicle) FutureScheduled() []*MaintenanceRecord {
	if v == nil {
		return []*MaintenanceRecord{}
	}
	out := []*MaintenanceRecord{}
	for _, rec := range v.history {
		if rec.IsFutureScheduled() {
			out = append(out, rec)
		}
	}
	return out
}

func (v *Vehicle) defaultAcceleration() float64 {
	switch v.kind {
	case KindSportsCar:
		return 20
	case KindTruck:
		return 5
	default:
		return 10
	}
}

func (v *Vehicle) defaultBraking() float64 {
	if v.kind == KindSportsCar {
		return 25
	}
	return 20
}

func nonNegative(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}

// num prints a number without trailing zeros.
func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
