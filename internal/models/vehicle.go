package models

import "time"

// VehicleKind discriminates the concrete vehicle variant stored in a document.
type VehicleKind string

const (
	KindCar       VehicleKind = "car"
	KindSportsCar VehicleKind = "sports_car"
	KindTruck     VehicleKind = "truck"
)

// IsValidKind checks if a vehicle kind is known
func IsValidKind(kind VehicleKind) bool {
	switch kind {
	case KindCar, KindSportsCar, KindTruck:
		return true
	default:
		return false
	}
}

// VehicleDocument is the flat storage shape of a garage vehicle.
type VehicleDocument struct {
	ID          string                `bson:"_id" json:"id"`
	Kind        VehicleKind           `bson:"kind" json:"kind"`
	Model       string                `bson:"model" json:"model"`
	Color       string                `bson:"color" json:"color"`
	Image       string                `bson:"image,omitempty" json:"image,omitempty"`
	EngineOn    bool                  `bson:"engine_on" json:"engine_on"`
	Speed       float64               `bson:"speed" json:"speed"`
	MaxSpeed    float64               `bson:"max_speed" json:"max_speed"`
	Turbo       bool                  `bson:"turbo,omitempty" json:"turbo,omitempty"`                   // sports car only
	Capacity    float64               `bson:"cargo_capacity,omitempty" json:"cargo_capacity,omitempty"` // truck only, kg
	CargoLoad   float64               `bson:"cargo_load,omitempty" json:"cargo_load,omitempty"`         // truck only, kg
	Maintenance []MaintenanceDocument `bson:"maintenance" json:"maintenance"`
	UpdatedAt   time.Time             `bson:"updated_at" json:"updated_at"`
}

// CreateVehicleRequest represents a request to add a vehicle to the garage
type CreateVehicleRequest struct {
	Kind          VehicleKind `json:"kind"`
	Model         string      `json:"model"`
	Color         string      `json:"color"`
	Image         string      `json:"image,omitempty"`
	MaxSpeed      float64     `json:"max_speed,omitempty"`
	CargoCapacity float64     `json:"cargo_capacity,omitempty"` // truck only, kg
	CargoLoad     float64     `json:"cargo_load,omitempty"`     // truck only, kg
}

// CommandRequest carries the optional amount of a vehicle command.
type CommandRequest struct {
	Value *float64 `json:"value,omitempty"`
}
