package models

// MaintenanceType tags maintenance entries inside a vehicle document.
const MaintenanceType = "maintenance"

// MaintenanceDocument represents a stored maintenance record.
type MaintenanceDocument struct {
	Type        string  `json:"_type" bson:"_type"`
	Date        string  `json:"date" bson:"date"` // YYYY-MM-DD, UTC
	ServiceType string  `json:"type" bson:"type"`
	Cost        float64 `json:"cost" bson:"cost"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
}

// MaintenanceRequest represents a request to log a service on a vehicle
type MaintenanceRequest struct {
	Date        string  `json:"date"`
	ServiceType string  `json:"type"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description,omitempty"`
}

// MaintenanceView is a maintenance record as returned by the API.
type MaintenanceView struct {
	MaintenanceDocument
	Formatted string `json:"formatted"`
	Scheduled bool   `json:"scheduled"`
}
