package garage

import (
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	describeFallback = "vehicle details unavailable"
	loadBarWidth     = 10
	maintenanceLabel = "Maintenance"
)

// SummaryLine is one labelled entry of a vehicle description.
type SummaryLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary describes a vehicle for a rendering layer. Lines holds the same
// data in display order.
type Summary struct {
	ID                   string        `json:"id"`
	Kind                 Kind          `json:"kind"`
	Model                string        `json:"model"`
	Color                string        `json:"color"`
	Image                string        `json:"image,omitempty"`
	Status               Status        `json:"status"`
	Speed                float64       `json:"speed"`
	MaxSpeed             float64       `json:"max_speed"`
	Turbo                *bool         `json:"turbo,omitempty"`
	CargoCapacity        *float64      `json:"cargo_capacity,omitempty"`
	CargoLoad            *float64      `json:"cargo_load,omitempty"`
	PastMaintenance      int           `json:"past_maintenance"`
	ScheduledMaintenance int           `json:"scheduled_maintenance"`
	Lines                []SummaryLine `json:"lines"`
}

// String renders the lines as "Label: value" rows.
func (s Summary) String() string {
	if len(s.Lines) == 0 {
		return describeFallback
	}
	var b strings.Builder
	for i, l := range s.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Label + ": " + l.Value)
	}
	return b.String()
}

// Describe summarizes the vehicle. Kind-specific lines go right before the
// maintenance count.
func (v *Vehicle) Describe() Summary {
	if v == nil {
		log.Warn("Describing a nil vehicle")
		return Summary{Lines: []SummaryLine{{Label: "Error", Value: describeFallback}}}
	}

	past, scheduled := len(v.PastRecords()), len(v.FutureScheduled())
	s := Summary{
		ID:                   v.id,
		Kind:                 v.kind,
		Model:                v.model,
		Color:                v.color,
		Image:                v.image,
		Status:               v.Status(),
		Speed:                v.speed,
		MaxSpeed:             v.maxSpeed,
		PastMaintenance:      past,
		ScheduledMaintenance: scheduled,
	}

	s.Lines = []SummaryLine{
		{Label: "ID", Value: v.id},
		{Label: "Model", Value: v.model},
		{Label: "Color", Value: v.color},
		{Label: "Status", Value: statusText(s.Status)},
		{Label: "Speed", Value: fmt.Sprintf("%s/%s km/h", num(v.speed), num(v.maxSpeed))},
	}

	switch v.kind {
	case KindSportsCar:
		turbo := v.turbo
		s.Turbo = &turbo
		state := "off"
		if turbo {
			state = "engaged"
		}
		s.Lines = append(s.Lines, SummaryLine{Label: "Turbo", Value: state})
	case KindTruck:
		capacity, load := v.CargoCapacity(), v.CargoLoad()
		s.CargoCapacity, s.CargoLoad = &capacity, &load
		s.Lines = append(s.Lines,
			SummaryLine{Label: "Capacity", Value: v.cargoCapacity.String() + " kg"},
			SummaryLine{Label: "Load", Value: v.cargoLoad.String() + " kg"},
			SummaryLine{Label: "Load bar", Value: loadBar(v.FillRatio())},
		)
	}

	s.Lines = append(s.Lines, SummaryLine{
		Label: maintenanceLabel,
		Value: fmt.Sprintf("%d past, %d scheduled", past, scheduled),
	})
	return s
}

func statusText(s Status) string {
	switch s {
	case StatusMoving:
		return "on (moving)"
	case StatusIdle:
		return "on (idle)"
	default:
		return "off"
	}
}

// loadBar draws "[######----] 60%".
func loadBar(ratio float64) string {
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * loadBarWidth))
	return fmt.Sprintf("[%s%s] %d%%",
		strings.Repeat("#", filled), strings.Repeat("-", loadBarWidth-filled), int(math.Round(ratio*100)))
}
