package garage

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/garage/internal/models"
)

func TestDocumentRoundTrip(t *testing.T) {
	car := mustCar(t, WithImage("img/fusca.png"))
	sports := mustSportsCar(t)
	truck := mustTruck(t, 1000, WithCargoLoad(250.5))

	car.TurnOn(Hooks{})
	car.AccelerateBy(Hooks{}, 40)
	sports.TurnOn(Hooks{})
	sports.EngageTurbo(Hooks{})
	rec, _ := NewMaintenanceRecord("2024-03-15", "Oil Change", 150, "synthetic")
	require.NoError(t, truck.AddMaintenance(Hooks{}, rec))

	for _, v := range []*Vehicle{car, sports, truck} {
		doc := v.Document()
		assert.Equal(t, v.ID(), doc.ID)
		assert.Equal(t, v.Kind(), doc.Kind)

		back, err := FromDocument(doc)
		require.NoError(t, err)
		assert.Equal(t, v.Describe(), back.Describe())
		assert.Equal(t, v.Document().Maintenance, back.Document().Maintenance)
	}
}

func TestFromDocument_UnknownKind(t *testing.T) {
	_, err := FromDocument(models.VehicleDocument{ID: "x", Kind: "bus", Model: "Marcopolo", Color: "White"})
	assert.ErrorContains(t, err, "unknown vehicle kind")
}

func TestFromDocument_NormalizesState(t *testing.T) {
	tests := []struct {
		name   string
		doc    models.VehicleDocument
		speed  float64
		engine bool
		turbo  bool
		load   float64
	}{
		{
			name:  "engine off cannot move",
			doc:   models.VehicleDocument{Kind: models.KindCar, Model: "Gol", Color: "White", Speed: 50},
			speed: 0,
		},
		{
			name:   "speed above max is capped",
			doc:    models.VehicleDocument{Kind: models.KindCar, Model: "Gol", Color: "White", EngineOn: true, Speed: 999, MaxSpeed: 150},
			speed:  150,
			engine: true,
		},
		{
			name:   "negative speed is zeroed",
			doc:    models.VehicleDocument{Kind: models.KindCar, Model: "Gol", Color: "White", EngineOn: true, Speed: -4},
			engine: true,
		},
		{
			name: "turbo needs the engine",
			doc:  models.VehicleDocument{Kind: models.KindSportsCar, Model: "Ferrari", Color: "Red", Turbo: true},
		},
		{
			name:   "turbo kept while running",
			doc:    models.VehicleDocument{Kind: models.KindSportsCar, Model: "Ferrari", Color: "Red", EngineOn: true, Turbo: true},
			engine: true,
			turbo:  true,
		},
		{
			name: "overloaded truck is clamped",
			doc:  models.VehicleDocument{Kind: models.KindTruck, Model: "Volvo", Color: "Red", Capacity: 1000, CargoLoad: 1500},
			load: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromDocument(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.speed, v.Speed())
			assert.Equal(t, tt.engine, v.EngineOn())
			assert.Equal(t, tt.turbo, v.Turbo())
			assert.Equal(t, tt.load, v.CargoLoad())
		})
	}
}

func TestFromDocument_KeepsStoredMaxSpeedOrDefault(t *testing.T) {
	v, err := FromDocument(models.VehicleDocument{ID: "t1", Kind: models.KindTruck, Model: "Scania", Color: "Blue", Capacity: 500})
	require.NoError(t, err)
	assert.Equal(t, "t1", v.ID())
	assert.Equal(t, DefaultTruckMaxSpeed, v.MaxSpeed())
}

func TestRehydrateFleet_SkipsBrokenDocuments(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	docs := []models.VehicleDocument{
		{ID: "a", Kind: models.KindCar, Model: "Gol", Color: "White"},
		{ID: "b", Kind: models.KindTruck, Model: "Volvo", Color: "Red", Capacity: 0},
		{ID: "c", Kind: "hovercraft", Model: "X", Color: "Y"},
		{ID: "a", Kind: models.KindSportsCar, Model: "Ferrari", Color: "Red"},
		{ID: "d", Kind: models.KindSportsCar, Model: "Porsche", Color: "Silver"},
	}

	fleet := RehydrateFleet(docs)
	require.Len(t, fleet, 2)
	assert.Equal(t, "a", fleet[0].ID())
	assert.Equal(t, KindCar, fleet[0].Kind())
	assert.Equal(t, "d", fleet[1].ID())

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 3, warnings)
}

func TestRehydrateHistory(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	live, err := NewMaintenanceRecord("2024-05-01", "Alignment", 80, "")
	require.NoError(t, err)

	entries := []any{
		live,
		models.MaintenanceDocument{Type: models.MaintenanceType, Date: "2023-02-10", ServiceType: "Oil Change", Cost: 150},
		&models.MaintenanceDocument{Type: models.MaintenanceType, Date: "2024-01-20", ServiceType: "Tires", Cost: 900},
		map[string]any{"_type": "maintenance", "date": "2022-07-07", "type": "Brakes", "cost": "320.5", "description": " pads "},
		map[string]any{"_type": "maintenance", "date": "2021-01-01", "type": "Battery", "cost": 450},

		// malformed: logged and dropped
		models.MaintenanceDocument{Type: models.MaintenanceType, Date: "not a date", ServiceType: "Oil Change", Cost: 10},
		map[string]any{"_type": "maintenance", "date": "2024-01-01", "type": "Wash", "cost": "cheap"},
		map[string]any{"_type": "maintenance", "date": "2024-01-01", "type": "", "cost": -1},

		// not maintenance entries: dropped silently
		map[string]any{"_type": "fuel", "date": "2024-01-01", "type": "Diesel", "cost": 300},
		models.MaintenanceDocument{Date: "2024-01-01", ServiceType: "Untagged", Cost: 1},
		(*models.MaintenanceDocument)(nil),
		(*MaintenanceRecord)(nil),
		"oil change",
		42,
		nil,
	}

	history := RehydrateHistory(entries)
	require.Len(t, history, 5)
	assert.Same(t, live, history[0])
	assert.Equal(t, "Tires", history[1].ServiceType())
	assert.Equal(t, "Oil Change", history[2].ServiceType())
	assert.Equal(t, "Brakes", history[3].ServiceType())
	assert.Equal(t, 320.5, history[3].Cost())
	assert.Equal(t, "pads", history[3].Description())
	assert.Equal(t, "Battery", history[4].ServiceType())

	assert.Len(t, hook.AllEntries(), 3)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, e.Level)
	}
}
