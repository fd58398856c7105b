package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/fleet"
	"github.com/ukydev/garage/internal/garage"
	"github.com/ukydev/garage/internal/models"
)

// Catalogue of models per kind
var catalogue = map[models.VehicleKind][]string{
	models.KindCar:       {"Civic", "Corolla", "Gol", "Onix", "Golf"},
	models.KindSportsCar: {"911", "Supra", "M4", "Huracan", "GT-R"},
	models.KindTruck:     {"FH16", "Actros", "Axor", "Constellation", "Scania R"},
}

var colors = []string{"Black", "White", "Silver", "Red", "Blue", "Yellow"}

var services = []string{"Oil Change", "Tire Rotation", "Brake Pads", "Alignment", "Inspection"}

var authToken string

var httpClient = &http.Client{Timeout: 10 * time.Second}

func authorizedPost(url string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	return httpClient.Do(req)
}

func randomVehicle(rng *rand.Rand) models.CreateVehicleRequest {
	kinds := []models.VehicleKind{models.KindCar, models.KindSportsCar, models.KindTruck}
	kind := kinds[rng.Intn(len(kinds))]
	req := models.CreateVehicleRequest{
		Kind:  kind,
		Model: catalogue[kind][rng.Intn(len(catalogue[kind]))],
		Color: colors[rng.Intn(len(colors))],
	}
	if kind == models.KindTruck {
		req.CargoCapacity = float64(5000 + 1000*rng.Intn(20)) // 5t-24t
	}
	return req
}

func createVehicle(apiURL string, req models.CreateVehicleRequest) (garage.Summary, error) {
	resp, err := authorizedPost(apiURL+"/vehicles", req)
	if err != nil {
		return garage.Summary{}, fmt.Errorf("failed to create vehicle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return garage.Summary{}, fmt.Errorf("vehicle creation failed with status: %d", resp.StatusCode)
	}

	var summary garage.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return garage.Summary{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if summary.ID == "" {
		return garage.Summary{}, fmt.Errorf("invalid vehicle ID in response")
	}

	log.WithFields(log.Fields{
		"vehicle_id": summary.ID,
		"kind":       summary.Kind,
		"model":      summary.Model,
	}).Info("Created vehicle")
	return summary, nil
}

// nextCommand picks a plausible next move for a driver looking at v.
func nextCommand(rng *rand.Rand, v garage.Summary) (fleet.Command, *float64) {
	amount := func(lo, hi int) *float64 {
		x := float64(lo + rng.Intn(hi-lo+1))
		return &x
	}
	roll := rng.Intn(100)

	switch v.Status {
	case garage.StatusOff:
		switch {
		case v.Kind == garage.KindTruck && roll < 30:
			return fleet.CmdLoad, amount(100, 2000)
		case v.Kind == garage.KindTruck && roll < 45:
			return fleet.CmdUnload, amount(100, 2000)
		case roll < 90:
			return fleet.CmdTurnOn, nil
		default:
			return fleet.CmdHonk, nil
		}
	case garage.StatusIdle:
		switch {
		case roll < 70:
			return fleet.CmdAccelerate, amount(10, 40)
		case roll < 90:
			return fleet.CmdTurnOff, nil
		default:
			return fleet.CmdHonk, nil
		}
	default:
		switch {
		case v.Kind == garage.KindSportsCar && v.Turbo != nil && !*v.Turbo && roll < 15:
			return fleet.CmdTurboOn, nil
		case roll < 50:
			return fleet.CmdAccelerate, amount(5, 30)
		case roll < 95:
			return fleet.CmdBrake, amount(10, 40)
		default:
			return fleet.CmdHonk, nil
		}
	}
}

func sendCommand(apiURL, vehicleID string, cmd fleet.Command, value *float64) (*fleet.Result, error) {
	url := fmt.Sprintf("%s/vehicles/%s/commands/%s", apiURL, vehicleID, cmd)
	resp, err := authorizedPost(url, models.CommandRequest{Value: value})
	if err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("command %s failed with status: %d", cmd, resp.StatusCode)
	}
	var res fleet.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &res, nil
}

func randomMaintenance(rng *rand.Rand, now time.Time) models.MaintenanceRequest {
	// mostly past services, some scheduled ahead
	days := rng.Intn(400) - 330
	return models.MaintenanceRequest{
		Date:        now.AddDate(0, 0, days).Format("2006-01-02"),
		ServiceType: services[rng.Intn(len(services))],
		Cost:        float64(50+rng.Intn(1500)) + float64(rng.Intn(100))/100,
	}
}

func logMaintenance(apiURL, vehicleID string, rec models.MaintenanceRequest) error {
	resp, err := authorizedPost(apiURL+"/vehicles/"+vehicleID+"/maintenance", rec)
	if err != nil {
		return fmt.Errorf("failed to log maintenance: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("maintenance logging failed with status: %d", resp.StatusCode)
	}
	return nil
}

// step issues one command and returns the vehicle's new state.
func step(apiURL string, rng *rand.Rand, v garage.Summary) garage.Summary {
	cmd, value := nextCommand(rng, v)
	res, err := sendCommand(apiURL, v.ID, cmd, value)
	if err != nil {
		log.WithError(err).WithField("vehicle_id", v.ID).Error("Command failed")
		return v
	}

	entry := log.WithFields(log.Fields{
		"vehicle_id": v.ID,
		"command":    cmd,
		"success":    res.Success,
		"speed":      res.Vehicle.Speed,
	})
	if value != nil {
		entry = entry.WithField("value", *value)
	}
	for _, n := range res.Notices {
		entry = entry.WithField("notice", n.Message)
	}
	entry.Info("Sent command")
	return res.Vehicle
}

func simulateVehicle(apiURL string, v garage.Summary, interval time.Duration, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		v = step(apiURL, rng, v)
		if rng.Intn(50) == 0 {
			if err := logMaintenance(apiURL, v.ID, randomMaintenance(rng, time.Now())); err != nil {
				log.WithError(err).WithField("vehicle_id", v.ID).Error("Failed to log maintenance")
			}
		}
	}
}

func main() {
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	fleetSize := 5
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting garage simulation")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	vehicles := make([]garage.Summary, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		v, err := createVehicle(apiURL, randomVehicle(rng))
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		vehicles = append(vehicles, v)
	}

	log.WithField("created_vehicles", len(vehicles)).Info("Vehicle creation completed")
	if len(vehicles) == 0 {
		log.Error("No vehicles created. Ensure SIM_AUTH_TOKEN belongs to an owner and the API is reachable. Exiting.")
		time.Sleep(2 * time.Second)
		return
	}

	for _, v := range vehicles {
		go simulateVehicle(apiURL, v, interval, rng.Int63())
	}

	log.Info("Driver simulation started")
	select {} // Block forever
}
