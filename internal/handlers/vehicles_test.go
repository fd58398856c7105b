package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/garage/internal/fleet"
	"github.com/ukydev/garage/internal/garage"
	"github.com/ukydev/garage/internal/middleware"
	"github.com/ukydev/garage/internal/models"
	"github.com/ukydev/garage/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	fleet   *fleet.Fleet
	tokens  map[models.Role]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	authService := newAuthService(t)
	recorder := notify.NewRecorder(50)
	f := fleet.New(nil, recorder)

	api := &testAPI{
		t:      t,
		fleet:  f,
		tokens: map[models.Role]string{},
		handler: NewRouter(
			NewAuthHandler(authService, new(MockUserCollection)),
			NewVehicleHandler(f, recorder),
			middleware.NewAuthMiddleware(authService),
			nil,
		),
	}
	for _, role := range []models.Role{models.RoleOwner, models.RoleMechanic, models.RoleViewer} {
		token, err := authService.GenerateToken(&models.User{ID: primitive.NewObjectID(), Username: string(role), Role: role})
		require.NoError(t, err)
		api.tokens[role] = token
	}
	return api
}

func (a *testAPI) do(role models.Role, method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		r = jsonBody(a.t, b)
	}
	req := httptest.NewRequest(method, path, r)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[role])
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) create(req models.CreateVehicleRequest) garage.Summary {
	a.t.Helper()
	w := a.do(models.RoleOwner, "POST", "/api/vehicles", req)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[garage.Summary](a.t, w)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := api.do("", "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestVehicleHandler_CreateAndList(t *testing.T) {
	api := newTestAPI(t)

	car := api.create(models.CreateVehicleRequest{Kind: models.KindCar, Model: "Civic", Color: "Silver"})
	assert.Equal(t, garage.KindCar, car.Kind)
	assert.Equal(t, 180.0, car.MaxSpeed)
	assert.NotEmpty(t, car.ID)

	truck := api.create(models.CreateVehicleRequest{
		Kind: models.KindTruck, Model: "FH16", Color: "Blue", CargoCapacity: 1000, CargoLoad: 250,
	})
	require.NotNil(t, truck.CargoLoad)
	assert.Equal(t, 250.0, *truck.CargoLoad)

	w := api.do(models.RoleViewer, "GET", "/api/vehicles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]garage.Summary](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, car.ID, list[0].ID)

	w = api.do(models.RoleViewer, "GET", "/api/vehicles/"+truck.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FH16", decode[garage.Summary](t, w).Model)
}

func TestVehicleHandler_CreateValidation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body any
	}{
		{"bad json", "{"},
		{"unknown kind", models.CreateVehicleRequest{Kind: "boat", Model: "Jet", Color: "Blue"}},
		{"missing model", models.CreateVehicleRequest{Kind: models.KindCar, Color: "Blue"}},
		{"truck without capacity", models.CreateVehicleRequest{Kind: models.KindTruck, Model: "FH", Color: "Blue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(models.RoleOwner, "POST", "/api/vehicles", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, api.fleet.List())
}

func TestVehicleHandler_Permissions(t *testing.T) {
	api := newTestAPI(t)
	car := api.create(models.CreateVehicleRequest{Kind: models.KindCar, Model: "Civic", Color: "Silver"})

	assert.Equal(t, http.StatusUnauthorized, api.do("", "GET", "/api/vehicles", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(models.RoleMechanic, "POST", "/api/vehicles",
		models.CreateVehicleRequest{Kind: models.KindCar, Model: "Gol", Color: "White"}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(models.RoleViewer, "POST", "/api/vehicles/"+car.ID+"/commands/turn_on", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(models.RoleViewer, "POST", "/api/vehicles/"+car.ID+"/maintenance",
		models.MaintenanceRequest{Date: "2024-03-15", ServiceType: "Oil Change", Cost: 150}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(models.RoleMechanic, "DELETE", "/api/vehicles/"+car.ID, nil).Code)
}

func TestVehicleHandler_Commands(t *testing.T) {
	api := newTestAPI(t)
	car := api.create(models.CreateVehicleRequest{Kind: models.KindCar, Model: "Civic", Color: "Silver"})
	base := "/api/vehicles/" + car.ID + "/commands/"

	w := api.do(models.RoleMechanic, "POST", base+"accelerate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[fleet.Result](t, w)
	assert.False(t, res.Success)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, garage.SeverityWarning, res.Notices[0].Severity)

	w = api.do(models.RoleMechanic, "POST", base+"turn_on", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[fleet.Result](t, w).Success)

	w = api.do(models.RoleMechanic, "POST", base+"accelerate", map[string]any{"value": 42})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[fleet.Result](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, 42.0, res.Vehicle.Speed)
	assert.Equal(t, garage.StatusMoving, res.Vehicle.Status)

	assert.Equal(t, http.StatusUnprocessableEntity, api.do(models.RoleMechanic, "POST", base+"turbo_on", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(models.RoleMechanic, "POST", base+"fly", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(models.RoleMechanic, "POST", "/api/vehicles/nope/commands/honk", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(models.RoleMechanic, "POST", base+"brake", "{").Code)

	w = api.do(models.RoleViewer, "GET", "/api/notices?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notices := decode[[]notify.Notice](t, w)
	require.Len(t, notices, 1)
	assert.Equal(t, car.ID, notices[0].VehicleID)

	assert.Equal(t, http.StatusBadRequest, api.do(models.RoleViewer, "GET", "/api/notices?limit=zero", nil).Code)
}

func TestVehicleHandler_SelectAndDelete(t *testing.T) {
	api := newTestAPI(t)
	car := api.create(models.CreateVehicleRequest{Kind: models.KindCar, Model: "Civic", Color: "Silver"})

	assert.Equal(t, http.StatusNotFound, api.do(models.RoleViewer, "GET", "/api/vehicles/selected", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(models.RoleViewer, "POST", "/api/vehicles/nope/select", nil).Code)

	w := api.do(models.RoleViewer, "POST", "/api/vehicles/"+car.ID+"/select", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(models.RoleViewer, "GET", "/api/vehicles/selected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, car.ID, decode[garage.Summary](t, w).ID)

	assert.Equal(t, http.StatusNoContent, api.do(models.RoleOwner, "DELETE", "/api/vehicles/"+car.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(models.RoleOwner, "DELETE", "/api/vehicles/"+car.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(models.RoleViewer, "GET", "/api/vehicles/"+car.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(models.RoleViewer, "GET", "/api/vehicles/selected", nil).Code)
}

func TestVehicleHandler_Maintenance(t *testing.T) {
	api := newTestAPI(t)
	car := api.create(models.CreateVehicleRequest{Kind: models.KindCar, Model: "Civic", Color: "Silver"})
	path := "/api/vehicles/" + car.ID + "/maintenance"

	w := api.do(models.RoleMechanic, "POST", path, models.MaintenanceRequest{
		Date: "2024-03-15", ServiceType: "Oil Change", Cost: 150, Description: "synthetic oil",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[garage.Summary](t, w).PastMaintenance)

	w = api.do(models.RoleMechanic, "POST", path, models.MaintenanceRequest{Date: "yesterday", ServiceType: "", Cost: -1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "service type must not be empty")
	assert.Contains(t, w.Body.String(), "cost must not be negative")

	w = api.do(models.RoleMechanic, "POST", path+"/import", `[
		{"_type": "maintenance", "date": "3000-06-01", "type": "Inspection", "cost": 0},
		{"_type": "maintenance", "date": "2023-01-10", "type": "Brakes", "cost": "300"},
		{"_type": "reminder", "date": "2023-01-10"},
		42
	]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	imported := decode[struct {
		Received int            `json:"received"`
		Imported int            `json:"imported"`
		Vehicle  garage.Summary `json:"vehicle"`
	}](t, w)
	assert.Equal(t, 4, imported.Received)
	assert.Equal(t, 2, imported.Imported)
	assert.Equal(t, 1, imported.Vehicle.ScheduledMaintenance)

	assert.Equal(t, http.StatusBadRequest, api.do(models.RoleMechanic, "POST", path+"/import", `{"not": "an array"}`).Code)

	w = api.do(models.RoleViewer, "GET", path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]models.MaintenanceView](t, w)
	require.Len(t, views, 3)
	assert.Equal(t, "Inspection", views[0].ServiceType)
	assert.True(t, views[0].Scheduled)
	assert.Equal(t, "15/03/2024 - Oil Change (R$ 150,00) - Desc: synthetic oil", views[1].Formatted)
	assert.Equal(t, "2023-01-10", views[2].Date)

	assert.Equal(t, http.StatusNotFound, api.do(models.RoleViewer, "GET", "/api/vehicles/nope/maintenance", nil).Code)
}
