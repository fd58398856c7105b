package db

import (
	"context"
	"errors"

	"github.com/ukydev/garage/internal/models"
)

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrUserNotFound    = errors.New("user not found")
	errNilCollection   = errors.New("mongo collection is nil")
)

// VehicleCollection defines the storage operations for the garage fleet.
type VehicleCollection interface {
	// ReplaceFleet stores docs as the complete fleet, removing vehicles not in it.
	ReplaceFleet(ctx context.Context, docs []models.VehicleDocument) error
	FindVehicles(ctx context.Context) ([]models.VehicleDocument, error)
	FindVehicleByID(ctx context.Context, id string) (*models.VehicleDocument, error)
	DeleteVehicle(ctx context.Context, id string) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
