package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the garage
type Role string

const (
	RoleOwner    Role = "owner"
	RoleMechanic Role = "mechanic"
	RoleViewer   Role = "viewer"
)

// Actions checked by HasPermission.
const (
	ActionViewVehicles   = "view_vehicles"
	ActionDriveVehicles  = "drive_vehicles"
	ActionManageVehicles = "manage_vehicles"
	ActionLogMaintenance = "log_maintenance"
	ActionManageUsers    = "manage_users"
)

// User represents a garage user. The password is only ever stored hashed.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	FullName     string             `bson:"full_name" json:"full_name"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// LoginResponse represents a successful login or registration
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims is the identity extracted from a validated token
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleOwner, RoleMechanic, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission reports whether the role allows action.
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleOwner:
		return true
	case RoleMechanic:
		return action == ActionViewVehicles || action == ActionDriveVehicles ||
			action == ActionLogMaintenance
	case RoleViewer:
		return action == ActionViewVehicles
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	return u.Role.HasPermission(action)
}
