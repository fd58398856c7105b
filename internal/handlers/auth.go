package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/auth"
	"github.com/ukydev/garage/internal/db"
	"github.com/ukydev/garage/internal/middleware"
	"github.com/ukydev/garage/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(w, r, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	logger := middleware.LoggerFromContext(r.Context()).WithField("username", loginReq.Username)
	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			logger.WithError(err).Error("Failed to look up user")
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		logger.Warn("Failed login attempt")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		logger.WithError(err).Error("Failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		logger.WithError(err).Error("Failed to update last login")
	}

	writeJSON(w, r, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Register handles user registration. Anyone may register as a viewer;
// mechanics and owners can only be created by an owner.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(w, r, &registerReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if registerReq.Role == "" {
		registerReq.Role = models.RoleViewer
	}

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(registerReq.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}
	if registerReq.Role != models.RoleViewer && !h.callerMayManageUsers(r) {
		http.Error(w, "Only an owner can create this role", http.StatusForbidden)
		return
	}

	if _, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username); err == nil {
		http.Error(w, "Username already exists", http.StatusConflict)
		return
	}
	if _, err := h.userCollection.FindUserByEmail(r.Context(), registerReq.Email); err == nil {
		http.Error(w, "Email already exists", http.StatusConflict)
		return
	}

	user, err := h.createUser(r.Context(), registerReq)
	if err != nil {
		middleware.LoggerFromContext(r.Context()).WithError(err).Error("Failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusCreated, models.LoginResponse{Token: token, User: *user})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, user)
}

// EnsureOwner creates the owner account if no user has that username yet.
func (h *AuthHandler) EnsureOwner(ctx context.Context, username, email, password string) error {
	_, err := h.userCollection.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return fmt.Errorf("look up owner: %w", err)
	}

	req := models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		FullName: "Garage owner",
		Role:     models.RoleOwner,
	}
	for _, validate := range []func() error{
		func() error { return h.authService.ValidateUsername(req.Username) },
		func() error { return h.authService.ValidateEmail(req.Email) },
		func() error { return h.authService.ValidatePassword(req.Password) },
	} {
		if err := validate(); err != nil {
			return fmt.Errorf("owner account: %w", err)
		}
	}
	if _, err := h.createUser(ctx, req); err != nil {
		return err
	}
	log.WithField("username", username).Info("Created owner account")
	return nil
}

func (h *AuthHandler) createUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		FullName:     strings.TrimSpace(req.FullName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.userCollection.InsertUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// callerMayManageUsers checks the optional bearer token on a public route.
func (h *AuthHandler) callerMayManageUsers(r *http.Request) bool {
	token, err := h.authService.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return false
	}
	claims, err := h.authService.ValidateToken(token)
	return err == nil && claims.Role.HasPermission(models.ActionManageUsers)
}
