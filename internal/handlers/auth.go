package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/auth"
	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/middleware"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/respond"
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
	if !decodeJSON(w, r, &loginReq) {
		return
	}

	loginReq.Username = strings.TrimSpace(loginReq.Username)
	var v []models.FieldError
	if loginReq.Username == "" {
		v = append(v, models.FieldError{Field: "username", Message: "El usuario es obligatorio"})
	}
	if loginReq.Password == "" {
		v = append(v, models.FieldError{Field: "password", Message: "La contraseña es obligatoria"})
	}
	if len(v) > 0 {
		respond.Invalid(w, v[0].Message, v)
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Error("Failed to look up user")
		}
		respond.Error(w, http.StatusUnauthorized, "Usuario o contraseña incorrectos")
		return
	}

	switch err := h.authService.Authenticate(user, loginReq.Password); {
	case errors.Is(err, auth.ErrUserInactive):
		respond.Error(w, http.StatusUnauthorized, "La cuenta está desactivada")
		return
	case err != nil:
		log.WithFields(log.Fields{"username": loginReq.Username, "ip": middleware.ClientIP(r)}).Warn("Failed login attempt")
		respond.Error(w, http.StatusUnauthorized, "Usuario o contraseña incorrectos")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		log.WithError(err).Error("Failed to generate token")
		respond.Error(w, http.StatusInternalServerError, "No se pudo iniciar sesión")
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}
	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("User logged in")

	respond.Data(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sesión no válida, inicie sesión nuevamente")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Data(w, http.StatusOK, user)
}
