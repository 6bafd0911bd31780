package middleware

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/auth"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/respond"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	UserContextKey contextKey = "user"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates JWT tokens and adds user context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.authService.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Sesión no válida, inicie sesión nuevamente")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			msg := "Sesión no válida, inicie sesión nuevamente"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "La sesión expiró, inicie sesión nuevamente"
			}
			respond.Error(w, http.StatusUnauthorized, msg)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission middleware checks if the user has the required permission
func (m *AuthMiddleware) RequirePermission(requiredAction string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "Sesión no válida, inicie sesión nuevamente")
				return
			}

			user := &models.User{Role: claims.Role}
			if !user.HasPermission(requiredAction) {
				log.WithFields(log.Fields{
					"user":   claims.Username,
					"role":   claims.Role,
					"action": requiredAction,
					"path":   r.URL.Path,
				}).Warn("Permission denied")
				respond.Error(w, http.StatusForbidden, "No tiene permisos para realizar esta acción")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWrite allows only roles that may mutate data.
func (m *AuthMiddleware) RequireWrite(next http.Handler) http.Handler {
	return m.RequirePermission(models.ActionWriteTrips)(next)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}
