package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleAuditor Role = "AUDITOR"
)

// Actions checked by HasPermission
const (
	ActionViewTrips   = "view_trips"
	ActionWriteTrips  = "write_trips"
	ActionViewReports = "view_reports"
	ActionViewAudit   = "view_audit"
	ActionManageUsers = "manage_users"
)

// User represents a user in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"rol"`
	FirstName    string             `bson:"first_name" json:"nombre"`
	LastName     string             `bson:"last_name" json:"apellido"`
	IsActive     bool               `bson:"is_active" json:"activo"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"ultimoAcceso,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"usuario"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleAuditor:
		return true
	default:
		return false
	}
}

// CanWrite reports whether the role may issue mutating calls.
func (r Role) CanWrite() bool {
	return r == RoleAdmin
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		// the audit log is reserved to auditors
		return action != ActionViewAudit
	case RoleAuditor:
		return action == ActionViewTrips || action == ActionViewReports || action == ActionViewAudit
	default:
		return false
	}
}
