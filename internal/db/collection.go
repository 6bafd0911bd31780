package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-ops/internal/models"
)

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTripByID(ctx context.Context, id int64) (*models.Trip, error)
	FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error)
	// TransitionTrip applies set only if the trip is still in one of the from states.
	TransitionTrip(ctx context.Context, id int64, from []models.TripStatus, set TripUpdate) (*models.Trip, error)
	// ApplyClientPayment sets the new paid amount only if the stored amount still equals previous.
	ApplyClientPayment(ctx context.Context, id int64, previous, paid float64, status models.PaymentStatus) (*models.Trip, error)
}

// TripUpdate lists the fields a lifecycle transition may change.
type TripUpdate struct {
	Status        models.TripStatus
	ActualArrival *time.Time
	ActualKm      *float64
}

// ExpenseCollection defines the interface for trip expense operations.
type ExpenseCollection interface {
	InsertExpense(ctx context.Context, expense *models.Expense) error
	FindExpensesByTrip(ctx context.Context, tripID int64) ([]models.Expense, error)
}

// DriverPaymentCollection defines the interface for driver payment operations.
type DriverPaymentCollection interface {
	InsertDriverPayment(ctx context.Context, payment *models.DriverPayment) error
	FindDriverPayments(ctx context.Context, filter models.DriverPaymentFilter) ([]models.DriverPayment, error)
	MarkDriverPaymentPaid(ctx context.Context, id string, at time.Time) (*models.DriverPayment, error)
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	SetVehicleStatus(ctx context.Context, id string, status models.VehicleStatus) error
}

// AuditCollection defines the interface for audit log operations.
type AuditCollection interface {
	InsertAudit(ctx context.Context, entry models.AuditEntry) error
	FindAudit(ctx context.Context, page, limit int) ([]models.AuditEntry, int64, error)
}

// ReportSource provides the raw data behind reports and alerts.
type ReportSource interface {
	ReceivableTrips(ctx context.Context) ([]models.Trip, error)
	ClientNames(ctx context.Context) (map[string]string, error)
	AlertCounts(ctx context.Context, now time.Time, dueSoon time.Duration) (models.AlertSummary, error)
}
