package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverPaymentStatus is independent of the linked trip's status.
type DriverPaymentStatus string

const (
	DriverPaymentPending DriverPaymentStatus = "PENDIENTE"
	DriverPaymentPaid    DriverPaymentStatus = "PAGADO"
)

// DriverPaymentFilter narrows driver payment listings.
type DriverPaymentFilter struct {
	TripID   *int64
	DriverID string
	Status   DriverPaymentStatus
}

// DriverPayment (pago a chofer) is a full or partial payment made to a driver.
// TripID is nil for monthly or advance payments.
type DriverPayment struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	DriverID      string              `json:"choferId" bson:"driver_id"`
	TripID        *int64              `json:"viajeId,omitempty" bson:"trip_id,omitempty"`
	Amount        float64             `json:"monto" bson:"amount"`
	Date          time.Time           `json:"fecha" bson:"date"`
	Status        DriverPaymentStatus `json:"estado" bson:"status"`
	PaymentMethod string              `json:"metodoPago" bson:"payment_method"`
	Concept       string              `json:"concepto,omitempty" bson:"concept"`
	ReceiptPath   string              `json:"comprobante,omitempty" bson:"receipt_path,omitempty"`
	PaidAt        *time.Time          `json:"fechaPago,omitempty" bson:"paid_at,omitempty"`
	CreatedBy     string              `json:"creadoPor,omitempty" bson:"created_by"`
	CreatedAt     time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updated_at"`
}

// LinkedTo reports whether the payment applies against the given trip.
func (p DriverPayment) LinkedTo(tripID int64) bool {
	return p.TripID != nil && *p.TripID == tripID
}

// DriverPaymentRequest is the body accepted when a driver payment is registered.
type DriverPaymentRequest struct {
	DriverID      string              `json:"choferId"`
	TripID        *int64              `json:"viajeId,omitempty"`
	Amount        float64             `json:"monto"`
	Date          *time.Time          `json:"fecha"`
	Status        DriverPaymentStatus `json:"estado"`
	PaymentMethod string              `json:"metodoPago"`
	Concept       string              `json:"concepto,omitempty"`
}
