package models

import (
	"time"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripPlanned    TripStatus = "PLANIFICADO"
	TripInProgress TripStatus = "EN_CURSO"
	TripCompleted  TripStatus = "COMPLETADO"
	TripCancelled  TripStatus = "CANCELADO"
)

// IsTerminal reports whether no transition can leave the status.
func (s TripStatus) IsTerminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// AcceptsExpenses reports whether expenses may still be attached.
func (s TripStatus) AcceptsExpenses() bool {
	return s == TripPlanned || s == TripInProgress
}

// PaymentStatus is the client payment status of a trip.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDIENTE"
	PaymentPartial PaymentStatus = "PARCIAL"
	PaymentPaid    PaymentStatus = "PAGADO"
)

// Trip represents one transport job from origin to destination.
type Trip struct {
	ID               int64         `json:"id" bson:"_id"`
	Origin           string        `json:"origen" bson:"origin"`
	Destination      string        `json:"destino" bson:"destination"`
	VehicleID        string        `json:"vehiculoId" bson:"vehicle_id"`
	DriverID         string        `json:"choferId" bson:"driver_id"`
	ClientID         string        `json:"clienteId" bson:"client_id"`
	MaterialID       string        `json:"materialId,omitempty" bson:"material_id,omitempty"`
	DepartureAt      time.Time     `json:"fechaSalida" bson:"departure_at"`
	EstimatedArrival *time.Time    `json:"fechaLlegadaEstimada,omitempty" bson:"estimated_arrival,omitempty"`
	ActualArrival    *time.Time    `json:"fechaLlegadaReal,omitempty" bson:"actual_arrival,omitempty"`
	EstimatedKm      *float64      `json:"kilometrosEstimados,omitempty" bson:"estimated_km,omitempty"`
	ActualKm         *float64      `json:"kilometrosReales,omitempty" bson:"actual_km,omitempty"`
	Tariff           float64       `json:"tarifa" bson:"tariff"`
	CreditDays       int           `json:"diasCredito" bson:"credit_days"`
	PaymentDueAt     time.Time     `json:"fechaVencimientoPago" bson:"payment_due_at"`
	AmountPaid       float64       `json:"montoPagadoCliente" bson:"amount_paid"`
	PaymentStatus    PaymentStatus `json:"estadoPagoCliente" bson:"payment_status"`
	DriverPayAmount  *float64      `json:"montoPagoChofer,omitempty" bson:"driver_pay_amount,omitempty"`
	Status           TripStatus    `json:"estado" bson:"status"`
	Notes            string        `json:"observaciones,omitempty" bson:"notes"`
	CreatedBy        string        `json:"creadoPor,omitempty" bson:"created_by"`
	CreatedAt        time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time     `json:"updatedAt" bson:"updated_at"`
}

// CreateTripRequest is the body accepted when a trip is created.
type CreateTripRequest struct {
	Origin           string     `json:"origen"`
	Destination      string     `json:"destino"`
	VehicleID        string     `json:"vehiculoId"`
	DriverID         string     `json:"choferId"`
	ClientID         string     `json:"clienteId"`
	MaterialID       string     `json:"materialId,omitempty"`
	DepartureAt      *time.Time `json:"fechaSalida"`
	EstimatedArrival *time.Time `json:"fechaLlegadaEstimada,omitempty"`
	EstimatedKm      *float64   `json:"kilometrosEstimados,omitempty"`
	Tariff           float64    `json:"tarifa"`
	CreditDays       int        `json:"diasCredito"`
	DriverPayAmount  *float64   `json:"montoPagoChofer,omitempty"`
	Notes            string     `json:"observaciones,omitempty"`
}

// CompleteTripRequest carries the data collected when a trip is completed.
type CompleteTripRequest struct {
	ActualArrival *time.Time `json:"fechaLlegadaReal"`
	ActualKm      *float64   `json:"kilometrosReales"`
}

// PaymentRequest registers a client payment against a trip.
type PaymentRequest struct {
	Amount float64 `json:"monto"`
}

// TripFilter narrows trip listings.
type TripFilter struct {
	Status   TripStatus
	ClientID string
	DriverID string
	Search   string
	Page     int
	Limit    int
}

// DerivePaymentStatus maps the amount paid against the tariff.
func DerivePaymentStatus(paid, tariff float64) PaymentStatus {
	switch {
	case paid <= 0:
		return PaymentPending
	case paid >= tariff:
		return PaymentPaid
	default:
		return PaymentPartial
	}
}

// DueDate returns departure plus the credit days.
func DueDate(departure time.Time, creditDays int) time.Time {
	return departure.AddDate(0, 0, creditDays)
}
