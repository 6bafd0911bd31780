package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpenseType classifies an operational cost incurred during a trip.
type ExpenseType string

const (
	ExpenseFuel    ExpenseType = "COMBUSTIBLE"
	ExpenseToll    ExpenseType = "PEAJE"
	ExpenseFood    ExpenseType = "ALIMENTACION"
	ExpenseLodging ExpenseType = "HOSPEDAJE"
	ExpenseFine    ExpenseType = "MULTA"
	ExpenseOther   ExpenseType = "OTRO"
)

// IsValidExpenseType checks if an expense type is known
func IsValidExpenseType(t ExpenseType) bool {
	switch t {
	case ExpenseFuel, ExpenseToll, ExpenseFood, ExpenseLodging, ExpenseFine, ExpenseOther:
		return true
	default:
		return false
	}
}

// Expense (gasto de viaje) is owned by exactly one trip and never edited after creation.
type Expense struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TripID        int64              `json:"viajeId" bson:"trip_id"`
	Type          ExpenseType        `json:"tipo" bson:"type"`
	Amount        float64            `json:"monto" bson:"amount"`
	Date          time.Time          `json:"fecha" bson:"date"`
	PaymentMethod string             `json:"metodoPago" bson:"payment_method"` // "EFECTIVO", "TRANSFERENCIA", "TARJETA"
	Description   string             `json:"descripcion,omitempty" bson:"description"`
	ReceiptPath   string             `json:"comprobante,omitempty" bson:"receipt_path,omitempty"`
	CreatedBy     string             `json:"creadoPor,omitempty" bson:"created_by"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
}

// ExpenseRequest is the body accepted when an expense is registered.
type ExpenseRequest struct {
	Type          ExpenseType `json:"tipo"`
	Amount        float64     `json:"monto"`
	Date          *time.Time  `json:"fecha"`
	PaymentMethod string      `json:"metodoPago"`
	Description   string      `json:"descripcion,omitempty"`
}
