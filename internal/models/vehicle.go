package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// VehicleStatus tracks availability of a vehicle for new trips.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "DISPONIBLE"
	VehicleOnTrip      VehicleStatus = "EN_VIAJE"
	VehicleMaintenance VehicleStatus = "MANTENIMIENTO"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Plate     string             `bson:"plate" json:"placa"`
	Make      string             `bson:"make" json:"marca"`
	Model     string             `bson:"model" json:"modelo"`
	Year      int                `bson:"year" json:"anio"`
	Status    VehicleStatus      `bson:"status" json:"estado"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// DriverPayMode is how a driver is compensated.
type DriverPayMode string

const (
	PayPerTrip DriverPayMode = "POR_VIAJE"
	PayMonthly DriverPayMode = "MENSUAL"
)

// Driver is a vehicle operator.
type Driver struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"nombre"`
	License   string             `bson:"license" json:"licencia"`
	PayMode   DriverPayMode      `bson:"pay_mode" json:"modalidadPago"`
	Salary    float64            `bson:"salary,omitempty" json:"sueldo,omitempty"`
	Active    bool               `bson:"active" json:"activo"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Client is the party billed for trips.
type Client struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"nombre"`
	TaxID      string             `bson:"tax_id" json:"ruc"`
	CreditDays int                `bson:"credit_days" json:"diasCredito"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
