package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CarteraRow is one client line of the accounts-receivable aging report.
// Buckets split the outstanding balance by days past the payment due date:
// not yet due, 1-30, 31-60 and more than 60.
type CarteraRow struct {
	ClientID    string  `json:"clienteId" bson:"_id"`
	ClientName  string  `json:"cliente" bson:"client_name"`
	Trips       int     `json:"viajes" bson:"trips"`
	Billed      float64 `json:"facturado" bson:"billed"`
	Collected   float64 `json:"cobrado" bson:"collected"`
	Outstanding float64 `json:"saldo" bson:"outstanding"`
	Current     float64 `json:"porVencer" bson:"current"`
	Overdue30   float64 `json:"vencido1a30" bson:"overdue_30"`
	Overdue60   float64 `json:"vencido31a60" bson:"overdue_60"`
	Overdue61   float64 `json:"vencido61Mas" bson:"overdue_61"`
}

// CarteraReport is the cartera payload with its footer totals.
type CarteraReport struct {
	GeneratedAt time.Time    `json:"generadoEn"`
	Rows        []CarteraRow `json:"filas"`
	Totals      CarteraRow   `json:"totales"`
}

// AlertSummary holds the counts rendered by the alerts widget.
type AlertSummary struct {
	OverduePayments    int `json:"pagosVencidos"`
	DueSoonPayments    int `json:"pagosPorVencer"`
	PendingDriverPay   int `json:"pagosChoferPendientes"`
	TripsInProgress    int `json:"viajesEnCurso"`
	VehiclesInShop     int `json:"vehiculosEnMantenimiento"`
	PlannedOverdueTrip int `json:"viajesPlanificadosAtrasados"`
}

// Total returns the sum of every alert count.
func (a AlertSummary) Total() int {
	return a.OverduePayments + a.DueSoonPayments + a.PendingDriverPay +
		a.TripsInProgress + a.VehiclesInShop + a.PlannedOverdueTrip
}

// AuditEntry records one mutating action.
type AuditEntry struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"usuarioId" bson:"user_id"`
	Username  string             `json:"usuario" bson:"username"`
	Action    string             `json:"accion" bson:"action"`
	Entity    string             `json:"entidad" bson:"entity"`
	EntityID  string             `json:"entidadId" bson:"entity_id"`
	Detail    string             `json:"detalle,omitempty" bson:"detail,omitempty"`
	IP        string             `json:"ip" bson:"ip"`
	CreatedAt time.Time          `json:"fecha" bson:"created_at"`
}
