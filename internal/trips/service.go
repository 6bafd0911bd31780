// Package trips owns the trip lifecycle on the server: state transitions,
// client payments, expenses and driver payments. Every write is
// re-validated against the stored state.
package trips

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/events"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/storage"
)

// paymentAttempts bounds the optimistic retries of a client payment.
const paymentAttempts = 3

// Actor identifies who performs a mutation.
type Actor struct {
	UserID   string
	Username string
	IP       string
}

// Receipt is an optional uploaded file.
type Receipt struct {
	Filename string
	Body     io.Reader
}

// Deps are the collaborators of the Service. Receipts and Events are optional.
type Deps struct {
	Trips          db.TripCollection
	Expenses       db.ExpenseCollection
	DriverPayments db.DriverPaymentCollection
	Vehicles       db.VehicleCollection
	Audit          db.AuditCollection
	Receipts       storage.ReceiptStore
	Events         events.Publisher
}

// Service implements the trip operations.
type Service struct {
	trips    db.TripCollection
	expenses db.ExpenseCollection
	payments db.DriverPaymentCollection
	vehicles db.VehicleCollection
	audit    db.AuditCollection
	receipts storage.ReceiptStore
	events   events.Publisher
	now      func() time.Time
}

// NewService creates a trip service.
func NewService(d Deps) *Service {
	pub := d.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		trips:    d.Trips,
		expenses: d.Expenses,
		payments: d.DriverPayments,
		vehicles: d.Vehicles,
		audit:    d.Audit,
		receipts: d.Receipts,
		events:   pub,
		now:      time.Now,
	}
}

// Create validates and stores a new PLANIFICADO trip.
func (s *Service) Create(ctx context.Context, actor Actor, req models.CreateTripRequest) (*models.Trip, error) {
	var v validator
	v.check(strings.TrimSpace(req.Origin) != "", "origen", "El origen es obligatorio")
	v.check(strings.TrimSpace(req.Destination) != "", "destino", "El destino es obligatorio")
	v.check(req.VehicleID != "", "vehiculoId", "El vehículo es obligatorio")
	v.check(req.DriverID != "", "choferId", "El chofer es obligatorio")
	v.check(req.ClientID != "", "clienteId", "El cliente es obligatorio")
	v.check(req.DepartureAt != nil && !req.DepartureAt.IsZero(), "fechaSalida", "La fecha de salida es obligatoria")
	v.check(validAmount(req.Tariff, true), "tarifa", "La tarifa debe ser un monto mayor o igual a cero")
	v.check(req.CreditDays >= 0, "diasCredito", "Los días de crédito no pueden ser negativos")
	if req.DriverPayAmount != nil {
		v.check(validAmount(*req.DriverPayAmount, true), "montoPagoChofer", "El pago al chofer debe ser mayor o igual a cero")
	}
	if req.EstimatedKm != nil {
		v.check(validAmount(*req.EstimatedKm, true), "kilometrosEstimados", "Los kilómetros estimados no pueden ser negativos")
	}
	if req.EstimatedArrival != nil && req.DepartureAt != nil {
		v.check(!req.EstimatedArrival.Before(*req.DepartureAt), "fechaLlegadaEstimada", "La llegada estimada no puede ser anterior a la salida")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	trip := &models.Trip{
		Origin:           strings.TrimSpace(req.Origin),
		Destination:      strings.TrimSpace(req.Destination),
		VehicleID:        req.VehicleID,
		DriverID:         req.DriverID,
		ClientID:         req.ClientID,
		MaterialID:       req.MaterialID,
		DepartureAt:      *req.DepartureAt,
		EstimatedArrival: req.EstimatedArrival,
		EstimatedKm:      req.EstimatedKm,
		Tariff:           req.Tariff,
		CreditDays:       req.CreditDays,
		PaymentDueAt:     models.DueDate(*req.DepartureAt, req.CreditDays),
		PaymentStatus:    models.PaymentPending,
		DriverPayAmount:  req.DriverPayAmount,
		Status:           models.TripPlanned,
		Notes:            req.Notes,
		CreatedBy:        actor.Username,
	}
	if err := s.trips.InsertTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}

	log.WithFields(log.Fields{"trip_id": trip.ID, "user": actor.Username}).Info("Trip created")
	s.record(ctx, actor, "CREAR", "viaje", tripRef(trip.ID), fmt.Sprintf("%s -> %s", trip.Origin, trip.Destination))
	s.publish(ctx, actor, "crear", "", trip)
	return trip, nil
}

// Get returns a trip by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Trip, error) {
	trip, err := s.trips.FindTripByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTripNotFound
	}
	return trip, err
}

// List returns one page of trips.
func (s *Service) List(ctx context.Context, filter models.TripFilter) ([]models.Trip, models.Page, error) {
	filter.Page, filter.Limit = db.NormalizePage(filter.Page, filter.Limit)
	trips, total, err := s.trips.FindTrips(ctx, filter)
	if err != nil {
		return nil, models.Page{}, err
	}
	return trips, models.NewPage(total, filter.Page, filter.Limit), nil
}

// Start moves a PLANIFICADO trip to EN_CURSO and marks its vehicle EN_VIAJE.
func (s *Service) Start(ctx context.Context, actor Actor, id int64) (*models.Trip, error) {
	trip, err := s.transition(ctx, actor, id, "iniciar",
		[]models.TripStatus{models.TripPlanned},
		db.TripUpdate{Status: models.TripInProgress})
	if err != nil {
		return nil, err
	}
	s.setVehicle(ctx, trip, models.VehicleOnTrip)
	return trip, nil
}

// Complete moves an EN_CURSO trip to COMPLETADO with its arrival data.
func (s *Service) Complete(ctx context.Context, actor Actor, id int64, req models.CompleteTripRequest) (*models.Trip, error) {
	var v validator
	v.check(req.ActualArrival != nil && !req.ActualArrival.IsZero(), "fechaLlegadaReal", "La fecha de llegada real es obligatoria")
	v.check(req.ActualKm != nil && validAmount(*req.ActualKm, false), "kilometrosReales", "Los kilómetros reales deben ser mayores a cero")
	if err := v.err(); err != nil {
		return nil, err
	}

	trip, err := s.transition(ctx, actor, id, "completar",
		[]models.TripStatus{models.TripInProgress},
		db.TripUpdate{Status: models.TripCompleted, ActualArrival: req.ActualArrival, ActualKm: req.ActualKm})
	if err != nil {
		return nil, err
	}
	s.setVehicle(ctx, trip, models.VehicleAvailable)
	return trip, nil
}

// Cancel moves a PLANIFICADO or EN_CURSO trip to CANCELADO.
func (s *Service) Cancel(ctx context.Context, actor Actor, id int64) (*models.Trip, error) {
	trip, err := s.transition(ctx, actor, id, "cancelar",
		[]models.TripStatus{models.TripPlanned, models.TripInProgress},
		db.TripUpdate{Status: models.TripCancelled})
	if err != nil {
		return nil, err
	}
	s.setVehicle(ctx, trip, models.VehicleAvailable)
	return trip, nil
}

func (s *Service) transition(ctx context.Context, actor Actor, id int64, action string, from []models.TripStatus, set db.TripUpdate) (*models.Trip, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !containsStatus(from, current.Status) {
		return nil, fmt.Errorf("%w: no se puede %s un viaje %s", ErrInvalidTransition, action, current.Status)
	}

	trip, err := s.trips.TransitionTrip(ctx, id, from, set)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil, ErrTripNotFound
	case errors.Is(err, db.ErrConflict):
		// another request changed the state after the read above
		return nil, fmt.Errorf("%w: el viaje cambió de estado, recargue e intente nuevamente", ErrInvalidTransition)
	case err != nil:
		return nil, fmt.Errorf("%s trip %d: %w", action, id, err)
	}

	log.WithFields(log.Fields{
		"trip_id": id,
		"from":    current.Status,
		"to":      trip.Status,
		"user":    actor.Username,
	}).Info("Trip status changed")
	s.record(ctx, actor, strings.ToUpper(action), "viaje", tripRef(id), fmt.Sprintf("%s -> %s", current.Status, trip.Status))
	s.publish(ctx, actor, action, current.Status, trip)
	return trip, nil
}

// RegisterPayment adds a client payment and recomputes the payment status.
// The write is conditional on the amount read, so concurrent payments are
// never lost.
func (s *Service) RegisterPayment(ctx context.Context, actor Actor, id int64, req models.PaymentRequest) (*models.Trip, error) {
	var v validator
	v.check(validAmount(req.Amount, false), "monto", "El monto debe ser mayor a cero")
	if err := v.err(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < paymentAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus == models.PaymentPaid {
			return nil, ErrAlreadyPaid
		}

		paid := finance.Amount(current.AmountPaid).Add(finance.Amount(req.Amount))
		newPaid := paid.InexactFloat64()
		status := models.DerivePaymentStatus(newPaid, current.Tariff)
		if paid.GreaterThan(finance.Amount(current.Tariff)) {
			log.WithFields(log.Fields{
				"trip_id": id,
				"tariff":  current.Tariff,
				"paid":    newPaid,
			}).Warn("Client payment exceeds trip tariff")
		}

		trip, err := s.trips.ApplyClientPayment(ctx, id, current.AmountPaid, newPaid, status)
		if errors.Is(err, db.ErrConflict) {
			log.WithFields(log.Fields{"trip_id": id, "attempt": attempt + 1}).Debug("Client payment raced, retrying")
			continue
		}
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("apply payment to trip %d: %w", id, err)
		}

		s.record(ctx, actor, "PAGO_CLIENTE", "viaje", tripRef(id),
			fmt.Sprintf("monto %s, pagado %s, estado %s", finance.Money(finance.Amount(req.Amount)), finance.Money(paid), status))
		if trip.PaymentStatus != current.PaymentStatus {
			s.publish(ctx, actor, "pago", trip.Status, trip)
		}
		return trip, nil
	}
	return nil, ErrConcurrentUpdate
}

// AddExpense attaches an expense to a trip that is still open.
func (s *Service) AddExpense(ctx context.Context, actor Actor, tripID int64, req models.ExpenseRequest, receipt *Receipt) (*models.Expense, error) {
	var v validator
	v.check(models.IsValidExpenseType(req.Type), "tipo", "Tipo de gasto inválido")
	v.check(validAmount(req.Amount, false), "monto", "El monto debe ser mayor a cero")
	v.check(strings.TrimSpace(req.PaymentMethod) != "", "metodoPago", "El método de pago es obligatorio")
	if err := v.err(); err != nil {
		return nil, err
	}

	trip, err := s.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.Status.AcceptsExpenses() {
		return nil, ErrExpensesClosed
	}

	date := s.now()
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}
	expense := &models.Expense{
		TripID:        tripID,
		Type:          req.Type,
		Amount:        req.Amount,
		Date:          date,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Description:   req.Description,
		CreatedBy:     actor.Username,
	}
	if expense.ReceiptPath, err = s.saveReceipt(ctx, "gastos", receipt); err != nil {
		return nil, err
	}
	if err := s.expenses.InsertExpense(ctx, expense); err != nil {
		s.discardReceipt(expense.ReceiptPath)
		return nil, fmt.Errorf("insert expense: %w", err)
	}

	s.record(ctx, actor, "CREAR", "gasto", expense.ID.Hex(),
		fmt.Sprintf("viaje %d, %s %s", tripID, expense.Type, finance.Money(finance.Amount(expense.Amount))))
	return expense, nil
}

// Expenses lists the expenses of a trip.
func (s *Service) Expenses(ctx context.Context, tripID int64) ([]models.Expense, error) {
	if _, err := s.Get(ctx, tripID); err != nil {
		return nil, err
	}
	return s.expenses.FindExpensesByTrip(ctx, tripID)
}

// Detail loads a trip with its expenses and driver payments and reconciles them.
func (s *Service) Detail(ctx context.Context, tripID int64) (*finance.TripDetail, error) {
	trip, err := s.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.FindExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	payments, err := s.payments.FindDriverPayments(ctx, models.DriverPaymentFilter{TripID: &tripID})
	if err != nil {
		return nil, fmt.Errorf("load driver payments: %w", err)
	}
	return &finance.TripDetail{
		Trip:           *trip,
		Expenses:       expenses,
		DriverPayments: payments,
		Finance:        finance.Reconcile(*trip, expenses, payments),
	}, nil
}

// RegisterDriverPayment records a payment to a driver, optionally linked to a trip.
func (s *Service) RegisterDriverPayment(ctx context.Context, actor Actor, req models.DriverPaymentRequest, receipt *Receipt) (*models.DriverPayment, error) {
	var v validator
	v.check(req.DriverID != "", "choferId", "El chofer es obligatorio")
	v.check(validAmount(req.Amount, false), "monto", "El monto debe ser mayor a cero")
	v.check(req.Status == "" || req.Status == models.DriverPaymentPending || req.Status == models.DriverPaymentPaid,
		"estado", "Estado de pago inválido")
	if err := v.err(); err != nil {
		return nil, err
	}

	if req.TripID != nil {
		trip, err := s.Get(ctx, *req.TripID)
		if err != nil {
			return nil, err
		}
		if trip.DriverID != req.DriverID {
			return nil, &ValidationError{Fields: []models.FieldError{{
				Field: "choferId", Message: "El chofer no corresponde al viaje",
			}}}
		}
	}

	now := s.now()
	payment := &models.DriverPayment{
		DriverID:      req.DriverID,
		TripID:        req.TripID,
		Amount:        req.Amount,
		Date:          now,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		Concept:       req.Concept,
		CreatedBy:     actor.Username,
	}
	if req.Date != nil && !req.Date.IsZero() {
		payment.Date = *req.Date
	}
	if payment.Status == "" {
		payment.Status = models.DriverPaymentPending
	}
	if payment.Status == models.DriverPaymentPaid {
		payment.PaidAt = &now
	}

	var err error
	if payment.ReceiptPath, err = s.saveReceipt(ctx, "pagos-chofer", receipt); err != nil {
		return nil, err
	}
	if err := s.payments.InsertDriverPayment(ctx, payment); err != nil {
		s.discardReceipt(payment.ReceiptPath)
		return nil, fmt.Errorf("insert driver payment: %w", err)
	}

	s.record(ctx, actor, "CREAR", "pago_chofer", payment.ID.Hex(),
		fmt.Sprintf("chofer %s, %s %s", payment.DriverID, finance.Money(finance.Amount(payment.Amount)), payment.Status))
	return payment, nil
}

// MarkDriverPaymentPaid moves a PENDIENTE driver payment to PAGADO.
func (s *Service) MarkDriverPaymentPaid(ctx context.Context, actor Actor, id string) (*models.DriverPayment, error) {
	payment, err := s.payments.MarkDriverPaymentPaid(ctx, id, s.now())
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil, ErrDriverPaymentNotFound
	case errors.Is(err, db.ErrConflict):
		return nil, ErrDriverPaymentAlreadyPaid
	case err != nil:
		return nil, fmt.Errorf("mark driver payment %s paid: %w", id, err)
	}
	s.record(ctx, actor, "PAGAR", "pago_chofer", id, "")
	return payment, nil
}

// DriverPayments lists driver payments.
func (s *Service) DriverPayments(ctx context.Context, filter models.DriverPaymentFilter) ([]models.DriverPayment, error) {
	return s.payments.FindDriverPayments(ctx, filter)
}

// discardReceipt removes a stored receipt whose record was never written.
func (s *Service) discardReceipt(path string) {
	if path == "" || s.receipts == nil {
		return
	}
	if err := s.receipts.Remove(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to remove orphaned receipt")
	}
}

func (s *Service) saveReceipt(ctx context.Context, kind string, receipt *Receipt) (string, error) {
	if receipt == nil || receipt.Body == nil {
		return "", nil
	}
	if s.receipts == nil {
		return "", errors.New("receipt storage not configured")
	}
	path, err := s.receipts.Save(ctx, kind, receipt.Filename, receipt.Body)
	if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrTooLarge) {
		return "", &ValidationError{Fields: []models.FieldError{{Field: "comprobante", Message: err.Error()}}}
	}
	return path, err
}

// setVehicle is best-effort: the trip transition already happened.
func (s *Service) setVehicle(ctx context.Context, trip *models.Trip, status models.VehicleStatus) {
	if s.vehicles == nil || trip.VehicleID == "" {
		return
	}
	if err := s.vehicles.SetVehicleStatus(ctx, trip.VehicleID, status); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"trip_id":    trip.ID,
			"vehicle_id": trip.VehicleID,
			"status":     status,
		}).Warn("Failed to update vehicle status")
	}
}

func (s *Service) record(ctx context.Context, actor Actor, action, entity, entityID, detail string) {
	if s.audit == nil {
		return
	}
	entry := models.AuditEntry{
		UserID:    actor.UserID,
		Username:  actor.Username,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
		IP:        actor.IP,
		CreatedAt: s.now(),
	}
	if err := s.audit.InsertAudit(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{"action": action, "entity": entity, "entity_id": entityID}).
			Error("Failed to write audit entry")
	}
}

func (s *Service) publish(ctx context.Context, actor Actor, action string, from models.TripStatus, trip *models.Trip) {
	event := events.TripEvent{
		TripID:    trip.ID,
		Action:    action,
		From:      from,
		To:        trip.Status,
		Payment:   trip.PaymentStatus,
		Actor:     actor.Username,
		Timestamp: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("topic", event.Topic()).Warn("Failed to publish trip event")
	}
}

func containsStatus(list []models.TripStatus, s models.TripStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// validAmount rejects NaN, infinities and negatives; zero only when allowZero.
func validAmount(v float64, allowZero bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return false
	}
	return allowZero || v > 0
}

func tripRef(id int64) string {
	return strconv.FormatInt(id, 10)
}
