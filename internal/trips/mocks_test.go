package trips

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/events"
	"github.com/ukydev/fleet-ops/internal/models"
)

type mockTrips struct {
	mock.Mock
}

func (m *mockTrips) InsertTrip(ctx context.Context, trip *models.Trip) error {
	return m.Called(ctx, trip).Error(0)
}

func (m *mockTrips) FindTripByID(ctx context.Context, id int64) (*models.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *mockTrips) FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Trip), args.Get(1).(int64), args.Error(2)
}

func (m *mockTrips) TransitionTrip(ctx context.Context, id int64, from []models.TripStatus, set db.TripUpdate) (*models.Trip, error) {
	args := m.Called(ctx, id, from, set)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *mockTrips) ApplyClientPayment(ctx context.Context, id int64, previous, paid float64, status models.PaymentStatus) (*models.Trip, error) {
	args := m.Called(ctx, id, previous, paid, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

type mockExpenses struct {
	mock.Mock
}

func (m *mockExpenses) InsertExpense(ctx context.Context, expense *models.Expense) error {
	return m.Called(ctx, expense).Error(0)
}

func (m *mockExpenses) FindExpensesByTrip(ctx context.Context, tripID int64) ([]models.Expense, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).([]models.Expense), args.Error(1)
}

type mockDriverPayments struct {
	mock.Mock
}

func (m *mockDriverPayments) InsertDriverPayment(ctx context.Context, payment *models.DriverPayment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockDriverPayments) FindDriverPayments(ctx context.Context, filter models.DriverPaymentFilter) ([]models.DriverPayment, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.DriverPayment), args.Error(1)
}

func (m *mockDriverPayments) MarkDriverPaymentPaid(ctx context.Context, id string, at time.Time) (*models.DriverPayment, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverPayment), args.Error(1)
}

type mockVehicles struct {
	mock.Mock
}

func (m *mockVehicles) SetVehicleStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// memAudit records entries in memory.
type memAudit struct {
	entries []models.AuditEntry
}

func (a *memAudit) InsertAudit(_ context.Context, entry models.AuditEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) FindAudit(context.Context, int, int) ([]models.AuditEntry, int64, error) {
	return a.entries, int64(len(a.entries)), nil
}

type memPublisher struct {
	events []events.TripEvent
}

func (p *memPublisher) Publish(_ context.Context, e events.TripEvent) error {
	p.events = append(p.events, e)
	return nil
}

func (p *memPublisher) Close() {}

type memReceipts struct {
	saved map[string]string
}

func (r *memReceipts) Save(_ context.Context, kind, filename string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if r.saved == nil {
		r.saved = map[string]string{}
	}
	path := kind + "/" + filename
	r.saved[path] = string(data)
	return path, nil
}

func (r *memReceipts) Remove(path string) error {
	delete(r.saved, path)
	return nil
}

type fixture struct {
	svc      *Service
	trips    *mockTrips
	expenses *mockExpenses
	payments *mockDriverPayments
	vehicles *mockVehicles
	audit    *memAudit
	events   *memPublisher
	receipts *memReceipts
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		trips:    new(mockTrips),
		expenses: new(mockExpenses),
		payments: new(mockDriverPayments),
		vehicles: new(mockVehicles),
		audit:    &memAudit{},
		events:   &memPublisher{},
		receipts: &memReceipts{},
	}
	f.svc = NewService(Deps{
		Trips:          f.trips,
		Expenses:       f.expenses,
		DriverPayments: f.payments,
		Vehicles:       f.vehicles,
		Audit:          f.audit,
		Receipts:       f.receipts,
		Events:         f.events,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

var admin = Actor{UserID: "u1", Username: "admin", IP: "10.0.0.1"}
