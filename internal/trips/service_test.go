package trips

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/models"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func sampleTrip(status models.TripStatus) *models.Trip {
	return &models.Trip{
		ID:            7,
		Origin:        "Quito",
		Destination:   "Guayaquil",
		VehicleID:     "veh1",
		DriverID:      "drv1",
		ClientID:      "cli1",
		DepartureAt:   fixedNow,
		Tariff:        500,
		PaymentStatus: models.PaymentPending,
		Status:        status,
	}
}

func TestService_Create(t *testing.T) {
	t.Run("valid trip", func(t *testing.T) {
		f := newFixture()
		f.trips.On("InsertTrip", mock.Anything, mock.AnythingOfType("*models.Trip")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.Trip).ID = 42 }).
			Return(nil)

		trip, err := f.svc.Create(context.Background(), admin, models.CreateTripRequest{
			Origin:      " Quito ",
			Destination: "Cuenca",
			VehicleID:   "veh1",
			DriverID:    "drv1",
			ClientID:    "cli1",
			DepartureAt: ptrTime(time.Date(2025, 1, 30, 8, 0, 0, 0, time.UTC)),
			Tariff:      800,
			CreditDays:  30,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(42), trip.ID)
		assert.Equal(t, "Quito", trip.Origin)
		assert.Equal(t, models.TripPlanned, trip.Status)
		assert.Equal(t, models.PaymentPending, trip.PaymentStatus)
		assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), trip.PaymentDueAt)
		assert.Equal(t, "admin", trip.CreatedBy)

		require.Len(t, f.audit.entries, 1)
		assert.Equal(t, "CREAR", f.audit.entries[0].Action)
		assert.Equal(t, "42", f.audit.entries[0].EntityID)
		assert.Equal(t, "10.0.0.1", f.audit.entries[0].IP)
		require.Len(t, f.events.events, 1)
		assert.Equal(t, "fleet/viajes/42/estado", f.events.events[0].Topic())
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(context.Background(), admin, models.CreateTripRequest{Tariff: -1, CreditDays: -2})

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		fields := map[string]bool{}
		for _, fe := range verr.Fields {
			fields[fe.Field] = true
		}
		for _, name := range []string{"origen", "destino", "vehiculoId", "choferId", "clienteId", "fechaSalida", "tarifa", "diasCredito"} {
			assert.True(t, fields[name], name)
		}
		f.trips.AssertNotCalled(t, "InsertTrip", mock.Anything, mock.Anything)
	})
}

func TestService_Start(t *testing.T) {
	t.Run("planned trip starts and vehicle goes on trip", func(t *testing.T) {
		f := newFixture()
		started := sampleTrip(models.TripInProgress)
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripPlanned), nil)
		f.trips.On("TransitionTrip", mock.Anything, int64(7),
			[]models.TripStatus{models.TripPlanned},
			db.TripUpdate{Status: models.TripInProgress}).Return(started, nil)
		f.vehicles.On("SetVehicleStatus", mock.Anything, "veh1", models.VehicleOnTrip).Return(nil)

		trip, err := f.svc.Start(context.Background(), admin, 7)
		require.NoError(t, err)
		assert.Equal(t, models.TripInProgress, trip.Status)

		f.trips.AssertExpectations(t)
		f.vehicles.AssertExpectations(t)
		require.Len(t, f.events.events, 1)
		assert.Equal(t, models.TripPlanned, f.events.events[0].From)
		assert.Equal(t, models.TripInProgress, f.events.events[0].To)
	})

	t.Run("already in progress is rejected", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripInProgress), nil)

		_, err := f.svc.Start(context.Background(), admin, 7)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Contains(t, err.Error(), "EN_CURSO")
		f.trips.AssertNotCalled(t, "TransitionTrip", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.audit.entries)
	})

	t.Run("lost race is rejected", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripPlanned), nil)
		f.trips.On("TransitionTrip", mock.Anything, int64(7), mock.Anything, mock.Anything).Return(nil, db.ErrConflict)

		_, err := f.svc.Start(context.Background(), admin, 7)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		f.vehicles.AssertNotCalled(t, "SetVehicleStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown trip", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(99)).Return(nil, db.ErrNotFound)

		_, err := f.svc.Start(context.Background(), admin, 99)
		assert.ErrorIs(t, err, ErrTripNotFound)
	})

	t.Run("vehicle failure does not fail the transition", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripPlanned), nil)
		f.trips.On("TransitionTrip", mock.Anything, int64(7), mock.Anything, mock.Anything).
			Return(sampleTrip(models.TripInProgress), nil)
		f.vehicles.On("SetVehicleStatus", mock.Anything, "veh1", models.VehicleOnTrip).Return(assert.AnError)

		trip, err := f.svc.Start(context.Background(), admin, 7)
		require.NoError(t, err)
		assert.Equal(t, models.TripInProgress, trip.Status)
	})
}

func TestService_Complete(t *testing.T) {
	arrival := fixedNow.Add(6 * time.Hour)

	t.Run("requires arrival and km", func(t *testing.T) {
		tests := []struct {
			name  string
			req   models.CompleteTripRequest
			field string
		}{
			{"no arrival", models.CompleteTripRequest{ActualKm: ptrFloat(120)}, "fechaLlegadaReal"},
			{"no km", models.CompleteTripRequest{ActualArrival: &arrival}, "kilometrosReales"},
			{"zero km", models.CompleteTripRequest{ActualArrival: &arrival, ActualKm: ptrFloat(0)}, "kilometrosReales"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				_, err := f.svc.Complete(context.Background(), admin, 7, tt.req)
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Fields[0].Field)
				f.trips.AssertNotCalled(t, "FindTripByID", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("in progress trip completes", func(t *testing.T) {
		f := newFixture()
		done := sampleTrip(models.TripCompleted)
		done.ActualArrival = &arrival
		done.ActualKm = ptrFloat(420)
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripInProgress), nil)
		f.trips.On("TransitionTrip", mock.Anything, int64(7),
			[]models.TripStatus{models.TripInProgress},
			mock.MatchedBy(func(u db.TripUpdate) bool {
				return u.Status == models.TripCompleted && u.ActualArrival.Equal(arrival) && *u.ActualKm == 420
			})).Return(done, nil)
		f.vehicles.On("SetVehicleStatus", mock.Anything, "veh1", models.VehicleAvailable).Return(nil)

		trip, err := f.svc.Complete(context.Background(), admin, 7,
			models.CompleteTripRequest{ActualArrival: &arrival, ActualKm: ptrFloat(420)})
		require.NoError(t, err)
		assert.Equal(t, models.TripCompleted, trip.Status)
		f.vehicles.AssertExpectations(t)
	})

	t.Run("planned trip cannot complete", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripPlanned), nil)

		_, err := f.svc.Complete(context.Background(), admin, 7,
			models.CompleteTripRequest{ActualArrival: &arrival, ActualKm: ptrFloat(10)})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestService_Cancel(t *testing.T) {
	for _, status := range []models.TripStatus{models.TripPlanned, models.TripInProgress} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(status), nil)
			f.trips.On("TransitionTrip", mock.Anything, int64(7),
				[]models.TripStatus{models.TripPlanned, models.TripInProgress},
				db.TripUpdate{Status: models.TripCancelled}).Return(sampleTrip(models.TripCancelled), nil)
			f.vehicles.On("SetVehicleStatus", mock.Anything, "veh1", models.VehicleAvailable).Return(nil)

			trip, err := f.svc.Cancel(context.Background(), admin, 7)
			require.NoError(t, err)
			assert.Equal(t, models.TripCancelled, trip.Status)
		})
	}

	for _, status := range []models.TripStatus{models.TripCompleted, models.TripCancelled} {
		t.Run("terminal "+string(status), func(t *testing.T) {
			f := newFixture()
			f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(status), nil)

			_, err := f.svc.Cancel(context.Background(), admin, 7)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestService_RegisterPayment(t *testing.T) {
	t.Run("rejects non-positive amounts", func(t *testing.T) {
		for _, amount := range []float64{0, -5} {
			f := newFixture()
			_, err := f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: amount})
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			f.trips.AssertNotCalled(t, "FindTripByID", mock.Anything, mock.Anything)
		}
	})

	t.Run("partial then exact payment", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripCompleted), nil).Once()
		partial := sampleTrip(models.TripCompleted)
		partial.AmountPaid = 200
		partial.PaymentStatus = models.PaymentPartial
		f.trips.On("ApplyClientPayment", mock.Anything, int64(7), 0.0, 200.0, models.PaymentPartial).Return(partial, nil).Once()

		trip, err := f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: 200})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPartial, trip.PaymentStatus)

		paid := sampleTrip(models.TripCompleted)
		paid.AmountPaid = 500
		paid.PaymentStatus = models.PaymentPaid
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(partial, nil).Once()
		f.trips.On("ApplyClientPayment", mock.Anything, int64(7), 200.0, 500.0, models.PaymentPaid).Return(paid, nil).Once()

		trip, err = f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: 300})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, trip.PaymentStatus)
		f.trips.AssertExpectations(t)
		assert.Len(t, f.audit.entries, 2)
	})

	t.Run("paid trip rejects payment", func(t *testing.T) {
		f := newFixture()
		paid := sampleTrip(models.TripCompleted)
		paid.AmountPaid = 500
		paid.PaymentStatus = models.PaymentPaid
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(paid, nil)

		_, err := f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: 1})
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("retries after a concurrent payment", func(t *testing.T) {
		f := newFixture()
		raced := sampleTrip(models.TripInProgress)
		raced.AmountPaid = 100
		raced.PaymentStatus = models.PaymentPartial
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripInProgress), nil).Once()
		f.trips.On("ApplyClientPayment", mock.Anything, int64(7), 0.0, 50.0, models.PaymentPartial).Return(nil, db.ErrConflict).Once()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(raced, nil).Once()
		result := sampleTrip(models.TripInProgress)
		result.AmountPaid = 150
		result.PaymentStatus = models.PaymentPartial
		f.trips.On("ApplyClientPayment", mock.Anything, int64(7), 100.0, 150.0, models.PaymentPartial).Return(result, nil).Once()

		trip, err := f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: 50})
		require.NoError(t, err)
		assert.Equal(t, 150.0, trip.AmountPaid)
		f.trips.AssertExpectations(t)
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripInProgress), nil)
		f.trips.On("ApplyClientPayment", mock.Anything, int64(7), mock.Anything, mock.Anything, mock.Anything).Return(nil, db.ErrConflict)

		_, err := f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: 50})
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
		f.trips.AssertNumberOfCalls(t, "ApplyClientPayment", paymentAttempts)
	})

	t.Run("sums exactly", func(t *testing.T) {
		f := newFixture()
		trip := sampleTrip(models.TripInProgress)
		trip.Tariff = 0.3
		trip.AmountPaid = 0.1
		trip.PaymentStatus = models.PaymentPartial
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(trip, nil)
		f.trips.On("ApplyClientPayment", mock.Anything, int64(7), 0.1, 0.3, models.PaymentPaid).Return(trip, nil)

		_, err := f.svc.RegisterPayment(context.Background(), admin, 7, models.PaymentRequest{Amount: 0.2})
		require.NoError(t, err)
		f.trips.AssertExpectations(t)
	})
}

func TestService_AddExpense(t *testing.T) {
	req := models.ExpenseRequest{Type: models.ExpenseToll, Amount: 12.5, PaymentMethod: "EFECTIVO"}

	t.Run("open trip with receipt", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripInProgress), nil)
		f.expenses.On("InsertExpense", mock.Anything, mock.MatchedBy(func(e *models.Expense) bool {
			return e.TripID == 7 && e.ReceiptPath == "gastos/peaje.pdf" && e.Date.Equal(fixedNow)
		})).Return(nil)

		expense, err := f.svc.AddExpense(context.Background(), admin, 7, req,
			&Receipt{Filename: "peaje.pdf", Body: strings.NewReader("pdf")})
		require.NoError(t, err)
		assert.Equal(t, models.ExpenseToll, expense.Type)
		assert.Equal(t, "pdf", f.receipts.saved["gastos/peaje.pdf"])
		f.expenses.AssertExpectations(t)
	})

	t.Run("failed insert removes receipt", func(t *testing.T) {
		f := newFixture()
		f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(models.TripInProgress), nil)
		f.expenses.On("InsertExpense", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := f.svc.AddExpense(context.Background(), admin, 7, req,
			&Receipt{Filename: "peaje.pdf", Body: strings.NewReader("pdf")})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NotContains(t, f.receipts.saved, "gastos/peaje.pdf")
	})

	t.Run("closed trip", func(t *testing.T) {
		for _, status := range []models.TripStatus{models.TripCompleted, models.TripCancelled} {
			f := newFixture()
			f.trips.On("FindTripByID", mock.Anything, int64(7)).Return(sampleTrip(status), nil)

			_, err := f.svc.AddExpense(context.Background(), admin, 7, req, nil)
			assert.ErrorIs(t, err, ErrExpensesClosed)
			f.expenses.AssertNotCalled(t, "InsertExpense", mock.Anything, mock.Anything)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		f := newFixture()
		bad := req
		bad.Type = "VIATICOS"
		_, err := f.svc.AddExpense(context.Background(), admin, 7, bad, nil)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "tipo", verr.Fields[0].Field)
	})
}

func TestService_Detail(t *testing.T) {
	f := newFixture()
	trip := sampleTrip(models.TripCompleted)
	tripID := trip.ID
	other := int64(8)
	f.trips.On("FindTripByID", mock.Anything, tripID).Return(trip, nil)
	f.expenses.On("FindExpensesByTrip", mock.Anything, tripID).Return([]models.Expense{
		{Amount: 50}, {Amount: 30},
	}, nil)
	f.payments.On("FindDriverPayments", mock.Anything, models.DriverPaymentFilter{TripID: &tripID}).Return([]models.DriverPayment{
		{TripID: &tripID, Amount: 100, Status: models.DriverPaymentPaid},
		{TripID: &tripID, Amount: 70, Status: models.DriverPaymentPending},
		{TripID: &other, Amount: 999, Status: models.DriverPaymentPaid},
	}, nil)

	detail, err := f.svc.Detail(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, "320.00", detail.Finance.Summary.Profit.StringFixed(2))
	assert.Equal(t, "180.00", detail.Finance.Summary.Costs.StringFixed(2))
	assert.Len(t, detail.Expenses, 2)
}

func TestService_DriverPayments(t *testing.T) {
	t.Run("linked payment must match trip driver", func(t *testing.T) {
		f := newFixture()
		tripID := int64(7)
		f.trips.On("FindTripByID", mock.Anything, tripID).Return(sampleTrip(models.TripCompleted), nil)

		_, err := f.svc.RegisterDriverPayment(context.Background(), admin, models.DriverPaymentRequest{
			DriverID: "someone-else", TripID: &tripID, Amount: 100,
		}, nil)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "choferId", verr.Fields[0].Field)
	})

	t.Run("paid payment gets paid date", func(t *testing.T) {
		f := newFixture()
		f.payments.On("InsertDriverPayment", mock.Anything, mock.MatchedBy(func(p *models.DriverPayment) bool {
			return p.Status == models.DriverPaymentPaid && p.PaidAt != nil && p.TripID == nil
		})).Return(nil)

		payment, err := f.svc.RegisterDriverPayment(context.Background(), admin, models.DriverPaymentRequest{
			DriverID: "drv1", Amount: 600, Status: models.DriverPaymentPaid, Concept: "Sueldo mayo",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, fixedNow, payment.Date)
		f.payments.AssertExpectations(t)
	})

	t.Run("failed insert removes receipt", func(t *testing.T) {
		f := newFixture()
		f.payments.On("InsertDriverPayment", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := f.svc.RegisterDriverPayment(context.Background(), admin, models.DriverPaymentRequest{
			DriverID: "drv1", Amount: 600,
		}, &Receipt{Filename: "transferencia.png", Body: strings.NewReader("png")})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NotContains(t, f.receipts.saved, "pagos-chofer/transferencia.png")
	})

	t.Run("mark paid maps store errors", func(t *testing.T) {
		f := newFixture()
		f.payments.On("MarkDriverPaymentPaid", mock.Anything, "missing", fixedNow).Return(nil, db.ErrNotFound)
		f.payments.On("MarkDriverPaymentPaid", mock.Anything, "done", fixedNow).Return(nil, db.ErrConflict)

		_, err := f.svc.MarkDriverPaymentPaid(context.Background(), admin, "missing")
		assert.ErrorIs(t, err, ErrDriverPaymentNotFound)
		_, err = f.svc.MarkDriverPaymentPaid(context.Background(), admin, "done")
		assert.ErrorIs(t, err, ErrDriverPaymentAlreadyPaid)
	})
}

func TestService_List(t *testing.T) {
	f := newFixture()
	f.trips.On("FindTrips", mock.Anything, models.TripFilter{Status: models.TripPlanned, Page: 1, Limit: 20}).
		Return([]models.Trip{*sampleTrip(models.TripPlanned)}, int64(41), nil)

	trips, page, err := f.svc.List(context.Background(), models.TripFilter{Status: models.TripPlanned})
	require.NoError(t, err)
	assert.Len(t, trips, 1)
	assert.Equal(t, models.Page{Total: 41, Page: 1, Limit: 20, TotalPages: 3}, page)
}
