package tripview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-ops/internal/apiclient"
	"github.com/ukydev/fleet-ops/internal/models"
)

type mockAPI struct {
	mock.Mock
}

func tripOrNil(args mock.Arguments) (*models.Trip, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *mockAPI) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return tripOrNil(m.Called(ctx, id))
}

func (m *mockAPI) TripExpenses(ctx context.Context, id int64) ([]models.Expense, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]models.Expense), args.Error(1)
}

func (m *mockAPI) DriverPayments(ctx context.Context, f models.DriverPaymentFilter) ([]models.DriverPayment, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.DriverPayment), args.Error(1)
}

func (m *mockAPI) StartTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return tripOrNil(m.Called(ctx, id))
}

func (m *mockAPI) CompleteTrip(ctx context.Context, id int64, req models.CompleteTripRequest) (*models.Trip, error) {
	return tripOrNil(m.Called(ctx, id, req))
}

func (m *mockAPI) CancelTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return tripOrNil(m.Called(ctx, id))
}

func (m *mockAPI) RegisterPayment(ctx context.Context, id int64, amount float64) (*models.Trip, error) {
	return tripOrNil(m.Called(ctx, id, amount))
}

func (m *mockAPI) AddExpense(ctx context.Context, id int64, req models.ExpenseRequest, receipt *apiclient.Attachment) (*models.Expense, error) {
	args := m.Called(ctx, id, req, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

type writer bool

func (w writer) CanWrite() bool { return bool(w) }

type answer struct {
	yes   bool
	asked int
}

func (a *answer) Confirm(string) bool {
	a.asked++
	return a.yes
}

const tripID = int64(42)

// expectLoad serves one detail fetch returning trip.
func expectLoad(api *mockAPI, trip models.Trip) {
	api.On("GetTrip", mock.Anything, tripID).Return(&trip, nil).Once()
	api.On("TripExpenses", mock.Anything, tripID).Return([]models.Expense{}, nil).Once()
	api.On("DriverPayments", mock.Anything, mock.MatchedBy(func(f models.DriverPaymentFilter) bool {
		return f.TripID != nil && *f.TripID == tripID
	})).Return([]models.DriverPayment{}, nil).Once()
}

func loaded(t *testing.T, status models.TripStatus, payment models.PaymentStatus) (*Controller, *mockAPI, *answer) {
	t.Helper()
	api := new(mockAPI)
	confirm := &answer{}
	c := NewController(api, writer(true), confirm, tripID, nil)
	expectLoad(api, models.Trip{ID: tripID, Status: status, PaymentStatus: payment, Tariff: 100})
	_, err := c.Load(context.Background())
	require.NoError(t, err)
	return c, api, confirm
}

func TestController_StartRefetches(t *testing.T) {
	c, api, _ := loaded(t, models.TripPlanned, models.PaymentPending)
	api.On("StartTrip", mock.Anything, tripID).Return(&models.Trip{ID: tripID, Status: models.TripInProgress}, nil)
	expectLoad(api, models.Trip{ID: tripID, Status: models.TripInProgress})

	require.NoError(t, c.Start(context.Background()))
	v, _ := c.View()
	assert.Equal(t, models.TripInProgress, v.Trip.Status)
	api.AssertExpectations(t)
}

func TestController_ServerRejectsAllowedAction(t *testing.T) {
	c, api, _ := loaded(t, models.TripPlanned, models.PaymentPending)
	rejection := &apiclient.APIError{Status: 400, Kind: apiclient.KindValidation, Message: "no se puede iniciar un viaje EN_CURSO", Notified: true}
	api.On("StartTrip", mock.Anything, tripID).Return(nil, rejection)

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, rejection)
	assert.True(t, apiclient.IsNotified(err))

	v, _ := c.View()
	assert.Equal(t, models.TripPlanned, v.Trip.Status, "prior confirmed state stays displayed")
	api.AssertNumberOfCalls(t, "GetTrip", 1)
}

func TestController_StartGuard(t *testing.T) {
	c, api, _ := loaded(t, models.TripInProgress, models.PaymentPending)
	assert.ErrorIs(t, c.Start(context.Background()), ErrNotAllowed)
	api.AssertNotCalled(t, "StartTrip", mock.Anything, mock.Anything)
}

func TestController_CompleteRequiresBothFields(t *testing.T) {
	arrival := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)
	km := 420.0
	tests := []struct {
		name    string
		arrival *time.Time
		km      *float64
	}{
		{"no arrival", nil, &km},
		{"zero arrival", &time.Time{}, &km},
		{"no km", &arrival, nil},
		{"neither", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api, _ := loaded(t, models.TripInProgress, models.PaymentPending)
			assert.ErrorIs(t, c.Complete(context.Background(), tt.arrival, tt.km), ErrMissingCompletionData)
			api.AssertNotCalled(t, "CompleteTrip", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestController_Complete(t *testing.T) {
	c, api, _ := loaded(t, models.TripInProgress, models.PaymentPending)
	arrival := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)
	km := 420.0
	api.On("CompleteTrip", mock.Anything, tripID, models.CompleteTripRequest{ActualArrival: &arrival, ActualKm: &km}).
		Return(&models.Trip{ID: tripID, Status: models.TripCompleted}, nil)
	expectLoad(api, models.Trip{ID: tripID, Status: models.TripCompleted, ActualArrival: &arrival, ActualKm: &km})

	require.NoError(t, c.Complete(context.Background(), &arrival, &km))
	v, _ := c.View()
	assert.Equal(t, models.TripCompleted, v.Trip.Status)
	assert.NotNil(t, v.Trip.ActualKm)
}

func TestController_CancelNeedsConfirmation(t *testing.T) {
	c, api, confirm := loaded(t, models.TripPlanned, models.PaymentPending)

	assert.ErrorIs(t, c.Cancel(context.Background()), ErrNotConfirmed)
	assert.Equal(t, 1, confirm.asked)
	api.AssertNotCalled(t, "CancelTrip", mock.Anything, mock.Anything)

	confirm.yes = true
	api.On("CancelTrip", mock.Anything, tripID).Return(&models.Trip{ID: tripID, Status: models.TripCancelled}, nil)
	expectLoad(api, models.Trip{ID: tripID, Status: models.TripCancelled})
	require.NoError(t, c.Cancel(context.Background()))
	api.AssertNumberOfCalls(t, "CancelTrip", 1)
}

func TestController_CancelTerminal(t *testing.T) {
	c, _, confirm := loaded(t, models.TripCompleted, models.PaymentPending)
	assert.ErrorIs(t, c.Cancel(context.Background()), ErrNotAllowed)
	assert.Zero(t, confirm.asked)
}

func TestController_RegisterPaymentGuards(t *testing.T) {
	for _, amount := range []string{"", "  ", "-5", "0", "abc", "0.00"} {
		t.Run(amount, func(t *testing.T) {
			c, api, _ := loaded(t, models.TripCompleted, models.PaymentPartial)
			assert.ErrorIs(t, c.RegisterPayment(context.Background(), amount), ErrInvalidAmount)
			api.AssertNotCalled(t, "RegisterPayment", mock.Anything, mock.Anything, mock.Anything)
			api.AssertNumberOfCalls(t, "GetTrip", 1)
		})
	}
}

func TestController_RegisterPaymentPaidTrip(t *testing.T) {
	c, api, _ := loaded(t, models.TripCompleted, models.PaymentPaid)
	assert.ErrorIs(t, c.RegisterPayment(context.Background(), "10"), ErrAlreadyPaid)
	api.AssertNotCalled(t, "RegisterPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_RegisterPayment(t *testing.T) {
	c, api, _ := loaded(t, models.TripCompleted, models.PaymentPending)
	api.On("RegisterPayment", mock.Anything, tripID, 100.0).Return(&models.Trip{ID: tripID}, nil)
	expectLoad(api, models.Trip{ID: tripID, Status: models.TripCompleted, Tariff: 100, AmountPaid: 100, PaymentStatus: models.PaymentPaid})

	require.NoError(t, c.RegisterPayment(context.Background(), " 100.00 "))
	v, _ := c.View()
	assert.Equal(t, models.PaymentPaid, v.Trip.PaymentStatus)
	assert.False(t, v.CanRegisterPayment())
}

func TestController_AddExpense(t *testing.T) {
	t.Run("closed trip", func(t *testing.T) {
		c, api, _ := loaded(t, models.TripCompleted, models.PaymentPending)
		err := c.AddExpense(context.Background(), models.ExpenseRequest{Type: models.ExpenseFuel, Amount: 10}, nil)
		assert.ErrorIs(t, err, ErrNotAllowed)
		api.AssertNotCalled(t, "AddExpense", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("with receipt", func(t *testing.T) {
		c, api, _ := loaded(t, models.TripInProgress, models.PaymentPending)
		att := &apiclient.Attachment{Filename: "f.pdf"}
		req := models.ExpenseRequest{Type: models.ExpenseFuel, Amount: 10}
		api.On("AddExpense", mock.Anything, tripID, req, att).Return(&models.Expense{Amount: 10}, nil)
		expectLoad(api, models.Trip{ID: tripID, Status: models.TripInProgress})

		require.NoError(t, c.AddExpense(context.Background(), req, att))
		api.AssertExpectations(t)
	})
}

func TestController_ReadOnly(t *testing.T) {
	api := new(mockAPI)
	c := NewController(api, writer(false), &answer{yes: true}, tripID, nil)
	expectLoad(api, models.Trip{ID: tripID, Status: models.TripPlanned})
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Start(context.Background()), ErrReadOnly)
	assert.ErrorIs(t, c.Cancel(context.Background()), ErrReadOnly)
	assert.ErrorIs(t, c.RegisterPayment(context.Background(), "5"), ErrReadOnly)
}

func TestController_NotLoaded(t *testing.T) {
	c := NewController(new(mockAPI), writer(true), &answer{}, tripID, nil)
	assert.ErrorIs(t, c.Start(context.Background()), ErrNotLoaded)
}

func TestController_DropsResponsesAfterClose(t *testing.T) {
	api := new(mockAPI)
	var changes int32
	c := NewController(api, writer(true), &answer{}, tripID, func(ViewModel) { atomic.AddInt32(&changes, 1) })

	release := make(chan struct{})
	trip := models.Trip{ID: tripID, Status: models.TripPlanned}
	api.On("GetTrip", mock.Anything, tripID).Run(func(mock.Arguments) { <-release }).Return(&trip, nil)
	api.On("TripExpenses", mock.Anything, tripID).Return([]models.Expense{}, nil)
	api.On("DriverPayments", mock.Anything, mock.Anything).Return([]models.DriverPayment{}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Load(context.Background())
		assert.NoError(t, err)
	}()
	c.Close()
	close(release)
	wg.Wait()

	_, ok := c.View()
	assert.False(t, ok)
	assert.Zero(t, atomic.LoadInt32(&changes))
}

func TestController_LoadError(t *testing.T) {
	api := new(mockAPI)
	c := NewController(api, writer(true), &answer{}, tripID, nil)
	api.On("GetTrip", mock.Anything, tripID).Return(nil, errors.New("boom"))

	_, err := c.Load(context.Background())
	assert.Error(t, err)
	_, ok := c.View()
	assert.False(t, ok)
}
