package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-ops/internal/auth"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/trips"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) CountUsersByRole(ctx context.Context, role models.Role) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTripService is a mock implementation of TripService
type MockTripService struct {
	mock.Mock
}

func tripResult(args mock.Arguments) (*models.Trip, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *MockTripService) Create(ctx context.Context, actor trips.Actor, req models.CreateTripRequest) (*models.Trip, error) {
	return tripResult(m.Called(ctx, actor, req))
}

func (m *MockTripService) Get(ctx context.Context, id int64) (*models.Trip, error) {
	return tripResult(m.Called(ctx, id))
}

func (m *MockTripService) List(ctx context.Context, filter models.TripFilter) ([]models.Trip, models.Page, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Trip), args.Get(1).(models.Page), args.Error(2)
}

func (m *MockTripService) Start(ctx context.Context, actor trips.Actor, id int64) (*models.Trip, error) {
	return tripResult(m.Called(ctx, actor, id))
}

func (m *MockTripService) Complete(ctx context.Context, actor trips.Actor, id int64, req models.CompleteTripRequest) (*models.Trip, error) {
	return tripResult(m.Called(ctx, actor, id, req))
}

func (m *MockTripService) Cancel(ctx context.Context, actor trips.Actor, id int64) (*models.Trip, error) {
	return tripResult(m.Called(ctx, actor, id))
}

func (m *MockTripService) RegisterPayment(ctx context.Context, actor trips.Actor, id int64, req models.PaymentRequest) (*models.Trip, error) {
	return tripResult(m.Called(ctx, actor, id, req))
}

func (m *MockTripService) AddExpense(ctx context.Context, actor trips.Actor, tripID int64, req models.ExpenseRequest, receipt *trips.Receipt) (*models.Expense, error) {
	args := m.Called(ctx, actor, tripID, req, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockTripService) Expenses(ctx context.Context, tripID int64) ([]models.Expense, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).([]models.Expense), args.Error(1)
}

func (m *MockTripService) Detail(ctx context.Context, tripID int64) (*finance.TripDetail, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.TripDetail), args.Error(1)
}

func (m *MockTripService) RegisterDriverPayment(ctx context.Context, actor trips.Actor, req models.DriverPaymentRequest, receipt *trips.Receipt) (*models.DriverPayment, error) {
	args := m.Called(ctx, actor, req, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverPayment), args.Error(1)
}

func (m *MockTripService) MarkDriverPaymentPaid(ctx context.Context, actor trips.Actor, id string) (*models.DriverPayment, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverPayment), args.Error(1)
}

func (m *MockTripService) DriverPayments(ctx context.Context, filter models.DriverPaymentFilter) ([]models.DriverPayment, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.DriverPayment), args.Error(1)
}

type fakeReports struct {
	trips  []models.Trip
	names  map[string]string
	alerts models.AlertSummary
	err    error
}

func (f *fakeReports) ReceivableTrips(context.Context) ([]models.Trip, error) { return f.trips, f.err }
func (f *fakeReports) ClientNames(context.Context) (map[string]string, error) { return f.names, f.err }
func (f *fakeReports) AlertCounts(context.Context, time.Time, time.Duration) (models.AlertSummary, error) {
	return f.alerts, f.err
}

type fakeAudit struct {
	entries []models.AuditEntry
}

func (f *fakeAudit) InsertAudit(_ context.Context, e models.AuditEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) FindAudit(_ context.Context, page, limit int) ([]models.AuditEntry, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

type testAPI struct {
	handler  http.Handler
	auth     *auth.Service
	users    *MockUserCollection
	trips    *MockTripService
	reports  *fakeReports
	audit    *fakeAudit
	adminTok string
	auditTok string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	authService, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)

	api := &testAPI{
		auth:    authService,
		users:   new(MockUserCollection),
		trips:   new(MockTripService),
		reports: &fakeReports{},
		audit:   &fakeAudit{},
	}
	api.handler = NewRouter(RouterConfig{
		Auth:            authService,
		Users:           api.users,
		Trips:           api.trips,
		Reports:         api.reports,
		Audit:           api.audit,
		Ping:            func(context.Context) error { return nil },
		CORSOrigins:     []string{"*"},
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
		AlertDueSoon:    7 * 24 * time.Hour,
	})

	api.adminTok, err = authService.GenerateToken(&models.User{ID: primitive.NewObjectID(), Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	api.auditTok, err = authService.GenerateToken(&models.User{ID: primitive.NewObjectID(), Username: "auditora", Role: models.RoleAuditor})
	require.NoError(t, err)
	return api
}

func (a *testAPI) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}
