package tripview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/apiclient"
	"github.com/ukydev/fleet-ops/internal/models"
)

// Guard errors. None of them is preceded by a request.
var (
	ErrReadOnly              = errors.New("su rol no permite modificar viajes")
	ErrNotLoaded             = errors.New("el viaje no está cargado")
	ErrNotAllowed            = errors.New("acción no disponible en el estado actual del viaje")
	ErrMissingCompletionData = errors.New("la fecha de llegada real y los kilómetros reales son obligatorios")
	ErrInvalidAmount         = errors.New("ingrese un monto mayor a cero")
	ErrAlreadyPaid           = errors.New("el viaje ya está pagado")
	ErrNotConfirmed          = errors.New("acción cancelada por el usuario")
)

// API is the part of apiclient.Client the controller uses.
type API interface {
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	TripExpenses(ctx context.Context, id int64) ([]models.Expense, error)
	DriverPayments(ctx context.Context, f models.DriverPaymentFilter) ([]models.DriverPayment, error)
	StartTrip(ctx context.Context, id int64) (*models.Trip, error)
	CompleteTrip(ctx context.Context, id int64, req models.CompleteTripRequest) (*models.Trip, error)
	CancelTrip(ctx context.Context, id int64) (*models.Trip, error)
	RegisterPayment(ctx context.Context, id int64, amount float64) (*models.Trip, error)
	AddExpense(ctx context.Context, id int64, req models.ExpenseRequest, receipt *apiclient.Attachment) (*models.Expense, error)
}

// Capability reports whether the user may write.
type Capability interface {
	CanWrite() bool
}

// Confirmer asks the user to approve an irreversible action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Controller drives the detail view of one trip. Guards reject obviously
// invalid actions before any request; the server remains the authority
// and may still refuse an action the guards let through.
type Controller struct {
	api     API
	caps    Capability
	confirm Confirmer
	tripID  int64

	mu       sync.Mutex
	view     *ViewModel
	closed   bool
	onChange func(ViewModel)
}

// NewController creates a controller for tripID. onChange, if set, is
// called with every view built from a fresh fetch.
func NewController(api API, caps Capability, confirm Confirmer, tripID int64, onChange func(ViewModel)) *Controller {
	return &Controller{api: api, caps: caps, confirm: confirm, tripID: tripID, onChange: onChange}
}

// View returns the last loaded view.
func (c *Controller) View() (ViewModel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ViewModel{}, false
	}
	return *c.view, true
}

// Close detaches the controller. Responses arriving later are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Load fetches the trip, its expenses and its driver payments.
func (c *Controller) Load(ctx context.Context) (ViewModel, error) {
	trip, err := c.api.GetTrip(ctx, c.tripID)
	if err != nil {
		return ViewModel{}, err
	}
	expenses, err := c.api.TripExpenses(ctx, c.tripID)
	if err != nil {
		return ViewModel{}, err
	}
	tripID := c.tripID
	payments, err := c.api.DriverPayments(ctx, models.DriverPaymentFilter{TripID: &tripID})
	if err != nil {
		return ViewModel{}, err
	}

	v := NewViewModel(*trip, expenses, payments, c.caps.CanWrite())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		log.WithField("trip_id", c.tripID).Debug("Dropping response for closed trip view")
		return v, nil
	}
	c.view = &v
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(v)
	}
	return v, nil
}

// current returns the loaded view after the write-capability check.
func (c *Controller) current() (ViewModel, error) {
	if !c.caps.CanWrite() {
		return ViewModel{}, ErrReadOnly
	}
	v, ok := c.View()
	if !ok {
		return ViewModel{}, ErrNotLoaded
	}
	return v, nil
}

// after re-fetches the view once a mutation succeeded.
func (c *Controller) after(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if _, err := c.Load(ctx); err != nil {
		return fmt.Errorf("refresh trip %d: %w", c.tripID, err)
	}
	return nil
}

// Start moves a PLANIFICADO trip to EN_CURSO.
func (c *Controller) Start(ctx context.Context) error {
	v, err := c.current()
	if err != nil {
		return err
	}
	if v.Trip.Status != models.TripPlanned {
		return ErrNotAllowed
	}
	_, err = c.api.StartTrip(ctx, c.tripID)
	return c.after(ctx, err)
}

// Complete closes an EN_CURSO trip. Both values come from the completion
// form and must be present.
func (c *Controller) Complete(ctx context.Context, arrival *time.Time, km *float64) error {
	v, err := c.current()
	if err != nil {
		return err
	}
	if v.Trip.Status != models.TripInProgress {
		return ErrNotAllowed
	}
	if arrival == nil || arrival.IsZero() || km == nil {
		return ErrMissingCompletionData
	}
	_, err = c.api.CompleteTrip(ctx, c.tripID, models.CompleteTripRequest{ActualArrival: arrival, ActualKm: km})
	return c.after(ctx, err)
}

// Cancel asks for confirmation and cancels the trip.
func (c *Controller) Cancel(ctx context.Context) error {
	v, err := c.current()
	if err != nil {
		return err
	}
	if v.Trip.Status.IsTerminal() {
		return ErrNotAllowed
	}
	if c.confirm == nil || !c.confirm.Confirm(fmt.Sprintf("¿Cancelar el viaje #%d? Esta acción no se puede deshacer.", c.tripID)) {
		return ErrNotConfirmed
	}
	_, err = c.api.CancelTrip(ctx, c.tripID)
	return c.after(ctx, err)
}

// ParseAmount reads a user-typed amount. Empty, malformed and
// non-positive input is rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RegisterPayment records a client payment typed by the user.
func (c *Controller) RegisterPayment(ctx context.Context, amount string) error {
	v, err := c.current()
	if err != nil {
		return err
	}
	d, err := ParseAmount(amount)
	if err != nil {
		return err
	}
	if v.Trip.PaymentStatus == models.PaymentPaid {
		return ErrAlreadyPaid
	}
	_, err = c.api.RegisterPayment(ctx, c.tripID, d.InexactFloat64())
	return c.after(ctx, err)
}

// AddExpense attaches an expense, with an optional receipt, to a trip
// that has not finished.
func (c *Controller) AddExpense(ctx context.Context, req models.ExpenseRequest, receipt *apiclient.Attachment) error {
	v, err := c.current()
	if err != nil {
		return err
	}
	if !v.Trip.Status.AcceptsExpenses() {
		return ErrNotAllowed
	}
	if req.Amount <= 0 {
		return ErrInvalidAmount
	}
	_, err = c.api.AddExpense(ctx, c.tripID, req, receipt)
	return c.after(ctx, err)
}
