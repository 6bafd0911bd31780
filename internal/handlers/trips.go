package handlers

import (
	"context"
	"net/http"

	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/respond"
	"github.com/ukydev/fleet-ops/internal/trips"
)

// TripService is the part of trips.Service the handlers use.
type TripService interface {
	Create(ctx context.Context, actor trips.Actor, req models.CreateTripRequest) (*models.Trip, error)
	Get(ctx context.Context, id int64) (*models.Trip, error)
	List(ctx context.Context, filter models.TripFilter) ([]models.Trip, models.Page, error)
	Start(ctx context.Context, actor trips.Actor, id int64) (*models.Trip, error)
	Complete(ctx context.Context, actor trips.Actor, id int64, req models.CompleteTripRequest) (*models.Trip, error)
	Cancel(ctx context.Context, actor trips.Actor, id int64) (*models.Trip, error)
	RegisterPayment(ctx context.Context, actor trips.Actor, id int64, req models.PaymentRequest) (*models.Trip, error)
	AddExpense(ctx context.Context, actor trips.Actor, tripID int64, req models.ExpenseRequest, receipt *trips.Receipt) (*models.Expense, error)
	Expenses(ctx context.Context, tripID int64) ([]models.Expense, error)
	Detail(ctx context.Context, tripID int64) (*finance.TripDetail, error)
	RegisterDriverPayment(ctx context.Context, actor trips.Actor, req models.DriverPaymentRequest, receipt *trips.Receipt) (*models.DriverPayment, error)
	MarkDriverPaymentPaid(ctx context.Context, actor trips.Actor, id string) (*models.DriverPayment, error)
	DriverPayments(ctx context.Context, filter models.DriverPaymentFilter) ([]models.DriverPayment, error)
}

// TripHandler serves /api/viajes.
type TripHandler struct {
	service TripService
}

// NewTripHandler creates a trip handler.
func NewTripHandler(service TripService) *TripHandler {
	return &TripHandler{service: service}
}

// List handles GET /api/viajes.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TripFilter{
		Status:   models.TripStatus(q.Get("estado")),
		ClientID: q.Get("clienteId"),
		DriverID: q.Get("choferId"),
		Search:   q.Get("busqueda"),
		Page:     queryInt(r, "pagina"),
		Limit:    queryInt(r, "limite"),
	}
	list, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Paged(w, list, page)
}

// Create handles POST /api/viajes.
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.service.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusCreated, "Viaje creado", trip)
}

// Get handles GET /api/viajes/{id}.
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Data(w, http.StatusOK, trip)
}

// Start handles PATCH /api/viajes/{id}/iniciar.
func (h *TripHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Viaje iniciado", h.service.Start)
}

// Cancel handles PATCH /api/viajes/{id}/cancelar.
func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Viaje cancelado", h.service.Cancel)
}

func (h *TripHandler) transition(w http.ResponseWriter, r *http.Request, message string,
	apply func(context.Context, trips.Actor, int64) (*models.Trip, error)) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := apply(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, message, trip)
}

// Complete handles PATCH /api/viajes/{id}/completar.
func (h *TripHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.CompleteTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.service.Complete(r.Context(), actorFrom(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Viaje completado", trip)
}

// RegisterPayment handles POST /api/viajes/{id}/pagos.
func (h *TripHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.service.RegisterPayment(r.Context(), actorFrom(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Pago registrado", trip)
}

// Summary handles GET /api/viajes/{id}/resumen.
func (h *TripHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Data(w, http.StatusOK, detail)
}
