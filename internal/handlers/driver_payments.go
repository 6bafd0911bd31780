package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/respond"
	"github.com/ukydev/fleet-ops/internal/trips"
)

// DriverPaymentHandler serves /api/pagos-chofer.
type DriverPaymentHandler struct {
	service TripService
}

// NewDriverPaymentHandler creates a driver payment handler.
func NewDriverPaymentHandler(service TripService) *DriverPaymentHandler {
	return &DriverPaymentHandler{service: service}
}

// List handles GET /api/pagos-chofer?viajeId&choferId&estado.
func (h *DriverPaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DriverPaymentFilter{
		DriverID: q.Get("choferId"),
		Status:   models.DriverPaymentStatus(q.Get("estado")),
	}
	if v := q.Get("viajeId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "viajeId inválido")
			return
		}
		filter.TripID = &id
	}
	payments, err := h.service.DriverPayments(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Data(w, http.StatusOK, payments)
}

// Create handles POST /api/pagos-chofer as JSON or multipart.
func (h *DriverPaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		req     models.DriverPaymentRequest
		receipt *trips.Receipt
		err     error
	)
	if isMultipart(r) {
		var closer io.Closer
		var ok bool
		receipt, closer, ok = parseMultipart(w, r)
		if !ok {
			return
		}
		defer closer.Close()
		if req, err = driverPaymentFromForm(r); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.service.RegisterDriverPayment(r.Context(), actorFrom(r), req, receipt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusCreated, "Pago a chofer registrado", payment)
}

// MarkPaid handles PATCH /api/pagos-chofer/{id}/pagar.
func (h *DriverPaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.MarkDriverPaymentPaid(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Pago a chofer marcado como pagado", payment)
}

func driverPaymentFromForm(r *http.Request) (models.DriverPaymentRequest, error) {
	amount, err := formFloat(r, "monto")
	if err != nil {
		return models.DriverPaymentRequest{}, err
	}
	date, err := parseDate(r.FormValue("fecha"))
	if err != nil {
		return models.DriverPaymentRequest{}, err
	}
	req := models.DriverPaymentRequest{
		DriverID:      r.FormValue("choferId"),
		Amount:        amount,
		Date:          date,
		Status:        models.DriverPaymentStatus(r.FormValue("estado")),
		PaymentMethod: r.FormValue("metodoPago"),
		Concept:       r.FormValue("concepto"),
	}
	if v := strings.TrimSpace(r.FormValue("viajeId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errBadID
		}
		req.TripID = &id
	}
	return req, nil
}
