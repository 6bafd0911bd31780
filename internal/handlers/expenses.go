package handlers

import (
	"io"
	"net/http"

	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/respond"
	"github.com/ukydev/fleet-ops/internal/trips"
)

// ListExpenses handles GET /api/viajes/{id}/gastos.
func (h *TripHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := h.service.Expenses(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Data(w, http.StatusOK, expenses)
}

// AddExpense handles POST /api/viajes/{id}/gastos as JSON or multipart
// with an optional "comprobante" file.
func (h *TripHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	id, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		req     models.ExpenseRequest
		receipt *trips.Receipt
	)
	if isMultipart(r) {
		var closer io.Closer
		var ok bool
		receipt, closer, ok = parseMultipart(w, r)
		if !ok {
			return
		}
		defer closer.Close()
		if req, err = expenseFromForm(r); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := h.service.AddExpense(r.Context(), actorFrom(r), id, req, receipt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Message(w, http.StatusCreated, "Gasto registrado", expense)
}

func expenseFromForm(r *http.Request) (models.ExpenseRequest, error) {
	amount, err := formFloat(r, "monto")
	if err != nil {
		return models.ExpenseRequest{}, err
	}
	date, err := parseDate(r.FormValue("fecha"))
	if err != nil {
		return models.ExpenseRequest{}, err
	}
	return models.ExpenseRequest{
		Type:          models.ExpenseType(r.FormValue("tipo")),
		Amount:        amount,
		Date:          date,
		PaymentMethod: r.FormValue("metodoPago"),
		Description:   r.FormValue("descripcion"),
	}, nil
}
