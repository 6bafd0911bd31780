package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ukydev/fleet-ops/internal/export"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
)

// TripPage is one page of the trip list.
type TripPage struct {
	Trips []models.Trip
	Page  models.Page
}

// AuditPage is one page of the audit log.
type AuditPage struct {
	Entries []models.AuditEntry
	Page    models.Page
}

func tripPath(id int64, suffix string) string {
	return "/viajes/" + strconv.FormatInt(id, 10) + suffix
}

// Login exchanges credentials for a token. A 401 is returned to the
// caller without touching the session or notifying.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	r, err := jsonRequest(http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	r.login = true
	var out models.LoginResponse
	if _, err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the logged-in user.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/perfil", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTrips fetches one page of trips.
func (c *Client) ListTrips(ctx context.Context, f models.TripFilter) (*TripPage, error) {
	q := url.Values{}
	setNonEmpty(q, "estado", string(f.Status))
	setNonEmpty(q, "clienteId", f.ClientID)
	setNonEmpty(q, "choferId", f.DriverID)
	setNonEmpty(q, "busqueda", f.Search)
	if f.Page > 0 {
		q.Set("pagina", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limite", strconv.Itoa(f.Limit))
	}

	var list []models.Trip
	env, err := c.do(ctx, request{method: http.MethodGet, path: "/viajes", query: q}, &list)
	if err != nil {
		return nil, err
	}
	return &TripPage{Trips: list, Page: models.Page{
		Total: env.Total, Page: env.Page, Limit: env.Limit, TotalPages: env.TotalPages,
	}}, nil
}

func setNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// GetTrip fetches one trip.
func (c *Client) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return c.tripCall(ctx, http.MethodGet, tripPath(id, ""), nil)
}

// CreateTrip creates a trip.
func (c *Client) CreateTrip(ctx context.Context, req models.CreateTripRequest) (*models.Trip, error) {
	return c.tripCall(ctx, http.MethodPost, "/viajes", req)
}

// StartTrip moves a trip to EN_CURSO.
func (c *Client) StartTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return c.tripCall(ctx, http.MethodPatch, tripPath(id, "/iniciar"), nil)
}

// CompleteTrip moves a trip to COMPLETADO.
func (c *Client) CompleteTrip(ctx context.Context, id int64, req models.CompleteTripRequest) (*models.Trip, error) {
	return c.tripCall(ctx, http.MethodPatch, tripPath(id, "/completar"), req)
}

// CancelTrip moves a trip to CANCELADO.
func (c *Client) CancelTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return c.tripCall(ctx, http.MethodPatch, tripPath(id, "/cancelar"), nil)
}

// RegisterPayment records a client payment.
func (c *Client) RegisterPayment(ctx context.Context, id int64, amount float64) (*models.Trip, error) {
	return c.tripCall(ctx, http.MethodPost, tripPath(id, "/pagos"), models.PaymentRequest{Amount: amount})
}

func (c *Client) tripCall(ctx context.Context, method, path string, in interface{}) (*models.Trip, error) {
	var out models.Trip
	if err := c.doJSON(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TripExpenses lists the expenses of a trip.
func (c *Client) TripExpenses(ctx context.Context, id int64) ([]models.Expense, error) {
	var out []models.Expense
	if err := c.doJSON(ctx, http.MethodGet, tripPath(id, "/gastos"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TripSummary fetches the server-computed reconciliation of a trip.
func (c *Client) TripSummary(ctx context.Context, id int64) (*finance.TripDetail, error) {
	var out finance.TripDetail
	if err := c.doJSON(ctx, http.MethodGet, tripPath(id, "/resumen"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddExpense registers an expense, as multipart when a receipt is attached.
func (c *Client) AddExpense(ctx context.Context, id int64, req models.ExpenseRequest, receipt *Attachment) (*models.Expense, error) {
	var (
		r   request
		err error
	)
	if receipt != nil {
		r, err = multipartRequest(http.MethodPost, tripPath(id, "/gastos"), map[string]string{
			"tipo":        string(req.Type),
			"monto":       formatAmount(req.Amount),
			"fecha":       formatTime(req.Date),
			"metodoPago":  req.PaymentMethod,
			"descripcion": req.Description,
		}, receipt)
	} else {
		r, err = jsonRequest(http.MethodPost, tripPath(id, "/gastos"), req)
	}
	if err != nil {
		return nil, err
	}
	var out models.Expense
	if _, err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DriverPayments lists driver payments.
func (c *Client) DriverPayments(ctx context.Context, f models.DriverPaymentFilter) ([]models.DriverPayment, error) {
	q := url.Values{}
	if f.TripID != nil {
		q.Set("viajeId", strconv.FormatInt(*f.TripID, 10))
	}
	setNonEmpty(q, "choferId", f.DriverID)
	setNonEmpty(q, "estado", string(f.Status))

	var out []models.DriverPayment
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/pagos-chofer", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDriverPayment registers a driver payment.
func (c *Client) CreateDriverPayment(ctx context.Context, req models.DriverPaymentRequest, receipt *Attachment) (*models.DriverPayment, error) {
	var (
		r   request
		err error
	)
	if receipt != nil {
		fields := map[string]string{
			"choferId":   req.DriverID,
			"monto":      formatAmount(req.Amount),
			"fecha":      formatTime(req.Date),
			"estado":     string(req.Status),
			"metodoPago": req.PaymentMethod,
			"concepto":   req.Concept,
		}
		if req.TripID != nil {
			fields["viajeId"] = strconv.FormatInt(*req.TripID, 10)
		}
		r, err = multipartRequest(http.MethodPost, "/pagos-chofer", fields, receipt)
	} else {
		r, err = jsonRequest(http.MethodPost, "/pagos-chofer", req)
	}
	if err != nil {
		return nil, err
	}
	var out models.DriverPayment
	if _, err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkDriverPaymentPaid moves a driver payment to PAGADO.
func (c *Client) MarkDriverPaymentPaid(ctx context.Context, id string) (*models.DriverPayment, error) {
	var out models.DriverPayment
	if err := c.doJSON(ctx, http.MethodPatch, "/pagos-chofer/"+url.PathEscape(id)+"/pagar", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cartera fetches the accounts-receivable report.
func (c *Client) Cartera(ctx context.Context) (*models.CarteraReport, error) {
	var out models.CarteraReport
	if err := c.doJSON(ctx, http.MethodGet, "/reportes/cartera", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadCartera streams the server-rendered cartera CSV to w and
// returns the file name the server suggested.
func (c *Client) DownloadCartera(ctx context.Context, w io.Writer) (string, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, path: "/reportes/cartera/exportar"})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download cartera: %w", err)
	}
	return filenameFrom(resp.Header.Get("Content-Disposition"), export.CarteraFilename(time.Now())), nil
}

// Alerts fetches the alert counts.
func (c *Client) Alerts(ctx context.Context) (models.AlertSummary, error) {
	var out models.AlertSummary
	err := c.doJSON(ctx, http.MethodGet, "/alertas/resumen", nil, &out)
	return out, err
}

// Audit fetches one page of the audit log.
func (c *Client) Audit(ctx context.Context, page, limit int) (*AuditPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("pagina", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limite", strconv.Itoa(limit))
	}
	var entries []models.AuditEntry
	env, err := c.do(ctx, request{method: http.MethodGet, path: "/auditoria", query: q}, &entries)
	if err != nil {
		return nil, err
	}
	return &AuditPage{Entries: entries, Page: models.Page{
		Total: env.Total, Page: env.Page, Limit: env.Limit, TotalPages: env.TotalPages,
	}}, nil
}
