package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/export"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/reports"
	"github.com/ukydev/fleet-ops/internal/respond"
)

// ReportHandler serves the cartera report and the alert summary.
type ReportHandler struct {
	source  db.ReportSource
	dueSoon time.Duration
	now     func() time.Time
}

// NewReportHandler creates a report handler. dueSoon is the look-ahead for
// payments about to fall due.
func NewReportHandler(source db.ReportSource, dueSoon time.Duration) *ReportHandler {
	return &ReportHandler{source: source, dueSoon: dueSoon, now: time.Now}
}

func (h *ReportHandler) cartera(r *http.Request) (models.CarteraReport, error) {
	receivable, err := h.source.ReceivableTrips(r.Context())
	if err != nil {
		return models.CarteraReport{}, fmt.Errorf("load receivable trips: %w", err)
	}
	names, err := h.source.ClientNames(r.Context())
	if err != nil {
		return models.CarteraReport{}, fmt.Errorf("load client names: %w", err)
	}
	return reports.BuildCartera(receivable, names, h.now()), nil
}

// Cartera handles GET /api/reportes/cartera.
func (h *ReportHandler) Cartera(w http.ResponseWriter, r *http.Request) {
	report, err := h.cartera(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Data(w, http.StatusOK, report)
}

// CarteraCSV handles GET /api/reportes/cartera/exportar.
func (h *ReportHandler) CarteraCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.cartera(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.CarteraCSV(&buf, report.Rows); err != nil {
		writeError(w, r, fmt.Errorf("render cartera csv: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.CarteraFilename(report.GeneratedAt)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Alerts handles GET /api/alertas/resumen.
func (h *ReportHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.source.AlertCounts(r.Context(), h.now(), h.dueSoon)
	if err != nil {
		writeError(w, r, fmt.Errorf("count alerts: %w", err))
		return
	}
	respond.Data(w, http.StatusOK, summary)
}
