package handlers

import (
	"net/http"

	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/respond"
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	audit db.AuditCollection
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(audit db.AuditCollection) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /api/auditoria?pagina&limite.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := db.NormalizePage(queryInt(r, "pagina"), queryInt(r, "limite"))
	entries, total, err := h.audit.FindAudit(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Paged(w, entries, models.NewPage(total, page, limit))
}
