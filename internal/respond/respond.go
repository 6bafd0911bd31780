// Package respond writes the standard JSON envelope.
package respond

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/models"
)

// JSON writes any value as JSON with the given status.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// Data writes a successful envelope.
func Data(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, models.Envelope{Success: true, Data: data})
}

// Message writes a successful envelope with a message.
func Message(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, models.Envelope{Success: true, Message: message, Data: data})
}

// Paged writes a successful list envelope with pagination metadata.
func Paged(w http.ResponseWriter, data interface{}, page models.Page) {
	JSON(w, http.StatusOK, models.PagedEnvelope{
		Envelope: models.Envelope{Success: true, Data: data},
		Page:     page,
	})
}

// Error writes a failed envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, models.Envelope{Success: false, Message: message})
}

// Invalid writes a 400 envelope with field errors.
func Invalid(w http.ResponseWriter, message string, fields []models.FieldError) {
	JSON(w, http.StatusBadRequest, models.Envelope{Success: false, Message: message, Errors: fields})
}
