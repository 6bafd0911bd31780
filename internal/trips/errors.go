package trips

import (
	"errors"
	"strings"

	"github.com/ukydev/fleet-ops/internal/models"
)

var (
	ErrTripNotFound             = errors.New("viaje no encontrado")
	ErrInvalidTransition        = errors.New("transición de estado no permitida")
	ErrAlreadyPaid              = errors.New("el viaje ya está pagado")
	ErrExpensesClosed           = errors.New("no se pueden registrar gastos en un viaje finalizado")
	ErrConcurrentUpdate         = errors.New("el viaje fue modificado por otra operación, intente nuevamente")
	ErrDriverPaymentNotFound    = errors.New("pago a chofer no encontrado")
	ErrDriverPaymentAlreadyPaid = errors.New("el pago a chofer ya está pagado")
)

// ValidationError lists the field errors of a rejected request.
type ValidationError struct {
	Fields []models.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "datos inválidos"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// validator collects field errors.
type validator struct {
	fields []models.FieldError
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.fields = append(v.fields, models.FieldError{Field: field, Message: message})
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
