package apiclient

import (
	"fmt"
	"net/http"

	"github.com/ukydev/fleet-ops/internal/models"
)

// Kind classifies a failed call.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindServer
	KindNetwork
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "other"
	}
}

// User-facing messages.
const (
	MsgSessionExpired = "Su sesión expiró, inicie sesión nuevamente"
	MsgForbidden      = "No tiene permisos para realizar esta acción"
	MsgInvalid        = "Datos inválidos"
	MsgNotFound       = "Recurso no encontrado"
	MsgServer         = "Error del servidor, intente más tarde"
	MsgNoConnection   = "Sin conexión con el servidor"
)

// APIError is returned for every failed call. Notified is set when the
// client has already shown Message to the user.
type APIError struct {
	Status   int
	Kind     Kind
	Message  string
	Fields   []models.FieldError
	Notified bool
	Err      error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// classify turns a failed response into an APIError. It does not notify.
func classify(status int, env *envelope) *APIError {
	e := &APIError{Status: status}
	var serverMsg string
	if env != nil {
		serverMsg = env.Message
		e.Fields = env.Errors
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		e.Message = MsgSessionExpired
		if serverMsg != "" {
			e.Message = serverMsg
		}
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
		e.Message = MsgForbidden
	case status == http.StatusBadRequest:
		e.Kind = KindValidation
		switch {
		case len(e.Fields) > 0 && e.Fields[0].Message != "":
			e.Message = e.Fields[0].Message
		case serverMsg != "":
			e.Message = serverMsg
		default:
			e.Message = MsgInvalid
		}
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = orDefault(serverMsg, MsgNotFound)
	case status == http.StatusConflict:
		e.Kind = KindConflict
		e.Message = orDefault(serverMsg, MsgServer)
	case status >= 500:
		e.Kind = KindServer
		e.Message = MsgServer
	default:
		e.Kind = KindOther
		e.Message = orDefault(serverMsg, http.StatusText(status))
	}
	return e
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
