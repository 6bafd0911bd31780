package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/middleware"
	"github.com/ukydev/fleet-ops/internal/respond"
	"github.com/ukydev/fleet-ops/internal/storage"
	"github.com/ukydev/fleet-ops/internal/trips"
)

const maxJSONBody = 1 << 20

var errBadID = errors.New("identificador inválido")

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "No se pudo leer la solicitud")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "JSON inválido")
		return false
	}
	return true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formCloser releases the uploaded file and the temporary form files.
type formCloser struct {
	r    *http.Request
	file multipart.File
}

func (c formCloser) Close() error {
	if c.file != nil {
		c.file.Close()
	}
	if c.r.MultipartForm != nil {
		return c.r.MultipartForm.RemoveAll()
	}
	return nil
}

// parseMultipart parses the form and returns the optional receipt. The
// caller must close the returned closer.
func parseMultipart(w http.ResponseWriter, r *http.Request) (*trips.Receipt, io.Closer, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxReceiptSize+maxJSONBody)
	if err := r.ParseMultipartForm(storage.MaxReceiptSize); err != nil {
		respond.Error(w, http.StatusBadRequest, "Formulario inválido o archivo demasiado grande")
		return nil, nil, false
	}
	file, header, err := r.FormFile("comprobante")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, formCloser{r: r}, true
	}
	if err != nil {
		formCloser{r: r}.Close()
		respond.Error(w, http.StatusBadRequest, "No se pudo leer el comprobante")
		return nil, nil, false
	}
	return &trips.Receipt{Filename: header.Filename, Body: file}, formCloser{r: r, file: file}, true
}

func formFloat(r *http.Request, key string) (float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: número inválido", key)
	}
	return f, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("fecha inválida: %s", v)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func tripIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func actorFrom(r *http.Request) trips.Actor {
	actor := trips.Actor{IP: middleware.ClientIP(r)}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		actor.UserID = claims.UserID
		actor.Username = claims.Username
	}
	return actor
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *trips.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "Datos inválidos"
		if len(verr.Fields) > 0 {
			msg = verr.Fields[0].Message
		}
		respond.Invalid(w, msg, verr.Fields)
	case errors.Is(err, errBadID):
		respond.Error(w, http.StatusBadRequest, "Identificador inválido")
	case errors.Is(err, trips.ErrTripNotFound):
		respond.Error(w, http.StatusNotFound, "Viaje no encontrado")
	case errors.Is(err, trips.ErrDriverPaymentNotFound):
		respond.Error(w, http.StatusNotFound, "Pago a chofer no encontrado")
	case errors.Is(err, trips.ErrInvalidTransition),
		errors.Is(err, trips.ErrAlreadyPaid),
		errors.Is(err, trips.ErrExpensesClosed),
		errors.Is(err, trips.ErrDriverPaymentAlreadyPaid):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, trips.ErrConcurrentUpdate):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("Request failed")
		respond.Error(w, http.StatusInternalServerError, "Error interno del servidor")
	}
}
