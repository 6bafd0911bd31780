package models

// FieldError is a field-level validation message.
type FieldError struct {
	Field   string `json:"campo"`
	Message string `json:"mensaje"`
}

// Envelope is the standard response body of every API endpoint.
type Envelope struct {
	Success bool         `json:"exito"`
	Message string       `json:"mensaje,omitempty"`
	Data    interface{}  `json:"datos,omitempty"`
	Errors  []FieldError `json:"errores,omitempty"`
}

// Page carries pagination metadata for list endpoints.
type Page struct {
	Total      int64 `json:"total"`
	Page       int   `json:"pagina"`
	Limit      int   `json:"limite"`
	TotalPages int   `json:"totalPaginas"`
}

// PagedEnvelope is the response body of paginated list endpoints.
type PagedEnvelope struct {
	Envelope
	Page
}

// NewPage computes the total page count for a listing.
func NewPage(total int64, page, limit int) Page {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{Total: total, Page: page, Limit: limit, TotalPages: pages}
}
