// Package apiclient is the typed HTTP client of the fleet API. Every call
// goes through one classifier that maps failures to an APIError and
// notifies the user at most once per failure. Calls are never retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/models"
)

// Notifier shows transient messages and navigates to the login screen.
type Notifier interface {
	Notify(message string)
	RedirectToLogin()
}

// Session supplies the bearer token and is expired on 401.
type Session interface {
	Token() string
	// Expire clears the session and reports whether one was active.
	Expire() bool
}

// Attachment is a file sent as the "comprobante" multipart part.
type Attachment struct {
	Filename string
	Body     io.Reader
}

type envelope struct {
	Success    bool                `json:"exito"`
	Message    string              `json:"mensaje"`
	Data       json.RawMessage     `json:"datos"`
	Errors     []models.FieldError `json:"errores"`
	Total      int64               `json:"total"`
	Page       int                 `json:"pagina"`
	Limit      int                 `json:"limite"`
	TotalPages int                 `json:"totalPaginas"`
}

// Client calls the API on behalf of one session.
type Client struct {
	baseURL  string
	http     *http.Client
	session  Session
	notifier Notifier
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api.
func New(baseURL string, session Session, notifier Notifier, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		session:  session,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// login requests pass 401 through untouched
	login bool
}

func jsonRequest(method, path string, v interface{}) (request, error) {
	req := request{method: method, path: path}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return req, fmt.Errorf("encode request: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

// send performs the call and returns the raw response for 2xx.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if tok := c.session.Token(); tok != "" && !r.login {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		apiErr := &APIError{Kind: KindNetwork, Message: MsgNoConnection, Err: err}
		c.notify(apiErr)
		return nil, apiErr
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	defer resp.Body.Close()

	var env envelope
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr := classify(resp.StatusCode, nil)
		return nil, c.handle(r, apiErr)
	}
	return nil, c.handle(r, classify(resp.StatusCode, &env))
}

// handle applies the per-status side effects of a failed call.
func (c *Client) handle(r request, e *APIError) *APIError {
	log.WithFields(log.Fields{"method": r.method, "path": r.path, "status": e.Status}).Debug("API call failed")
	switch e.Kind {
	case KindUnauthorized:
		if r.login {
			return e
		}
		e.Message = MsgSessionExpired
		if c.session.Expire() {
			c.notifier.RedirectToLogin()
			c.notify(e)
		} else {
			// another call already told the user
			e.Notified = true
		}
	case KindNotFound:
		if r.method != http.MethodGet {
			c.notify(e)
		}
	default:
		c.notify(e)
	}
	return e
}

func (c *Client) notify(e *APIError) {
	c.notifier.Notify(e.Message)
	e.Notified = true
}

// do sends r and decodes the envelope data into out.
func (c *Client) do(ctx context.Context, r request, out interface{}) (*envelope, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", r.method, r.path, err)
		}
	}
	return &env, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	r, err := jsonRequest(method, path, in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r, out)
	return err
}

// multipartRequest encodes fields plus the optional attachment.
func multipartRequest(method, path string, fields map[string]string, att *Attachment) (request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return request{}, err
		}
	}
	if att != nil {
		part, err := mw.CreateFormFile("comprobante", att.Filename)
		if err != nil {
			return request{}, err
		}
		if _, err := io.Copy(part, att.Body); err != nil {
			return request{}, fmt.Errorf("read attachment: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return request{}, err
	}
	return request{method: method, path: path, body: &buf, contentType: mw.FormDataContentType()}, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// filenameFrom reads the attachment name of a Content-Disposition header.
func filenameFrom(header, fallback string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}

// IsNotified reports whether err was already shown to the user.
func IsNotified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Notified
}

// KindOf returns the kind of an APIError, zero for other errors.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
