// Package httpsource reads list pages from the back-office REST API.
package httpsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/source"
	"kasirinaja/backoffice/internal/xid"
)

const maxBodyBytes = 8 << 20

// APIError is a non-2xx answer of the list API, passed through untouched.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outgoing list requests; rps <= 0 disables the cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New targets baseURL (e.g. "https://api.kasirinaja.id/v1") and sends token
// as a bearer credential when it is non-empty.
func New(baseURL string, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "list-api"))
	return c
}

var _ source.Source = (*Client)(nil)

type listResponse struct {
	Items      []domain.Record    `json:"items"`
	Data       []domain.Record    `json:"data"`
	Pagination *domain.Pagination `json:"pagination"`
	Meta       *domain.Pagination `json:"meta"`
}

func (c *Client) List(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error) {
	if screen == nil {
		return nil, source.ErrUnknownScreen
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := c.baseURL + screen.Path
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := xid.RequestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.log.Debug("list request failed",
			slog.String("screen", screen.Name),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", xid.RequestIDFrom(ctx)),
		)
		return nil, decodeError(resp.StatusCode, body)
	}

	var payload listResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return payload.page(params), nil
}

func decodeError(status int, body []byte) *APIError {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Error != "" {
			return &APIError{StatusCode: status, Message: errResp.Error}
		}
		if errResp.Message != "" {
			return &APIError{StatusCode: status, Message: errResp.Message}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// page accepts both {items, pagination} and {data, meta}. Without page
// metadata the items are taken as the whole result.
func (r listResponse) page(params query.Params) *domain.Page {
	items := r.Items
	if items == nil {
		items = r.Data
	}
	if items == nil {
		items = []domain.Record{}
	}

	meta := r.Pagination
	if meta == nil {
		meta = r.Meta
	}
	if meta == nil {
		page, perPage := query.Paging(params, len(items))
		meta = &domain.Pagination{CurrentPage: page, PerPage: perPage, Total: len(items)}
	}
	p := *meta
	if p.PerPage > 0 && p.LastPage < 1 {
		p.LastPage = source.LastPage(p.Total, p.PerPage)
	}
	if p.LastPage < 1 {
		p.LastPage = 1
	}
	return &domain.Page{Items: items, Pagination: p}
}
