package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/five82/pase/internal/comanda"
)

// API is the set of backend operations the kitchen uses.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	FetchBoard(ctx context.Context, day string) ([]comanda.Order, error)
	FetchDay(ctx context.Context, day string) ([]comanda.Order, error)
	SetDishState(ctx context.Context, orderID, menuItemID string, state comanda.DishState) error
	SetOrderStatus(ctx context.Context, orderID string, status comanda.OrderStatus) error
	UpdateOrder(ctx context.Context, order comanda.Order) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the comanda HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	log       logrus.FieldLogger
}

const (
	defaultAPIURL    = "http://127.0.0.1:3000/api/comanda"
	defaultUserAgent = "pase/0.1"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 4 << 10
)

// NewClient builds a Client for the given API url. The url is normalized to
// end in /api/comanda.
func NewClient(apiURL string, log logrus.FieldLogger) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		log:       log.WithField("component", "backend"),
	}, nil
}

// BaseURL returns the normalized API url.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.baseURL.String(), "/")
}

// FetchBoard retrieves the active orders of the given business day.
func (c *Client) FetchBoard(ctx context.Context, day string) ([]comanda.Order, error) {
	return c.fetchOrders(ctx, "fechastatus", day)
}

// FetchDay retrieves every order of the given business day, including
// finished ones.
func (c *Client) FetchDay(ctx context.Context, day string) ([]comanda.Order, error) {
	return c.fetchOrders(ctx, "fecha", day)
}

func (c *Client) fetchOrders(ctx context.Context, kind, day string) ([]comanda.Order, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(day) == "" {
		return nil, fmt.Errorf("day required")
	}
	var payload []OrderPayload
	if err := c.do(ctx, http.MethodGet, kind+"/"+url.PathEscape(day), nil, &payload); err != nil {
		return nil, err
	}
	return NormalizeOrders(payload), nil
}

// SetDishState requests a dish state change.
func (c *Client) SetDishState(ctx context.Context, orderID, menuItemID string, state comanda.DishState) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if orderID == "" || menuItemID == "" {
		return fmt.Errorf("order and dish id required")
	}
	path := url.PathEscape(orderID) + "/plato/" + url.PathEscape(menuItemID) + "/estado"
	return c.do(ctx, http.MethodPut, path, dishStateBody{State: state.Wire()}, nil)
}

// SetOrderStatus requests an order status change.
func (c *Client) SetOrderStatus(ctx context.Context, orderID string, status comanda.OrderStatus) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if orderID == "" {
		return fmt.Errorf("order id required")
	}
	return c.do(ctx, http.MethodPut, url.PathEscape(orderID)+"/status", orderStatusBody{Status: status.Wire()}, nil)
}

// UpdateOrder replaces the full order.
func (c *Client) UpdateOrder(ctx context.Context, order comanda.Order) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if order.ID == "" {
		return fmt.Errorf("order id required")
	}
	return c.do(ctx, http.MethodPut, url.PathEscape(order.ID), EncodeOrder(order), nil)
}

// DeleteOrder soft-deletes an order.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if orderID == "" {
		return fmt.Errorf("order id required")
	}
	return c.do(ctx, http.MethodDelete, url.PathEscape(orderID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       reqURL.Path,
	})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("request done")

	if resp.StatusCode >= 400 {
		return newAPIError(method, rel.String(), resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	normalized := NormalizeAPIURL(apiURL)
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	// A trailing slash makes relative references resolve under the base path.
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	return u, nil
}

// NormalizeAPIURL makes sure the url has a scheme and ends in /api/comanda.
func NormalizeAPIURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	switch {
	case strings.HasSuffix(trimmed, "/api/comanda"):
	case strings.HasSuffix(trimmed, "/api"):
		trimmed += "/comanda"
	default:
		trimmed += "/api/comanda"
	}
	return trimmed
}

// ServerBaseURL strips the /api/comanda suffix, leaving the server root.
func ServerBaseURL(apiURL string) string {
	return strings.TrimSuffix(NormalizeAPIURL(apiURL), "/api/comanda")
}
